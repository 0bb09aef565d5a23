// Package gtfs converts a static GTFS feed into routes the router can load.
package gtfs

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jamespfennell/gtfs"

	"metro-router/internal/transit"
)

// LoadFile parses a GTFS zip from disk.
func LoadFile(path string) (*gtfs.Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS file: %w", err)
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return static, nil
}

// RoutesFromStatic returns one route per GTFS route that has trips. The trip
// with the most stop times defines the stop order, platforms are replaced by
// their parent station, and stops served by more than one route are marked
// as interchanges. Returned stops carry no id; Code holds the station's
// stop_id, the only stop field GTFS requires to be unique.
func RoutesFromStatic(static *gtfs.Static) []transit.Route {
	longest := make(map[string]*gtfs.ScheduledTrip)
	for i := range static.Trips {
		t := &static.Trips[i]
		if t.Route == nil {
			continue
		}
		if cur, ok := longest[t.Route.Id]; !ok || len(t.StopTimes) > len(cur.StopTimes) {
			longest[t.Route.Id] = t
		}
	}

	var routes []transit.Route
	servedBy := make(map[string]map[string]bool)
	for _, r := range static.Routes {
		trip, ok := longest[r.Id]
		if !ok || len(trip.StopTimes) == 0 {
			continue
		}
		route := transit.Route{Name: routeName(r), Color: routeColor(r.Color)}
		for _, st := range orderedStops(trip.StopTimes) {
			s := station(st)
			code := s.Id
			if n := len(route.Stops); n > 0 && route.Stops[n-1].Code == code {
				continue
			}
			route.Stops = append(route.Stops, transit.Stop{
				Name:      s.Name,
				Code:      code,
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
			})
			if servedBy[code] == nil {
				servedBy[code] = make(map[string]bool)
			}
			servedBy[code][route.Name] = true
		}
		routes = append(routes, route)
	}

	for i := range routes {
		for j := range routes[i].Stops {
			routes[i].Stops[j].Interchange = len(servedBy[routes[i].Stops[j].Code]) > 1
		}
	}
	return routes
}

func orderedStops(times []gtfs.ScheduledStopTime) []*gtfs.Stop {
	sorted := make([]gtfs.ScheduledStopTime, len(times))
	copy(sorted, times)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StopSequence < sorted[j].StopSequence })
	out := make([]*gtfs.Stop, 0, len(sorted))
	for _, st := range sorted {
		if st.Stop != nil {
			out = append(out, st.Stop)
		}
	}
	return out
}

func station(s *gtfs.Stop) *gtfs.Stop {
	for s.Parent != nil {
		s = s.Parent
	}
	return s
}

func routeName(r gtfs.Route) string {
	switch {
	case r.ShortName != "":
		return r.ShortName
	case r.LongName != "":
		return r.LongName
	}
	return r.Id
}

func routeColor(c string) string {
	if c == "" || strings.HasPrefix(c, "#") {
		return c
	}
	return "#" + strings.ToUpper(c)
}
