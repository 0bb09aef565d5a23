package graph

import "metro-router/internal/transit"

// DefaultHopTravelTime is the weight of a single hop when no timing data exists.
const DefaultHopTravelTime = 2.0

type BuildOptions struct {
	HopTravelTime float64
}

func (o BuildOptions) hopTravelTime() float64 {
	if o.HopTravelTime <= 0 {
		return DefaultHopTravelTime
	}
	return o.HopTravelTime
}

// Build turns the full route list into a Network. Stops are deduplicated by id
// across routes; each consecutive pair on a route becomes a forward and a
// reverse edge. routes is not modified.
func Build(routes []transit.Route, opts BuildOptions) (*Network, error) {
	weight := opts.hopTravelTime()
	n := newNetwork()
	for _, r := range routes {
		for _, s := range r.Stops {
			if !n.ContainsStop(s.ID) {
				n.addNode(Node{
					StopID:      s.ID,
					Name:        s.Name,
					Code:        s.Code,
					Interchange: s.Interchange,
				})
			}
		}
		for i := 0; i+1 < len(r.Stops); i++ {
			err := n.addEdge(Edge{
				From:       r.Stops[i].ID,
				To:         r.Stops[i+1].ID,
				RouteID:    r.ID,
				RouteName:  r.Name,
				RouteColor: r.Color,
				TravelTime: weight,
			})
			if err != nil {
				return nil, err
			}
		}
		n.routes++
	}
	return n, nil
}
