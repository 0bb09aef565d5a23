package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"metro-router/internal/db"
	"metro-router/internal/logging"
	"metro-router/internal/transit"
)

type routeWriter interface {
	UpsertStopByCode(ctx context.Context, st transit.Stop) (transit.Stop, error)
	ReplaceRouteByName(ctx context.Context, name, color string, stopIDs []transit.StopID) (transit.Route, error)
}

type importStats struct {
	stops, routes, skipped int
}

// upsertStop saves st by code. Station names repeat across a feed, so a
// conflict is retried once with the code appended to the name.
func upsertStop(ctx context.Context, w routeWriter, st transit.Stop) (transit.Stop, error) {
	saved, err := w.UpsertStopByCode(ctx, st)
	if !errors.Is(err, db.ErrConflict) {
		return saved, err
	}
	st.Name = fmt.Sprintf("%s (%s)", st.Name, st.Code)
	return w.UpsertStopByCode(ctx, st)
}

// importRoutes upserts every stop by code and every route by name. A route
// whose stops or row conflict with existing data is skipped and logged; any
// other error aborts the import.
func importRoutes(ctx context.Context, w routeWriter, routes []transit.Route, logger *slog.Logger) (importStats, error) {
	var stats importStats
	ids := make(map[string]transit.StopID)
	failed := make(map[string]bool)

	for _, r := range routes {
		stopIDs := make([]transit.StopID, 0, len(r.Stops))
		for _, st := range r.Stops {
			if failed[st.Code] {
				break
			}
			if id, ok := ids[st.Code]; ok {
				stopIDs = append(stopIDs, id)
				continue
			}
			saved, err := upsertStop(ctx, w, st)
			if errors.Is(err, db.ErrConflict) {
				logging.LogError(logger, "stop skipped", err, slog.String("code", st.Code))
				failed[st.Code] = true
				break
			}
			if err != nil {
				return stats, err
			}
			ids[st.Code] = saved.ID
			stats.stops++
			stopIDs = append(stopIDs, saved.ID)
		}
		if len(stopIDs) != len(r.Stops) {
			stats.skipped++
			continue
		}

		_, err := w.ReplaceRouteByName(ctx, r.Name, r.Color, stopIDs)
		if errors.Is(err, db.ErrConflict) {
			logging.LogError(logger, "route skipped", err, slog.String("route", r.Name))
			stats.skipped++
			continue
		}
		if err != nil {
			return stats, err
		}
		stats.routes++
	}
	return stats, nil
}
