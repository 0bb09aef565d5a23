package db

import (
	"context"
	"fmt"

	"metro-router/internal/logging"
	"metro-router/internal/transit"
)

// CreateRoute inserts a route and its ordered stops in one transaction.
// Every stop id must already exist.
func (s *Store) CreateRoute(ctx context.Context, name, color string, stopIDs []transit.StopID) (transit.Route, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transit.Route{}, err
	}
	defer logging.SafeRollbackWithLogging(tx, s.logger, "create_route")

	var id int64
	err = tx.QueryRowContext(ctx, `INSERT INTO routes (name, color) VALUES ($1, $2) RETURNING id`, name, color).Scan(&id)
	if err != nil {
		return transit.Route{}, translate(err)
	}
	for i, stopID := range stopIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO route_stops (route_id, stop_id, stop_order) VALUES ($1, $2, $3)`,
			id, int64(stopID), i)
		if err != nil {
			return transit.Route{}, fmt.Errorf("route stop %d: %w", stopID, translate(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return transit.Route{}, err
	}
	return s.GetRoute(ctx, transit.RouteID(id))
}

// ReplaceRouteByName creates the named route or, if it exists, replaces its
// color and stop sequence.
func (s *Store) ReplaceRouteByName(ctx context.Context, name, color string, stopIDs []transit.StopID) (transit.Route, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transit.Route{}, err
	}
	defer logging.SafeRollbackWithLogging(tx, s.logger, "replace_route")

	var id int64
	err = tx.QueryRowContext(ctx, `INSERT INTO routes (name, color) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET color = EXCLUDED.color RETURNING id`, name, color).Scan(&id)
	if err != nil {
		return transit.Route{}, translate(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM route_stops WHERE route_id = $1`, id); err != nil {
		return transit.Route{}, err
	}
	for i, stopID := range stopIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO route_stops (route_id, stop_id, stop_order) VALUES ($1, $2, $3)`,
			id, int64(stopID), i)
		if err != nil {
			return transit.Route{}, fmt.Errorf("route stop %d: %w", stopID, translate(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return transit.Route{}, err
	}
	return s.GetRoute(ctx, transit.RouteID(id))
}

func (s *Store) DeleteRoute(ctx context.Context, id transit.RouteID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, int64(id))
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}
