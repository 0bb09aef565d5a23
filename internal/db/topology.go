package db

import (
	"context"
	"database/sql"
	"fmt"

	"metro-router/internal/transit"
)

const routesWithStopsQuery = `
SELECT r.id, r.name, r.color,
       s.id, s.name, s.code, s.is_interchange, s.latitude, s.longitude
FROM routes r
LEFT JOIN route_stops rs ON rs.route_id = r.id
LEFT JOIN stops s ON s.id = rs.stop_id
%s
ORDER BY r.id, rs.stop_order`

// FetchRoutes returns every route with its stops in line order.
func (s *Store) FetchRoutes(ctx context.Context) ([]transit.Route, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(routesWithStopsQuery, ""))
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()
	return scanRoutes(rows)
}

// GetRoute returns one route with its stops in line order.
func (s *Store) GetRoute(ctx context.Context, id transit.RouteID) (transit.Route, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(routesWithStopsQuery, "WHERE r.id = $1"), int64(id))
	if err != nil {
		return transit.Route{}, fmt.Errorf("query route %d: %w", id, err)
	}
	defer rows.Close()
	routes, err := scanRoutes(rows)
	if err != nil {
		return transit.Route{}, err
	}
	if len(routes) == 0 {
		return transit.Route{}, ErrNotFound
	}
	return routes[0], nil
}

// scanRoutes folds the joined rows into routes; a route without stops yields
// one row with NULL stop columns.
func scanRoutes(rows *sql.Rows) ([]transit.Route, error) {
	var routes []transit.Route
	for rows.Next() {
		var (
			r           transit.Route
			stopID      sql.NullInt64
			name, code  sql.NullString
			interchange sql.NullBool
			lat, lon    sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Color, &stopID, &name, &code, &interchange, &lat, &lon); err != nil {
			return nil, err
		}
		if len(routes) == 0 || routes[len(routes)-1].ID != r.ID {
			routes = append(routes, r)
		}
		if !stopID.Valid {
			continue
		}
		last := &routes[len(routes)-1]
		last.Stops = append(last.Stops, transit.Stop{
			ID:          transit.StopID(stopID.Int64),
			Name:        name.String,
			Code:        code.String,
			Interchange: interchange.Bool,
			Latitude:    nullFloat(lat),
			Longitude:   nullFloat(lon),
		})
	}
	return routes, rows.Err()
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
