package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"metro-router/internal/transit"
)

const stopColumns = `id, name, code, is_interchange, latitude, longitude`

func scanStop(row interface{ Scan(...any) error }) (transit.Stop, error) {
	var (
		st       transit.Stop
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&st.ID, &st.Name, &st.Code, &st.Interchange, &lat, &lon); err != nil {
		return transit.Stop{}, err
	}
	st.Latitude = nullFloat(lat)
	st.Longitude = nullFloat(lon)
	return st, nil
}

func (s *Store) ListStops(ctx context.Context) ([]transit.Stop, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stopColumns+` FROM stops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()
	var stops []transit.Stop
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

func (s *Store) GetStop(ctx context.Context, id transit.StopID) (transit.Stop, error) {
	st, err := scanStop(s.db.QueryRowContext(ctx, `SELECT `+stopColumns+` FROM stops WHERE id = $1`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return transit.Stop{}, ErrNotFound
	}
	return st, err
}

// CreateStop inserts st and returns it with its assigned id.
func (s *Store) CreateStop(ctx context.Context, st transit.Stop) (transit.Stop, error) {
	q := `INSERT INTO stops (name, code, is_interchange, latitude, longitude)
VALUES ($1, $2, $3, $4, $5) RETURNING ` + stopColumns
	created, err := scanStop(s.db.QueryRowContext(ctx, q, st.Name, st.Code, st.Interchange, st.Latitude, st.Longitude))
	if err != nil {
		return transit.Stop{}, translate(err)
	}
	return created, nil
}

// UpsertStopByCode inserts st or updates the stop that already has its code.
func (s *Store) UpsertStopByCode(ctx context.Context, st transit.Stop) (transit.Stop, error) {
	q := `INSERT INTO stops (name, code, is_interchange, latitude, longitude)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, is_interchange = EXCLUDED.is_interchange,
  latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
RETURNING ` + stopColumns
	saved, err := scanStop(s.db.QueryRowContext(ctx, q, st.Name, st.Code, st.Interchange, st.Latitude, st.Longitude))
	if err != nil {
		return transit.Stop{}, translate(err)
	}
	return saved, nil
}

func (s *Store) UpdateStop(ctx context.Context, st transit.Stop) (transit.Stop, error) {
	q := `UPDATE stops SET name = $2, code = $3, is_interchange = $4, latitude = $5, longitude = $6
WHERE id = $1 RETURNING ` + stopColumns
	updated, err := scanStop(s.db.QueryRowContext(ctx, q, int64(st.ID), st.Name, st.Code, st.Interchange, st.Latitude, st.Longitude))
	if errors.Is(err, sql.ErrNoRows) {
		return transit.Stop{}, ErrNotFound
	}
	if err != nil {
		return transit.Stop{}, translate(err)
	}
	return updated, nil
}

// DeleteStop removes a stop that no route serves. A stop still on a route
// yields ErrConflict; the route has to be edited or deleted first.
func (s *Store) DeleteStop(ctx context.Context, id transit.StopID) error {
	var routes int
	err := s.db.QueryRowContext(ctx, `SELECT count(DISTINCT route_id) FROM route_stops WHERE stop_id = $1`, int64(id)).Scan(&routes)
	if err != nil {
		return fmt.Errorf("count routes for stop: %w", err)
	}
	if routes > 0 {
		return fmt.Errorf("%w: stop %d is on %d route(s)", ErrConflict, id, routes)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM stops WHERE id = $1`, int64(id))
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
