package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"metro-router/internal/booking"
)

const bookingColumns = `id, reference, rider, source_stop_id, destination_stop_id, route_path,
total_stops, total_interchanges, estimated_cost, qr_string, status, created_at`

func scanBooking(row interface{ Scan(...any) error }) (booking.Booking, error) {
	var (
		b    booking.Booking
		path []byte
	)
	err := row.Scan(&b.ID, &b.Reference, &b.Rider, &b.SourceStopID, &b.DestinationStopID, &path,
		&b.TotalStops, &b.TotalInterchanges, &b.EstimatedCost, &b.QRString, &b.Status, &b.CreatedAt)
	if err != nil {
		return booking.Booking{}, err
	}
	if err := json.Unmarshal(path, &b.Path); err != nil {
		return booking.Booking{}, fmt.Errorf("decode route_path of %s: %w", b.Reference, err)
	}
	return b, nil
}

func (s *Store) InsertBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	path, err := json.Marshal(b.Path)
	if err != nil {
		return booking.Booking{}, err
	}
	q := `INSERT INTO bookings (reference, rider, source_stop_id, destination_stop_id, route_path,
  total_stops, total_interchanges, estimated_cost, qr_string, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + bookingColumns
	saved, err := scanBooking(s.db.QueryRowContext(ctx, q,
		b.Reference, b.Rider, int64(b.SourceStopID), int64(b.DestinationStopID), string(path),
		b.TotalStops, b.TotalInterchanges, b.EstimatedCost, b.QRString, string(b.Status), b.CreatedAt))
	if err != nil {
		return booking.Booking{}, translate(err)
	}
	return saved, nil
}

func (s *Store) GetBooking(ctx context.Context, reference string) (booking.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = $1`, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Booking{}, booking.ErrNotFound
	}
	return b, err
}

func (s *Store) ListBookings(ctx context.Context, rider string) ([]booking.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE rider = $1 ORDER BY created_at DESC`, rider)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
