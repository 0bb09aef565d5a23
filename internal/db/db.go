package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict covers unique and foreign key violations.
	ErrConflict = errors.New("conflict")
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Store is the persistence side of the router: the topology source for graph
// builds plus stop, route and booking records.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const schema = `
CREATE TABLE IF NOT EXISTS stops (
  id             BIGSERIAL PRIMARY KEY,
  name           TEXT NOT NULL UNIQUE,
  code           TEXT NOT NULL UNIQUE,
  is_interchange BOOLEAN NOT NULL DEFAULT FALSE,
  latitude       DOUBLE PRECISION,
  longitude      DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS routes (
  id    BIGSERIAL PRIMARY KEY,
  name  TEXT NOT NULL UNIQUE,
  color TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS route_stops (
  route_id   BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
  stop_id    BIGINT NOT NULL REFERENCES stops(id),
  stop_order INT    NOT NULL,
  PRIMARY KEY (route_id, stop_order)
);
CREATE TABLE IF NOT EXISTS bookings (
  id                  BIGSERIAL PRIMARY KEY,
  reference           TEXT NOT NULL UNIQUE,
  rider               TEXT NOT NULL,
  source_stop_id      BIGINT NOT NULL REFERENCES stops(id),
  destination_stop_id BIGINT NOT NULL REFERENCES stops(id),
  route_path          JSONB NOT NULL,
  total_stops         INT NOT NULL,
  total_interchanges  INT NOT NULL,
  estimated_cost      DOUBLE PRECISION NOT NULL,
  qr_string           TEXT NOT NULL,
  status              TEXT NOT NULL,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS bookings_rider_idx ON bookings (rider, created_at DESC);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// translate maps driver constraint errors onto ErrConflict.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return errors.Join(ErrConflict, err)
		}
	}
	return err
}
