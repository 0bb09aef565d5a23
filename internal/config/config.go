package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"metro-router/internal/graph"
	"metro-router/internal/logging"
	"metro-router/internal/pathfind"
)

type Config struct {
	DatabaseURL         string
	TopologyFile        string
	NATSURL             string
	NATSTopologySubject string
	HTTPAddr            string
	MetricsAddr         string
	LogLevel            slog.Level
	HopTravelTime       float64
	TransferPenalty     float64
	QueryTimeout        time.Duration
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// A topology file replaces Postgres as the route source.
	cfg.TopologyFile = strings.TrimSpace(os.Getenv("TOPOLOGY_FILE"))

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		if db == "" && cfg.TopologyFile == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set (or TOPOLOGY_FILE for file mode)")
		}
		if db != "" {
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	} else {
		cfg.DatabaseURL = dsn
	}

	// Empty NATS_URL disables cross-replica invalidation.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSTopologySubject = getenvDefault("NATS_TOPOLOGY_SUBJECT", "metro.topology.changed")

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	level, err := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.HopTravelTime, err = envFloat("HOP_TRAVEL_TIME", graph.DefaultHopTravelTime, false); err != nil {
		return nil, err
	}
	// Line change penalty, same unit as travel time; zero is allowed
	if cfg.TransferPenalty, err = envFloat("TRANSFER_PENALTY", pathfind.DefaultTransferPenalty, true); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = envMillis("QUERY_TIMEOUT_MS", 2*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envFloat parses a positive float, or a non-negative one when allowZero is set.
func envFloat(k string, def float64, allowZero bool) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || (f == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return f, nil
}

// envMillis parses a non-negative millisecond count; 0 disables.
func envMillis(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
