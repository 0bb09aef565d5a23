package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"metro-router/internal/config"
	"metro-router/internal/db"
	"metro-router/internal/gtfs"
	"metro-router/internal/logging"
	"metro-router/internal/metrics"
	"metro-router/internal/publisher"
)

func main() {
	feed := flag.String("feed", "", "path to a static GTFS zip")
	flag.Parse()
	if *feed == "" {
		log.Fatal("-feed is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("gtfs-import needs a database; TOPOLOGY_FILE mode is read-only")
	}
	logger := logging.NewStructuredLogger(os.Stdout, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	static, err := gtfs.LoadFile(*feed)
	if err != nil {
		fatal(logger, "load feed", err)
	}
	routes := gtfs.RoutesFromStatic(static)
	logging.LogOperation(logger, "feed_parsed",
		slog.String("feed", *feed),
		slog.Int("routes", len(routes)),
		slog.Int("warnings", len(static.Warnings)))

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "db open error", err)
	}
	defer logging.SafeCloseWithLogging(sqlDB, logger, "db")
	if err := db.Ping(ctx, sqlDB); err != nil {
		fatal(logger, "db ping error", err)
	}
	store := db.NewStore(sqlDB, logger)
	if err := store.Migrate(ctx); err != nil {
		fatal(logger, "db migrate error", err)
	}

	stats, err := importRoutes(ctx, store, routes, logger)
	if err != nil {
		fatal(logger, "import failed", err)
	}
	logging.LogOperation(logger, "gtfs_imported",
		slog.Int("stops", stats.stops),
		slog.Int("routes", stats.routes),
		slog.Int("skipped_routes", stats.skipped),
		slog.Duration("duration", time.Since(start)))

	if cfg.NATSURL == "" {
		return
	}
	mcol := metrics.NewCollector(cfg.HopTravelTime, cfg.TransferPenalty)
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSTopologySubject, "gtfs-import-"+uuid.NewString()[:8], logger, mcol)
	if err != nil {
		fatal(logger, "nats error", err)
	}
	defer pub.Close()
	if err := pub.PublishChange("import", 0); err != nil {
		fatal(logger, "publish import event", err)
	}
	if err := pub.Flush(); err != nil {
		logging.LogError(logger, "nats flush", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logging.LogError(logger, msg, err)
	os.Exit(1)
}
