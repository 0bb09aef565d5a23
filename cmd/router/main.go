package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"metro-router/internal/api"
	"metro-router/internal/booking"
	"metro-router/internal/config"
	"metro-router/internal/db"
	"metro-router/internal/graph"
	"metro-router/internal/logging"
	"metro-router/internal/metrics"
	"metro-router/internal/pathfind"
	"metro-router/internal/publisher"
	"metro-router/internal/routing"
	"metro-router/internal/topology"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewStructuredLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mcol := metrics.NewCollector(cfg.HopTravelTime, cfg.TransferPenalty)
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		defer shutdown(srv, 3*time.Second)
	}

	deps := api.Deps{Logger: logger}
	var (
		src   graph.RouteSource
		store *db.Store
	)
	if cfg.TopologyFile != "" {
		src = topology.NewFileSource(cfg.TopologyFile)
		logger.Info("using topology file", "path", cfg.TopologyFile)
	} else {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			fatal(logger, "db open error", err)
		}
		defer logging.SafeCloseWithLogging(sqlDB, logger, "db")
		if err := db.Ping(ctx, sqlDB); err != nil {
			fatal(logger, "db ping error", err)
		}
		store = db.NewStore(sqlDB, logger)
		if err := store.Migrate(ctx); err != nil {
			fatal(logger, "db migrate error", err)
		}
		src = store
		deps.Store = store
		deps.Health = func(ctx context.Context) error { return db.Ping(ctx, sqlDB) }
	}

	cache := graph.NewCache(src, graph.BuildOptions{HopTravelTime: cfg.HopTravelTime}, logger, mcol)
	planner := routing.NewPlanner(cache, pathfind.New(cfg.TransferPenalty), cfg.QueryTimeout, logger, mcol)
	deps.Planner = planner
	deps.Invalidator = cache
	if store != nil {
		deps.Bookings = booking.NewService(planner, store, logger)
	}

	if cfg.NATSURL != "" {
		origin := hostname() + "-" + uuid.NewString()[:8]
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSTopologySubject, origin, logger, mcol)
		if err != nil {
			fatal(logger, "nats error", err)
		}
		defer pub.Close()
		err = pub.SubscribeChanges(func(ev publisher.TopologyEvent) {
			logger.Info("remote topology change", "kind", ev.Kind, "id", ev.ID, "origin", ev.Origin)
			cache.Invalidate("remote")
		})
		if err != nil {
			fatal(logger, "nats subscribe error", err)
		}
		deps.Publisher = pub
	}

	// SIGHUP drops the cached network so the next query reloads the topology.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				cache.Invalidate("reload")
			}
		}
	}()

	// Build the network up front; on failure the first query retries.
	if _, err := cache.Get(ctx); err != nil {
		logging.LogError(logger, "initial network build failed", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(deps).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()
	logger.Info("router listening", "addr", cfg.HTTPAddr,
		"hop_travel_time", cfg.HopTravelTime,
		"transfer_penalty", cfg.TransferPenalty,
		"nats", cfg.NATSURL != "")

	// Block until context cancelled
	<-ctx.Done()
	shutdown(srv, 10*time.Second)
	logger.Info("shutdown complete")
}

func shutdown(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logging.LogError(logger, msg, err)
	os.Exit(1)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "router"
	}
	return h
}
