package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"metro-router/internal/logging"
	"metro-router/internal/transit"
)

// RouteSource supplies the complete current route list, stops included.
type RouteSource interface {
	FetchRoutes(ctx context.Context) ([]transit.Route, error)
}

type CacheMetrics interface {
	CacheHitInc()
	CacheMissInc()
	BuildObserve(d time.Duration, stops, edges int)
	BuildErrInc()
	InvalidatedInc(reason string)
}

// Cache holds at most one built Network for the whole dataset. It never
// detects changes on its own: writers of routes or stops must call
// Invalidate after every committed mutation.
type Cache struct {
	src     RouteSource
	opts    BuildOptions
	logger  *slog.Logger
	metrics CacheMetrics

	group singleflight.Group

	mu      sync.RWMutex
	gen     uint64
	network *Network
}

func NewCache(src RouteSource, opts BuildOptions, logger *slog.Logger, m CacheMetrics) *Cache {
	return &Cache{src: src, opts: opts, logger: logger, metrics: m}
}

// Get returns the cached network, building it first if the cache is empty.
// Concurrent misses for the same generation share one build.
func (c *Cache) Get(ctx context.Context) (*Network, error) {
	c.mu.RLock()
	n, gen := c.network, c.gen
	c.mu.RUnlock()
	if n != nil {
		if c.metrics != nil {
			c.metrics.CacheHitInc()
		}
		return n, nil
	}
	if c.metrics != nil {
		c.metrics.CacheMissInc()
	}

	// Keyed by generation so a caller arriving after Invalidate never joins
	// a build that read the old topology.
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.RLock()
		stored := c.gen == gen && c.network != nil
		n := c.network
		c.mu.RUnlock()
		if stored {
			return n, nil
		}
		return c.rebuild(context.WithoutCancel(ctx), gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Network), nil
}

func (c *Cache) rebuild(ctx context.Context, gen uint64) (*Network, error) {
	start := time.Now()
	routes, err := c.src.FetchRoutes(ctx)
	if err != nil {
		c.buildFailed(err)
		return nil, fmt.Errorf("fetch routes: %w", err)
	}
	n, err := Build(routes, c.opts)
	if err != nil {
		c.buildFailed(err)
		return nil, err
	}
	elapsed := time.Since(start)

	c.mu.Lock()
	if c.gen == gen {
		c.network = n
	}
	current := c.gen == gen
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.BuildObserve(elapsed, n.TotalStops(), n.TotalEdges())
	}
	logging.LogOperation(c.logger, "network_built",
		slog.Int("stops", n.TotalStops()),
		slog.Int("edges", n.TotalEdges()),
		slog.Int("routes", n.TotalRoutes()),
		slog.Uint64("generation", gen),
		slog.Bool("stored", current),
		slog.Duration("duration", elapsed))
	return n, nil
}

func (c *Cache) buildFailed(err error) {
	if c.metrics != nil {
		c.metrics.BuildErrInc()
	}
	logging.LogError(c.logger, "network build failed", err, slog.String("component", "graph_cache"))
}

// Invalidate discards the cached network. The next Get rebuilds.
func (c *Cache) Invalidate(reason string) {
	c.mu.Lock()
	c.gen++
	c.network = nil
	gen := c.gen
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.InvalidatedInc(reason)
	}
	logging.LogOperation(c.logger, "network_invalidated",
		slog.String("reason", reason),
		slog.Uint64("generation", gen))
}

// Generation counts invalidations since construction.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}
