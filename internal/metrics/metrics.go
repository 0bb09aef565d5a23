package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metro-router/internal/logging"
)

type Collector struct {
	reg *prometheus.Registry

	GraphBuilds        prometheus.Counter
	GraphBuildErrs     prometheus.Counter
	GraphBuildDuration prometheus.Histogram
	GraphStops         prometheus.Gauge
	GraphEdges         prometheus.Gauge

	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheInvalidations *prometheus.CounterVec // reason label: stop_created|route_deleted|remote|...

	PathQueries       *prometheus.CounterVec // outcome label: found|stop_not_found|no_path|error
	PathQueryDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	HopTravelTime   prometheus.Gauge
	TransferPenalty prometheus.Gauge
}

func NewCollector(hopTravelTime, transferPenalty float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		GraphBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "router_graph_builds_total",
			Help: "Total network builds.",
		}),
		GraphBuildErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "router_graph_build_errors_total",
			Help: "Total failed network builds.",
		}),
		GraphBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "router_graph_build_duration_seconds",
			Help:    "Duration of route fetch plus network build.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		GraphStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "router_graph_stops",
			Help: "Stops in the most recently built network.",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "router_graph_edges",
			Help: "Directed edges in the most recently built network.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "router_graph_cache_hits_total",
			Help: "Network lookups served from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "router_graph_cache_misses_total",
			Help: "Network lookups that required a build.",
		}),
		CacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_graph_invalidations_total",
			Help: "Number of cache invalidations.",
		}, []string{"reason"}),
		PathQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_path_queries_total",
			Help: "Path queries by outcome.",
		}, []string{"outcome"}),
		PathQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "router_path_query_duration_seconds",
			Help:    "Duration of path queries including any network build.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "router_nats_published_total",
			Help: "Total topology events published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "router_nats_publish_errors_total",
			Help: "Total topology event publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "router_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		HopTravelTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "router_hop_travel_time",
			Help: "Configured travel time per hop.",
		}),
		TransferPenalty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "router_transfer_penalty",
			Help: "Configured line change penalty.",
		}),
	}

	// Register
	reg.MustRegister(
		c.GraphBuilds, c.GraphBuildErrs, c.GraphBuildDuration, c.GraphStops, c.GraphEdges,
		c.CacheHits, c.CacheMisses, c.CacheInvalidations,
		c.PathQueries, c.PathQueryDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.HopTravelTime, c.TransferPenalty,
	)

	c.HopTravelTime.Set(hopTravelTime)
	c.TransferPenalty.Set(transferPenalty)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	logger = logging.OrDiscard(logger)
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}

// The methods below satisfy the graph, routing and publisher metrics interfaces.

func (c *Collector) CacheHitInc()  { c.CacheHits.Inc() }
func (c *Collector) CacheMissInc() { c.CacheMisses.Inc() }
func (c *Collector) BuildErrInc()  { c.GraphBuildErrs.Inc() }

func (c *Collector) BuildObserve(d time.Duration, stops, edges int) {
	c.GraphBuilds.Inc()
	c.GraphBuildDuration.Observe(d.Seconds())
	c.GraphStops.Set(float64(stops))
	c.GraphEdges.Set(float64(edges))
}

func (c *Collector) InvalidatedInc(reason string) {
	c.CacheInvalidations.WithLabelValues(reason).Inc()
}

func (c *Collector) QueryObserve(outcome string, d time.Duration) {
	c.PathQueries.WithLabelValues(outcome).Inc()
	c.PathQueryDuration.Observe(d.Seconds())
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(b bool) {
	if b {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
