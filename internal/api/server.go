// Package api exposes path queries, topology management and bookings over
// HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"metro-router/internal/booking"
	"metro-router/internal/logging"
	"metro-router/internal/pathfind"
	"metro-router/internal/transit"
)

type PathPlanner interface {
	Plan(ctx context.Context, from, to transit.StopID) (pathfind.Result, error)
}

type Bookings interface {
	Create(ctx context.Context, rider string, from, to transit.StopID) (booking.Booking, error)
	Get(ctx context.Context, reference string) (booking.Booking, error)
	ListForRider(ctx context.Context, rider string) ([]booking.Booking, error)
}

// TopologyStore is the writable side of the network: stops and routes.
type TopologyStore interface {
	ListStops(ctx context.Context) ([]transit.Stop, error)
	GetStop(ctx context.Context, id transit.StopID) (transit.Stop, error)
	CreateStop(ctx context.Context, st transit.Stop) (transit.Stop, error)
	UpdateStop(ctx context.Context, st transit.Stop) (transit.Stop, error)
	DeleteStop(ctx context.Context, id transit.StopID) error
	FetchRoutes(ctx context.Context) ([]transit.Route, error)
	GetRoute(ctx context.Context, id transit.RouteID) (transit.Route, error)
	CreateRoute(ctx context.Context, name, color string, stopIDs []transit.StopID) (transit.Route, error)
	DeleteRoute(ctx context.Context, id transit.RouteID) error
}

type Invalidator interface {
	Invalidate(reason string)
}

type ChangePublisher interface {
	PublishChange(kind string, id int64) error
}

// Deps wires a Server. Store and Bookings may be nil, which leaves their
// endpoints unregistered; Publisher may be nil when there is no fan-out.
type Deps struct {
	Planner     PathPlanner
	Bookings    Bookings
	Store       TopologyStore
	Invalidator Invalidator
	Publisher   ChangePublisher
	Health      func(ctx context.Context) error
	Logger      *slog.Logger
}

type Server struct {
	Deps
	validate *validator.Validate
}

func NewServer(d Deps) *Server {
	return &Server{Deps: d, validate: validator.New()}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/healthz", s.healthHandler)
	router.HandlerFunc(http.MethodGet, "/api/path", s.pathHandler)

	if s.Store != nil {
		router.HandlerFunc(http.MethodGet, "/api/stops", s.listStopsHandler)
		router.HandlerFunc(http.MethodPost, "/api/stops", s.createStopHandler)
		router.HandlerFunc(http.MethodGet, "/api/stops/:id", s.getStopHandler)
		router.HandlerFunc(http.MethodPut, "/api/stops/:id", s.updateStopHandler)
		router.HandlerFunc(http.MethodDelete, "/api/stops/:id", s.deleteStopHandler)
		router.HandlerFunc(http.MethodGet, "/api/routes", s.listRoutesHandler)
		router.HandlerFunc(http.MethodPost, "/api/routes", s.createRouteHandler)
		router.HandlerFunc(http.MethodGet, "/api/routes/:id", s.getRouteHandler)
		router.HandlerFunc(http.MethodDelete, "/api/routes/:id", s.deleteRouteHandler)
	}
	if s.Bookings != nil {
		router.HandlerFunc(http.MethodPost, "/api/bookings", s.createBookingHandler)
		router.HandlerFunc(http.MethodGet, "/api/bookings/:reference", s.getBookingHandler)
		router.HandlerFunc(http.MethodGet, "/api/riders/:rider/bookings", s.riderBookingsHandler)
	}

	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		if s.Logger != nil {
			s.Logger.Error("handler panic", "path", r.URL.Path, "panic", v)
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
	return s.logRequests(router)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(s.Logger, r.Method, r.URL.Path, rec.status,
			float64(time.Since(start).Microseconds())/1000)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// topologyChanged drops the cached network and tells the other replicas.
// A failed publish only costs the other replicas freshness, so it is logged.
func (s *Server) topologyChanged(kind string, id int64) {
	if s.Invalidator != nil {
		s.Invalidator.Invalidate(kind)
	}
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishChange(kind, id); err != nil {
		logging.LogError(s.Logger, "topology change publish failed", err,
			slog.String("kind", kind),
			slog.Int64("id", id))
	}
}
