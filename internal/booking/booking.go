// Package booking turns a planned path into a confirmed ticket.
package booking

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"metro-router/internal/logging"
	"metro-router/internal/pathfind"
	"metro-router/internal/transit"
)

var ErrNotFound = errors.New("booking not found")

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusUsed      Status = "USED"
)

type Booking struct {
	ID                int64              `json:"bookingId"`
	Reference         string             `json:"bookingReference"`
	Rider             string             `json:"rider"`
	SourceStopID      transit.StopID     `json:"sourceStopId"`
	DestinationStopID transit.StopID     `json:"destinationStopId"`
	Path              []pathfind.Segment `json:"path"`
	TotalStops        int                `json:"totalStops"`
	TotalInterchanges int                `json:"totalInterchanges"`
	EstimatedCost     float64            `json:"estimatedCost"`
	QRString          string             `json:"qrString"`
	Status            Status             `json:"status"`
	CreatedAt         time.Time          `json:"createdAt"`
}

type Store interface {
	InsertBooking(ctx context.Context, b Booking) (Booking, error)
	GetBooking(ctx context.Context, reference string) (Booking, error)
	ListBookings(ctx context.Context, rider string) ([]Booking, error)
}

type Planner interface {
	Plan(ctx context.Context, from, to transit.StopID) (pathfind.Result, error)
}

type Service struct {
	planner Planner
	store   Store
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(planner Planner, store Store, logger *slog.Logger) *Service {
	return &Service{planner: planner, store: store, logger: logger, now: time.Now}
}

// Create plans a path and stores a confirmed booking for it. Planner errors
// (routing.ErrStopNotFound, routing.ErrNoPath) are returned unchanged.
func (s *Service) Create(ctx context.Context, rider string, from, to transit.StopID) (Booking, error) {
	res, err := s.planner.Plan(ctx, from, to)
	if err != nil {
		return Booking{}, err
	}

	now := s.now()
	ref := Reference(now)
	b := Booking{
		Reference:         ref,
		Rider:             rider,
		SourceStopID:      from,
		DestinationStopID: to,
		Path:              res.Segments,
		TotalStops:        res.TotalStops,
		TotalInterchanges: res.TotalInterchanges,
		EstimatedCost:     res.TotalCost,
		QRString:          QRString(ref, from, to, rider, now),
		Status:            StatusConfirmed,
		CreatedAt:         now.UTC(),
	}
	saved, err := s.store.InsertBooking(ctx, b)
	if err != nil {
		return Booking{}, fmt.Errorf("save booking: %w", err)
	}
	logging.LogOperation(s.logger, "booking_created",
		slog.String("reference", ref),
		slog.Int64("from", int64(from)),
		slog.Int64("to", int64(to)),
		slog.Int("stops", res.TotalStops),
		slog.Int("interchanges", res.TotalInterchanges))
	return saved, nil
}

func (s *Service) Get(ctx context.Context, reference string) (Booking, error) {
	return s.store.GetBooking(ctx, reference)
}

func (s *Service) ListForRider(ctx context.Context, rider string) ([]Booking, error) {
	return s.store.ListBookings(ctx, rider)
}

// Reference returns an id of the form MR-YYYYMMDD-XXXXXX.
func Reference(at time.Time) string {
	tail := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("MR-%s-%s", at.Format("20060102"), tail)
}

// QRString binds the reference to the trip and rider so a scanned code can
// be checked against the stored booking.
func QRString(reference string, from, to transit.StopID, rider string, at time.Time) string {
	raw := fmt.Sprintf("%s|%d|%d|%s|%d", reference, from, to, rider, at.UnixNano())
	sum := sha256.Sum256([]byte(raw))
	return reference + "." + base64.URLEncoding.EncodeToString(sum[:])[:16]
}
