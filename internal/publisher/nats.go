package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"metro-router/internal/logging"
)

// TopologyEvent announces a committed change to stops or routes.
type TopologyEvent struct {
	Kind      string    `json:"kind"` // stop_created|stop_updated|stop_deleted|route_created|route_deleted|import
	ID        int64     `json:"id,omitempty"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	origin  string
	logger  *slog.Logger
	metrics PublisherMetrics
	sub     *nats.Subscription
}

// NewNATSPublisher connects to url. origin identifies this process so it can
// skip its own events when subscribed.
func NewNATSPublisher(url, subject, origin string, logger *slog.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	logger = logging.OrDiscard(logger)
	nc, err := nats.Connect(url,
		nats.Name("metro-router"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, subject: subject, origin: origin, logger: logger, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// PublishChange announces a topology change of the given kind.
func (p *NATSPublisher) PublishChange(kind string, id int64) error {
	b, err := json.Marshal(TopologyEvent{Kind: kind, ID: id, Origin: p.origin, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	err = p.nc.Publish(p.subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.logger.Debug("topology event published", "subject", p.subject, "kind", kind, "id", id)
	return nil
}

// Flush waits until the server has processed everything published so far.
func (p *NATSPublisher) Flush() error {
	return p.nc.Flush()
}

// SubscribeChanges calls fn for every topology event published by another origin.
func (p *NATSPublisher) SubscribeChanges(fn func(TopologyEvent)) error {
	sub, err := p.nc.Subscribe(p.subject, func(msg *nats.Msg) { p.dispatch(msg, fn) })
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", p.subject, err)
	}
	p.sub = sub
	return nil
}

func (p *NATSPublisher) dispatch(msg *nats.Msg, fn func(TopologyEvent)) {
	var ev TopologyEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logging.LogError(p.logger, "malformed topology event", err, slog.String("subject", msg.Subject))
		return
	}
	if ev.Origin == p.origin {
		return
	}
	fn(ev)
}
