package publisher

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running server, e.g. NATS_TEST_URL=nats://localhost:4222.
func natsURL(t *testing.T) string {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}
	return url
}

type countingMetrics struct {
	published, failed int
	connected         bool
}

func (c *countingMetrics) NATSPublishedInc()       { c.published++ }
func (c *countingMetrics) NATSPublishErrInc()      { c.failed++ }
func (c *countingMetrics) NATSSetConnected(b bool) { c.connected = b }

func TestFanOutSkipsOwnOrigin(t *testing.T) {
	url := natsURL(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	subject := fmt.Sprintf("metro.topology.test.%d", time.Now().UnixNano())

	m := &countingMetrics{}
	a, err := NewNATSPublisher(url, subject, "replica-a", logger, m)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, m.connected)

	b, err := NewNATSPublisher(url, subject, "replica-b", logger, nil)
	require.NoError(t, err)
	defer b.Close()

	received := make(chan TopologyEvent, 4)
	require.NoError(t, a.SubscribeChanges(func(ev TopologyEvent) { received <- ev }))
	require.NoError(t, a.Flush())

	require.NoError(t, a.PublishChange("stop_created", 7))
	require.NoError(t, b.PublishChange("route_deleted", 3))
	require.NoError(t, b.Flush())

	select {
	case ev := <-received:
		assert.Equal(t, "route_deleted", ev.Kind)
		assert.Equal(t, int64(3), ev.ID)
		assert.Equal(t, "replica-b", ev.Origin)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event from the other replica")
	}

	select {
	case ev := <-received:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 1, m.published)
	assert.Zero(t, m.failed)
}
