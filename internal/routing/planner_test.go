package routing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-router/internal/graph"
	"metro-router/internal/logging"
	"metro-router/internal/pathfind"
	"metro-router/internal/transit"
)

type staticProvider struct {
	net *graph.Network
	err error
}

func (s staticProvider) Get(context.Context) (*graph.Network, error) { return s.net, s.err }

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingMetrics) QueryObserve(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func network(t *testing.T) *graph.Network {
	t.Helper()
	s := func(id transit.StopID, name string) transit.Stop {
		return transit.Stop{ID: id, Name: name, Code: name[:3]}
	}
	n, err := graph.Build([]transit.Route{
		{ID: 1, Name: "Purple", Color: "#800080", Stops: []transit.Stop{s(1, "Baiyappanahalli"), s(2, "Indiranagar"), s(3, "MG Road")}},
		{ID: 2, Name: "Green", Color: "#008000", Stops: []transit.Stop{s(3, "MG Road"), s(4, "Majestic")}},
		{ID: 3, Name: "Yellow", Color: "#FFFF00", Stops: []transit.Stop{s(7, "Silk Board"), s(8, "Bommasandra")}},
	}, graph.BuildOptions{})
	require.NoError(t, err)
	return n
}

func TestPlan(t *testing.T) {
	m := &recordingMetrics{}
	p := NewPlanner(staticProvider{net: network(t)}, pathfind.New(pathfind.DefaultTransferPenalty), time.Second, nil, m)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		res, err := p.Plan(ctx, 1, 4)
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, 4, res.TotalStops)
		assert.Equal(t, 1, res.TotalInterchanges)
		assert.Equal(t, 3*graph.DefaultHopTravelTime+pathfind.DefaultTransferPenalty, res.TotalCost)
	})

	t.Run("unknown stop", func(t *testing.T) {
		_, err := p.Plan(ctx, 1, 42)
		assert.ErrorIs(t, err, ErrStopNotFound)
		assert.NotErrorIs(t, err, ErrNoPath)

		_, err = p.Plan(ctx, 42, 1)
		assert.ErrorIs(t, err, ErrStopNotFound)
	})

	t.Run("same stop", func(t *testing.T) {
		_, err := p.Plan(ctx, 2, 2)
		assert.ErrorIs(t, err, ErrNoPath)
	})

	t.Run("disconnected", func(t *testing.T) {
		_, err := p.Plan(ctx, 1, 8)
		assert.ErrorIs(t, err, ErrNoPath)
		assert.NotErrorIs(t, err, ErrStopNotFound)
	})

	assert.Equal(t, []string{
		OutcomeFound,
		OutcomeStopNotFound, OutcomeStopNotFound,
		OutcomeNoPath,
		OutcomeNoPath,
	}, m.outcomes)
}

func TestPlanNetworkError(t *testing.T) {
	m := &recordingMetrics{}
	p := NewPlanner(staticProvider{err: errors.New("source unavailable")}, pathfind.New(5), 0, nil, m)

	_, err := p.Plan(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source unavailable")
	assert.Equal(t, []string{OutcomeError}, m.outcomes)
}

func TestPlanWithoutTimeout(t *testing.T) {
	p := NewPlanner(staticProvider{net: network(t)}, pathfind.New(5), 0, nil, nil)
	res, err := p.Plan(context.Background(), 4, 1)
	require.NoError(t, err)
	assert.Equal(t, "Baiyappanahalli", res.Segments[len(res.Segments)-1].StopName)
}

func TestPlanHonoursCancelledContext(t *testing.T) {
	p := NewPlanner(staticProvider{net: network(t)}, pathfind.New(5), time.Second, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The search may still win the race against the cancelled context;
	// either outcome is valid, but a failure must be the context error.
	_, err := p.Plan(ctx, 1, 4)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestPlanLogsIntegrityFault(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger(&buf, slog.LevelInfo)
	broken := graph.Assemble(
		[]graph.Node{{StopID: 1, Name: "Indiranagar"}, {StopID: 3, Name: "MG Road"}},
		[]graph.Edge{{From: 1, To: 2, RouteID: 1, RouteName: "Purple", TravelTime: 2}},
	)
	m := &recordingMetrics{}
	p := NewPlanner(staticProvider{net: broken}, pathfind.New(pathfind.DefaultTransferPenalty), time.Second, logger, m)

	_, err := p.Plan(context.Background(), 1, 3)
	require.ErrorIs(t, err, graph.ErrDataIntegrity)
	assert.NotErrorIs(t, err, ErrNoPath)
	assert.NotErrorIs(t, err, ErrStopNotFound)
	assert.Equal(t, []string{OutcomeError}, m.outcomes)
	assert.Contains(t, buf.String(), "network integrity fault")
	assert.Contains(t, buf.String(), `"from":1`)
}
