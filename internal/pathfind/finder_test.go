package pathfind

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-router/internal/graph"
	"metro-router/internal/transit"
)

func stop(id transit.StopID) transit.Stop {
	name := fmt.Sprintf("S%d", id)
	return transit.Stop{ID: id, Name: name, Code: "C" + name[1:]}
}

func route(id transit.RouteID, name string, ids ...transit.StopID) transit.Route {
	r := transit.Route{ID: id, Name: name, Color: "#" + name}
	for _, s := range ids {
		r.Stops = append(r.Stops, stop(s))
	}
	return r
}

func build(t *testing.T, hop float64, routes ...transit.Route) *graph.Network {
	t.Helper()
	n, err := graph.Build(routes, graph.BuildOptions{HopTravelTime: hop})
	require.NoError(t, err)
	return n
}

func stopIDs(r Result) []transit.StopID {
	ids := make([]transit.StopID, len(r.Segments))
	for i, s := range r.Segments {
		ids[i] = s.StopID
	}
	return ids
}

func TestFindNotFoundCases(t *testing.T) {
	n := build(t, 2,
		route(1, "Red", 1, 2, 3),
		route(2, "Blue", 10, 11),
	)
	f := New(DefaultTransferPenalty)

	tests := []struct {
		name     string
		from, to transit.StopID
	}{
		{"same stop", 2, 2},
		{"unknown source", 99, 1},
		{"unknown destination", 1, 99},
		{"both unknown", 98, 99},
		{"disconnected", 1, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.Find(n, tt.from, tt.to)
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.Empty(t, res.Segments)
			assert.Zero(t, res.TotalStops)
			assert.Zero(t, res.TotalCost)
		})
	}
}

func TestFindSingleLine(t *testing.T) {
	const w = 2.0
	n := build(t, w, route(1, "Red", 1, 2, 3, 4))
	f := New(DefaultTransferPenalty)

	res, err := f.Find(n, 1, 4)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, []transit.StopID{1, 2, 3, 4}, stopIDs(res))
	assert.Equal(t, 4, res.TotalStops)
	assert.Equal(t, 0, res.TotalInterchanges)
	assert.Equal(t, 3*w, res.TotalCost)

	assert.Equal(t, Segment{StopID: 1, StopName: "S1", StopCode: "C1"}, res.Segments[0])
	for _, s := range res.Segments[1:] {
		assert.Equal(t, "Red", s.RouteName)
		assert.Equal(t, "#Red", s.RouteColor)
		assert.False(t, s.Interchange)
	}

	t.Run("reverse direction", func(t *testing.T) {
		res, err := f.Find(n, 4, 1)
		require.NoError(t, err)
		assert.Equal(t, []transit.StopID{4, 3, 2, 1}, stopIDs(res))
		assert.Equal(t, 3*w, res.TotalCost)
	})
}

func TestFindPrefersDirectLineOverPenalizedTransfer(t *testing.T) {
	// direct: 5 hops of 2 = 10
	// transfer: 3 hops on Blue (6) + 3 hops on Green (6) + penalty 5 = 17
	n := build(t, 2,
		route(1, "Red", 1, 20, 21, 22, 23, 9),
		route(2, "Blue", 1, 30, 31, 5),
		route(3, "Green", 5, 40, 41, 9),
	)

	res, err := New(DefaultTransferPenalty).Find(n, 1, 9)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, []transit.StopID{1, 20, 21, 22, 23, 9}, stopIDs(res))
	assert.Equal(t, 10.0, res.TotalCost)
	assert.Equal(t, 0, res.TotalInterchanges)
}

func TestTransferPenaltyChangesChosenPath(t *testing.T) {
	// direct: 5 hops = 10; transfer: 2 + 2 hops = 8 plus the penalty
	n := build(t, 2,
		route(1, "Red", 1, 20, 21, 22, 23, 9),
		route(2, "Blue", 1, 30, 5),
		route(3, "Green", 5, 40, 9),
	)

	withPenalty, err := New(5).Find(n, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, []transit.StopID{1, 20, 21, 22, 23, 9}, stopIDs(withPenalty))
	assert.Equal(t, 10.0, withPenalty.TotalCost)

	free, err := New(0).Find(n, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, []transit.StopID{1, 30, 5, 40, 9}, stopIDs(free))
	assert.Equal(t, 8.0, free.TotalCost)
	assert.Equal(t, 1, free.TotalInterchanges)
}

func TestFindMarksInterchanges(t *testing.T) {
	n := build(t, 2,
		route(1, "Red", 1, 2, 3),
		route(2, "Blue", 3, 4, 5),
	)

	res, err := New(5).Find(n, 1, 5)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, []transit.StopID{1, 2, 3, 4, 5}, stopIDs(res))

	var flags []bool
	var lines []string
	for _, s := range res.Segments {
		flags = append(flags, s.Interchange)
		lines = append(lines, s.RouteName)
	}
	assert.Equal(t, []bool{false, false, false, true, false}, flags)
	assert.Equal(t, []string{"", "Red", "Red", "Blue", "Blue"}, lines)
	assert.Equal(t, 1, res.TotalInterchanges)
	assert.Equal(t, 5, res.TotalStops)
	assert.Equal(t, 4*2.0+5, res.TotalCost)
}

func TestFindKeepsFractionalCosts(t *testing.T) {
	n := build(t, 0.4,
		route(1, "Red", 1, 2, 3, 4),
		route(2, "Blue", 1, 5, 6, 7, 4),
	)
	res, err := New(0.3).Find(n, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []transit.StopID{1, 2, 3, 4}, stopIDs(res))
	assert.InDelta(t, 1.2, res.TotalCost, 1e-9)

	res, err = New(0.3).Find(n, 1, 6)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, res.TotalCost, 1e-9)
}

func TestNewClampsNegativePenalty(t *testing.T) {
	assert.Equal(t, 0.0, New(-3).TransferPenalty)
}

func TestFindReportsDanglingEdge(t *testing.T) {
	n := graph.Assemble(
		[]graph.Node{{StopID: 1, Name: "S1"}, {StopID: 3, Name: "S3"}},
		[]graph.Edge{{From: 1, To: 2, RouteID: 9, RouteName: "Red", TravelTime: 2}},
	)

	res, err := New(DefaultTransferPenalty).Find(n, 1, 3)
	require.ErrorIs(t, err, graph.ErrDataIntegrity)
	assert.False(t, res.Found)
	assert.Contains(t, err.Error(), "1->2")
}
