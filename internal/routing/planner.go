// Package routing answers stop-to-stop queries against the cached network
// and turns not-found outcomes into errors callers can tell apart.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"metro-router/internal/graph"
	"metro-router/internal/logging"
	"metro-router/internal/pathfind"
	"metro-router/internal/transit"
)

var (
	ErrStopNotFound = errors.New("stop not found")
	ErrNoPath       = errors.New("no path")
)

type NetworkProvider interface {
	Get(ctx context.Context) (*graph.Network, error)
}

type QueryMetrics interface {
	QueryObserve(outcome string, d time.Duration)
}

const (
	OutcomeFound        = "found"
	OutcomeStopNotFound = "stop_not_found"
	OutcomeNoPath       = "no_path"
	OutcomeError        = "error"
)

type Planner struct {
	networks NetworkProvider
	finder   pathfind.Finder
	timeout  time.Duration
	logger   *slog.Logger
	metrics  QueryMetrics
}

// NewPlanner returns a Planner. A zero timeout runs searches unbounded.
func NewPlanner(networks NetworkProvider, finder pathfind.Finder, timeout time.Duration, logger *slog.Logger, m QueryMetrics) *Planner {
	return &Planner{networks: networks, finder: finder, timeout: timeout, logger: logger, metrics: m}
}

// Plan finds the cheapest path between two stops. It returns ErrStopNotFound
// when either stop is absent from the network, ErrNoPath for identical or
// disconnected stops, and an error wrapping graph.ErrDataIntegrity when the
// network itself is inconsistent.
func (p *Planner) Plan(ctx context.Context, from, to transit.StopID) (res pathfind.Result, err error) {
	start := time.Now()
	defer func() { p.observe(classify(err), time.Since(start)) }()

	net, err := p.networks.Get(ctx)
	if err != nil {
		return pathfind.Result{}, fmt.Errorf("load network: %w", err)
	}
	if !net.ContainsStop(from) {
		return pathfind.Result{}, fmt.Errorf("%w: source stop %d", ErrStopNotFound, from)
	}
	if !net.ContainsStop(to) {
		return pathfind.Result{}, fmt.Errorf("%w: destination stop %d", ErrStopNotFound, to)
	}
	if from == to {
		return pathfind.Result{}, fmt.Errorf("%w: source and destination are the same stop", ErrNoPath)
	}

	res, err = p.search(ctx, net, from, to)
	if err != nil {
		if errors.Is(err, graph.ErrDataIntegrity) {
			logging.LogError(p.logger, "network integrity fault", err,
				slog.Int64("from", int64(from)),
				slog.Int64("to", int64(to)))
		}
		return pathfind.Result{}, err
	}
	if !res.Found {
		return pathfind.Result{}, fmt.Errorf("%w: from stop %d to stop %d", ErrNoPath, from, to)
	}
	return res, nil
}

// search runs the finder, bounded by the planner timeout when one is set.
// The finder itself is never interrupted; a timed-out search finishes in the
// background and its result is dropped.
func (p *Planner) search(ctx context.Context, net *graph.Network, from, to transit.StopID) (pathfind.Result, error) {
	if p.timeout <= 0 {
		return p.finder.Find(net, from, to)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		res pathfind.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.finder.Find(net, from, to)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return pathfind.Result{}, ctx.Err()
	}
}

func (p *Planner) observe(outcome string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.QueryObserve(outcome, d)
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrStopNotFound):
		return OutcomeStopNotFound
	case errors.Is(err, ErrNoPath):
		return OutcomeNoPath
	}
	return OutcomeError
}
