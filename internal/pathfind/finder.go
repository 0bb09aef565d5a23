// Package pathfind searches a built network for the cheapest stop-to-stop
// path, where cost is travel time plus a fixed penalty per change of line.
//
// The penalty is judged against the single best arrival edge recorded for a
// stop. A slightly dearer arrival on the continuing line is never kept as an
// alternative, so the result is not a true multi-criteria optimum.
package pathfind

import (
	"container/heap"
	"fmt"

	"metro-router/internal/graph"
	"metro-router/internal/transit"
)

const DefaultTransferPenalty = 5.0

type Segment struct {
	StopID      transit.StopID `json:"stopId"`
	StopName    string         `json:"stopName"`
	StopCode    string         `json:"stopCode"`
	RouteName   string         `json:"routeName"`
	RouteColor  string         `json:"routeColor"`
	Interchange bool           `json:"interchange"`
}

// Result of a query. TotalCost includes transfer penalties.
type Result struct {
	Found             bool      `json:"found"`
	Segments          []Segment `json:"segments"`
	TotalStops        int       `json:"totalStops"`
	TotalInterchanges int       `json:"totalInterchanges"`
	TotalCost         float64   `json:"totalCost"`
}

func notFound() Result {
	return Result{Segments: []Segment{}}
}

type Finder struct {
	TransferPenalty float64
}

func New(transferPenalty float64) Finder {
	if transferPenalty < 0 {
		transferPenalty = 0
	}
	return Finder{TransferPenalty: transferPenalty}
}

// Find returns the cheapest path from one stop to another. Identical
// endpoints, unknown stops and disconnected stops all yield a Result with
// Found false and a nil error. An error is returned only for a network whose
// edges point at stops it does not contain.
func (f Finder) Find(net *graph.Network, from, to transit.StopID) (Result, error) {
	if from == to {
		return notFound(), nil
	}
	if !net.ContainsStop(from) || !net.ContainsStop(to) {
		return notFound(), nil
	}

	// A stop missing from cost has infinite cost.
	cost := map[transit.StopID]float64{from: 0}
	arrival := make(map[transit.StopID]graph.Edge)
	visited := make(map[transit.StopID]bool)

	pq := &priorityQueue{}
	seq := 0
	heap.Push(pq, &pqItem{stop: from, cost: 0, seq: seq})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqItem).stop
		if visited[current] {
			continue
		}
		if current == to {
			break
		}
		visited[current] = true

		prev, hasPrev := arrival[current]
		for _, e := range net.Neighbors(current) {
			if !net.ContainsStop(e.To) {
				return Result{}, fmt.Errorf("%w: edge %d->%d on route %d", graph.ErrDataIntegrity, e.From, e.To, e.RouteID)
			}
			if visited[e.To] {
				continue
			}
			step := e.TravelTime
			if hasPrev && prev.RouteID != e.RouteID {
				step += f.TransferPenalty
			}
			next := cost[current] + step
			if old, ok := cost[e.To]; !ok || next < old {
				cost[e.To] = next
				arrival[e.To] = e
				seq++
				heap.Push(pq, &pqItem{stop: e.To, cost: next, seq: seq})
			}
		}
	}

	total, ok := cost[to]
	if !ok {
		return notFound(), nil
	}
	return reconstruct(net, arrival, from, to, total)
}

func reconstruct(net *graph.Network, arrival map[transit.StopID]graph.Edge, from, to transit.StopID, total float64) (Result, error) {
	var edges []graph.Edge
	for current := to; current != from; {
		e, ok := arrival[current]
		if !ok || len(edges) > net.TotalStops() {
			return Result{}, fmt.Errorf("%w: broken predecessor chain at stop %d", graph.ErrDataIntegrity, current)
		}
		edges = append(edges, e)
		current = e.From
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	source, ok := net.Node(from)
	if !ok {
		return Result{}, fmt.Errorf("%w: stop %d", graph.ErrDataIntegrity, from)
	}
	segments := make([]Segment, 0, len(edges)+1)
	segments = append(segments, Segment{
		StopID:   source.StopID,
		StopName: source.Name,
		StopCode: source.Code,
	})

	interchanges := 0
	for i, e := range edges {
		node, ok := net.Node(e.To)
		if !ok {
			return Result{}, fmt.Errorf("%w: stop %d", graph.ErrDataIntegrity, e.To)
		}
		change := i > 0 && edges[i-1].RouteID != e.RouteID
		if change {
			interchanges++
		}
		segments = append(segments, Segment{
			StopID:      node.StopID,
			StopName:    node.Name,
			StopCode:    node.Code,
			RouteName:   e.RouteName,
			RouteColor:  e.RouteColor,
			Interchange: change,
		})
	}

	return Result{
		Found:             true,
		Segments:          segments,
		TotalStops:        len(segments),
		TotalInterchanges: interchanges,
		TotalCost:         total,
	}, nil
}
