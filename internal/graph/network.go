// Package graph holds the in-memory transit network: stops as nodes and
// per-route hops as directed edges, plus the builder and the cache that
// keeps one built network for the whole dataset.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"metro-router/internal/transit"
)

// ErrDataIntegrity reports an edge whose endpoint is not a node of the network.
// It means graph construction is broken, never that a route is merely absent.
var ErrDataIntegrity = errors.New("graph data integrity fault")

// Node is a stop as seen by the router.
type Node struct {
	StopID      transit.StopID
	Name        string
	Code        string
	Interchange bool
}

// Edge is one directed hop between adjacent stops on a route.
// Parallel edges between the same endpoints are kept, one per route.
type Edge struct {
	From       transit.StopID
	To         transit.StopID
	RouteID    transit.RouteID
	RouteName  string
	RouteColor string
	TravelTime float64
}

// Network is immutable once returned by Build and safe for concurrent readers.
type Network struct {
	nodes     map[transit.StopID]Node
	adjacency map[transit.StopID][]Edge
	edges     int
	routes    int
}

func newNetwork() *Network {
	return &Network{
		nodes:     make(map[transit.StopID]Node),
		adjacency: make(map[transit.StopID][]Edge),
	}
}

func (n *Network) addNode(node Node) {
	n.nodes[node.StopID] = node
	if _, ok := n.adjacency[node.StopID]; !ok {
		n.adjacency[node.StopID] = nil
	}
}

// addEdge appends e to its origin and a mirrored edge to its destination.
func (n *Network) addEdge(e Edge) error {
	if _, ok := n.nodes[e.From]; !ok {
		return fmt.Errorf("%w: edge on route %d references unknown stop %d", ErrDataIntegrity, e.RouteID, e.From)
	}
	if _, ok := n.nodes[e.To]; !ok {
		return fmt.Errorf("%w: edge on route %d references unknown stop %d", ErrDataIntegrity, e.RouteID, e.To)
	}
	reverse := e
	reverse.From, reverse.To = e.To, e.From
	n.adjacency[e.From] = append(n.adjacency[e.From], e)
	n.adjacency[e.To] = append(n.adjacency[e.To], reverse)
	n.edges += 2
	return nil
}

func (n *Network) ContainsStop(id transit.StopID) bool {
	_, ok := n.nodes[id]
	return ok
}

func (n *Network) Node(id transit.StopID) (Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Neighbors returns the outgoing edges of id. The slice is shared; callers must not modify it.
func (n *Network) Neighbors(id transit.StopID) []Edge {
	return n.adjacency[id]
}

func (n *Network) TotalStops() int { return len(n.nodes) }

func (n *Network) TotalEdges() int { return n.edges }

func (n *Network) TotalRoutes() int { return n.routes }

// StopIDs returns every node id in ascending order.
func (n *Network) StopIDs() []transit.StopID {
	ids := make([]transit.StopID, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
