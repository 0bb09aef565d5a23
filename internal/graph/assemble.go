package graph

import "metro-router/internal/transit"

// Assemble returns a network made of exactly the given nodes and directed
// edges. Unlike Build it neither mirrors nor validates edges, so the result
// may reference stops that are not nodes; searches over such a network fail
// with ErrDataIntegrity.
func Assemble(nodes []Node, edges []Edge) *Network {
	n := newNetwork()
	for _, node := range nodes {
		n.addNode(node)
	}
	routes := make(map[transit.RouteID]bool)
	for _, e := range edges {
		n.adjacency[e.From] = append(n.adjacency[e.From], e)
		n.edges++
		routes[e.RouteID] = true
	}
	n.routes = len(routes)
	return n
}
