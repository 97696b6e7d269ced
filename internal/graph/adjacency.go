package graph

import "sort"

// Adjacency maps each node id to the ids it shares an edge with, in either
// direction. Build it once per snapshot; lookups are cheap.
type Adjacency map[string]map[string]bool

// NewAdjacency builds the undirected adjacency index. Edges with an
// endpoint missing from nodes are ignored, as are self loops.
func NewAdjacency(nodes []ConceptNode, edges []ConceptEdge) Adjacency {
	adj := make(Adjacency, len(nodes))
	for _, n := range nodes {
		adj[n.ID] = make(map[string]bool)
	}
	kept, _ := FilterEdges(nodes, edges)
	for _, e := range kept {
		if e.Source == e.Target {
			continue
		}
		adj[e.Source][e.Target] = true
		adj[e.Target][e.Source] = true
	}
	return adj
}

// Adjacent reports whether x and y share an edge.
func (a Adjacency) Adjacent(x, y string) bool {
	return a[x][y]
}

// Neighbors returns the ids connected to id, sorted.
func (a Adjacency) Neighbors(id string) []string {
	set := a[id]
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of distinct neighbors of id.
func (a Adjacency) Degree(id string) int {
	return len(a[id])
}
