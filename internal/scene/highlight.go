package scene

import "github.com/lazypower/starfield/internal/graph"

// Highlight is the set of elements emphasized by a selection: the selected
// node, its direct neighbors, and every edge touching either.
type Highlight struct {
	selected string
	nodes    map[string]bool
}

// NewHighlight derives the highlight for selected. An empty id yields an
// empty highlight.
func NewHighlight(selected string, adj graph.Adjacency) Highlight {
	h := Highlight{selected: selected, nodes: map[string]bool{}}
	if selected == "" {
		return h
	}
	if _, ok := adj[selected]; !ok {
		return Highlight{nodes: map[string]bool{}}
	}
	h.nodes[selected] = true
	for _, n := range adj.Neighbors(selected) {
		h.nodes[n] = true
	}
	return h
}

// Selected returns the selected id, or "".
func (h Highlight) Selected() string {
	return h.selected
}

// Active reports whether anything is selected.
func (h Highlight) Active() bool {
	return h.selected != ""
}

// Node reports whether id is the selected node or one of its neighbors.
func (h Highlight) Node(id string) bool {
	return h.nodes[id]
}

// Neighbor reports whether id is adjacent to the selection.
func (h Highlight) Neighbor(id string) bool {
	return id != h.selected && h.nodes[id]
}

// Edge reports whether e touches the selected node or any of its neighbors.
func (h Highlight) Edge(e graph.ConceptEdge) bool {
	return h.nodes[e.Source] || h.nodes[e.Target]
}
