// Package scene holds the interactive state of a starfield surface:
// the viewport, the current selection, the load status and the positioned
// graph. Back ends in render and tui only draw what a Frame describes.
//
// A View is owned by one goroutine (the surface's event loop). Fetches run
// elsewhere and hand their result back through ApplyGraph or ApplyError.
package scene

import (
	"sort"
	"time"

	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/layout"
)

// Status is the load state of a View.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	}
	return "idle"
}

// Ticket identifies one load request.
type Ticket uint64

// Detail is what the detail surface shows for the selected node.
type Detail struct {
	Node    graph.ConceptNode
	Related []graph.ConceptNode
}

// View is the state machine behind a starfield surface.
type View struct {
	Viewport Viewport

	// OnSelect fires whenever the selection changes. ok is false when the
	// selection was cleared.
	OnSelect func(d Detail, ok bool)

	engine *layout.Engine
	now    func() time.Time

	status Status
	err    error
	issued Ticket

	snapshot graph.Snapshot
	nodes    []layout.PositionedNode
	edges    []graph.ConceptEdge
	byID     map[string]int
	adj      graph.Adjacency
	dropped  int
	selected string
}

// NewView creates an idle view on a width x height canvas.
func NewView(engine *layout.Engine, width, height float64, zoom Zoom) *View {
	if engine == nil {
		engine = layout.New(layout.DefaultConfig())
	}
	return &View{
		Viewport: NewViewport(width, height, zoom),
		engine:   engine,
		now:      time.Now,
		adj:      graph.Adjacency{},
		byID:     map[string]int{},
	}
}

// SetClock overrides the time source used for brightness.
func (v *View) SetClock(now func() time.Time) {
	v.now = now
}

// BeginLoad marks a fetch as outstanding and returns its ticket. The
// previous graph stays drawable until a result arrives.
func (v *View) BeginLoad() Ticket {
	v.issued++
	v.status = StatusLoading
	v.err = nil
	return v.issued
}

// Latest reports whether t is the most recently issued ticket.
func (v *View) Latest(t Ticket) bool {
	return t == v.issued
}

// ApplyGraph installs a fetched snapshot. Whichever fetch completes last
// wins; the state is replaced in one step so it is never half-updated.
// The viewport is left untouched.
func (v *View) ApplyGraph(_ Ticket, snap graph.Snapshot) {
	snap = snap.Refresh(v.now())
	w, h := v.Viewport.Size()
	res := v.engine.Run(snap.Nodes, snap.Edges, w, h)

	byID := make(map[string]int, len(res.Nodes))
	for i, n := range res.Nodes {
		byID[n.ID] = i
	}
	nodes := make([]graph.ConceptNode, len(res.Nodes))
	for i, n := range res.Nodes {
		nodes[i] = n.ConceptNode
	}

	v.snapshot = snap
	v.nodes = res.Nodes
	v.edges = res.Edges
	v.dropped = res.DroppedEdges
	v.byID = byID
	v.adj = graph.NewAdjacency(nodes, res.Edges)
	v.err = nil
	if len(res.Nodes) == 0 {
		v.status = StatusEmpty
	} else {
		v.status = StatusReady
	}

	if v.selected != "" {
		if _, ok := byID[v.selected]; !ok {
			v.setSelected("")
		}
	}
}

// ApplyError records a failed fetch. The last good graph is kept so the
// user can keep looking at it while retrying.
func (v *View) ApplyError(_ Ticket, err error) {
	v.status = StatusError
	v.err = err
}

// Resize changes the canvas and re-runs layout for the current graph.
func (v *View) Resize(width, height float64) {
	v.Viewport.Resize(width, height)
	if len(v.snapshot.Nodes) == 0 {
		return
	}
	res := v.engine.Run(v.snapshot.Nodes, v.snapshot.Edges, width, height)
	v.nodes = res.Nodes
	v.edges = res.Edges
}

// Status returns the load state.
func (v *View) Status() Status { return v.status }

// Err returns the last fetch error while in StatusError.
func (v *View) Err() error { return v.err }

// Snapshot returns the installed graph with brightness as of its refresh.
func (v *View) Snapshot() graph.Snapshot { return v.snapshot }

// Nodes returns the positioned nodes.
func (v *View) Nodes() []layout.PositionedNode { return v.nodes }

// Edges returns the edges kept for layout.
func (v *View) Edges() []graph.ConceptEdge { return v.edges }

// DroppedEdges returns how many edges the last refresh discarded.
func (v *View) DroppedEdges() int { return v.dropped }

// Adjacency returns the index built for the current snapshot.
func (v *View) Adjacency() graph.Adjacency { return v.adj }

// Selected returns the selected id, or "".
func (v *View) Selected() string { return v.selected }

// Frame builds the current scene.
func (v *View) Frame() Frame {
	return Build(Input{
		Nodes:     v.nodes,
		Edges:     v.edges,
		Adjacency: v.adj,
		Viewport:  v.Viewport,
		Selected:  v.selected,
	})
}

// Tap selects the node under screen point (x, y), or clears the selection
// when the tap hits empty sky.
func (v *View) Tap(x, y float64) (string, bool) {
	id, ok := v.Frame().HitTest(x, y)
	v.setSelected(id)
	return id, ok
}

// Select selects id. It reports false, leaving the selection alone, when id
// is not in the current graph.
func (v *View) Select(id string) bool {
	if _, ok := v.byID[id]; !ok {
		return false
	}
	v.setSelected(id)
	return true
}

// ClearSelection deselects.
func (v *View) ClearSelection() {
	v.setSelected("")
}

// Cycle moves the selection by step through nodes ordered by name.
func (v *View) Cycle(step int) (string, bool) {
	if len(v.nodes) == 0 {
		return "", false
	}
	order := make([]layout.PositionedNode, len(v.nodes))
	copy(order, v.nodes)
	sort.SliceStable(order, func(i, j int) bool { return order[i].Name < order[j].Name })

	next := 0
	if step < 0 {
		next = len(order) - 1
	}
	for i, n := range order {
		if n.ID == v.selected {
			next = ((i+step)%len(order) + len(order)) % len(order)
			break
		}
	}
	v.setSelected(order[next].ID)
	return order[next].ID, true
}

// Detail returns the selected node with its related concepts sorted by
// name.
func (v *View) Detail() (Detail, bool) {
	i, ok := v.byID[v.selected]
	if !ok {
		return Detail{}, false
	}
	d := Detail{Node: v.nodes[i].ConceptNode}
	for _, id := range v.adj.Neighbors(v.selected) {
		if j, ok := v.byID[id]; ok {
			d.Related = append(d.Related, v.nodes[j].ConceptNode)
		}
	}
	sort.SliceStable(d.Related, func(a, b int) bool { return d.Related[a].Name < d.Related[b].Name })
	return d, true
}

func (v *View) setSelected(id string) {
	if id == v.selected {
		return
	}
	v.selected = id
	if v.OnSelect == nil {
		return
	}
	d, ok := v.Detail()
	v.OnSelect(d, ok)
}
