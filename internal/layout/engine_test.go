package layout

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/lazypower/starfield/internal/graph"
)

func intp(v int) *int { return &v }

func chain(n int) ([]graph.ConceptNode, []graph.ConceptEdge) {
	nodes := make([]graph.ConceptNode, n)
	var edges []graph.ConceptEdge
	for i := range nodes {
		nodes[i] = graph.ConceptNode{ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("Concept %d", i), Level: intp(i % 5)}
		if i > 0 {
			typ := graph.Prereq
			if i%3 == 0 {
				typ = graph.Rel
			}
			edges = append(edges, graph.ConceptEdge{Source: nodes[i-1].ID, Target: nodes[i].ID, Type: typ})
		}
	}
	return nodes, edges
}

func TestLayoutTwoNodeScenario(t *testing.T) {
	nodes := []graph.ConceptNode{
		{ID: "A", Name: "A", Level: intp(1)},
		{ID: "B", Name: "B", Level: intp(2)},
	}
	edges := []graph.ConceptEdge{{Source: "A", Target: "B", Type: graph.Prereq}}

	res := New(DefaultConfig()).Run(nodes, edges, 400, 600)

	if len(res.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(res.Nodes))
	}
	if res.DroppedEdges != 0 {
		t.Errorf("dropped %d edges, want 0", res.DroppedEdges)
	}
	for _, n := range res.Nodes {
		if !n.Finite() {
			t.Fatalf("node %s has non-finite position (%v,%v)", n.ID, n.X, n.Y)
		}
		if n.X < 0 || n.X > 400 || n.Y < 0 || n.Y > 600 {
			t.Errorf("node %s at (%v,%v) outside 400x600", n.ID, n.X, n.Y)
		}
	}
	if res.Ticks != 90 {
		t.Errorf("ticks = %d, want 90", res.Ticks)
	}
}

func TestLayoutEmpty(t *testing.T) {
	got := New(DefaultConfig()).Layout(nil, []graph.ConceptEdge{{Source: "x", Target: "y"}}, 400, 600)
	if got == nil || len(got) != 0 {
		t.Errorf("Layout(nil) = %v, want empty non-nil slice", got)
	}
}

func TestLayoutDropsDanglingEdges(t *testing.T) {
	nodes := []graph.ConceptNode{{ID: "A"}, {ID: "B"}}
	edges := []graph.ConceptEdge{
		{Source: "A", Target: "B", Type: graph.Prereq},
		{Source: "A", Target: "ghost", Type: graph.Rel},
	}
	res := New(DefaultConfig()).Run(nodes, edges, 300, 300)
	if res.DroppedEdges != 1 || len(res.Edges) != 1 {
		t.Errorf("edges kept=%d dropped=%d, want 1 and 1", len(res.Edges), res.DroppedEdges)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	nodes, edges := chain(40)
	eng := New(DefaultConfig())

	first := eng.Layout(nodes, edges, 800, 600)
	second := eng.Layout(nodes, edges, 800, 600)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input produced different layouts")
	}

	s1 := eng.Seed(nodes, 800, 600)
	s2 := New(DefaultConfig()).Seed(nodes, 800, 600)
	if !reflect.DeepEqual(s1, s2) {
		t.Error("seed stage is not exact")
	}
}

func TestSeedWithinMargin(t *testing.T) {
	nodes, _ := chain(200)
	for _, p := range New(DefaultConfig()).Seed(nodes, 400, 300) {
		if p.X < 22 || p.X > 400-22 || p.Y < 22 || p.Y > 300-22 {
			t.Errorf("seed for %s at (%v,%v) outside margin", p.ID, p.X, p.Y)
		}
	}
}

func TestLayoutDoesNotMutateInput(t *testing.T) {
	nodes, edges := chain(10)
	nodesCopy := append([]graph.ConceptNode(nil), nodes...)
	edgesCopy := append([]graph.ConceptEdge(nil), edges...)

	out := New(DefaultConfig()).Layout(nodes, edges, 500, 500)

	if !reflect.DeepEqual(nodes, nodesCopy) || !reflect.DeepEqual(edges, edgesCopy) {
		t.Error("Layout mutated its input")
	}
	for i, p := range out {
		if p.ConceptNode.Name != nodes[i].Name || p.Level != nodes[i].Level {
			t.Errorf("node %d lost original fields", i)
		}
	}
}

func TestLayoutDuplicateIDsKeepFirst(t *testing.T) {
	nodes := []graph.ConceptNode{{ID: "A", Name: "one"}, {ID: "A", Name: "two"}, {ID: "B"}}
	out := New(DefaultConfig()).Layout(nodes, nil, 200, 200)
	if len(out) != 2 || out[0].Name != "one" {
		t.Errorf("got %+v, want first A kept and duplicate dropped", out)
	}
}

func TestLayoutStaysOnCanvas(t *testing.T) {
	nodes, edges := chain(150)
	for _, p := range New(DefaultConfig()).Layout(nodes, edges, 320, 480) {
		if !p.Finite() || p.X < 0 || p.X > 320 || p.Y < 0 || p.Y > 480 {
			t.Fatalf("node %s at (%v,%v) off canvas", p.ID, p.X, p.Y)
		}
	}
}

func TestLayoutCoincidentSeeds(t *testing.T) {
	// With a degenerate canvas every node seeds onto the same point.
	nodes, edges := chain(6)
	for _, p := range New(DefaultConfig()).Layout(nodes, edges, 10, 10) {
		if !p.Finite() {
			t.Fatalf("node %s non-finite after coincident start", p.ID)
		}
	}
}

func TestLinkRestLengthByType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 300
	cfg.Forces = Forces{Link: LinkParams{Strength: 1, PrereqDistance: 60, RelDistance: 110}}
	eng := New(cfg)

	dist := func(typ graph.EdgeType) float64 {
		nodes := []graph.ConceptNode{{ID: "A"}, {ID: "B"}}
		out := eng.Layout(nodes, []graph.ConceptEdge{{Source: "A", Target: "B", Type: typ}}, 1000, 1000)
		return math.Hypot(out[0].X-out[1].X, out[0].Y-out[1].Y)
	}

	prereq, rel := dist(graph.Prereq), dist(graph.Rel)
	if prereq >= rel {
		t.Errorf("PREREQ distance %v should be shorter than REL %v", prereq, rel)
	}
	if math.Abs(prereq-60) > 20 || math.Abs(rel-110) > 20 {
		t.Errorf("distances %v / %v far from rest lengths 60 / 110", prereq, rel)
	}
}

func TestLevelBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 300
	cfg.Forces = Forces{LevelY: DefaultConfig().Forces.LevelY}
	eng := New(cfg)

	nodes := []graph.ConceptNode{{ID: "low", Level: intp(0)}, {ID: "high", Level: intp(3)}, {ID: "none"}}
	out := eng.Layout(nodes, nil, 400, 600)

	lf := levelForce(cfg.Forces.LevelY)
	for _, p := range out[:2] {
		want := lf.targetY(*p.Level, 600, cfg.Margin)
		if math.Abs(p.Y-want) > 5 {
			t.Errorf("%s: y = %v, want near %v", p.ID, p.Y, want)
		}
	}
	seeded := eng.Seed(nodes, 400, 600)[2]
	if out[2].Y != seeded.Y {
		t.Errorf("node without level moved vertically: %v -> %v", seeded.Y, out[2].Y)
	}
}

func TestLevelTargetWraps(t *testing.T) {
	lf := levelForce(LevelParams{BaseOffset: 60, Spacing: 70})
	tests := []struct {
		level int
		want  float64
	}{
		{0, 82},
		{3, 292},
		{10, 22 + math.Mod(760, 556)},
		{-1, 22 + (556 - 10)},
	}
	for _, tt := range tests {
		if got := lf.targetY(tt.level, 600, 22); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("targetY(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestStopEpsilonEndsEarly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopEpsilon = 0.5
	cfg.Forces = Forces{}
	nodes, edges := chain(8)
	res := New(cfg).Run(nodes, edges, 600, 600)
	if res.Ticks != 1 {
		t.Errorf("ticks = %d, want 1 when nothing moves", res.Ticks)
	}

	cfg = DefaultConfig()
	if res := New(cfg).Run(nodes, edges, 600, 600); res.Ticks != cfg.Iterations {
		t.Errorf("ticks = %d without epsilon, want %d", res.Ticks, cfg.Iterations)
	}
}

func TestZeroStrengthDisablesForce(t *testing.T) {
	f := DefaultConfig().Forces
	f.Collide.Strength = 0
	f.CenterX.Strength = 0
	var names []string
	for _, fc := range f.build() {
		names = append(names, fc.name())
	}
	want := []string{"charge", "center", "level_y", "link"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("forces = %v, want %v", names, want)
	}
	if got := len(DefaultConfig().Forces.Params()); got != 6 {
		t.Errorf("Params() has %d forces, want 6", got)
	}
}

func minSeparation(out []PositionedNode) float64 {
	best := math.Inf(1)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			best = math.Min(best, math.Hypot(out[i].X-out[j].X, out[i].Y-out[j].Y))
		}
	}
	return best
}

func TestLayoutKeepsNodesApart(t *testing.T) {
	nodes, edges := chain(150)
	for i := range nodes {
		nodes[i].Level = intp(i % 6)
	}
	cfg := DefaultConfig()
	want := 2 * cfg.Forces.Collide.Radius

	tests := []struct {
		w, h float64
		min  float64
	}{
		{960, 640, 0.9 * want},
		{400, 600, 0.5 * want},
	}
	for _, tt := range tests {
		out := New(cfg).Layout(nodes, edges, tt.w, tt.h)
		if got := minSeparation(out); got < tt.min {
			t.Errorf("%vx%v: closest pair %.2f apart, want at least %.2f", tt.w, tt.h, got, tt.min)
		}
		for _, p := range out {
			if p.X < 0 || p.X > tt.w || p.Y < 0 || p.Y > tt.h {
				t.Fatalf("%vx%v: node %s at (%v,%v) off canvas", tt.w, tt.h, p.ID, p.X, p.Y)
			}
		}
	}
}

func TestSelfLoopIgnoredForLinkBias(t *testing.T) {
	nodes := []graph.ConceptNode{{ID: "A"}, {ID: "B"}}
	edges := []graph.ConceptEdge{
		{Source: "A", Target: "B", Type: graph.Prereq},
		{Source: "A", Target: "A", Type: graph.Rel},
	}
	s := New(DefaultConfig()).newSimulation(nodes, edges, 400, 400)
	if len(s.links) != 1 {
		t.Fatalf("links = %d, want 1", len(s.links))
	}
	if s.links[0].bias != 0.5 {
		t.Errorf("bias = %v, want 0.5", s.links[0].bias)
	}
}
