// Package layout turns a concept graph into 2-D canvas coordinates with a
// bounded force-directed simulation.
//
// The run is synchronous and deterministic: initial positions come from the
// seed package, forces are applied in a fixed order over nodes in input
// order, and the tick budget is fixed. Identical input on an identical
// canvas yields identical output.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/seed"
)

// PositionedNode is a concept with its simulated canvas position.
type PositionedNode struct {
	graph.ConceptNode
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are usable for drawing.
func (p PositionedNode) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Result is the outcome of one layout run.
type Result struct {
	Nodes []PositionedNode
	// Edges are the input edges whose endpoints both exist.
	Edges []graph.ConceptEdge
	// DroppedEdges counts edges that referenced a missing node.
	DroppedEdges int
	// Ticks is how many relaxation steps actually ran.
	Ticks int
}

// Engine runs layouts with a fixed configuration. It holds no per-run state
// and is safe to reuse.
type Engine struct {
	cfg    Config
	forces []force
}

// New creates an Engine. Zero simulation settings fall back to defaults.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{cfg: cfg, forces: cfg.Forces.build()}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Layout positions nodes on a width x height canvas. Input slices are not
// modified; the returned nodes carry every original field.
func (e *Engine) Layout(nodes []graph.ConceptNode, edges []graph.ConceptEdge, width, height float64) []PositionedNode {
	return e.Run(nodes, edges, width, height).Nodes
}

// Run is Layout with run statistics.
func (e *Engine) Run(nodes []graph.ConceptNode, edges []graph.ConceptEdge, width, height float64) Result {
	nodes = graph.UniqueNodes(nodes)
	kept, dropped := graph.FilterEdges(nodes, edges)
	res := Result{Edges: kept, DroppedEdges: dropped}
	if len(nodes) == 0 {
		res.Nodes = []PositionedNode{}
		return res
	}

	s := e.newSimulation(nodes, kept, width, height)
	res.Ticks = s.run(e.cfg, e.forces)
	if c := e.cfg.Forces.Collide; c.Strength != 0 && c.Radius > 0 {
		s.settle(2*c.Radius, e.cfg.SettlePasses)
	}

	res.Nodes = make([]PositionedNode, len(nodes))
	for i, n := range nodes {
		p := s.bodies[i].pos
		res.Nodes[i] = PositionedNode{
			ConceptNode: n,
			X:           clampAxis(p.X, width),
			Y:           clampAxis(p.Y, height),
		}
	}
	return res
}

// Seed returns the initial seeded positions without running the simulation.
func (e *Engine) Seed(nodes []graph.ConceptNode, width, height float64) []PositionedNode {
	out := make([]PositionedNode, len(nodes))
	for i, n := range nodes {
		p := seedPosition(n.ID, width, height, e.cfg.Margin)
		out[i] = PositionedNode{ConceptNode: n, X: p.X, Y: p.Y}
	}
	return out
}

type body struct {
	id       string
	pos      r2.Vec
	vel      r2.Vec
	hasLevel bool
	targetY  float64
}

type link struct {
	source, target int
	distance       float64
	bias           float64
}

type simulation struct {
	bodies []body
	links  []link
	center r2.Vec
	// lo and hi bound every position during the run.
	lo, hi r2.Vec
}

func (e *Engine) newSimulation(nodes []graph.ConceptNode, edges []graph.ConceptEdge, width, height float64) *simulation {
	s := &simulation{
		bodies: make([]body, len(nodes)),
		center: r2.Vec{X: width / 2, Y: height / 2},
	}
	inset := math.Max(0, e.cfg.Forces.Collide.Radius)
	s.lo.X, s.hi.X = axisBounds(width, inset)
	s.lo.Y, s.hi.Y = axisBounds(height, inset)

	index := make(map[string]int, len(nodes))
	level := levelForce(e.cfg.Forces.LevelY)
	for i, n := range nodes {
		index[n.ID] = i
		b := body{id: n.ID, pos: seedPosition(n.ID, width, height, e.cfg.Margin)}
		if n.Level != nil {
			b.hasLevel = true
			b.targetY = level.targetY(*n.Level, height, e.cfg.Margin)
		}
		s.bodies[i] = b
	}

	// Bias splits each spring's pull so well-connected nodes move less.
	degree := make([]int, len(nodes))
	for _, ed := range edges {
		if ed.Source == ed.Target {
			continue
		}
		degree[index[ed.Source]]++
		degree[index[ed.Target]]++
	}
	lf := linkForce(e.cfg.Forces.Link)
	for _, ed := range edges {
		si, ti := index[ed.Source], index[ed.Target]
		if si == ti {
			continue
		}
		s.links = append(s.links, link{
			source:   si,
			target:   ti,
			distance: lf.distance(string(ed.Type)),
			bias:     float64(degree[si]) / float64(degree[si]+degree[ti]),
		})
	}
	return s
}

// run advances the simulation and returns the number of ticks taken.
func (s *simulation) run(cfg Config, forces []force) int {
	alpha := 1.0
	decay := cfg.alphaDecay()
	keep := 1 - cfg.VelocityDecay

	for tick := 1; tick <= cfg.Iterations; tick++ {
		alpha += (0 - alpha) * decay
		for _, f := range forces {
			f.apply(s, alpha)
		}

		var moved float64
		for i := range s.bodies {
			b := &s.bodies[i]
			b.vel = r2.Scale(keep, b.vel)
			b.pos = r2.Add(b.pos, b.vel)
			moved += r2.Norm(b.vel)
			s.contain(b)
		}

		if cfg.StopEpsilon > 0 && moved/float64(len(s.bodies)) < cfg.StopEpsilon {
			return tick
		}
	}
	return cfg.Iterations
}

// contain holds b inside the run bounds and stops its motion into a wall,
// so collision on the next tick can still slide it along the edge.
func (s *simulation) contain(b *body) {
	if b.pos.X < s.lo.X {
		b.pos.X, b.vel.X = s.lo.X, 0
	} else if b.pos.X > s.hi.X {
		b.pos.X, b.vel.X = s.hi.X, 0
	}
	if b.pos.Y < s.lo.Y {
		b.pos.Y, b.vel.Y = s.lo.Y, 0
	} else if b.pos.Y > s.hi.Y {
		b.pos.Y, b.vel.Y = s.hi.Y, 0
	}
}

// settle moves overlapping pairs apart directly until no pair is closer
// than minDist or passes run out. Positions stay inside the run bounds.
func (s *simulation) settle(minDist float64, passes int) {
	min2 := minDist * minDist
	for pass := 0; pass < passes; pass++ {
		overlap := false
		for i := range s.bodies {
			for j := i + 1; j < len(s.bodies); j++ {
				bi, bj := &s.bodies[i], &s.bodies[j]
				d := r2.Sub(bi.pos, bj.pos)
				l2 := r2.Norm2(d)
				// NaN fails this test and is left for the scene to drop.
				if !(l2 < min2) {
					continue
				}
				overlap = true
				if l2 == 0 {
					d = r2.Vec{X: s.jiggle(i, j, 's'), Y: s.jiggle(i, j, 'S')}
					l2 = r2.Norm2(d)
				}
				l := math.Sqrt(l2)
				shift := r2.Scale((minDist-l)/l*0.5, d)
				bi.pos = r2.Add(bi.pos, shift)
				bj.pos = r2.Sub(bj.pos, shift)
				s.contain(bi)
				s.contain(bj)
			}
		}
		if !overlap {
			return
		}
	}
}

// axisBounds insets [0, dim] by inset when the canvas is wide enough.
func axisBounds(dim, inset float64) (lo, hi float64) {
	if dim <= 0 {
		return 0, 0
	}
	if dim > 2*inset {
		return inset, dim - inset
	}
	return 0, dim
}

// seedPosition places a node inside [margin, dim-margin] on each axis.
func seedPosition(id string, width, height, margin float64) r2.Vec {
	sx, sy := seed.Point(id)
	return r2.Vec{X: spread(sx, width, margin), Y: spread(sy, height, margin)}
}

func spread(u, dim, margin float64) float64 {
	usable := dim - 2*margin
	if usable <= 0 {
		return dim / 2
	}
	return margin + u*usable
}

// clampAxis keeps a finite coordinate on the canvas. Non-finite values pass
// through so the scene can exclude them.
func clampAxis(v, dim float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Max(0, math.Min(dim, v))
}
