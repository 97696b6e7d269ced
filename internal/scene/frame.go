package scene

import (
	"math"
	"sort"
	"strconv"

	"github.com/lazypower/starfield/internal/decay"
	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/seed"
)

// Visual mapping.
const (
	BaseRadius        = 3.5
	MasteryRadiusGain = 5.0
	GlowRadiusFactor  = 2.6
	GlowOpacityFactor = 0.35

	PrereqEdgeOpacity    = 0.35
	PrereqEdgeWidth      = 1.2
	RelEdgeOpacity       = 0.15
	RelEdgeWidth         = 0.8
	HighlightEdgeOpacity = 0.9
	HighlightEdgeWidth   = 1.0

	StarCount = 120
	// HitSlop widens the tap target around a node core, in screen pixels.
	HitSlop = 6.0
)

// Star is a decorative background point in screen space.
type Star struct {
	X, Y    float64
	Radius  float64
	Opacity float64
}

// NodeSprite is a node ready to draw. Coordinates are world space.
type NodeSprite struct {
	ID          string
	Name        string
	X, Y        float64
	Radius      float64
	Opacity     float64
	Glow        bool
	GlowRadius  float64
	GlowOpacity float64
	Selected    bool
	Highlighted bool
}

// EdgeSprite is an edge ready to draw. Coordinates are world space.
type EdgeSprite struct {
	Source, Target string
	Type           graph.EdgeType
	X1, Y1, X2, Y2 float64
	Opacity        float64
	Width          float64
	Highlighted    bool
}

// Frame is one fully resolved scene. Layers draw in order: background,
// stars (untransformed), then edges and nodes under the viewport transform.
type Frame struct {
	Width, Height float64
	Stars         []Star
	Edges         []EdgeSprite
	// Nodes are ordered back to front.
	Nodes []NodeSprite

	Scale, OffsetX, OffsetY float64

	// Dropped counts nodes excluded for non-finite coordinates.
	Dropped int
}

// ToScreen applies the frame's viewport transform.
func (f Frame) ToScreen(x, y float64) (float64, float64) {
	return x*f.Scale + f.OffsetX, y*f.Scale + f.OffsetY
}

// HitTest returns the topmost node whose core (plus HitSlop) contains the
// screen point.
func (f Frame) HitTest(x, y float64) (string, bool) {
	for i := len(f.Nodes) - 1; i >= 0; i-- {
		n := f.Nodes[i]
		sx, sy := f.ToScreen(n.X, n.Y)
		if math.Hypot(sx-x, sy-y) <= n.Radius*f.Scale+HitSlop {
			return n.ID, true
		}
	}
	return "", false
}

// Node returns the sprite for id.
func (f Frame) Node(id string) (NodeSprite, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSprite{}, false
}

// Input is everything Build needs.
type Input struct {
	Nodes     []layout.PositionedNode
	Edges     []graph.ConceptEdge
	Adjacency graph.Adjacency
	Viewport  Viewport
	Selected  string
}

// Build resolves visual attributes for one frame.
func Build(in Input) Frame {
	w, h := in.Viewport.Size()
	s, ox, oy := in.Viewport.Matrix()
	f := Frame{
		Width:   w,
		Height:  h,
		Stars:   BackgroundStars(w, h),
		Scale:   s,
		OffsetX: ox,
		OffsetY: oy,
	}

	hl := NewHighlight(in.Selected, in.Adjacency)

	pos := make(map[string]layout.PositionedNode, len(in.Nodes))
	for _, n := range in.Nodes {
		if !n.Finite() {
			f.Dropped++
			continue
		}
		if _, dup := pos[n.ID]; dup {
			continue
		}
		pos[n.ID] = n
		f.Nodes = append(f.Nodes, nodeSprite(n, hl))
	}

	for _, e := range in.Edges {
		a, okA := pos[e.Source]
		b, okB := pos[e.Target]
		if !okA || !okB {
			continue
		}
		f.Edges = append(f.Edges, edgeSprite(e, a, b, hl))
	}

	sort.SliceStable(f.Nodes, func(i, j int) bool {
		ri, rj := depth(f.Nodes[i]), depth(f.Nodes[j])
		if ri != rj {
			return ri < rj
		}
		return f.Nodes[i].Opacity < f.Nodes[j].Opacity
	})
	sort.SliceStable(f.Edges, func(i, j int) bool {
		return !f.Edges[i].Highlighted && f.Edges[j].Highlighted
	})
	return f
}

func nodeSprite(n layout.PositionedNode, hl Highlight) NodeSprite {
	sp := NodeSprite{
		ID:          n.ID,
		Name:        n.Name,
		X:           n.X,
		Y:           n.Y,
		Radius:      BaseRadius + n.Mastery()*MasteryRadiusGain,
		Opacity:     decay.Clamp(n.Brightness, 0, 1),
		Selected:    n.ID == hl.Selected(),
		Highlighted: hl.Node(n.ID),
	}
	if sp.Selected {
		sp.Opacity = 1
	}
	if sp.Highlighted {
		sp.Glow = true
		sp.GlowRadius = sp.Radius * GlowRadiusFactor
		sp.GlowOpacity = sp.Opacity * GlowOpacityFactor
	}
	return sp
}

func edgeSprite(e graph.ConceptEdge, a, b layout.PositionedNode, hl Highlight) EdgeSprite {
	sp := EdgeSprite{
		Source: e.Source,
		Target: e.Target,
		Type:   graph.ParseEdgeType(string(e.Type)),
		X1:     a.X,
		Y1:     a.Y,
		X2:     b.X,
		Y2:     b.Y,
	}
	if sp.Type == graph.Prereq {
		sp.Opacity, sp.Width = PrereqEdgeOpacity, PrereqEdgeWidth
	} else {
		sp.Opacity, sp.Width = RelEdgeOpacity, RelEdgeWidth
	}
	if hl.Edge(e) {
		sp.Highlighted = true
		sp.Opacity = HighlightEdgeOpacity
		sp.Width += HighlightEdgeWidth
	}
	return sp
}

func depth(n NodeSprite) int {
	switch {
	case n.Selected:
		return 2
	case n.Highlighted:
		return 1
	}
	return 0
}

// BackgroundStars returns the decorative points for a canvas. They are
// seeded by index, so the same canvas always gets the same sky.
func BackgroundStars(width, height float64) []Star {
	stars := make([]Star, StarCount)
	for i := range stars {
		key := "star:" + strconv.Itoa(i)
		x, y := seed.Point(key)
		stars[i] = Star{
			X:       x * width,
			Y:       y * height,
			Radius:  0.4 + seed.Unit(key+":r")*1.1,
			Opacity: 0.08 + seed.Unit(key+":o")*0.22,
		}
	}
	return stars
}
