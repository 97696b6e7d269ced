// Package render draws a scene.Frame to SVG, PNG or a terminal grid.
package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/scene"
)

// svgo works in integers; geometry is drawn at 10x inside a 0.1 scale group.
const precision = 10

func fx(v float64) int { return int(math.Round(v * precision)) }

var unscale = fmt.Sprintf(`transform="scale(%g)"`, 1.0/precision)

// SVG writes the frame as a standalone SVG document.
func SVG(w io.Writer, f scene.Frame) error {
	width, height := int(math.Ceil(f.Width)), int(math.Ceil(f.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render svg: invalid canvas %vx%v", f.Width, f.Height)
	}

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(width, height)

	canvas.Def()
	canvas.RadialGradient("wash", 50, 40, 80, 50, 40, []svg.Offcolor{
		{Offset: 0, Color: cssRGB(washInner), Opacity: 1},
		{Offset: 100, Color: cssRGB(washOuter), Opacity: 1},
	})
	canvas.Filter("glow")
	canvas.FeGaussianBlur(svg.Filterspec{In: "SourceGraphic"}, float64(fx(4)), float64(fx(4)))
	canvas.Fend()
	canvas.DefEnd()

	canvas.Rect(0, 0, width, height, "fill:url(#wash)")

	canvas.Group(`id="stars"`, unscale)
	for _, s := range f.Stars {
		canvas.Circle(fx(s.X), fx(s.Y), max(1, fx(s.Radius)),
			fmt.Sprintf("fill:%s;fill-opacity:%.3f", cssRGB(starColor), s.Opacity))
	}
	canvas.Gend()

	canvas.Gtransform(fmt.Sprintf("translate(%.3f,%.3f) scale(%.4f)", f.OffsetX, f.OffsetY, f.Scale))
	canvas.Group(unscale)

	for _, e := range f.Edges {
		canvas.Line(fx(e.X1), fx(e.Y1), fx(e.X2), fx(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-opacity:%.3f;stroke-width:%d", cssRGB(edgeColor(e)), e.Opacity, fx(e.Width)))
	}
	for _, n := range f.Nodes {
		if n.Glow {
			canvas.Circle(fx(n.X), fx(n.Y), fx(n.GlowRadius),
				fmt.Sprintf("fill:%s;fill-opacity:%.3f;filter:url(#glow)", cssRGB(glowColor), n.GlowOpacity))
		}
		style := fmt.Sprintf("fill:%s;fill-opacity:%.3f", cssRGB(nodeColor), n.Opacity)
		if n.Selected {
			style += fmt.Sprintf(";stroke:%s;stroke-width:%d", cssRGB(selectColor), fx(1.2))
		}
		canvas.Circle(fx(n.X), fx(n.Y), fx(n.Radius), style)
	}
	for _, n := range f.Nodes {
		if !n.Highlighted {
			continue
		}
		canvas.Text(fx(n.X), fx(n.Y-n.Radius-5), n.Name,
			fmt.Sprintf("fill:%s;font-size:%dpx;font-family:system-ui,sans-serif;text-anchor:middle", cssRGB(labelColor), fx(11)))
	}

	canvas.Gend()
	canvas.Gend()
	canvas.End()
	return ew.err
}

func edgeColor(e scene.EdgeSprite) rgb {
	switch {
	case e.Highlighted:
		return highlightColor
	case e.Type == graph.Rel:
		return relColor
	}
	return prereqColor
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
