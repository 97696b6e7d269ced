package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"

	"github.com/lazypower/starfield/internal/scene"
)

// PNG rasterizes the frame. Data is transformed to screen space before
// drawing so stroke widths scale with zoom.
func PNG(w io.Writer, f scene.Frame) error {
	width, height := int(math.Ceil(f.Width)), int(math.Ceil(f.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render png: invalid canvas %vx%v", f.Width, f.Height)
	}

	dc := gg.NewContext(width, height)
	grad := gg.NewRadialGradient(f.Width/2, f.Height*0.4, 0, f.Width/2, f.Height*0.4, math.Max(f.Width, f.Height)*0.8)
	grad.AddColorStop(0, withAlpha(washInner, 1))
	grad.AddColorStop(1, withAlpha(washOuter, 1))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, f.Width, f.Height)
	dc.Fill()

	for _, s := range f.Stars {
		dc.SetColor(withAlpha(starColor, s.Opacity))
		dc.DrawCircle(s.X, s.Y, s.Radius)
		dc.Fill()
	}

	for _, e := range f.Edges {
		x1, y1 := f.ToScreen(e.X1, e.Y1)
		x2, y2 := f.ToScreen(e.X2, e.Y2)
		dc.SetColor(withAlpha(edgeColor(e), e.Opacity))
		dc.SetLineWidth(e.Width * f.Scale)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	for _, n := range f.Nodes {
		x, y := f.ToScreen(n.X, n.Y)
		if n.Glow {
			drawGlow(dc, x, y, n.GlowRadius*f.Scale, n.GlowOpacity)
		}
		dc.SetColor(withAlpha(nodeColor, n.Opacity))
		dc.DrawCircle(x, y, n.Radius*f.Scale)
		dc.Fill()
		if n.Selected {
			dc.SetColor(withAlpha(selectColor, 1))
			dc.SetLineWidth(1.2 * f.Scale)
			dc.DrawCircle(x, y, n.Radius*f.Scale)
			dc.Stroke()
		}
	}

	dc.SetColor(color.NRGBA{R: labelColor.R, G: labelColor.G, B: labelColor.B, A: 0xff})
	for _, n := range f.Nodes {
		if !n.Highlighted {
			continue
		}
		x, y := f.ToScreen(n.X, n.Y)
		dc.DrawStringAnchored(n.Name, x, y-(n.Radius+5)*f.Scale, 0.5, 0)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

// drawGlow approximates a blurred halo with stacked translucent rings.
func drawGlow(dc *gg.Context, x, y, r, opacity float64) {
	const rings = 4
	for i := rings; i >= 1; i-- {
		dc.SetColor(withAlpha(glowColor, opacity/rings))
		dc.DrawCircle(x, y, r*float64(i)/rings)
		dc.Fill()
	}
}
