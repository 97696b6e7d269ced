package scene

import "math"

// Zoom bounds the discrete zoom controls.
type Zoom struct {
	Step float64 `toml:"zoom_step"`
	Min  float64 `toml:"zoom_min"`
	Max  float64 `toml:"zoom_max"`
}

// DefaultZoom is 0.15 per step within [0.6, 2.4].
func DefaultZoom() Zoom {
	return Zoom{Step: 0.15, Min: 0.6, Max: 2.4}
}

func (z Zoom) orDefault() Zoom {
	d := DefaultZoom()
	if z.Step <= 0 {
		z.Step = d.Step
	}
	if z.Min <= 0 {
		z.Min = d.Min
	}
	if z.Max < z.Min {
		z.Max = math.Max(d.Max, z.Min)
	}
	return z
}

// Viewport is the single affine transform applied to the data layer:
// uniform scale about the canvas center followed by a pan translation.
//
//	screen = (world - center) * Scale + center + (TranslateX, TranslateY)
//
// It is local UI state. Only input handlers change it.
type Viewport struct {
	Scale      float64
	TranslateX float64
	TranslateY float64

	zoom   Zoom
	width  float64
	height float64

	panning        bool
	startX, startY float64
	baseX, baseY   float64
}

// NewViewport returns an identity viewport for a width x height canvas.
func NewViewport(width, height float64, zoom Zoom) Viewport {
	return Viewport{Scale: 1, zoom: zoom.orDefault(), width: width, height: height}
}

// Resize changes the canvas the transform is centered on.
func (v *Viewport) Resize(width, height float64) {
	v.width, v.height = width, height
}

// Size returns the canvas size.
func (v Viewport) Size() (width, height float64) {
	return v.width, v.height
}

// ZoomIn steps the scale up, stopping at the maximum.
func (v *Viewport) ZoomIn() {
	z := v.zoom.orDefault()
	v.Scale = math.Min(z.Max, v.Scale+z.Step)
}

// ZoomOut steps the scale down, stopping at the minimum.
func (v *Viewport) ZoomOut() {
	z := v.zoom.orDefault()
	v.Scale = math.Max(z.Min, v.Scale-z.Step)
}

// SetScale jumps to scale s, clamped to the zoom range.
func (v *Viewport) SetScale(s float64) {
	z := v.zoom.orDefault()
	if math.IsNaN(s) {
		s = 1
	}
	v.Scale = math.Max(z.Min, math.Min(z.Max, s))
}

// Reset restores scale 1 and no translation.
func (v *Viewport) Reset() {
	v.Scale = 1
	v.TranslateX, v.TranslateY = 0, 0
	v.panning = false
}

// BeginPan starts a drag at screen point (x, y). The current translation
// becomes the baseline so consecutive drags compose.
func (v *Viewport) BeginPan(x, y float64) {
	v.panning = true
	v.startX, v.startY = x, y
	v.baseX, v.baseY = v.TranslateX, v.TranslateY
}

// PanTo moves an active drag to screen point (x, y).
func (v *Viewport) PanTo(x, y float64) {
	if !v.panning {
		return
	}
	v.TranslateX = v.baseX + (x - v.startX)
	v.TranslateY = v.baseY + (y - v.startY)
}

// EndPan finishes the drag.
func (v *Viewport) EndPan() {
	v.panning = false
}

// Panning reports whether a drag is in progress.
func (v Viewport) Panning() bool {
	return v.panning
}

// PanBy shifts the translation directly, for keyboard panning.
func (v *Viewport) PanBy(dx, dy float64) {
	v.TranslateX += dx
	v.TranslateY += dy
}

// Matrix returns the transform as scale plus offset:
// screen = world*scale + (offsetX, offsetY).
func (v Viewport) Matrix() (scale, offsetX, offsetY float64) {
	s := v.scale()
	cx, cy := v.width/2, v.height/2
	return s, cx*(1-s) + v.TranslateX, cy*(1-s) + v.TranslateY
}

// ToScreen maps a world point to screen space.
func (v Viewport) ToScreen(x, y float64) (float64, float64) {
	s, ox, oy := v.Matrix()
	return x*s + ox, y*s + oy
}

// ToWorld maps a screen point back to world space.
func (v Viewport) ToWorld(x, y float64) (float64, float64) {
	s, ox, oy := v.Matrix()
	return (x - ox) / s, (y - oy) / s
}

func (v Viewport) scale() float64 {
	if v.Scale <= 0 || math.IsNaN(v.Scale) {
		return 1
	}
	return v.Scale
}
