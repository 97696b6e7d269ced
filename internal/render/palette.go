package render

import (
	"fmt"
	"image/color"
)

type rgb struct{ R, G, B uint8 }

var (
	washInner      = rgb{0x10, 0x16, 0x2e}
	washOuter      = rgb{0x03, 0x05, 0x0c}
	starColor      = rgb{0xc8, 0xd4, 0xf0}
	nodeColor      = rgb{0xf2, 0xf5, 0xff}
	glowColor      = rgb{0x9e, 0xcb, 0xff}
	selectColor    = rgb{0xff, 0xe0, 0x8a}
	labelColor     = rgb{0xdc, 0xe4, 0xf8}
	prereqColor    = rgb{0x8f, 0xb3, 0xff}
	relColor       = rgb{0xb9, 0xa6, 0xff}
	highlightColor = rgb{0xff, 0xe0, 0x8a}
)

func cssRGB(c rgb) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// withAlpha returns c as a non-premultiplied color at opacity a in [0,1].
func withAlpha(c rgb, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a*255 + 0.5)}
}
