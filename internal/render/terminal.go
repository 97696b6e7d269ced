package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/scene"
)

type cell struct {
	r     rune
	style *lipgloss.Style
}

var (
	starStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	prereqStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5a6fa8"))
	relStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4b4270"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE08A"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE08A")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DCE4F8"))
)

// Node glyphs from dim to bright.
var glyphs = []rune{'·', '∙', '•', '●'}

// Terminal draws the frame onto a cols x rows character grid. Each cell
// covers Width/cols by Height/rows screen units.
func Terminal(f scene.Frame, cols, rows int) string {
	if cols <= 0 || rows <= 0 || f.Width <= 0 || f.Height <= 0 {
		return ""
	}
	grid := make([][]cell, rows)
	for i := range grid {
		grid[i] = make([]cell, cols)
	}
	put := func(x, y float64, r rune, st *lipgloss.Style) {
		c, rr := int(x/f.Width*float64(cols)), int(y/f.Height*float64(rows))
		if c < 0 || c >= cols || rr < 0 || rr >= rows {
			return
		}
		grid[rr][c] = cell{r: r, style: st}
	}

	// Only the brighter stars survive at terminal resolution.
	for _, s := range f.Stars {
		if s.Opacity > 0.22 {
			put(s.X, s.Y, '.', &starStyle)
		}
	}

	for _, e := range f.Edges {
		x1, y1 := f.ToScreen(e.X1, e.Y1)
		x2, y2 := f.ToScreen(e.X2, e.Y2)
		st := &prereqStyle
		r := '·'
		switch {
		case e.Highlighted:
			st, r = &highlightStyle, '∙'
		case e.Type == graph.Rel:
			st = &relStyle
		}
		steps := int(math.Max(math.Abs(x2-x1)/f.Width*float64(cols), math.Abs(y2-y1)/f.Height*float64(rows)))
		for i := 1; i < steps; i++ {
			t := float64(i) / float64(steps)
			put(x1+(x2-x1)*t, y1+(y2-y1)*t, r, st)
		}
	}

	for _, n := range f.Nodes {
		x, y := f.ToScreen(n.X, n.Y)
		r := glyphs[int(math.Min(float64(len(glyphs)-1), n.Opacity*float64(len(glyphs))))]
		gray := lipgloss.NewStyle().Foreground(grayscale(n.Opacity))
		st := &gray
		switch {
		case n.Selected:
			r, st = '◉', &selectedStyle
		case n.Highlighted:
			st = &highlightStyle
		}
		put(x, y, r, st)
	}

	for _, n := range f.Nodes {
		if !n.Highlighted {
			continue
		}
		x, y := f.ToScreen(n.X, n.Y)
		c := int(x/f.Width*float64(cols)) + 2
		rr := int(y / f.Height * float64(rows))
		if rr < 0 || rr >= rows {
			continue
		}
		for i, ch := range []rune(n.Name) {
			if c+i < 0 || c+i >= cols {
				break
			}
			grid[rr][c+i] = cell{r: ch, style: &labelStyle}
		}
	}

	// Consecutive cells sharing a style render as one run.
	var b strings.Builder
	for i, row := range grid {
		for j := 0; j < len(row); {
			st := row[j].style
			k := j
			var run []rune
			for k < len(row) && row[k].style == st {
				r := row[k].r
				if st == nil {
					r = ' '
				}
				run = append(run, r)
				k++
			}
			if st == nil {
				b.WriteString(string(run))
			} else {
				b.WriteString(st.Render(string(run)))
			}
			j = k
		}
		if i < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// CellCenter maps a grid cell back to frame screen coordinates, for hit
// testing mouse clicks.
func CellCenter(f scene.Frame, cols, rows, col, row int) (float64, float64) {
	return (float64(col) + 0.5) * f.Width / float64(cols), (float64(row) + 0.5) * f.Height / float64(rows)
}

// grayscale maps opacity onto the 256-color gray ramp (236..255).
func grayscale(op float64) lipgloss.Color {
	op = math.Max(0, math.Min(1, op))
	return lipgloss.Color(strconv.Itoa(236 + int(op*19)))
}
