package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lazypower/starfield/internal/render"
	"github.com/lazypower/starfield/internal/scene"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E6E9FF")).
			Background(lipgloss.Color("#151A33")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#313244")).
			PaddingLeft(1)

	panelHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFF3B0"))
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "starting..."
	}
	cols, rows := m.mapSize()

	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteString("\n")

	body := m.renderMap(cols, rows)
	if m.width >= minPanelAt {
		panel := panelStyle.Width(panelCols - 1).Height(rows).Render(m.renderDetail())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, panel)
	}
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("starfield")
	status := m.view.Status()
	var state string
	switch status {
	case scene.StatusLoading:
		state = m.spinner.View() + " loading"
	case scene.StatusError:
		state = errorStyle.Render("unavailable")
	default:
		state = status.String()
	}
	stats := dimStyle.Render(fmt.Sprintf("%s · %d concepts · zoom %.2f", m.userID, len(m.view.Nodes()), m.view.Viewport.Scale))
	gap := strings.Repeat(" ", max(1, m.width-lipgloss.Width(title)-lipgloss.Width(state)-lipgloss.Width(stats)-2))
	return title + " " + state + gap + stats
}

// renderMap draws the starfield, or a placeholder while there is nothing
// laid out yet.
func (m Model) renderMap(cols, rows int) string {
	if len(m.view.Nodes()) == 0 {
		var msg string
		switch m.view.Status() {
		case scene.StatusIdle, scene.StatusLoading:
			msg = m.spinner.View() + " loading graph..."
		case scene.StatusError:
			msg = errorStyle.Render("could not load graph: " + m.view.Err().Error())
		default:
			msg = "no concepts yet, press u to upload a fragment"
		}
		return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, msg)
	}
	return render.Terminal(m.view.Frame(), cols, rows)
}

func (m Model) renderDetail() string {
	d, ok := m.view.Detail()
	if !ok {
		return dimStyle.Render("tab or click a star\nto inspect a concept")
	}
	var b strings.Builder
	b.WriteString(panelHeaderStyle.Render(d.Node.Name))
	b.WriteString("\n")
	if d.Node.Level != nil {
		fmt.Fprintf(&b, "level      %d\n", *d.Node.Level)
	}
	fmt.Fprintf(&b, "brightness %.2f\n", d.Node.Brightness)
	if d.Node.MasteryScore != nil {
		fmt.Fprintf(&b, "mastery    %.0f%%\n", d.Node.Mastery()*100)
	}
	if last := d.Node.LastActive(); last != nil {
		fmt.Fprintf(&b, "active     %s\n", last.Format("2006-01-02"))
	}
	b.WriteString("\n")
	if len(d.Related) == 0 {
		b.WriteString(dimStyle.Render("no related concepts"))
		return b.String()
	}
	b.WriteString(dimStyle.Render("related"))
	for _, r := range d.Related {
		b.WriteString("\n  " + r.Name)
	}
	return b.String()
}

func (m Model) renderFooter() string {
	var first string
	switch {
	case m.uploading:
		first = m.input.View()
	case m.view.Status() == scene.StatusError && len(m.view.Nodes()) > 0:
		first = errorStyle.Render("refresh failed: " + m.view.Err().Error())
	default:
		first = dimStyle.Render(m.notice)
	}

	var second string
	switch {
	case m.uploadErr != nil:
		second = errorStyle.Render(m.uploadErr.Error())
	case m.uploading:
		second = dimStyle.Render("enter to upload · esc to cancel")
	case m.showHelp:
		second = m.help.FullHelpView(keys.FullHelp())
	default:
		second = m.help.ShortHelpView(keys.ShortHelp())
	}
	return first + "\n" + second
}
