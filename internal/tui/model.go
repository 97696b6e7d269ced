// Package tui is the interactive terminal starfield.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/gateway"
	"github.com/lazypower/starfield/internal/graph"
	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/render"
	"github.com/lazypower/starfield/internal/scene"
)

// Each terminal cell stands for a cellW x cellH patch of layout canvas.
const (
	cellW = 8
	cellH = 16

	headerRows = 1
	footerRows = 2
	panelCols  = 32
	minPanelAt = 72

	panStep = 4 * cellW
)

// Options configures a Model.
type Options struct {
	Gateway gateway.Gateway
	UserID  string
	Engine  *layout.Engine
	Zoom    scene.Zoom
	Log     *zap.Logger
	// Timeout bounds each gateway call. Zero means 10s.
	Timeout time.Duration
}

type graphMsg struct {
	ticket scene.Ticket
	snap   graph.Snapshot
}

type graphErrMsg struct {
	ticket scene.Ticket
	err    error
}

type uploadedMsg struct {
	nodes, edges int
	err          error
}

// Model is the bubbletea model wrapping a scene.View.
type Model struct {
	gw      gateway.Gateway
	userID  string
	timeout time.Duration
	log     *zap.Logger

	view *scene.View

	width, height int

	help     help.Model
	showHelp bool
	spinner  spinner.Model

	input     textinput.Model
	uploading bool
	uploadErr error
	notice    string

	pressed            bool
	pressCol, pressRow int
	dragged            bool
}

// New builds a model. The first fetch starts in Init.
func New(opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	in := textinput.New()
	in.Prompt = "fragment> "
	in.Placeholder = `{"nodes":[{"name":"..."}],"edges":[]}`

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		gw:      opts.Gateway,
		userID:  opts.UserID,
		timeout: opts.Timeout,
		log:     opts.Log,
		view:    scene.NewView(opts.Engine, 80*cellW, 20*cellH, opts.Zoom),
		help:    help.New(),
		spinner: sp,
		input:   in,
	}
	log := opts.Log
	m.view.OnSelect = func(d scene.Detail, ok bool) {
		if ok {
			log.Debug("concept selected", zap.String("id", d.Node.ID), zap.Int("related", len(d.Related)))
		} else {
			log.Debug("selection cleared")
		}
	}
	return m
}

// Run starts the program on the terminal.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Scene returns the underlying view state.
func (m Model) Scene() *scene.View {
	return m.view
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

// load starts a fetch. Layout only runs once data has arrived.
func (m Model) load() tea.Cmd {
	ticket := m.view.BeginLoad()
	gw, user, timeout := m.gw, m.userID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := gw.FetchGraph(ctx, user)
		if err != nil {
			return graphErrMsg{ticket: ticket, err: err}
		}
		return graphMsg{ticket: ticket, snap: snap}
	}
}

func (m Model) upload(f gateway.Fragment) tea.Cmd {
	gw, user, timeout := m.gw, m.userID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := gw.UploadGraphFragment(ctx, user, f)
		return uploadedMsg{nodes: len(f.Nodes), edges: len(f.Edges), err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		cols, rows := m.mapSize()
		m.view.Resize(float64(cols*cellW), float64(rows*cellH))
		return m, nil

	case graphMsg:
		m.view.ApplyGraph(msg.ticket, msg.snap)
		if d := m.view.DroppedEdges(); d > 0 {
			m.log.Info("edges skipped", zap.Int("dropped", d))
		}
		return m, nil

	case graphErrMsg:
		m.view.ApplyError(msg.ticket, msg.err)
		m.log.Warn("graph fetch failed", zap.Error(msg.err))
		return m, nil

	case uploadedMsg:
		if msg.err != nil {
			m.notice = ""
			m.uploadErr = msg.err
			return m, nil
		}
		m.notice = fmt.Sprintf("uploaded %d concepts, %d edges", msg.nodes, msg.edges)
		return m, m.load()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.mouse(msg), nil

	case tea.KeyMsg:
		if m.uploading {
			return m.promptKey(msg)
		}
		return m.key(msg)
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vp := &m.view.Viewport
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		return m, m.load()
	case key.Matches(msg, keys.ZoomIn):
		vp.ZoomIn()
	case key.Matches(msg, keys.ZoomOut):
		vp.ZoomOut()
	case key.Matches(msg, keys.Reset):
		vp.Reset()
	case key.Matches(msg, keys.Up):
		vp.PanBy(0, panStep)
	case key.Matches(msg, keys.Down):
		vp.PanBy(0, -panStep)
	case key.Matches(msg, keys.Left):
		vp.PanBy(panStep, 0)
	case key.Matches(msg, keys.Right):
		vp.PanBy(-panStep, 0)
	case key.Matches(msg, keys.Next):
		m.view.Cycle(1)
	case key.Matches(msg, keys.Prev):
		m.view.Cycle(-1)
	case key.Matches(msg, keys.Clear):
		m.view.ClearSelection()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, keys.Upload):
		m.uploading = true
		m.uploadErr = nil
		m.notice = ""
		m.input.Reset()
		return m, m.input.Focus()
	}
	return m, nil
}

// promptKey handles keys while the upload prompt is open. Malformed text
// is reported inline and never reaches the gateway.
func (m Model) promptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.uploading = false
		m.uploadErr = nil
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		f, err := gateway.ParseFragment([]byte(m.input.Value()))
		if err != nil {
			m.uploadErr = err
			return m, nil
		}
		m.uploading = false
		m.uploadErr = nil
		m.input.Blur()
		m.notice = "uploading..."
		return m, m.upload(f)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// mouse pans on drag and selects on click. Wheel zooms.
func (m Model) mouse(msg tea.MouseMsg) Model {
	vp := &m.view.Viewport
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		vp.ZoomIn()
		return m
	case tea.MouseButtonWheelDown:
		vp.ZoomOut()
		return m
	}

	col, row := msg.X, msg.Y-headerRows
	x, y := m.canvasPoint(col, row)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !m.inMap(col, row) {
			return m
		}
		m.pressed, m.dragged = true, false
		m.pressCol, m.pressRow = col, row
		vp.BeginPan(x, y)
	case tea.MouseActionMotion:
		if !m.pressed {
			return m
		}
		if col != m.pressCol || row != m.pressRow {
			m.dragged = true
		}
		vp.PanTo(x, y)
	case tea.MouseActionRelease:
		if !m.pressed {
			return m
		}
		m.pressed = false
		vp.EndPan()
		if !m.dragged {
			m.view.Tap(x, y)
		}
	}
	return m
}

func (m Model) canvasPoint(col, row int) (float64, float64) {
	cols, rows := m.mapSize()
	return render.CellCenter(m.view.Frame(), cols, rows, col, row)
}

func (m Model) inMap(col, row int) bool {
	cols, rows := m.mapSize()
	return col >= 0 && row >= 0 && col < cols && row < rows
}

// mapSize is the starfield area in cells.
func (m Model) mapSize() (cols, rows int) {
	cols, rows = m.width, m.height-headerRows-footerRows
	if m.width >= minPanelAt {
		cols -= panelCols
	}
	return max(cols, 1), max(rows, 1)
}

// Notice is the last status line shown under the map, if any.
func (m Model) Notice() string {
	if m.uploadErr != nil {
		return m.uploadErr.Error()
	}
	return strings.TrimSpace(m.notice)
}
