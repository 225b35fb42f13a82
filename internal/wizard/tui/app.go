package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
)

// Options configures a download wizard.
type Options struct {
	Engine lpa.Engine
	// Store persists the wizard between runs. Nil disables persistence.
	Store *wizard.Store
	// InitialSlot is preselected on the slot screen.
	InitialSlot int
	// Restore resumes a saved session instead of starting fresh.
	Restore *wizard.Bundle
}

// Model is the top-level Bubble Tea model of the download wizard. It owns
// the controller and forwards everything else to the current step.
type Model struct {
	ctx    context.Context
	ctrl   *wizard.Controller[Step]
	engine lpa.Engine
	store  *wizard.Store

	// rendered holds steps made current since the last Init pass.
	rendered []Step

	help   help.Model
	quit   key.Binding
	back   key.Binding
	width  int
	height int
	err    error
}

// NewModel builds the wizard and renders its first step.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	if opts.Engine == nil {
		return nil, errors.New("wizard needs an engine")
	}

	m := &Model{
		ctx:    ctx,
		ctrl:   wizard.New[Step](NewStep),
		engine: opts.Engine,
		store:  opts.Store,
		help:   help.New(),
		quit:   key.NewBinding(key.WithKeys("ctrl+c")),
		back:   key.NewBinding(key.WithKeys("esc")),
		width:  ui.GetTerminalWidth(),
		height: ui.DefaultHeight,
	}
	m.ctrl.OnRender(func(ev wizard.RenderEvent[Step]) {
		m.rendered = append(m.rendered, ev.Step)
	})
	m.ctrl.OnFinish(func(o wizard.Outcome) {
		logging.Info("Download wizard finished",
			zap.String("session", m.ctrl.Session()),
			zap.String("outcome", o.String()),
		)
	})

	if err := m.ctrl.Initialize(opts.InitialSlot, opts.Restore); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) env() *Env {
	return &Env{
		Ctx:    m.ctx,
		State:  m.ctrl.State(),
		Engine: m.engine,
		Width:  ui.ClampWidth(m.width) - 8,
	}
}

// Init initializes the first step.
func (m *Model) Init() tea.Cmd {
	return m.initRendered()
}

// initRendered drains the steps shown since the last call and runs Init only
// on the one that is still current. Steps already navigated away from are
// dropped without being initialized.
func (m *Model) initRendered() tea.Cmd {
	var cmds []tea.Cmd
	for len(m.rendered) > 0 {
		step := m.rendered[0]
		m.rendered = m.rendered[1:]
		if step != m.ctrl.Current() {
			continue
		}
		cmds = append(cmds, step.Init(m.env()))
	}
	return tea.Batch(cmds...)
}

// Update handles global keys and navigation and routes the rest to the
// current step.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.quit):
			m.persist()
			return m, tea.Quit
		case key.Matches(msg, m.back):
			return m.navigate(m.ctrl.OnPrev)
		}

	case NextMsg:
		return m.navigate(m.ctrl.OnNext)

	case PrevMsg:
		return m.navigate(m.ctrl.OnPrev)

	case StateChangedMsg:
		m.persist()
		m.ctrl.RefreshControls()
		return m, nil
	}

	if m.ctrl.Finished() {
		return m, nil
	}
	cmd := m.ctrl.Current().Update(m.env(), msg)
	m.ctrl.RefreshControls()
	return m, cmd
}

func (m *Model) navigate(move func() error) (tea.Model, tea.Cmd) {
	if err := move(); err != nil {
		m.err = err
		logging.Error("Wizard navigation failed",
			zap.String("session", m.ctrl.Session()),
			zap.Error(err),
		)
		return m, tea.Quit
	}

	if m.ctrl.Finished() {
		m.clear()
		return m, tea.Quit
	}

	// Init first: starting the download marks it in the state.
	cmd := m.initRendered()
	m.persist()
	return m, cmd
}

func (m *Model) persist() {
	if m.store == nil || m.ctrl.Finished() {
		return
	}
	if err := m.store.Save(m.ctrl.Persist()); err != nil {
		logging.Warn("Failed to save wizard state", zap.Error(err))
	}
}

func (m *Model) clear() {
	if m.store == nil {
		return
	}
	if err := m.store.Clear(); err != nil {
		logging.Warn("Failed to clear wizard state", zap.Error(err))
	}
}

// View renders the current step inside the application container.
func (m *Model) View() string {
	if m.err != nil {
		return ui.RenderErrorBox("Wizard error", m.err, nil, ui.ClampWidth(m.width)) + "\n"
	}
	if m.ctrl.Finished() {
		return ""
	}

	step := m.ctrl.Current()
	env := m.env()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(step.View(env))
	b.WriteString("\n\n")
	b.WriteString(m.renderControls())

	return ui.RenderApplicationContainer(
		"Download · "+step.Title(),
		b.String(),
		m.help.View(step.KeyMap()),
		m.width,
		m.height,
	)
}

func (m *Model) renderControls() string {
	c := m.ctrl.Controls()
	var parts []string
	if c.Prev {
		parts = append(parts, ui.MenuItemStyle.Render("‹ Back"))
	}
	if c.Next {
		parts = append(parts, ui.SelectedMenuItemStyle.Render("Next ›"))
	}
	return strings.Join(parts, "   ")
}

// Outcome reports how the wizard ended. OutcomeRunning after the program
// exits means the user quit and the session can be resumed.
func (m *Model) Outcome() wizard.Outcome {
	return m.ctrl.Outcome()
}

// State exposes the wizard's state, mainly for the final summary.
func (m *Model) State() *wizard.State {
	return m.ctrl.State()
}

// Err returns the error that stopped the wizard, if any.
func (m *Model) Err() error {
	return m.err
}
