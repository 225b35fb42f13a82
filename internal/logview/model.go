package logview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/ui"
)

type loadedMsg struct {
	text string
	err  error
}

type exportedMsg struct {
	path    string
	written bool
	err     error
}

// ClosedMsg is emitted when an embedded viewer is dismissed.
type ClosedMsg struct{}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Export  key.Binding
	Close   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Refresh, k.Export, k.Close}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Refresh, k.Export, k.Close}}
}

type promptKeyMap struct {
	Save   key.Binding
	Cancel key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k promptKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k promptKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Save, k.Cancel}}
}

// Options configures a viewer.
type Options struct {
	// Standalone makes closing quit the program instead of emitting ClosedMsg.
	Standalone bool
	// Now stamps the default export name. Defaults to time.Now.
	Now func() time.Time
}

// Model shows a log source in a scrolling viewport and exports it.
type Model struct {
	source     Source
	standalone bool
	now        func() time.Time

	text    string
	err     error
	loading bool
	status  string

	viewport  viewport.Model
	prompting bool
	dest      textinput.Model

	keys       keyMap
	promptKeys promptKeyMap
	help       help.Model
	width      int
	height     int
}

// New creates a viewer for source.
func New(source Source, opts Options) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	dest := textinput.New()
	dest.Prompt = "Save as: "
	dest.CharLimit = 4096
	dest.Width = 60
	dest.Cursor.SetMode(cursor.CursorStatic)

	width := ui.GetTerminalWidth()
	m := &Model{
		source:     source,
		standalone: opts.Standalone,
		now:        now,
		dest:       dest,
		help:       help.New(),
		width:      width,
		height:     ui.DefaultHeight,
		keys: keyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "scroll up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "scroll down"),
			),
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Export: key.NewBinding(
				key.WithKeys("s", "e"),
				key.WithHelp("s", "save to file"),
			),
			Close: key.NewBinding(
				key.WithKeys("q", "esc"),
				key.WithHelp("q", "close"),
			),
		},
		promptKeys: promptKeyMap{
			Save: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "save"),
			),
			Cancel: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "cancel"),
			),
		},
	}
	m.viewport = viewport.New(m.viewportSize())
	return m
}

func (m *Model) viewportSize() (int, int) {
	return ui.ClampWidth(m.width) - 6, ui.ContentHeight(m.height) - 3
}

// Init loads the source.
func (m *Model) Init() tea.Cmd {
	return m.reload()
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	source := m.source
	return func() tea.Msg {
		text, err := source.Load()
		return loadedMsg{text: text, err: err}
	}
}

func export(dest, text string) tea.Cmd {
	return func() tea.Msg {
		written, err := Export(dest, text)
		return exportedMsg{path: strings.TrimSpace(dest), written: written, err: err}
	}
}

// Text returns what is currently displayed, which is also what Export saves.
func (m *Model) Text() string {
	return m.text
}

// Update handles loading, scrolling and the export prompt.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width, m.viewport.Height = m.viewportSize()
		return m, nil

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.text = msg.text
		}
		content := m.text
		if content == "" {
			content = ui.SubtitleStyle.Render("No log entries yet.")
		}
		m.viewport.SetContent(content)
		m.viewport.GotoBottom()
		return m, nil

	case exportedMsg:
		switch {
		case msg.err != nil:
			m.status = ui.ErrorMessageStyle.Render(ui.FailureMarker + " " + msg.err.Error())
		case msg.written:
			m.status = ui.StepCompleteStyle.Render(ui.SuccessMarker + " Saved to " + msg.path)
		default:
			m.status = ui.SubtitleStyle.Render("Nothing saved.")
		}
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m, m.updatePrompt(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Refresh):
			m.status = ""
			return m, m.reload()
		case key.Matches(msg, m.keys.Export):
			m.prompting = true
			m.status = ""
			m.dest.SetValue(DefaultExportName(m.now()))
			m.dest.CursorEnd()
			m.dest.Focus()
			return m, nil
		case key.Matches(msg, m.keys.Close):
			if m.standalone {
				return m, tea.Quit
			}
			return m, func() tea.Msg { return ClosedMsg{} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.promptKeys.Save):
		m.prompting = false
		m.dest.Blur()
		return export(m.dest.Value(), m.text)
	case key.Matches(msg, m.promptKeys.Cancel):
		m.prompting = false
		m.dest.Blur()
		m.status = ui.SubtitleStyle.Render("Export cancelled.")
		return nil
	}
	var cmd tea.Cmd
	m.dest, cmd = m.dest.Update(msg)
	return cmd
}

// View renders the log inside the application container.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(ui.SubtitleStyle.Render(m.source.Describe()))
	b.WriteString("\n")

	switch {
	case m.loading && m.text == "":
		b.WriteString(ui.SubtitleStyle.Render("Loading..."))
	case m.err != nil:
		b.WriteString(ui.ErrorBoxInlineStyle.Render(fmt.Sprintf("%s %v", ui.FailureMarker, m.err)))
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	footer := m.help.View(m.keys)
	if m.prompting {
		b.WriteString(m.dest.View())
		footer = m.help.View(m.promptKeys)
	} else if m.status != "" {
		b.WriteString(m.status)
	}

	return ui.RenderApplicationContainer("Logs", b.String(), footer, m.width, m.height)
}
