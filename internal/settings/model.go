package settings

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/logview"
	"github.com/esimkit/esimctl/internal/preferences"
	"github.com/esimkit/esimctl/internal/ui"
)

// Store is the preference access the screen needs.
// *preferences.Repository implements it.
type Store interface {
	Subscribe(ctx context.Context, key preferences.Key) (<-chan bool, error)
	Update(ctx context.Context, key preferences.Key, value bool) error
}

type valueMsg struct {
	key   preferences.Key
	value bool
	ch    <-chan bool
}

type subscribeFailedMsg struct {
	key preferences.Key
	err error
}

type updatedMsg struct {
	key preferences.Key
	err error
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Select, k.Quit}}
}

// Options configures the settings screen.
type Options struct {
	Store Store
	// Now is the clock used for the developer unlock. Defaults to time.Now.
	Now func() time.Time
	// LogSource supplies the log shown by the Logs entry. Defaults to
	// logview.SelfLog.
	LogSource func() (logview.Source, error)
}

// Model is the settings screen. Checkboxes only ever show what the store
// reports: a toggle writes the new value and waits for the subscription to
// bring it back.
type Model struct {
	ctx       context.Context
	store     Store
	unlocker  *Unlocker
	logSource func() (logview.Source, error)

	catalog []Category
	values  map[preferences.Key]bool
	loaded  map[preferences.Key]bool

	cursor int
	toast  string
	err    error

	logs *logview.Model

	keys   keyMap
	ctrlC  key.Binding
	help   help.Model
	width  int
	height int
}

// New creates the settings screen. Subscriptions live until ctx is done.
func New(ctx context.Context, opts Options) *Model {
	logSource := opts.LogSource
	if logSource == nil {
		logSource = logview.SelfLog
	}
	return &Model{
		ctx:       ctx,
		store:     opts.Store,
		unlocker:  NewUnlocker(opts.Now),
		logSource: logSource,
		catalog:   Catalog(),
		values:    make(map[preferences.Key]bool),
		loaded:    make(map[preferences.Key]bool),
		help:      help.New(),
		width:     ui.GetTerminalWidth(),
		height:    ui.DefaultHeight,
		keys: keyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "move up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "move down"),
			),
			Select: key.NewBinding(
				key.WithKeys("enter", " "),
				key.WithHelp("enter/space", "select"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
		ctrlC: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// Init subscribes to every bound preference.
func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, k := range BoundKeys(m.catalog) {
		cmds = append(cmds, m.subscribe(k))
	}
	return tea.Batch(cmds...)
}

func (m *Model) subscribe(k preferences.Key) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		ch, err := store.Subscribe(ctx, k)
		if err != nil {
			return subscribeFailedMsg{key: k, err: err}
		}
		return receive(k, ch)()
	}
}

// receive waits for the next value of k. It is re-issued after every value,
// and yields nothing once the subscription closes.
func receive(k preferences.Key, ch <-chan bool) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return valueMsg{key: k, value: v, ch: ch}
	}
}

func (m *Model) update(k preferences.Key, value bool) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return updatedMsg{key: k, err: store.Update(ctx, k, value)}
	}
}

func (m *Model) developerEnabled() bool {
	return m.values[preferences.DeveloperOptionsEnabled]
}

// visibleItems lists the selectable rows in display order.
func (m *Model) visibleItems() []Item {
	var items []Item
	for _, c := range m.catalog {
		if c.Developer && !m.developerEnabled() {
			continue
		}
		items = append(items, c.Items...)
	}
	return items
}

func (m *Model) clampCursor() {
	n := len(m.visibleItems())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (Item, bool) {
	items := m.visibleItems()
	if m.cursor < 0 || m.cursor >= len(items) {
		return Item{}, false
	}
	return items[m.cursor], true
}

// moveCursorTo keeps the cursor on the same row when categories appear or
// disappear around it.
func (m *Model) moveCursorTo(it Item) bool {
	for i, v := range m.visibleItems() {
		if v.Kind == it.Kind && v.Key == it.Key && v.Title == it.Title {
			m.cursor = i
			return true
		}
	}
	return false
}

// Update handles preference events, navigation and the embedded log viewer.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case valueMsg:
		selected, ok := m.selected()
		m.values[msg.key] = msg.value
		m.loaded[msg.key] = true
		if !ok || !m.moveCursorTo(selected) {
			m.clampCursor()
		}
		return m, receive(msg.key, msg.ch)

	case subscribeFailedMsg:
		m.err = msg.err
		logging.Warn("Preference subscription failed", zap.String("key", string(msg.key)), zap.Error(msg.err))
		return m, nil

	case updatedMsg:
		if msg.err != nil {
			m.err = msg.err
			logging.Warn("Preference update failed", zap.String("key", string(msg.key)), zap.Error(msg.err))
		}
		return m, nil

	case logview.ClosedMsg:
		m.logs = nil
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.logs != nil {
			m.logs.Update(msg)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.ctrlC) {
			return m, tea.Quit
		}
	}

	if m.logs != nil {
		_, cmd := m.logs.Update(msg)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	items := m.visibleItems()
	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.toast = ""
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		m.toast = ""
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Select):
		if m.cursor < len(items) {
			return m, m.activate(items[m.cursor])
		}
	}
	return m, nil
}

func (m *Model) activate(it Item) tea.Cmd {
	switch it.Kind {
	case ItemToggle:
		m.toast = ""
		if !m.loaded[it.Key] {
			return nil
		}
		return m.update(it.Key, !m.values[it.Key])

	case ItemVersion:
		r := m.unlocker.Tap(m.developerEnabled())
		m.toast = r.Message()
		if r.Outcome == TapUnlock {
			logging.Info("Developer options unlocked")
			return m.update(preferences.DeveloperOptionsEnabled, true)
		}
		return nil

	case ItemLogs:
		m.toast = ""
		src, err := m.logSource()
		if err != nil {
			m.err = err
			return nil
		}
		m.logs = logview.New(src, logview.Options{})
		m.logs.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m.logs.Init()
	}
	return nil
}

// Values returns the displayed preference values.
func (m *Model) Values() map[preferences.Key]bool {
	out := make(map[preferences.Key]bool, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// View renders the settings list or the log viewer when it is open.
func (m *Model) View() string {
	if m.logs != nil {
		return m.logs.View()
	}

	var b strings.Builder
	b.WriteString("\n")

	idx := 0
	for _, c := range m.catalog {
		if c.Developer && !m.developerEnabled() {
			continue
		}
		b.WriteString(ui.CategoryStyle.Render(c.Title))
		b.WriteString("\n")
		for _, it := range c.Items {
			b.WriteString(m.renderItem(it, idx == m.cursor))
			idx++
		}
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(ui.ErrorMessageStyle.Render(ui.FailureMarker + " " + m.err.Error()))
	case m.toast != "":
		b.WriteString(ui.HintStyle.Render(m.toast))
	}

	return ui.RenderApplicationContainer("Settings", b.String(), m.help.View(m.keys), m.width, m.height)
}

func (m *Model) renderItem(it Item, selected bool) string {
	title := it.Title
	if it.Kind == ItemToggle {
		title = ui.RenderCheckbox(m.values[it.Key]) + " " + title
	}
	line := ui.RenderMenuItem(title, selected) + "\n"
	if it.Summary != "" {
		line += "      " + ui.SubtitleStyle.Render(it.Summary) + "\n"
	}
	return line
}

var _ Store = (*preferences.Repository)(nil)
