package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
)

type slotsLoadedMsg struct {
	slots []lpa.Slot
	err   error
}

// slotStep picks the reader the profile goes to.
type slotStep struct {
	loading bool
	slots   []lpa.Slot
	err     error
	cursor  int
	spinner spinner.Model
	keys    listKeyMap
	retry   key.Binding
}

func newSlotStep() *slotStep {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.SpinnerStyle
	return &slotStep{
		spinner: s,
		keys:    newListKeyMap(),
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
	}
}

func (s *slotStep) Kind() wizard.Kind { return wizard.KindSlotSelect }
func (s *slotStep) Title() string     { return "Select slot" }

func (s *slotStep) HasNext() bool {
	return !s.loading && len(s.slots) > 0
}

// HasPrev is always true: going back from the first step cancels.
func (s *slotStep) HasPrev() bool { return true }

func (s *slotStep) BeforeNext(st *wizard.State) {
	if s.cursor < len(s.slots) {
		st.SelectedSlot = s.slots[s.cursor].ID
	}
}

func (s *slotStep) Next(*wizard.State) wizard.Kind { return wizard.KindMethodSelect }
func (s *slotStep) Prev(*wizard.State) wizard.Kind { return wizard.KindNone }

func (s *slotStep) Init(env *Env) tea.Cmd {
	return s.load(env)
}

func (s *slotStep) load(env *Env) tea.Cmd {
	s.loading = true
	s.err = nil
	engine, ctx := env.Engine, env.Ctx
	return tea.Batch(
		func() tea.Msg {
			slots, err := engine.Slots(ctx)
			return slotsLoadedMsg{slots: slots, err: err}
		},
		s.spinner.Tick,
	)
}

func (s *slotStep) Update(env *Env, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case slotsLoadedMsg:
		s.loading = false
		s.slots = msg.slots
		s.err = msg.err
		s.cursor = 0
		// Preselect the slot the wizard was opened for.
		for i, slot := range s.slots {
			if slot.ID == env.State.SelectedSlot {
				s.cursor = i
			}
		}
		return nil

	case spinner.TickMsg:
		if !s.loading {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if s.loading {
			return nil
		}
		switch {
		case key.Matches(msg, s.keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, s.keys.Down):
			if s.cursor < len(s.slots)-1 {
				s.cursor++
			}
		case key.Matches(msg, s.retry):
			return s.load(env)
		case key.Matches(msg, s.keys.Next):
			return next
		}
	}
	return nil
}

func (s *slotStep) View(env *Env) string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("Where should the profile be installed?"))
	b.WriteString("\n")

	switch {
	case s.loading:
		b.WriteString(fmt.Sprintf("  %s Looking for eUICC readers...", s.spinner.View()))
	case s.err != nil:
		b.WriteString(ui.ErrorBoxInlineStyle.Render(fmt.Sprintf("%s Could not list readers: %v", ui.FailureMarker, s.err)))
		b.WriteString("\n\n")
		b.WriteString(ui.SubtitleStyle.Render("  Press r to scan again."))
	case len(s.slots) == 0:
		b.WriteString(ui.HintStyle.Render(ui.WarningMarker + " No readers found. Connect one and press r to scan again."))
	default:
		for i, slot := range s.slots {
			b.WriteString(ui.RenderMenuItem(slot.String(), i == s.cursor))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s *slotStep) KeyMap() help.KeyMap { return s.keys }
