package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
)

type method int

const (
	methodManual method = iota
	methodActivationCode
)

var methodLabels = []string{
	"Enter server address and matching ID",
	"Paste an activation code (LPA:1$...)",
}

// methodStep chooses how the download parameters are entered.
type methodStep struct {
	choice method
	keys   listKeyMap
}

func newMethodStep() *methodStep {
	return &methodStep{keys: newListKeyMap()}
}

func (s *methodStep) Kind() wizard.Kind { return wizard.KindMethodSelect }
func (s *methodStep) Title() string     { return "Input method" }
func (s *methodStep) HasNext() bool     { return true }
func (s *methodStep) HasPrev() bool     { return true }

// BeforeNext drops a confirmation requirement left by an activation code
// when the user switches to manual entry.
func (s *methodStep) BeforeNext(st *wizard.State) {
	if s.choice == methodManual {
		st.ConfirmationRequired = false
	}
}

func (s *methodStep) Next(*wizard.State) wizard.Kind {
	if s.choice == methodActivationCode {
		return wizard.KindActivationCode
	}
	return wizard.KindDetails
}

func (s *methodStep) Prev(*wizard.State) wizard.Kind { return wizard.KindSlotSelect }

func (s *methodStep) Init(*Env) tea.Cmd { return nil }

func (s *methodStep) Update(_ *Env, msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(keyMsg, s.keys.Up):
		s.choice = methodManual
	case key.Matches(keyMsg, s.keys.Down):
		s.choice = methodActivationCode
	case key.Matches(keyMsg, s.keys.Next):
		return next
	}
	return nil
}

func (s *methodStep) View(*Env) string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("How do you want to enter the profile details?"))
	b.WriteString("\n")
	for i, label := range methodLabels {
		b.WriteString(ui.RenderMenuItem(label, method(i) == s.choice))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *methodStep) KeyMap() help.KeyMap { return s.keys }
