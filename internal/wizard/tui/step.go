package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/wizard"
)

// Env is what a step may use. It is passed in on every call; steps keep no
// reference to the model or the controller.
type Env struct {
	Ctx    context.Context
	State  *wizard.State
	Engine lpa.Engine
	Width  int
}

// Step is a wizard step that draws its own screen.
type Step interface {
	wizard.Step

	// Title names the step in the header.
	Title() string
	// Init runs when the step becomes current.
	Init(env *Env) tea.Cmd
	Update(env *Env, msg tea.Msg) tea.Cmd
	View(env *Env) string
	// KeyMap feeds the footer help.
	KeyMap() help.KeyMap
}

// NextMsg asks the wizard to advance. The controller still checks HasNext.
type NextMsg struct{}

// PrevMsg asks the wizard to go back. The controller still checks HasPrev.
type PrevMsg struct{}

// StateChangedMsg asks the wizard to persist state outside a transition.
type StateChangedMsg struct{}

func next() tea.Msg         { return NextMsg{} }
func prev() tea.Msg         { return PrevMsg{} }
func stateChanged() tea.Msg { return StateChangedMsg{} }

// NewStep is the wizard.Factory for terminal steps.
func NewStep(k wizard.Kind) (Step, error) {
	switch k {
	case wizard.KindSlotSelect:
		return newSlotStep(), nil
	case wizard.KindMethodSelect:
		return newMethodStep(), nil
	case wizard.KindActivationCode:
		return newActivationStep(), nil
	case wizard.KindDetails:
		return newDetailsStep(), nil
	case wizard.KindConfirm:
		return newConfirmStep(), nil
	case wizard.KindProgress:
		return newProgressStep(), nil
	case wizard.KindFailure:
		return newFailureStep(), nil
	default:
		return nil, wizard.UnknownStep(k)
	}
}

// newInput builds a text field with a steady cursor.
func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 48
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}
