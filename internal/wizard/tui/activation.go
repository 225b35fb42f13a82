package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
)

// activationStep takes an activation code and fills the details from it.
type activationStep struct {
	input  textinput.Model
	parsed lpa.ActivationCode
	err    error
	keys   navKeyMap
}

func newActivationStep() *activationStep {
	return &activationStep{
		input: newInput("LPA:1$rsp.example.com$MATCHING-ID", 512),
		keys:  newNavKeyMap(),
	}
}

func (s *activationStep) Kind() wizard.Kind { return wizard.KindActivationCode }
func (s *activationStep) Title() string     { return "Activation code" }

// HasNext only once the code parses.
func (s *activationStep) HasNext() bool { return s.err == nil && s.parsed.SMDP != "" }
func (s *activationStep) HasPrev() bool { return true }

func (s *activationStep) BeforeNext(st *wizard.State) {
	st.ServerAddress = s.parsed.SMDP
	st.MatchingID = s.parsed.MatchingID
	st.ConfirmationRequired = s.parsed.ConfirmationRequired
}

func (s *activationStep) Next(*wizard.State) wizard.Kind { return wizard.KindDetails }
func (s *activationStep) Prev(*wizard.State) wizard.Kind { return wizard.KindMethodSelect }

func (s *activationStep) Init(env *Env) tea.Cmd {
	if env.State.ServerAddress != "" {
		code := lpa.ActivationCode{
			SMDP:                 env.State.ServerAddress,
			MatchingID:           env.State.MatchingID,
			ConfirmationRequired: env.State.ConfirmationRequired,
		}
		s.input.SetValue(code.String())
		s.validate()
	}
	s.input.Focus()
	return nil
}

func (s *activationStep) validate() {
	value := strings.TrimSpace(s.input.Value())
	if value == "" {
		s.parsed, s.err = lpa.ActivationCode{}, nil
		return
	}
	s.parsed, s.err = lpa.ParseActivationCode(value)
}

func (s *activationStep) Update(_ *Env, msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, s.keys.Next) {
		return next
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	s.validate()
	return cmd
}

func (s *activationStep) View(*Env) string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("Paste the activation code from your operator"))
	b.WriteString("\n")
	b.WriteString("  ")
	b.WriteString(s.input.View())
	b.WriteString("\n\n")

	switch {
	case s.err != nil:
		b.WriteString(ui.ErrorMessageStyle.Render("  " + ui.FailureMarker + " " + s.err.Error()))
	case s.parsed.SMDP != "":
		b.WriteString(ui.StepCompleteStyle.Render("  " + ui.SuccessMarker + " Server: " + s.parsed.SMDP))
		if s.parsed.ConfirmationRequired {
			b.WriteString("\n")
			b.WriteString(ui.HintStyle.Render("  This profile needs a confirmation code; you will be asked for it."))
		}
	default:
		b.WriteString(ui.SubtitleStyle.Render("  The code usually comes as a QR code; most scanner apps can copy its text."))
	}
	return b.String()
}

func (s *activationStep) KeyMap() help.KeyMap { return s.keys }
