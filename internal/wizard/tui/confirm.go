package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
)

// confirmStep shows what is about to be downloaded and takes the
// confirmation code, which the activation code may make mandatory.
type confirmStep struct {
	code     textinput.Model
	required bool
	keys     navKeyMap
}

func newConfirmStep() *confirmStep {
	code := newInput("leave empty if your operator gave none", 64)
	code.EchoMode = textinput.EchoPassword
	code.EchoCharacter = '•'
	return &confirmStep{code: code, keys: newNavKeyMap()}
}

func (s *confirmStep) Kind() wizard.Kind { return wizard.KindConfirm }
func (s *confirmStep) Title() string     { return "Confirm" }
func (s *confirmStep) HasPrev() bool     { return true }

// HasNext holds the download back until a required code is entered.
func (s *confirmStep) HasNext() bool {
	return !s.required || strings.TrimSpace(s.code.Value()) != ""
}

func (s *confirmStep) BeforeNext(st *wizard.State) {
	st.ConfirmationCode = strings.TrimSpace(s.code.Value())
}

func (s *confirmStep) Next(*wizard.State) wizard.Kind { return wizard.KindProgress }
func (s *confirmStep) Prev(*wizard.State) wizard.Kind { return wizard.KindDetails }

func (s *confirmStep) Init(env *Env) tea.Cmd {
	s.required = env.State.ConfirmationRequired
	if s.required {
		s.code.Placeholder = "required by this profile"
	}
	s.code.SetValue(env.State.ConfirmationCode)
	s.code.Focus()
	return nil
}

func (s *confirmStep) Update(_ *Env, msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, s.keys.Next) {
		return next
	}
	var cmd tea.Cmd
	s.code, cmd = s.code.Update(msg)
	return cmd
}

func (s *confirmStep) View(env *Env) string {
	st := env.State

	details := []ui.Detail{
		{Key: "Slot", Value: fmt.Sprintf("%d", st.SelectedSlot)},
		{Key: "Server", Value: st.ServerAddress},
		{Key: "Matching ID", Value: orNone(st.MatchingID)},
		{Key: "IMEI", Value: orNone(st.IMEI)},
	}

	var rows []string
	for _, d := range details {
		rows = append(rows, ui.ResultKeyStyle.Render(d.Key+":")+" "+ui.ResultValueStyle.Render(d.Value))
	}

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("Ready to download"))
	b.WriteString("\n")
	b.WriteString(ui.InfoBoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n")
	b.WriteString("  " + ui.FocusedInputStyle.Render("Confirmation code") + "\n")
	b.WriteString("  " + s.code.View())
	if s.required && strings.TrimSpace(s.code.Value()) == "" {
		b.WriteString("\n")
		b.WriteString(ui.HintStyle.Render("  Your operator's confirmation code is required to continue."))
	}
	return b.String()
}

func (s *confirmStep) KeyMap() help.KeyMap { return s.keys }

func orNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}
