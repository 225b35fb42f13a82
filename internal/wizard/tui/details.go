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

const (
	fieldAddress = iota
	fieldMatchingID
	fieldIMEI
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Server address",
	"Matching ID",
	"IMEI (optional)",
}

// detailsStep collects the SM-DP+ address, matching ID and IMEI.
type detailsStep struct {
	inputs [fieldCount]textinput.Model
	focus  int
	keys   formKeyMap
}

func newDetailsStep() *detailsStep {
	s := &detailsStep{keys: newFormKeyMap()}
	s.inputs[fieldAddress] = newInput("rsp.example.com", 255)
	s.inputs[fieldMatchingID] = newInput("ABCD-1234-EFGH", 255)
	s.inputs[fieldIMEI] = newInput("15 digits", 15)
	return s
}

func (s *detailsStep) Kind() wizard.Kind { return wizard.KindDetails }
func (s *detailsStep) Title() string     { return "Profile details" }

func (s *detailsStep) HasNext() bool {
	return s.addressErr() == nil && s.imeiErr() == nil
}

func (s *detailsStep) HasPrev() bool { return true }

func (s *detailsStep) addressErr() error {
	return lpa.ValidateAddress(s.value(fieldAddress))
}

func (s *detailsStep) imeiErr() error {
	return lpa.ValidateIMEI(s.value(fieldIMEI))
}

func (s *detailsStep) value(field int) string {
	return strings.TrimSpace(s.inputs[field].Value())
}

func (s *detailsStep) BeforeNext(st *wizard.State) {
	st.ServerAddress = s.value(fieldAddress)
	st.MatchingID = s.value(fieldMatchingID)
	st.IMEI = s.value(fieldIMEI)
}

func (s *detailsStep) Next(*wizard.State) wizard.Kind { return wizard.KindConfirm }
func (s *detailsStep) Prev(*wizard.State) wizard.Kind { return wizard.KindMethodSelect }

func (s *detailsStep) Init(env *Env) tea.Cmd {
	s.inputs[fieldAddress].SetValue(env.State.ServerAddress)
	s.inputs[fieldMatchingID].SetValue(env.State.MatchingID)
	s.inputs[fieldIMEI].SetValue(env.State.IMEI)
	s.setFocus(fieldAddress)
	return nil
}

func (s *detailsStep) setFocus(field int) {
	s.focus = (field + fieldCount) % fieldCount
	for i := range s.inputs {
		if i == s.focus {
			s.inputs[i].Focus()
		} else {
			s.inputs[i].Blur()
		}
	}
}

func (s *detailsStep) Update(_ *Env, msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, s.keys.NextField):
			s.setFocus(s.focus + 1)
			return nil
		case key.Matches(keyMsg, s.keys.PrevField):
			s.setFocus(s.focus - 1)
			return nil
		case key.Matches(keyMsg, s.keys.Next):
			if s.focus < fieldCount-1 && !s.HasNext() {
				s.setFocus(s.focus + 1)
				return nil
			}
			return next
		}
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return cmd
}

func (s *detailsStep) View(*Env) string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("Enter the details from your operator"))
	b.WriteString("\n")

	for i := range s.inputs {
		label := ui.BlurredInputStyle.Render(fieldLabels[i])
		if i == s.focus {
			label = ui.FocusedInputStyle.Render(fieldLabels[i])
		}
		b.WriteString("  " + label + "\n")
		b.WriteString("  " + s.inputs[i].View() + "\n")

		var err error
		switch i {
		case fieldAddress:
			if s.value(fieldAddress) != "" {
				err = s.addressErr()
			}
		case fieldIMEI:
			err = s.imeiErr()
		}
		if err != nil {
			b.WriteString(ui.ErrorMessageStyle.Render("  " + ui.FailureMarker + " " + err.Error()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *detailsStep) KeyMap() help.KeyMap { return s.keys }
