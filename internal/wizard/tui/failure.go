package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
)

// failureStep explains a failed download. Next exits; Prev goes back to
// the details with the entered values kept.
type failureStep struct {
	keys failureKeyMap
}

func newFailureStep() *failureStep {
	return &failureStep{keys: newFailureKeyMap()}
}

func (s *failureStep) Kind() wizard.Kind { return wizard.KindFailure }
func (s *failureStep) Title() string     { return "Download failed" }
func (s *failureStep) HasNext() bool     { return true }
func (s *failureStep) HasPrev() bool     { return true }

func (s *failureStep) BeforeNext(*wizard.State) {}

func (s *failureStep) Next(*wizard.State) wizard.Kind { return wizard.KindNone }

func (s *failureStep) Prev(st *wizard.State) wizard.Kind {
	st.ResetDownload()
	return wizard.KindDetails
}

func (s *failureStep) Init(*Env) tea.Cmd { return nil }

func (s *failureStep) Update(_ *Env, msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(keyMsg, s.keys.Exit):
		return next
	case key.Matches(keyMsg, s.keys.Retry):
		return prev
	}
	return nil
}

func (s *failureStep) View(env *Env) string {
	de := env.State.DownloadError

	var b strings.Builder
	b.WriteString(ui.ErrorTitleStyle.Render(ui.FailureMarker + " The profile could not be downloaded"))
	b.WriteString("\n\n")

	if de == nil {
		b.WriteString(ui.SubtitleStyle.Render("  No error details were recorded."))
		return b.String()
	}

	rows := []ui.Detail{
		{Key: "Stage", Value: de.Stage.Label()},
		{Key: "Reason", Value: de.Reason},
	}
	if de.Message != "" {
		rows = append(rows, ui.Detail{Key: "Details", Value: de.Message})
	}
	var lines []string
	for _, d := range rows {
		lines = append(lines, ui.ResultKeyStyle.Render(d.Key+":")+" "+ui.ErrorMessageStyle.Render(d.Value))
	}
	b.WriteString(ui.ErrorBoxInlineStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	if de.Retryable {
		b.WriteString(ui.HintStyle.Render("  This looks temporary. Press r to check the details and try again."))
	} else {
		b.WriteString(ui.SubtitleStyle.Render("  Check the activation details with your operator before retrying."))
	}
	return b.String()
}

func (s *failureStep) KeyMap() help.KeyMap { return s.keys }
