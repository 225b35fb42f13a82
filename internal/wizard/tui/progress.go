package tui

import (
	"context"
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

type downloadStartedMsg struct {
	id  lpa.TaskID
	err error
}

type watchStartedMsg struct {
	ch  <-chan lpa.Progress
	err error
}

type progressMsg struct {
	p  lpa.Progress
	ch <-chan lpa.Progress
}

type watchClosedMsg struct{}

// progressStep dispatches the download once and follows it to the end.
type progressStep struct {
	bar     *ui.Progress
	spinner spinner.Model
	done    bool
	failed  bool
	keys    progressKeyMap
}

func newProgressStep() *progressStep {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.SpinnerStyle
	return &progressStep{
		bar:     ui.NewProgress("", lpa.StageLabels()),
		spinner: s,
		keys: progressKeyMap{
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "quit (download continues if the engine is remote)"),
			),
		},
	}
}

func (s *progressStep) Kind() wizard.Kind { return wizard.KindProgress }
func (s *progressStep) Title() string     { return "Downloading" }

// HasNext becomes true when the task finished either way.
func (s *progressStep) HasNext() bool { return s.done }

// HasPrev is false: a dispatched download cannot be taken back.
func (s *progressStep) HasPrev() bool { return false }

func (s *progressStep) BeforeNext(*wizard.State) {}

func (s *progressStep) Next(st *wizard.State) wizard.Kind {
	if st.DownloadError != nil {
		return wizard.KindFailure
	}
	return wizard.KindNone
}

func (s *progressStep) Prev(*wizard.State) wizard.Kind { return wizard.KindNone }

func (s *progressStep) Init(env *Env) tea.Cmd {
	if env.Width > 0 {
		s.bar.SetWidth(env.Width)
	}
	st := env.State

	switch {
	case st.DownloadError != nil:
		// Restored after the failure was recorded.
		s.fail(st, st.DownloadError)
		return next

	case !st.DownloadStarted:
		if err := st.MarkDownloadStarted(); err != nil {
			s.fail(st, lpa.AsDownloadError(err))
			return next
		}
		return tea.Batch(startDownload(env.Ctx, env.Engine, st.Request()), s.spinner.Tick)

	case st.DownloadTaskID != lpa.NoTask:
		return tea.Batch(watchTask(env.Ctx, env.Engine, st.DownloadTaskID), s.spinner.Tick)

	default:
		s.fail(st, &lpa.DownloadError{
			Stage:     lpa.StagePreparing,
			Reason:    lpa.ReasonInternal,
			Message:   "the previous download was interrupted before it got a task",
			Retryable: true,
		})
		return next
	}
}

func startDownload(ctx context.Context, engine lpa.Engine, req lpa.DownloadRequest) tea.Cmd {
	return func() tea.Msg {
		id, err := engine.StartDownload(ctx, req)
		return downloadStartedMsg{id: id, err: err}
	}
}

func watchTask(ctx context.Context, engine lpa.Engine, id lpa.TaskID) tea.Cmd {
	return func() tea.Msg {
		ch, err := engine.Watch(ctx, id)
		return watchStartedMsg{ch: ch, err: err}
	}
}

// waitForProgress re-arms after every event until the channel closes.
func waitForProgress(ch <-chan lpa.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return progressMsg{p: p, ch: ch}
	}
}

func (s *progressStep) fail(st *wizard.State, de *lpa.DownloadError) {
	s.done = true
	s.failed = true
	st.DownloadError = de
	s.bar.Fail(de.Stage.Label(), de.Reason)
}

func (s *progressStep) Update(env *Env, msg tea.Msg) tea.Cmd {
	st := env.State

	switch msg := msg.(type) {
	case downloadStartedMsg:
		if msg.err != nil {
			s.fail(st, lpa.AsDownloadError(msg.err))
			return next
		}
		st.DownloadTaskID = msg.id
		return tea.Batch(stateChanged, watchTask(env.Ctx, env.Engine, msg.id))

	case watchStartedMsg:
		if msg.err != nil {
			s.fail(st, lpa.AsDownloadError(msg.err))
			return next
		}
		return waitForProgress(msg.ch)

	case progressMsg:
		if s.done {
			return nil
		}
		p := msg.p
		if !p.Done {
			s.bar.Advance(p.Stage.Label(), p.Percent)
			return waitForProgress(msg.ch)
		}
		if p.Err != nil {
			s.fail(st, p.Err)
		} else {
			s.done = true
			s.bar.Complete()
		}
		return next

	case watchClosedMsg:
		if s.done {
			return nil
		}
		s.fail(st, &lpa.DownloadError{
			Stage:     stageOf(s.bar),
			Reason:    lpa.ReasonTransport,
			Message:   "lost track of the download task",
			Retryable: true,
		})
		return next

	case spinner.TickMsg:
		if s.done {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd
	}
	return nil
}

// stageOf maps the running bar step back to its stage.
func stageOf(bar *ui.Progress) lpa.Stage {
	stages := lpa.Stages()
	if i := bar.Current(); i > 0 && i <= len(stages) {
		return stages[i-1]
	}
	return lpa.StagePreparing
}

func (s *progressStep) View(env *Env) string {
	var b strings.Builder

	switch {
	case s.failed:
		b.WriteString(ui.ErrorTitleStyle.Render(ui.FailureMarker + " Download failed"))
	case s.done:
		b.WriteString(ui.SuccessTitleStyle.Render(ui.SuccessMarker + " Profile installed"))
	default:
		b.WriteString(ui.TitleStyle.Render(fmt.Sprintf("%s Downloading profile", s.spinner.View())))
	}
	b.WriteString("\n\n")
	b.WriteString(s.bar.Render())

	if id := env.State.DownloadTaskID; id != lpa.NoTask {
		b.WriteString("\n\n")
		b.WriteString(ui.SubtitleStyle.Render(fmt.Sprintf("  Task %d", id)))
	}
	return b.String()
}

func (s *progressStep) KeyMap() help.KeyMap { return s.keys }
