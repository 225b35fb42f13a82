package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/ui"
	"github.com/esimkit/esimctl/internal/wizard"
	"github.com/esimkit/esimctl/internal/wizard/tui"
)

// Download command flags
var (
	slot             int
	resume           bool
	activationCode   string
	imei             string
	confirmationCode string
)

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&slot, "slot", 0, "Slot to preselect (or to download to with --code)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume the wizard saved by the last interrupted run")
	cmd.Flags().StringVar(&activationCode, "code", "", "Activation code (LPA:1$...): download without the wizard")
	cmd.Flags().StringVar(&imei, "imei", "", "IMEI to report to the server (with --code)")
	cmd.Flags().StringVar(&confirmationCode, "confirmation-code", "", "Confirmation code, if the operator requires one (with --code)")
}

func init() {
	addDownloadFlags(downloadCmd)
	rootCmd.AddCommand(downloadCmd)
}

// downloadCmd launches the interactive download wizard
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download an eSIM profile",
	Long: `Download an eSIM profile onto the eUICC in a slot.

The wizard walks through slot selection, the activation code or manual
server details, a confirmation and the download itself. Quitting with
Ctrl+C saves the wizard; --resume picks it up again, including a download
that was still running.

With --code the download runs without the wizard and prints its progress.`,
	Example: `  # Launch the wizard
  esimctl download
  # Or simply (download is default):
  esimctl

  # Preselect the second reader
  esimctl download --slot 1

  # Continue an interrupted session
  esimctl download --resume

  # Non-interactive
  esimctl download --slot 0 --code 'LPA:1$rsp.example.com$K2-1A2B3C'`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prefs, err := openPreferences(ctx)
	if err != nil {
		return err
	}

	engine, release, err := openEngine(ctx, cfg, prefs)
	if err != nil {
		return err
	}
	defer release()

	if activationCode != "" {
		return runBatchDownload(ctx, cmd.OutOrStdout(), engine)
	}
	return runWizard(ctx, cmd.OutOrStdout(), engine)
}

func runWizard(ctx context.Context, out io.Writer, engine lpa.Engine) error {
	store, err := wizard.DefaultStore()
	if err != nil {
		return err
	}

	var restore *wizard.Bundle
	if resume {
		restore, err = store.Load()
		if err != nil {
			return err
		}
		if restore == nil {
			ui.NewPrinter(out).PrintInfo("No saved wizard found, starting a new download.")
		}
	}

	model, err := tui.NewModel(ctx, tui.Options{
		Engine:      engine,
		Store:       store,
		InitialSlot: slot,
		Restore:     restore,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("wizard error: %w", err)
	}
	if err := model.Err(); err != nil {
		return err
	}

	printOutcome(out, model.Outcome(), model.State())
	return nil
}

// printOutcome summarizes the wizard after the alternate screen is gone.
// A failed download is reported, not returned: the wizard already showed it.
func printOutcome(out io.Writer, outcome wizard.Outcome, state *wizard.State) {
	p := ui.NewPrinter(out)

	switch {
	case outcome == wizard.OutcomeRunning:
		p.PrintInfo("Wizard saved. Run 'esimctl download --resume' to continue.")
	case outcome == wizard.OutcomeCancelled:
		p.PrintInfo("Cancelled.")
	case state.DownloadError != nil:
		p.PrintError("Download failed", state.DownloadError, downloadTips(state.DownloadError))
	case state.DownloadStarted:
		p.PrintSuccess("Profile downloaded", []ui.Detail{
			{Key: "Slot", Value: strconv.Itoa(state.SelectedSlot)},
			{Key: "Server", Value: state.ServerAddress},
			{Key: "Task", Value: strconv.FormatInt(int64(state.DownloadTaskID), 10)},
		})
	}
}

func downloadTips(de *lpa.DownloadError) []string {
	var tips []string
	if de.Retryable {
		tips = append(tips, "The failure looks temporary: run the download again")
	}
	switch de.Reason {
	case lpa.ReasonTimeout:
		tips = append(tips, "Raise engine.download_timeout in config.yaml for slow readers")
	case lpa.ReasonTransport:
		tips = append(tips, "Check that esimd is still running and reachable")
	}
	return append(tips, "Run 'esimctl logs view' for the full log")
}

// runBatchDownload downloads the profile named by --code without the wizard.
func runBatchDownload(ctx context.Context, out io.Writer, engine lpa.Engine) error {
	ac, err := lpa.ParseActivationCode(activationCode)
	if err != nil {
		return err
	}
	if ac.ConfirmationRequired && confirmationCode == "" {
		return fmt.Errorf("this activation code requires --confirmation-code")
	}

	req := lpa.DownloadRequest{
		Slot:             slot,
		SMDP:             ac.SMDP,
		MatchingID:       ac.MatchingID,
		ConfirmationCode: confirmationCode,
		IMEI:             imei,
	}

	p := ui.NewPrinter(out)
	p.PrintHeader("Download", "esimctl download --code", []ui.Detail{
		{Key: "Slot", Value: strconv.Itoa(req.Slot)},
		{Key: "Server", Value: req.SMDP},
		{Key: "Matching ID", Value: req.MatchingID},
	})

	id, err := engine.StartDownload(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start download: %w", err)
	}
	events, err := engine.Watch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to watch task %d: %w", id, err)
	}

	prog := ui.NewProgress("Downloading profile", lpa.StageLabels()).SetWidth(p.Width())
	var (
		last  lpa.Progress
		stage lpa.Stage
	)
	for ev := range events {
		last = ev
		if ev.Done {
			break
		}
		prog.Advance(ev.Stage.Label(), ev.Percent)
		if ev.Stage != stage {
			stage = ev.Stage
			p.Println(ui.StepRunningStyle.Render(fmt.Sprintf("  %s...", stage.Label())))
		}
	}

	if !last.Done {
		// The channel closed early: interrupted, or the daemon went away.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download interrupted; task %d keeps running on the engine", id)
		}
		return fmt.Errorf("lost track of task %d", id)
	}

	if last.Err != nil {
		prog.Fail(last.Err.Stage.Label(), last.Err.Message)
		p.Newline()
		p.Println(prog.Render())
		p.Newline()
		p.PrintError("Download failed", last.Err, downloadTips(last.Err))
		logging.Warn("Batch download failed", zap.Int64("task", int64(id)), zap.Error(last.Err))
		return errors.New("download failed")
	}

	prog.Complete()
	p.Newline()
	p.Println(prog.Render())
	p.Newline()
	p.PrintSuccess("Profile downloaded", []ui.Detail{
		{Key: "Slot", Value: strconv.Itoa(req.Slot)},
		{Key: "Server", Value: req.SMDP},
		{Key: "Task", Value: strconv.FormatInt(int64(id), 10)},
	})
	return nil
}
