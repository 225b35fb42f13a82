package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/esimkit/esimctl/internal/logview"
	"github.com/esimkit/esimctl/internal/preferences"
	"github.com/esimkit/esimctl/internal/settings"
	"github.com/esimkit/esimctl/internal/ui"
)

// Logs command flags
var (
	logFile     string
	forceExport bool
)

func init() {
	rootCmd.AddCommand(settingsCmd)

	logsCmd.PersistentFlags().StringVar(&logFile, "file", "", "Log file to show instead of esimctl's own log")
	logsExportCmd.Flags().BoolVarP(&forceExport, "force", "f", false, "Overwrite the destination without asking")
	logsCmd.AddCommand(logsViewCmd)
	logsCmd.AddCommand(logsExportCmd)
	rootCmd.AddCommand(logsCmd)

	prefsCmd.AddCommand(prefsListCmd)
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Open the settings screen",
	Long: `Open the interactive settings screen.

Toggles are written to preferences.yaml as soon as they change, and edits
made elsewhere (another esimctl, or by hand) show up immediately. Tapping
"App version" seven times unlocks the developer options.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func runSettings(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	prefs, err := openPreferences(ctx)
	if err != nil {
		return err
	}

	model := settings.New(ctx, settings.Options{Store: prefs, LogSource: logSource})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("settings error: %w", err)
	}
	return nil
}

func logSource() (logview.Source, error) {
	if logFile != "" {
		return logview.FileSource(logFile), nil
	}
	return logview.SelfLog()
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View or export logs",
	Long: `View or export esimctl's own log, or any other log file with --file.

Without a subcommand the log viewer opens.`,
	Args: cobra.NoArgs,
	RunE: runLogsView,
}

var logsViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the log viewer",
	Args:  cobra.NoArgs,
	RunE:  runLogsView,
}

func runLogsView(cmd *cobra.Command, args []string) error {
	source, err := logSource()
	if err != nil {
		return err
	}

	model := logview.New(source, logview.Options{Standalone: true})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("log viewer error: %w", err)
	}
	return nil
}

var logsExportCmd = &cobra.Command{
	Use:   "export [destination]",
	Short: "Save the log to a file",
	Long: `Save the log to a file.

The destination defaults to esimctl-logs-<timestamp>.txt in the current
directory. An existing file is only overwritten after confirmation.`,
	Example: `  # Export with the default name
  esimctl logs export

  # Export somewhere specific, replacing an older export
  esimctl logs export ~/bug-report.txt --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogsExport,
}

func runLogsExport(cmd *cobra.Command, args []string) error {
	source, err := logSource()
	if err != nil {
		return err
	}

	dest := logview.DefaultExportName(time.Now())
	if len(args) == 1 {
		dest = args[0]
	}

	if _, err := os.Stat(dest); err == nil && !forceExport {
		ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "File exists",
			[]string{dest + " will be overwritten"}, "Overwrite?")
		if !ok {
			return nil
		}
	}

	text, err := source.Load()
	if err != nil {
		return err
	}

	written, err := logview.Export(dest, text)
	if err != nil {
		return err
	}
	if written {
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Log exported", []ui.Detail{
			{Key: "Source", Value: source.Describe()},
			{Key: "Destination", Value: dest},
			{Key: "Size", Value: fmt.Sprintf("%d bytes", len(text))},
		})
	}
	return nil
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Read and change preferences",
	Long: `Read and change the preferences behind the settings screen.

Keys: ` + keyList(),
}

func keyList() string {
	var s string
	for i, k := range preferences.Keys() {
		if i > 0 {
			s += ", "
		}
		s += string(k)
	}
	return s
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := preferences.OpenDefault()
		if err != nil {
			return err
		}

		values := prefs.All()
		rows := make([][]string, 0, len(values))
		for _, k := range preferences.Keys() {
			def, _ := preferences.Default(k)
			rows = append(rows, []string{string(k), strconv.FormatBool(values[k]), strconv.FormatBool(def)})
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintTable([]string{"KEY", "VALUE", "DEFAULT"}, rows)
		return nil
	},
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := preferences.OpenDefault()
		if err != nil {
			return err
		}
		v, err := prefs.Get(preferences.Key(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <true|false>",
	Short: "Change one preference",
	Example: `  # Record debug entries in the self-log
  esimctl prefs set verbose_logging true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := preferences.Key(args[0])
		if !key.Valid() {
			return fmt.Errorf("%w: %s (known keys: %s)", preferences.ErrUnknownKey, key, keyList())
		}
		value, err := strconv.ParseBool(args[1])
		if err != nil {
			return errors.New("value must be true or false")
		}

		prefs, err := preferences.OpenDefault()
		if err != nil {
			return err
		}
		return prefs.Update(cmd.Context(), key, value)
	},
}
