// Esimctl downloads eSIM profiles onto an eUICC.
//
// It drives lpac on this machine, or an esimd daemon on the machine the
// card reader is attached to, through an interactive wizard. Settings,
// the self-log and the preference store are reachable from subcommands.
//
// Usage:
//
//	esimctl [command] [flags]
//
// Running without arguments launches the download wizard.
// See 'esimctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	daemonURL  string
)

var rootCmd = &cobra.Command{
	Use:   "esimctl",
	Short: "eSIM profile download manager",
	Long: `Download eSIM profiles onto an eUICC through lpac.

Downloads run locally, or on an esimd daemon when the engine is set to
remote in the configuration or --daemon is given.

If no command is specified, the download wizard launches automatically.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runDownload(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Console log level (debug, info, warn, error); silent by default")
	rootCmd.PersistentFlags().StringVar(&daemonURL, "daemon", "", "esimd websocket URL (overrides the configured engine)")

	addDownloadFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("esimctl %s\n", version.Full())
	},
}
