// Esimd serves eSIM downloads to esimctl clients on the network.
//
// It runs on the machine the card reader is attached to, drives lpac there
// and exposes it over a websocket. Clients find it through mDNS.
//
// Usage:
//
//	esimd serve [flags]
//
// See 'esimd serve --help' for available options.
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

var rootCmd = &cobra.Command{
	Use:   "esimd",
	Short: "eSIM download daemon",
	Long: `A daemon that runs eSIM profile downloads for esimctl clients.

Run it on the machine the eUICC reader is plugged into, then point
esimctl at it with --daemon or let esimctl find it over mDNS.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("esimd %s\n", version.Full())
	},
}
