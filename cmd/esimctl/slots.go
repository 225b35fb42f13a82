package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/esimkit/esimctl/internal/discovery"
	"github.com/esimkit/esimctl/internal/ui"
)

var scanTimeout int

func init() {
	daemonsCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default: discovery.timeout from config)")

	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(daemonsCmd)
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List the card readers downloads can target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

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

		slots, err := engine.Slots(ctx)
		if err != nil {
			ui.NewPrinter(cmd.OutOrStdout()).PrintError("Failed to list slots", err, []string{
				"Check that lpac is installed (engine.lpac_path in config.yaml)",
				"Check that the card reader is connected",
			})
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if len(slots) == 0 {
			p.Println("No slots found.")
			return nil
		}
		rows := make([][]string, len(slots))
		for i, s := range slots {
			rows[i] = []string{strconv.Itoa(s.ID), s.Name}
		}
		p.PrintTable([]string{"SLOT", "READER"}, rows)
		return nil
	},
}

var daemonsCmd = &cobra.Command{
	Use:   "daemons",
	Short: "Find esimd daemons on the local network",
	Long: `Find esimd daemons on the local network using mDNS.

Pass a URL from the list to --daemon, or set engine.mode to remote and
engine.daemon_addr in config.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		scanner := discovery.NewScanner()
		scanner.Timeout = cfg.DiscoveryTimeoutDuration()
		if scanTimeout > 0 {
			scanner.Timeout = time.Duration(scanTimeout) * time.Second
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.Println(ui.HintStyle.Render("Scanning for esimd (" + scanner.Timeout.String() + ")..."))

		daemons, err := scanner.Browse(cmd.Context())
		if err != nil {
			return err
		}
		if len(daemons) == 0 {
			p.Println("No daemons found.")
			return nil
		}

		rows := make([][]string, len(daemons))
		for i, d := range daemons {
			rows[i] = []string{d.Instance, d.Address(), d.GetMetadata(discovery.TxtVersion), d.URL()}
		}
		p.PrintTable([]string{"INSTANCE", "ADDRESS", "VERSION", "URL"}, rows)
		return nil
	},
}
