package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/esimkit/esimctl/internal/config"
	"github.com/esimkit/esimctl/internal/discovery"
	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/protocol"
	"github.com/esimkit/esimctl/internal/server"
	"github.com/esimkit/esimctl/internal/tasks"
)

// Serve command flags
var (
	addr       string
	lpacPath   string
	certPath   string
	keyPath    string
	instance   string
	noMDNS     bool
	notify     bool
	logLevel   string
	configPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the daemon",
	Long: `Start serving downloads over websocket.

Downloads run through lpac on this machine. They keep running when the
client that started them disconnects; reconnecting clients can watch them
again by task ID.

TLS is enabled when both --cert and --key are given. The daemon announces
itself over mDNS unless --no-mdns is set.`,
	Example: `  # Listen on all interfaces, default port
  esimd serve

  # Custom lpac and port, verbose console
  esimd serve --addr :8420 --lpac /opt/lpac/lpac --log-level debug

  # TLS
  esimd serve --cert fullchain.pem --key privkey.pem`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":"+strconv.Itoa(config.DefaultDaemonPort), "Listen address (host:port)")
	serveCmd.Flags().StringVar(&lpacPath, "lpac", "", "Path to the lpac executable (default: engine.lpac_path from config)")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serveCmd.Flags().StringVar(&instance, "name", "", "mDNS instance name (default: esimd on <hostname>)")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not advertise over mDNS")
	serveCmd.Flags().BoolVar(&notify, "notify", true, "Process pending notifications after each download")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml (default: user config directory)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if (certPath == "") != (keyPath == "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}

	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if lpacPath == "" {
		lpacPath = cfg.Engine.LpacPath
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in --addr: %q", portStr)
	}

	backend := lpa.NewLpacBackend(lpacPath, lpa.WithNotifyAfterDownload(func() bool { return notify }))
	manager := tasks.NewManager(backend, tasks.WithDownloadTimeout(cfg.DownloadTimeoutDuration()))
	defer manager.Close()

	srv, err := server.New(&server.Config{
		Host:     host,
		Port:     port,
		CertPath: certPath,
		KeyPath:  keyPath,
	}, manager)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if !noMDNS {
		g.Go(func() error {
			return advertise(gctx, srv)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		err = nil
	}
	logging.Info("esimd stopped")
	return err
}

// advertise announces srv once it is listening.
func advertise(ctx context.Context, srv *server.Server) error {
	bound, err := srv.Addr(ctx)
	if err != nil {
		return err
	}
	tcp, ok := bound.(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("unexpected listener address %s", bound)
	}

	name := instance
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		name = "esimd on " + hostname
	}

	err = discovery.Advertise(ctx, discovery.Advertisement{
		Instance: name,
		Port:     tcp.Port,
		Path:     protocol.Path,
		TLS:      srv.TLS(),
	})
	if err != nil {
		// Clients can still connect with --daemon.
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		<-ctx.Done()
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}
