package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/config"
	"github.com/esimkit/esimctl/internal/discovery"
	"github.com/esimkit/esimctl/internal/logging"
	"github.com/esimkit/esimctl/internal/lpa"
	"github.com/esimkit/esimctl/internal/preferences"
	"github.com/esimkit/esimctl/internal/remote"
	"github.com/esimkit/esimctl/internal/tasks"
)

// setupLogging tees the console logger (silent unless --log-level or
// ESIMCTL_LOG_LEVEL is set) with the self-log in the state directory.
func setupLogging() error {
	path, err := config.StateFile(logging.LogFileName)
	if err != nil {
		return logging.Initialize(logLevel)
	}
	if err := logging.InitializeWithFile(logLevel, path); err != nil {
		// A read-only state directory should not stop the tool.
		return logging.Initialize(logLevel)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// openPreferences opens the preference store and keeps it in sync with the
// file until ctx is done. The verbose_logging preference drives the
// self-log level for as long as the command runs.
func openPreferences(ctx context.Context) (*preferences.Repository, error) {
	prefs, err := preferences.OpenDefault()
	if err != nil {
		return nil, err
	}

	go func() {
		if err := prefs.Watch(ctx); err != nil {
			logging.Warn("Preference watcher stopped", zap.Error(err))
		}
	}()

	verbose, err := prefs.Subscribe(ctx, preferences.VerboseLogging)
	if err != nil {
		return nil, err
	}
	go func() {
		for v := range verbose {
			logging.SetVerbose(v)
		}
	}()

	return prefs, nil
}

func prefValue(prefs *preferences.Repository, key preferences.Key) bool {
	v, err := prefs.Get(key)
	if err != nil {
		logging.Warn("Failed to read preference", zap.String("key", string(key)), zap.Error(err))
	}
	return v
}

// openEngine returns the configured engine and a function releasing it.
func openEngine(ctx context.Context, cfg *config.Config, prefs *preferences.Repository) (lpa.Engine, func(), error) {
	if daemonURL != "" || cfg.Engine.Mode == config.EngineRemote {
		return openRemote(ctx, cfg, prefs)
	}

	backend := lpa.NewLpacBackend(cfg.Engine.LpacPath,
		lpa.WithNotifyAfterDownload(func() bool {
			return prefValue(prefs, preferences.NotificationDownload)
		}),
	)
	manager := tasks.NewManager(backend, tasks.WithDownloadTimeout(cfg.DownloadTimeoutDuration()))

	logging.Debug("Using local engine", zap.String("lpac", cfg.Engine.LpacPath))
	return manager, manager.Close, nil
}

func openRemote(ctx context.Context, cfg *config.Config, prefs *preferences.Repository) (lpa.Engine, func(), error) {
	url := daemonURL
	if url == "" {
		url = cfg.Engine.DaemonAddr
	}
	if url == "" {
		if !cfg.Discovery.Enabled {
			return nil, nil, fmt.Errorf("remote engine needs engine.daemon_addr or --daemon when discovery is disabled")
		}
		scanner := discovery.NewScanner()
		scanner.Timeout = cfg.DiscoveryTimeoutDuration()
		daemon, err := scanner.Find(ctx, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find an esimd daemon: %w", err)
		}
		url = daemon.URL()
		logging.Info("Discovered esimd", zap.String("instance", daemon.Instance), zap.String("url", url))
	}

	client, err := remote.Dial(ctx, url, remote.Options{
		InsecureSkipVerify: prefValue(prefs, preferences.IgnoreTLSCertificate),
	})
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}
