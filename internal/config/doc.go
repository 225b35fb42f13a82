// Package config manages the esimctl configuration file and the on-disk
// locations the tools use.
//
// The configuration is a small YAML document selecting the download engine
// (local lpac subprocess or a remote esimd daemon) and its parameters.
//
// # File Locations
//
// Configuration (config.yaml, preferences.yaml):
//   - Linux: $XDG_CONFIG_HOME/esimctl or $HOME/.config/esimctl
//   - macOS: $HOME/.config/esimctl
//   - Windows: %LOCALAPPDATA%\esimctl
//
// State (esimctl.log, wizard-state.yaml):
//   - Linux/macOS: $XDG_STATE_HOME/esimctl or $HOME/.local/state/esimctl
//   - Windows: %LOCALAPPDATA%\esimctl\state
//
// ESIMCTL_CONFIG_DIR and ESIMCTL_STATE_DIR override both.
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	cfg.Engine.Mode = config.EngineRemote
//	cfg.Engine.DaemonAddr = "ws://reader-host:7420/v1/ws"
//	if err := cfg.Save(); err != nil {
//	    return err
//	}
//
// # Atomic Writes
//
// Every file this project persists goes through WriteFileAtomic, which
// writes a temporary sibling and renames it into place.
package config
