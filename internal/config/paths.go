package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName    = "esimctl"
	configFile = "config.yaml"

	// ConfigDirEnvVar overrides the configuration directory.
	ConfigDirEnvVar = "ESIMCTL_CONFIG_DIR"
	// StateDirEnvVar overrides the state directory.
	StateDirEnvVar = "ESIMCTL_STATE_DIR"
)

// GetConfigDir returns the OS-appropriate configuration directory.
//   - Linux: $XDG_CONFIG_HOME/esimctl or $HOME/.config/esimctl
//   - macOS: $HOME/.config/esimctl
//   - Windows: %LOCALAPPDATA%\esimctl
func GetConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnvVar); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "windows":
		base, err := windowsLocalAppData()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetStateDir returns the directory for logs and resumable wizard state.
//   - Linux/macOS: $XDG_STATE_HOME/esimctl or $HOME/.local/state/esimctl
//   - Windows: %LOCALAPPDATA%\esimctl\state
func GetStateDir() (string, error) {
	if dir := os.Getenv(StateDirEnvVar); dir != "" {
		return dir, nil
	}

	if runtime.GOOS == "windows" {
		base, err := windowsLocalAppData()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, appName, "state"), nil
	}

	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "state", appName), nil
}

func windowsLocalAppData() (string, error) {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return localAppData, nil
	}
	userProfile := os.Getenv("USERPROFILE")
	if userProfile == "" {
		return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
	}
	return filepath.Join(userProfile, "AppData", "Local"), nil
}

// GetConfigPath returns the full path to config.yaml.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// ConfigFile returns the path of a named file inside the configuration directory.
func ConfigFile(name string) (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// StateFile returns the path of a named file inside the state directory.
func StateFile(name string) (string, error) {
	dir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place, creating the parent directory with user-only permissions.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}

	return nil
}
