package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only config file version this build understands.
const CurrentVersion = 1

// Engine modes
const (
	EngineLocal  = "local"  // run lpac on this machine
	EngineRemote = "remote" // talk to an esimd daemon
)

// Defaults
const (
	DefaultLpacPath         = "lpac"
	DefaultDaemonPort       = 7420
	DefaultDiscoveryTimeout = 3
	DefaultDownloadTimeout  = 300
)

// Config is the whole esimctl configuration file.
type Config struct {
	Version   int              `yaml:"version"`
	Engine    *EngineConfig    `yaml:"engine,omitempty"`
	Discovery *DiscoveryConfig `yaml:"discovery,omitempty"`

	path string
}

// EngineConfig selects and parameterizes the download engine.
type EngineConfig struct {
	Mode            string `yaml:"mode"`                  // "local" or "remote"
	LpacPath        string `yaml:"lpac_path"`             // lpac executable for local mode
	DaemonAddr      string `yaml:"daemon_addr,omitempty"` // ws:// or wss:// URL for remote mode
	DownloadTimeout int    `yaml:"download_timeout"`      // seconds
}

// DiscoveryConfig controls mDNS lookup of esimd daemons.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"` // seconds
}

// Default returns a configuration with every section populated.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Engine: &EngineConfig{
			Mode:            EngineLocal,
			LpacPath:        DefaultLpacPath,
			DownloadTimeout: DefaultDownloadTimeout,
		},
		Discovery: &DiscoveryConfig{
			Enabled: true,
			Timeout: DefaultDiscoveryTimeout,
		},
	}
}

// Load reads config.yaml from the configuration directory.
// A missing file yields Default().
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads a configuration file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.path = path
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	cfg.fillDefaults()
	cfg.path = path
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Engine == nil {
		c.Engine = def.Engine
	}
	if c.Engine.Mode == "" {
		c.Engine.Mode = EngineLocal
	}
	if c.Engine.LpacPath == "" {
		c.Engine.LpacPath = DefaultLpacPath
	}
	if c.Engine.DownloadTimeout <= 0 {
		c.Engine.DownloadTimeout = DefaultDownloadTimeout
	}
	if c.Discovery == nil {
		c.Discovery = def.Discovery
	}
	if c.Discovery.Timeout <= 0 {
		c.Discovery.Timeout = DefaultDiscoveryTimeout
	}
}

// Validate checks the engine section for consistency.
func (c *Config) Validate() error {
	switch c.Engine.Mode {
	case EngineLocal:
		if c.Engine.LpacPath == "" {
			return fmt.Errorf("engine.lpac_path is required in local mode")
		}
	case EngineRemote:
		// An empty address means "discover via mDNS".
		if c.Engine.DaemonAddr == "" && !c.Discovery.Enabled {
			return fmt.Errorf("engine.daemon_addr is required when discovery is disabled")
		}
	default:
		return fmt.Errorf("unknown engine.mode %q (expected %q or %q)", c.Engine.Mode, EngineLocal, EngineRemote)
	}
	return nil
}

// DownloadTimeoutDuration returns the download timeout as a time.Duration.
func (c *Config) DownloadTimeoutDuration() time.Duration {
	return time.Duration(c.Engine.DownloadTimeout) * time.Second
}

// DiscoveryTimeoutDuration returns the mDNS browse timeout as a time.Duration.
func (c *Config) DiscoveryTimeoutDuration() time.Duration {
	return time.Duration(c.Discovery.Timeout) * time.Second
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to where it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		c.path = path
	}
	return c.SaveTo(c.path)
}

// SaveTo writes the configuration to path atomically.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# esimctl configuration\n# Location: " + path + "\n\n")
	if err := WriteFileAtomic(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
