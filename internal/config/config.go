// Package config loads mx settings from ~/.mx/config.toml.
// The access key typed into the UI is never part of the config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultDataDir       = "~/.mx"
	defaultLogLevel      = "info"
	defaultFFprobe       = "ffprobe"
	defaultMaxConcurrent = 4
	defaultPerSecond     = 8.0
	defaultTimeout       = 60
)

// Paths holds on-disk locations. Empty LogDir means <data_dir>/logs.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Log holds log file settings.
type Log struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Probe controls media analysis.
type Probe struct {
	FFprobe        string  `toml:"ffprobe"`         // binary name or path
	MaxConcurrent  int     `toml:"max_concurrent"`  // analyses running at once
	PerSecond      float64 `toml:"per_second"`      // analysis starts per second
	TimeoutSeconds int     `toml:"timeout_seconds"` // per-file limit
	Cache          bool    `toml:"cache"`           // reuse reports for unchanged files
}

// Config is the persistent application configuration
type Config struct {
	Paths Paths `toml:"paths"`
	Log   Log   `toml:"log"`
	Probe Probe `toml:"probe"`
}

// Default returns a Config populated with defaults. Paths are not expanded.
func Default() Config {
	return Config{
		Paths: Paths{DataDir: defaultDataDir},
		Log:   Log{Level: defaultLogLevel},
		Probe: Probe{
			FFprobe:        defaultFFprobe,
			MaxConcurrent:  defaultMaxConcurrent,
			PerSecond:      defaultPerSecond,
			TimeoutSeconds: defaultTimeout,
			Cache:          true,
		},
	}
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	p, err := ExpandPath(filepath.Join(defaultDataDir, "config.toml"))
	if err != nil {
		return filepath.Join(".mx", "config.toml")
	}
	return p
}

// Load reads path (ConfigPath when empty). A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes c to path as TOML, creating the directory.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	c.Probe.FFprobe = strings.TrimSpace(c.Probe.FFprobe)
	if c.Probe.FFprobe == "" {
		c.Probe.FFprobe = defaultFFprobe
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unsupported value %q", c.Log.Level))
	}
	if c.Probe.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("probe.max_concurrent must be at least 1, got %d", c.Probe.MaxConcurrent))
	}
	if c.Probe.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("probe.per_second must not be negative, got %g", c.Probe.PerSecond))
	}
	if c.Probe.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("probe.timeout_seconds must be at least 1, got %d", c.Probe.TimeoutSeconds))
	}
	return errors.Join(errs...)
}

// ProbeTimeout returns the per-file analysis limit.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// CachePath is the probe cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.Paths.DataDir, "probe-cache.db")
}

// EventsPath is the JSONL event log.
func (c *Config) EventsPath() string {
	return filepath.Join(c.Paths.DataDir, "events.jsonl")
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
