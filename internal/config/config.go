// Package config loads the application configuration from a TOML file and
// resolves the per-user config, data, and log directories.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is the application configuration.
type Config struct {
	Database      DatabaseConfig      `toml:"database"`
	Transfers     TransfersConfig     `toml:"transfers"`
	UI            UIConfig            `toml:"ui"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// TransfersConfig tunes retry behavior for transfer attempts.
type TransfersConfig struct {
	MaxRetries     int   `toml:"max_retries"`
	InitialDelayMs int64 `toml:"initial_delay_ms"`
	MaxDelayMs     int64 `toml:"max_delay_ms"`
}

// InitialDelay returns the initial retry delay as a duration.
func (t TransfersConfig) InitialDelay() time.Duration {
	return time.Duration(t.InitialDelayMs) * time.Millisecond
}

// MaxDelay returns the retry delay cap as a duration.
func (t TransfersConfig) MaxDelay() time.Duration {
	return time.Duration(t.MaxDelayMs) * time.Millisecond
}

// UIConfig contains pane display settings.
type UIConfig struct {
	ShowHidden bool `toml:"show_hidden"`
}

// NotificationsConfig controls desktop notifications.
type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LoggingConfig controls the log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Load reads and parses a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &config, nil
}

// LoadOrDefault loads the config at path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Default returns the configuration parsed from the embedded example file.
func Default() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("parse embedded default config: %v", err))
	}
	return &config
}

// CreateFile writes the example config to path for the user to edit.
func CreateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// DatabasePath returns the configured database path, or the default under
// the data directory when unset.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(DataDir(), "portside.db")
}
