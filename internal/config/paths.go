package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir returns the per-user configuration directory.
//
// Locations:
//   - Windows: %APPDATA%\Portside
//   - Unix: ~/.config/portside
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "portside")
			}
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Portside")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "portside")
		}
		return filepath.Join(homeDir, ".config", "portside")
	}
	return filepath.Join(configDir, "portside")
}

// DataDir returns the per-user data directory holding the database and the
// encryption key.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\Portside
//   - Unix: ~/.local/share/portside
func DataDir() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "portside-data")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "Portside")
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "portside")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "portside-data")
	}
	return filepath.Join(homeDir, ".local", "share", "portside")
}

// LogDir returns the log directory under the data directory.
func LogDir() string {
	return filepath.Join(DataDir(), "logs")
}

// DefaultConfigPath returns the path of the user's config file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// EnsureDirs creates the config, data, and log directories with owner-only
// permissions.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), DataDir(), LogDir()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}
