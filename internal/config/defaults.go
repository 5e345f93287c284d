package config

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the configuration directory.
//
// Paths:
//   - $XDG_CONFIG_HOME/oskim/
//   - ~/.config/oskim/ otherwise
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oskim")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "oskim")
	}
	return filepath.Join(home, ".config", "oskim")
}

// DataDir returns the directory searched for user layout files.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "oskim")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "oskim")
}

// SupportedConfigFormats returns the supported configuration file extensions.
func SupportedConfigFormats() []string {
	return []string{".toml", ".json", ".yaml", ".yml"}
}

// FindConfigFile searches for a configuration file in the config directory.
// Returns the first found config file path, or the default TOML path if none found.
func FindConfigFile() string {
	dir := ConfigDir()
	for _, ext := range SupportedConfigFormats() {
		path := filepath.Join(dir, "config"+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "config.toml")
}
