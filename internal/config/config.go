// Package config handles configuration loading, validation, and management for oskimd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"oskim/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Keyboard configuration for the level state machine and layouts.
	Keyboard KeyboardConfig `toml:"keyboard" json:"keyboard" yaml:"keyboard"`

	// Input configuration for the virtual keyboard device.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Clipboard configuration for the paste commit path.
	Clipboard ClipboardConfig `toml:"clipboard" json:"clipboard" yaml:"clipboard"`

	// Settings configuration for the desktop settings backend.
	Settings SettingsConfig `toml:"settings" json:"settings" yaml:"settings"`

	// Modifier configuration for Caps Lock observation.
	Modifier ModifierConfig `toml:"modifier" json:"modifier" yaml:"modifier"`

	// DBus configuration for the service interface.
	DBus DBusConfig `toml:"dbus" json:"dbus" yaml:"dbus"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// KeyboardConfig holds on-screen keyboard behavior.
type KeyboardConfig struct {
	// LongPressMs is the hold time after which shift latches.
	LongPressMs int `toml:"long_press_ms" json:"long_press_ms" yaml:"long_press_ms"`

	// AutoRevertShift returns from one-shot shift after the next character.
	AutoRevertShift bool `toml:"auto_revert_shift" json:"auto_revert_shift" yaml:"auto_revert_shift"`

	// DataDir holds layouts/*.json. Empty uses the built-in layouts.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`

	// WatchLayouts reloads the remap table when its file changes.
	WatchLayouts bool `toml:"watch_layouts" json:"watch_layouts" yaml:"watch_layouts"`
}

// InputConfig holds virtual input device configuration.
type InputConfig struct {
	// Backend is "uinput" or "recorder".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// DeviceName is the name of the created virtual keyboard.
	DeviceName string `toml:"device_name" json:"device_name" yaml:"device_name"`
}

// ClipboardConfig holds clipboard configuration.
type ClipboardConfig struct {
	// Backend is "command" or "memory".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// Command overrides the detected clipboard tool, e.g. "wl-copy".
	Command string `toml:"command" json:"command" yaml:"command"`
}

// SettingsConfig holds desktop settings configuration.
type SettingsConfig struct {
	// Backend is "gsettings" or "memory".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// Mode, Layout and Sources seed the memory backend.
	Mode    string   `toml:"mode" json:"mode" yaml:"mode"`
	Layout  string   `toml:"layout" json:"layout" yaml:"layout"`
	Sources []string `toml:"sources" json:"sources" yaml:"sources"`
}

// ModifierConfig holds Caps Lock observer configuration.
type ModifierConfig struct {
	// Enabled turns the Caps Lock observer on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// DeviceGlob matches the evdev nodes searched for a Caps Lock LED.
	DeviceGlob string `toml:"device_glob" json:"device_glob" yaml:"device_glob"`
}

// DBusConfig holds the service interface configuration.
type DBusConfig struct {
	// BusName is the well-known name requested on the session bus.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`

	// ObjectPath is where the keyboard object is exported.
	ObjectPath string `toml:"object_path" json:"object_path" yaml:"object_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Keyboard: KeyboardConfig{
			LongPressMs:     300,
			AutoRevertShift: true,
		},
		Input: InputConfig{
			Backend:    "uinput",
			DeviceName: "oskim virtual keyboard",
		},
		Clipboard: ClipboardConfig{
			Backend: "command",
		},
		Settings: SettingsConfig{
			Backend: "gsettings",
		},
		Modifier: ModifierConfig{
			Enabled:    true,
			DeviceGlob: "/dev/input/event*",
		},
		DBus: DBusConfig{
			BusName:    "org.oskim.Keyboard",
			ObjectPath: "/org/oskim/Keyboard",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with OSKIM_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("OSKIM_DATA_DIR"); v != "" {
		c.Keyboard.DataDir = v
	}
	if v := os.Getenv("OSKIM_LONG_PRESS_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Keyboard.LongPressMs = n
		}
	}
	if v := os.Getenv("OSKIM_INPUT_BACKEND"); v != "" {
		c.Input.Backend = v
	}
	if v := os.Getenv("OSKIM_CLIPBOARD_COMMAND"); v != "" {
		c.Clipboard.Command = v
	}
	if v := os.Getenv("OSKIM_SETTINGS_BACKEND"); v != "" {
		c.Settings.Backend = v
	}
	if v := os.Getenv("OSKIM_BUS_NAME"); v != "" {
		c.DBus.BusName = v
	}
	if v := os.Getenv("OSKIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OSKIM_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version:   c.Version,
		Keyboard:  c.Keyboard,
		Input:     c.Input,
		Clipboard: c.Clipboard,
		Settings:  c.Settings,
		Modifier:  c.Modifier,
		DBus:      c.DBus,
		Logging:   c.Logging,
	}
	clone.Settings.Sources = append([]string(nil), c.Settings.Sources...)
	return clone
}

// LongPress returns the long-press threshold.
func (c *Config) LongPress() time.Duration {
	return time.Duration(c.Keyboard.LongPressMs) * time.Millisecond
}

// LoggerConfig converts the logging section for the logging package.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logging.format: %w", err)
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = c.Logging.Output
	if c.Logging.FilePath != "" {
		lc.FilePath = ExpandPath(c.Logging.FilePath)
	}
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	lc.Compress = c.Logging.Compress
	return lc, nil
}
