package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.LongPress() != 300*time.Millisecond {
		t.Errorf("expected long press 300ms, got %v", cfg.LongPress())
	}
	if !cfg.Keyboard.AutoRevertShift {
		t.Error("auto revert shift should default on")
	}
	if cfg.Keyboard.DataDir != "" {
		t.Errorf("expected built-in layouts, got data dir %q", cfg.Keyboard.DataDir)
	}
	if cfg.Modifier.DeviceGlob != "/dev/input/event*" {
		t.Errorf("unexpected caps lock device glob %s", cfg.Modifier.DeviceGlob)
	}
	if cfg.DBus.BusName != "org.oskim.Keyboard" {
		t.Errorf("unexpected bus name %s", cfg.DBus.BusName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigPath(); got != filepath.Join("/xdg", "oskim", "config.toml") {
		t.Errorf("unexpected config path %s", got)
	}
}

func TestConfigDirHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/kana")
	if got := ConfigDir(); got != filepath.Join("/home/kana", ".config", "oskim") {
		t.Errorf("unexpected config dir %s", got)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Keyboard.LongPressMs != 300 {
		t.Errorf("expected defaults, got long press %d", cfg.Keyboard.LongPressMs)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"config.toml", "[keyboard]\nlong_press_ms = 450\n\n[settings]\nbackend = \"memory\"\n"},
		{"config.json", `{"keyboard": {"long_press_ms": 450}, "settings": {"backend": "memory"}}`},
		{"config.yaml", "keyboard:\n  long_press_ms: 450\nsettings:\n  backend: memory\n"},
		{"config.conf", "[keyboard]\nlong_press_ms = 450\n\n[settings]\nbackend = \"memory\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Keyboard.LongPressMs != 450 {
				t.Errorf("expected long press 450, got %d", cfg.Keyboard.LongPressMs)
			}
			if cfg.Settings.Backend != "memory" {
				t.Errorf("expected memory backend, got %s", cfg.Settings.Backend)
			}
			// Unset fields keep their defaults.
			if !cfg.Keyboard.AutoRevertShift {
				t.Error("auto revert shift lost its default")
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[keyboard\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OSKIM_LONG_PRESS_MS", "500")
	t.Setenv("OSKIM_INPUT_BACKEND", "recorder")
	t.Setenv("OSKIM_LOG_LEVEL", "debug")
	t.Setenv("OSKIM_DATA_DIR", "/opt/oskim")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Keyboard.LongPressMs != 500 {
		t.Errorf("expected long press 500, got %d", cfg.Keyboard.LongPressMs)
	}
	if cfg.Input.Backend != "recorder" {
		t.Errorf("expected recorder backend, got %s", cfg.Input.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
	if cfg.Keyboard.DataDir != "/opt/oskim" {
		t.Errorf("unexpected data dir %s", cfg.Keyboard.DataDir)
	}
}

func TestApplyEnvOverridesBadNumber(t *testing.T) {
	t.Setenv("OSKIM_LONG_PRESS_MS", "soon")
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	if cfg.Keyboard.LongPressMs != 300 {
		t.Errorf("unparsable override should be ignored, got %d", cfg.Keyboard.LongPressMs)
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Sources = []string{"xkb:us", "ibus:hiragana"}

	clone := cfg.Clone()
	clone.Settings.Sources[0] = "xkb:jp"
	clone.Keyboard.LongPressMs = 900

	if cfg.Settings.Sources[0] != "xkb:us" {
		t.Error("clone shares the sources slice")
	}
	if cfg.Keyboard.LongPressMs != 300 {
		t.Error("clone shares keyboard section")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 99 }, "version"},
		{"long press", func(c *Config) { c.Keyboard.LongPressMs = 10 }, "keyboard.long_press_ms"},
		{"watch builtin", func(c *Config) { c.Keyboard.WatchLayouts = true }, "keyboard.watch_layouts"},
		{"data dir", func(c *Config) { c.Keyboard.DataDir = "/nonexistent/oskim" }, "keyboard.data_dir"},
		{"input backend", func(c *Config) { c.Input.Backend = "x11" }, "input.backend"},
		{"device name", func(c *Config) { c.Input.DeviceName = strings.Repeat("k", 80) }, "input.device_name"},
		{"clipboard", func(c *Config) { c.Clipboard.Backend = "x" }, "clipboard.backend"},
		{"settings", func(c *Config) { c.Settings.Backend = "dconf" }, "settings.backend"},
		{"sources", func(c *Config) { c.Settings.Sources = []string{"us"} }, "settings.sources[0]"},
		{"device glob", func(c *Config) { c.Modifier.DeviceGlob = "[" }, "modifier.device_glob"},
		{"no device glob", func(c *Config) { c.Modifier.DeviceGlob = "" }, "modifier.device_glob"},
		{"bus name", func(c *Config) { c.DBus.BusName = "keyboard" }, "dbus.bus_name"},
		{"object path", func(c *Config) { c.DBus.ObjectPath = "org/oskim" }, "dbus.object_path"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"log file", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for %s in %v", tt.field, verrs)
			}
		})
	}
}

func TestModifierDisabledSkipsValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Modifier.Enabled = false
	cfg.Modifier.DeviceGlob = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled modifier should not be validated: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, ext := range SupportedConfigFormats() {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "config"+ext)
			cfg := DefaultConfig()
			cfg.Keyboard.LongPressMs = 420
			cfg.Settings.Sources = []string{"xkb:jp"}

			if err := SaveConfig(cfg, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.Keyboard.LongPressMs != 420 {
				t.Errorf("expected 420, got %d", loaded.Keyboard.LongPressMs)
			}
			if len(loaded.Settings.Sources) != 1 || loaded.Settings.Sources[0] != "xkb:jp" {
				t.Errorf("unexpected sources %v", loaded.Settings.Sources)
			}
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	_, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected file to be created")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	_, created, err = LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}
	if created {
		t.Error("existing file should not be recreated")
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := FindConfigFile(); got != filepath.Join(dir, "oskim", "config.toml") {
		t.Errorf("expected default path, got %s", got)
	}

	if err := os.MkdirAll(filepath.Join(dir, "oskim"), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := filepath.Join(dir, "oskim", "config.yaml")
	if err := os.WriteFile(yml, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != yml {
		t.Errorf("expected %s, got %s", yml, got)
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.FilePath = "/tmp/oskim-test.log"

	lc, err := cfg.LoggerConfig()
	if err != nil {
		t.Fatalf("LoggerConfig failed: %v", err)
	}
	if lc.MaxSize != 10 || lc.MaxBackups != 3 {
		t.Errorf("unexpected rotation settings %d/%d", lc.MaxSize, lc.MaxBackups)
	}
	if lc.FilePath != "/tmp/oskim-test.log" {
		t.Errorf("unexpected file path %s", lc.FilePath)
	}

	cfg.Logging.Level = "loud"
	if _, err := cfg.LoggerConfig(); err == nil {
		t.Error("expected level error")
	}
}

func TestLoaderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[keyboard]\nlong_press_ms = 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	defer loader.Close()
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 1)
	loader.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("[keyboard]\nlong_press_ms = 650\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.Keyboard.LongPressMs != 650 {
			t.Errorf("expected 650, got %d", c.Keyboard.LongPressMs)
		}
		if loader.Config().Keyboard.LongPressMs != 650 {
			t.Error("loader did not swap config")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoaderRejectsInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	defer loader.Close()
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("[input]\nbackend = \"x11\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-loader.Errors():
		if !strings.Contains(err.Error(), "input.backend") {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for validation error")
	}
	if loader.Config().Input.Backend != "uinput" {
		t.Error("invalid config replaced the current one")
	}
}
