package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateKeyboard(&c.Keyboard)...)
	errs = append(errs, validateInput(&c.Input)...)
	errs = append(errs, validateClipboard(&c.Clipboard)...)
	errs = append(errs, validateSettings(&c.Settings)...)
	errs = append(errs, validateModifier(&c.Modifier)...)
	errs = append(errs, validateDBus(&c.DBus)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateKeyboard(k *KeyboardConfig) ValidationErrors {
	var errs ValidationErrors

	if k.LongPressMs < 50 || k.LongPressMs > 5000 {
		errs = append(errs, *RangeError("keyboard.long_press_ms", 50, 5000))
	}

	if k.DataDir != "" {
		if info, err := os.Stat(ExpandPath(k.DataDir)); err != nil || !info.IsDir() {
			errs = append(errs, ValidationError{
				Field:   "keyboard.data_dir",
				Message: fmt.Sprintf("not a directory: %s", k.DataDir),
			})
		}
	}

	if k.WatchLayouts && k.DataDir == "" {
		errs = append(errs, ValidationError{
			Field:   "keyboard.watch_layouts",
			Message: "built-in layouts cannot be watched; set data_dir",
		})
	}

	return errs
}

func validateInput(i *InputConfig) ValidationErrors {
	var errs ValidationErrors

	switch i.Backend {
	case "uinput", "recorder":
	default:
		errs = append(errs, ValidationError{
			Field:   "input.backend",
			Message: fmt.Sprintf("invalid input backend: %s (valid: uinput, recorder)", i.Backend),
		})
	}

	// UINPUT_MAX_NAME_SIZE is 80 bytes including the NUL.
	if len(i.DeviceName) >= 80 {
		errs = append(errs, ValidationError{
			Field:   "input.device_name",
			Message: "device name must be shorter than 80 bytes",
		})
	}

	return errs
}

func validateClipboard(c *ClipboardConfig) ValidationErrors {
	var errs ValidationErrors

	switch c.Backend {
	case "command", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "clipboard.backend",
			Message: fmt.Sprintf("invalid clipboard backend: %s (valid: command, memory)", c.Backend),
		})
	}

	return errs
}

func validateSettings(s *SettingsConfig) ValidationErrors {
	var errs ValidationErrors

	switch s.Backend {
	case "gsettings", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "settings.backend",
			Message: fmt.Sprintf("invalid settings backend: %s (valid: gsettings, memory)", s.Backend),
		})
	}

	for i, src := range s.Sources {
		typ, id, ok := strings.Cut(src, ":")
		if !ok || typ == "" || id == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("settings.sources[%d]", i),
				Message: fmt.Sprintf("expected type:id, got %q", src),
			})
		}
	}

	return errs
}

func validateModifier(m *ModifierConfig) ValidationErrors {
	var errs ValidationErrors

	if !m.Enabled {
		return errs
	}

	if m.DeviceGlob == "" {
		errs = append(errs, *RequiredFieldError("modifier.device_glob"))
	} else if _, err := filepath.Match(m.DeviceGlob, "test"); err != nil {
		errs = append(errs, ValidationError{
			Field:   "modifier.device_glob",
			Message: fmt.Sprintf("invalid glob pattern: %s", m.DeviceGlob),
		})
	}

	return errs
}

func validateDBus(d *DBusConfig) ValidationErrors {
	var errs ValidationErrors

	if d.BusName == "" || strings.Count(d.BusName, ".") < 1 || strings.HasPrefix(d.BusName, ":") {
		errs = append(errs, ValidationError{
			Field:   "dbus.bus_name",
			Message: fmt.Sprintf("invalid well-known bus name: %q", d.BusName),
		})
	}

	if !dbus.ObjectPath(d.ObjectPath).IsValid() {
		errs = append(errs, ValidationError{
			Field:   "dbus.object_path",
			Message: fmt.Sprintf("invalid object path: %q", d.ObjectPath),
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

// ExpandPath resolves a leading "~/" to the home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
