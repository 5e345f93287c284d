// Package coordinator keeps the keyboard level in step with Caps Lock and
// the IME mode setting.
package coordinator

import (
	"log/slog"

	"oskim/internal/level"
	"oskim/internal/settings"
)

// JapaneseLayout is the xkb layout whose keyboards toggle kana with a
// dedicated key rather than Caps Lock.
const JapaneseLayout = "jp"

// Layouts reports the active OS keyboard layout.
type Layouts interface {
	XkbLayout() string
}

// KanaMode reports whether an IBus Hiragana mode selects the kana layer.
func KanaMode(mode string) bool {
	switch mode {
	case "あ", "ア", "ｱ":
		return true
	default:
		return false
	}
}

// Coordinator applies external state to a level machine. Its methods must
// run on the machine's event loop.
type Coordinator struct {
	machine *level.Machine
	store   settings.Store
	layouts Layouts
	logger  *slog.Logger

	// OnLayout is called with the new variant after the layout setting
	// changed.
	OnLayout func(variant string)
}

// New creates a coordinator. layouts may be nil, meaning "us".
func New(machine *level.Machine, store settings.Store, layouts Layouts, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{machine: machine, store: store, layouts: layouts, logger: logger}
}

// CapsLockChanged handles a hardware Caps Lock observation.
func (c *Coordinator) CapsLockChanged(on bool) {
	if !c.machine.ObserveCapsLock(on) {
		return
	}
	if c.layouts != nil && c.layouts.XkbLayout() == JapaneseLayout {
		return
	}
	c.logger.Debug("caps lock changed", "on", on)
	if on {
		c.machine.SetLayer(level.Kana, true)
	} else {
		c.machine.SetLayer(0, false)
	}
}

// SettingChanged handles a change of an IBus Hiragana key.
func (c *Coordinator) SettingChanged(key string) {
	switch key {
	case settings.KeyMode:
		c.SyncMode()
	case settings.KeyLayout:
		variant := c.Layout()
		c.logger.Info("ime layout changed", "layout", variant)
		if c.OnLayout != nil {
			c.OnLayout(variant)
		}
	}
}

// Mode returns the IME mode, or "" when it cannot be read.
func (c *Coordinator) Mode() string {
	mode, err := settings.GetString(c.store, settings.HiraganaSchema, settings.KeyMode)
	if err != nil {
		c.logger.Debug("ime mode unavailable", "error", err)
		return ""
	}
	return mode
}

// Layout returns the IME layout variant, or "" when it cannot be read.
func (c *Coordinator) Layout() string {
	variant, err := settings.GetString(c.store, settings.HiraganaSchema, settings.KeyLayout)
	if err != nil {
		c.logger.Debug("ime layout unavailable", "error", err)
		return ""
	}
	return variant
}

// SyncMode moves to the layer selected by the current IME mode.
func (c *Coordinator) SyncMode() {
	if KanaMode(c.Mode()) {
		c.machine.SetLayer(level.Kana, true)
	} else {
		c.machine.SetLayer(0, false)
	}
}
