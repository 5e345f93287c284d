// Package dbusapi exposes the on-screen keyboard session on the session bus.
package dbusapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"oskim/internal/keysym"
	"oskim/internal/layout"
	"oskim/internal/session"
)

// Bus defaults.
const (
	DefaultBusName    = "org.oskim.Keyboard"
	DefaultObjectPath = dbus.ObjectPath("/org/oskim/Keyboard")
	Interface         = "org.oskim.Keyboard"

	ErrorInactive = Interface + ".Error.Inactive"
)

// ErrInactive is returned when no keyboard session is enabled.
var ErrInactive = errors.New("dbusapi: no active keyboard session")

// Keyboard implements the org.oskim.Keyboard methods. Calls arrive on
// godbus goroutines and run on the session loop.
type Keyboard struct {
	loop    *session.Loop
	manager *session.Manager
	logger  *slog.Logger
}

// NewKeyboard creates the method handler.
func NewKeyboard(loop *session.Loop, manager *session.Manager, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{loop: loop, manager: manager, logger: logger}
}

func (k *Keyboard) with(method string, fn func(*session.Session) error) *dbus.Error {
	var err error
	if lerr := k.loop.Do(func() {
		s := k.manager.Active()
		if s == nil {
			err = ErrInactive
			return
		}
		err = fn(s)
	}); lerr != nil {
		err = lerr
	}
	if err != nil {
		k.logger.Debug("method failed", "method", method, "error", err)
	}
	return toDBusError(err)
}

func toDBusError(err error) *dbus.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInactive), errors.Is(err, session.ErrClosed):
		return dbus.NewError(ErrorInactive, []any{err.Error()})
	default:
		return dbus.MakeFailedError(err)
	}
}

// KeyvalPress handles a key press.
func (k *Keyboard) KeyvalPress(keyval uint32) *dbus.Error {
	return k.with("KeyvalPress", func(s *session.Session) error {
		return s.KeyvalPress(keysym.Keysym(keyval))
	})
}

// KeyvalRelease handles a key release.
func (k *Keyboard) KeyvalRelease(keyval uint32) *dbus.Error {
	return k.with("KeyvalRelease", func(s *session.Session) error {
		return s.KeyvalRelease(keysym.Keysym(keyval))
	})
}

// SwitchPress handles pressing a level switch key.
func (k *Keyboard) SwitchPress(level int32) *dbus.Error {
	return k.with("SwitchPress", func(s *session.Session) error {
		return s.SwitchPress(layout.Level(level))
	})
}

// SwitchRelease handles releasing a level switch key.
func (k *Keyboard) SwitchRelease(level int32) *dbus.Error {
	return k.with("SwitchRelease", func(s *session.Session) error {
		return s.SwitchRelease(layout.Level(level))
	})
}

// CommitString commits text and reports whether it was pasted.
func (k *Keyboard) CommitString(text string, fromKey bool) (bool, *dbus.Error) {
	var handled bool
	derr := k.with("CommitString", func(s *session.Session) error {
		var err error
		handled, err = s.CommitString(text, fromKey)
		return err
	})
	return handled, derr
}

type rows struct {
	Pre  []layout.KeyDescriptor `json:"pre"`
	Post []layout.KeyDescriptor `json:"post"`
}

// GetRows returns the padding keys of one row as JSON, or "null" for rows
// without padding.
func (k *Keyboard) GetRows(level, row, totalRows int32) (string, *dbus.Error) {
	var out string
	derr := k.with("GetRows", func(*session.Session) error {
		pre, post, ok := layout.RowsForLevel(layout.Level(level), int(row), int(totalRows))
		if !ok {
			out = "null"
			return nil
		}
		data, err := json.Marshal(rows{Pre: pre, Post: post})
		if err != nil {
			return fmt.Errorf("encode rows: %w", err)
		}
		out = string(data)
		return nil
	})
	return out, derr
}

// GetState returns the level with its latched and prefixed flags.
func (k *Keyboard) GetState() (int32, bool, bool, *dbus.Error) {
	var lvl int32
	var latched, prefixed bool
	derr := k.with("GetState", func(s *session.Session) error {
		st := s.State()
		lvl, latched, prefixed = int32(st.Level), st.Latched, st.Prefixed
		return nil
	})
	return lvl, latched, prefixed, derr
}

// Open is called when the keyboard is shown.
func (k *Keyboard) Open() *dbus.Error {
	return k.with("Open", func(s *session.Session) error {
		s.Open()
		return nil
	})
}

// Close is called when the keyboard is hidden.
func (k *Keyboard) Close() *dbus.Error {
	return k.with("Close", func(s *session.Session) error {
		s.Hide()
		return nil
	})
}
