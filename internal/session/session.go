package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oskim/internal/clipboard"
	"oskim/internal/commit"
	"oskim/internal/coordinator"
	"oskim/internal/inject"
	"oskim/internal/keysym"
	"oskim/internal/layout"
	"oskim/internal/level"
	"oskim/internal/settings"
	"oskim/internal/translate"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session: closed")

// Sources reports the desktop input-source state a session depends on.
type Sources interface {
	XkbLayout() string
	IsIME() bool
}

// Deps are the shared services a session is built from.
type Deps struct {
	Loop      *Loop
	Settings  settings.Store
	Sources   Sources
	Injector  inject.Injector
	Clipboard clipboard.Clipboard
	Layouts   *layout.Store
	Logger    *slog.Logger

	// LongPress is the shift hold threshold. Zero uses level.DefaultLongPress.
	LongPress time.Duration

	// AutoRevertShift drops a one-shot shift after the next character.
	AutoRevertShift bool

	// OnLayoutChanged runs on the loop after a remap table was swapped in.
	OnLayoutChanged func()
}

// Session is one enabled keyboard provider. All methods must run on the
// loop.
type Session struct {
	deps   Deps
	logger *slog.Logger

	machine     *level.Machine
	translator  *translate.Translator
	commit      *commit.Strategy
	coordinator *coordinator.Coordinator

	cancels []func()
	closed  bool
}

// New creates a session and loads the remap table for the configured IME
// layout.
func New(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	longPress := deps.LongPress
	if longPress <= 0 {
		longPress = level.DefaultLongPress
	}

	s := &Session{deps: deps, logger: logger}
	s.machine = level.New(deps.Loop, longPress, logger)
	s.translator = translate.New(deps.Layouts, deps.Sources, s.machine)
	s.commit = commit.New(deps.Clipboard, deps.Injector, deps.Sources)
	s.coordinator = coordinator.New(s.machine, deps.Settings, deps.Sources, logger)
	s.coordinator.OnLayout = s.reloadLayout

	s.cancels = append(s.cancels, deps.Settings.Subscribe(settings.HiraganaSchema, func(key string) {
		deps.Loop.Post(func() {
			if s.closed {
				return
			}
			s.coordinator.SettingChanged(key)
		})
	}))

	deps.Layouts.Reload(s.coordinator.Layout())
	return s
}

func (s *Session) reloadLayout(variant string) {
	s.deps.Layouts.ReloadAsync(variant, func(fn func()) { s.deps.Loop.Post(fn) }, func(t *layout.RemapTable) {
		if s.closed {
			return
		}
		s.logger.Info("remap table loaded", "source", t.Source(), "entries", t.Len())
		if s.deps.OnLayoutChanged != nil {
			s.deps.OnLayoutChanged()
		}
	})
}

// ReloadLayout rereads the remap table of the current variant.
func (s *Session) ReloadLayout() {
	if s.closed {
		return
	}
	s.reloadLayout(s.deps.Layouts.Variant())
}

// Subscribe registers fn for level state changes until the returned
// cancel is called or the session closes.
func (s *Session) Subscribe(fn func(level.State)) (cancel func()) {
	cancel = s.machine.Subscribe(fn)
	s.cancels = append(s.cancels, cancel)
	return cancel
}

// State returns the current level state.
func (s *Session) State() level.State {
	return s.machine.State()
}

// SetLevel moves to l with the latch cleared.
func (s *Session) SetLevel(l layout.Level) {
	s.machine.SetLayer(l, false)
}

// Open synchronizes with the IME mode when the keyboard is shown.
func (s *Session) Open() {
	if s.closed {
		return
	}
	s.machine.Reset()
	s.coordinator.SyncMode()
}

// Hide drops any pending gesture when the keyboard is hidden. The level
// is kept.
func (s *Session) Hide() {
	if s.closed {
		return
	}
	s.machine.CancelPending()
}

// KeyvalPress handles a key press from the keyboard UI.
func (s *Session) KeyvalPress(ks keysym.Keysym) error {
	if s.closed {
		return ErrClosed
	}
	e, err := s.translator.Press(ks, s.deps.Injector)
	if err != nil {
		s.logger.Warn("key press injection failed", "keyval", ks.String(), "kind", e.Kind.String(), "error", err)
		return err
	}
	return nil
}

// KeyvalRelease handles a key release from the keyboard UI.
func (s *Session) KeyvalRelease(ks keysym.Keysym) error {
	if s.closed {
		return ErrClosed
	}
	e, err := s.translator.Release(ks, s.deps.Injector)
	if s.deps.AutoRevertShift && e.Kind == translate.Keysym && keysym.ToUnicode(e.Keysym) != 0 {
		s.machine.CharacterCommitted()
	}
	if err != nil {
		s.logger.Warn("key release injection failed", "keyval", ks.String(), "kind", e.Kind.String(), "error", err)
		return err
	}
	return nil
}

// SwitchPress handles pressing a level switch key.
func (s *Session) SwitchPress(target layout.Level) error {
	if s.closed {
		return ErrClosed
	}
	if !target.Valid() {
		return fmt.Errorf("session: invalid level %d", target)
	}
	s.machine.SwitchPress(target)
	return nil
}

// SwitchRelease handles releasing a level switch key.
func (s *Session) SwitchRelease(target layout.Level) error {
	if s.closed {
		return ErrClosed
	}
	if !target.Valid() {
		return fmt.Errorf("session: invalid level %d", target)
	}
	s.machine.SwitchRelease(target)
	return nil
}

// CommitString commits text through the clipboard. It reports false when
// the text should go through the host's normal input path instead.
func (s *Session) CommitString(text string, fromKey bool) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	handled, err := s.commit.Commit(text, fromKey)
	if err != nil {
		s.logger.Warn("commit failed", "length", len(text), "error", err)
		return false, err
	}
	if handled && s.deps.AutoRevertShift {
		s.machine.CharacterCommitted()
	}
	return handled, nil
}

// Rows returns the padding keys for one row of the current level.
func (s *Session) Rows(row, totalRows int) (pre, post []layout.KeyDescriptor, ok bool) {
	return layout.RowsForLevel(s.machine.State().Level, row, totalRows)
}

// CapsLockChanged forwards a hardware Caps Lock observation.
func (s *Session) CapsLockChanged(on bool) {
	if s.closed {
		return
	}
	s.coordinator.CapsLockChanged(on)
}

// InitCapsLock seeds the Caps Lock state known before the session existed.
func (s *Session) InitCapsLock(on bool) {
	s.machine.InitCapsLock(on)
}

// Close cancels the session's subscriptions and timers. It is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.machine.Close()
}
