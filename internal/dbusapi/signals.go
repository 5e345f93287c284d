package dbusapi

import (
	"log/slog"

	"github.com/godbus/dbus/v5"

	"oskim/internal/level"
	"oskim/internal/session"
)

// Signal names.
const (
	SignalLevelChanged  = Interface + ".LevelChanged"
	SignalLayoutChanged = Interface + ".LayoutChanged"
	SignalActiveChanged = Interface + ".ActiveChanged"
)

// Emitter sends signals. *dbus.Conn implements it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Signals forwards session events as D-Bus signals. Its methods run on the
// session loop.
type Signals struct {
	emitter Emitter
	path    dbus.ObjectPath
	logger  *slog.Logger

	cancelLevel func()
}

// NewSignals creates a signal forwarder for the object at path.
func NewSignals(emitter Emitter, path dbus.ObjectPath, logger *slog.Logger) *Signals {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signals{emitter: emitter, path: path, logger: logger}
}

// Attach follows the manager's active session. Call it before the manager
// starts.
func (s *Signals) Attach(m *session.Manager) {
	m.OnActiveChanged(s.ActiveChanged)
}

// ActiveChanged moves the level subscription to sess and emits
// ActiveChanged. sess is nil when the keyboard was disabled.
func (s *Signals) ActiveChanged(sess *session.Session) {
	if s.cancelLevel != nil {
		s.cancelLevel()
		s.cancelLevel = nil
	}
	if sess != nil {
		s.cancelLevel = sess.Subscribe(s.LevelChanged)
	}
	s.emit(SignalActiveChanged, sess != nil)
}

// LevelChanged emits the new level state.
func (s *Signals) LevelChanged(st level.State) {
	s.emit(SignalLevelChanged, int32(st.Level), st.Latched, st.Prefixed)
}

// LayoutChanged announces a new remap table.
func (s *Signals) LayoutChanged() {
	s.emit(SignalLayoutChanged)
}

func (s *Signals) emit(name string, values ...any) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(s.path, name, values...); err != nil {
		s.logger.Warn("failed to emit signal", "signal", name, "error", err)
	}
}
