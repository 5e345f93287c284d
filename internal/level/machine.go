// Package level implements the keyboard level state machine.
//
// A Machine is not safe for concurrent use. It is owned by one session and
// every call, including timer callbacks, must arrive from that session's
// event loop.
package level

import (
	"fmt"
	"log/slog"
	"time"

	"oskim/internal/layout"
)

// DefaultLongPress is used when no threshold is configured.
const DefaultLongPress = 300 * time.Millisecond

// Shift is the level reached by the one-shot shift key.
const Shift layout.Level = 1

// Kana levels used by the Japanese layouts.
const (
	Kana         layout.Level = 4
	KanaPrefixed layout.Level = 5
)

// State is the observable keyboard state.
type State struct {
	Level    layout.Level
	Latched  bool
	Prefixed bool
	CapsLock bool
}

func (s State) String() string {
	return fmt.Sprintf("level=%d latched=%t prefixed=%t caps=%t", s.Level, s.Latched, s.Prefixed, s.CapsLock)
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Implementations must deliver f on the
// machine's event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Machine owns a session's State.
type Machine struct {
	state     State
	capsKnown bool

	sched     Scheduler
	longPress time.Duration
	pending   Timer
	pressSeq  uint64

	subs   map[int]func(State)
	nextID int

	logger *slog.Logger
}

// New creates a machine at level 0. A non-positive longPress selects
// DefaultLongPress.
func New(sched Scheduler, longPress time.Duration, logger *slog.Logger) *Machine {
	if longPress <= 0 {
		longPress = DefaultLongPress
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		sched:     sched,
		longPress: longPress,
		subs:      make(map[int]func(State)),
		logger:    logger,
	}
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	return m.state
}

// Subscribe registers fn for state changes. The returned cancel function
// is idempotent.
func (m *Machine) Subscribe(fn func(State)) (cancel func()) {
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() { delete(m.subs, id) }
}

// SetActiveLayer changes the level and leaves the flags untouched.
func (m *Machine) SetActiveLayer(l layout.Level) {
	if !l.Valid() {
		m.logger.Error("ignoring transition to invalid level", "level", l)
		return
	}
	next := m.state
	next.Level = l
	m.apply(next)
}

// SetLayer sets the level and the latched flag in one transition.
func (m *Machine) SetLayer(l layout.Level, latched bool) {
	if !l.Valid() {
		m.logger.Error("ignoring transition to invalid level", "level", l)
		return
	}
	next := m.state
	next.Level = l
	next.Latched = latched
	m.apply(next)
}

// Reset returns to level 0 with both flags cleared.
func (m *Machine) Reset() {
	m.cancelLongPress()
	next := m.state
	next.Level = 0
	next.Latched = false
	next.Prefixed = false
	m.apply(next)
}

// SwitchPress arms the latch for a switch key. The level does not change
// until release so that dragging off the key cancels it. Shift only latches
// on long press.
func (m *Machine) SwitchPress(target layout.Level) {
	m.cancelLongPress()
	next := m.state
	next.Latched = target != Shift
	m.apply(next)

	if target == Shift && m.sched != nil {
		seq := m.pressSeq
		m.pending = m.sched.AfterFunc(m.longPress, func() {
			// A release may have been queued ahead of this callback.
			if seq != m.pressSeq || m.pending == nil {
				return
			}
			m.pending = nil
			m.LongPress(target)
		})
	}
}

// LongPress makes a held shift key sticky.
func (m *Machine) LongPress(target layout.Level) {
	if target != Shift {
		return
	}
	next := m.state
	next.Latched = true
	m.apply(next)
}

// SwitchRelease moves to target. Latched carries what press and long press
// decided.
func (m *Machine) SwitchRelease(target layout.Level) {
	m.cancelLongPress()
	m.SetActiveLayer(target)
}

// KanaConversionReleased leaves the prefixed kana level.
func (m *Machine) KanaConversionReleased() {
	if m.state.Level != KanaPrefixed {
		return
	}
	m.leavePrefix()
}

// SpaceReleased toggles the space prefix on the kana levels.
func (m *Machine) SpaceReleased() {
	switch {
	case m.state.Level == Kana:
		next := m.state
		next.Level = KanaPrefixed
		next.Prefixed = true
		m.apply(next)
	case m.state.Level == KanaPrefixed && m.state.Prefixed:
		m.leavePrefix()
	}
}

// RemappedReleased cancels a pending prefix after a character was typed.
func (m *Machine) RemappedReleased() {
	if m.state.Level == KanaPrefixed && m.state.Prefixed {
		m.leavePrefix()
	}
}

// CharacterCommitted reverts a one-shot shift after a typed character.
func (m *Machine) CharacterCommitted() {
	if m.state.Level == Shift && !m.state.Latched {
		m.SetActiveLayer(0)
	}
}

// ObserveCapsLock records the hardware Caps Lock state and reports whether
// it differs from the previous observation.
func (m *Machine) ObserveCapsLock(on bool) bool {
	if m.capsKnown && m.state.CapsLock == on {
		return false
	}
	m.capsKnown = true
	next := m.state
	next.CapsLock = on
	m.apply(next)
	return true
}

// InitCapsLock seeds the last observation without reporting a change.
func (m *Machine) InitCapsLock(on bool) {
	m.capsKnown = true
	m.state.CapsLock = on
}

// CancelPending abandons a switch key that is still held.
func (m *Machine) CancelPending() {
	m.cancelLongPress()
}

// Close stops any pending timer and drops all subscribers.
func (m *Machine) Close() {
	m.cancelLongPress()
	clear(m.subs)
}

func (m *Machine) leavePrefix() {
	next := m.state
	next.Level = Kana
	next.Prefixed = false
	m.apply(next)
}

func (m *Machine) cancelLongPress() {
	m.pressSeq++
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}

func (m *Machine) apply(next State) {
	if next == m.state {
		return
	}
	prev := m.state
	m.state = next
	m.logger.Debug("level state changed", "from", prev.String(), "to", next.String())
	for _, fn := range m.subs {
		fn(next)
	}
}
