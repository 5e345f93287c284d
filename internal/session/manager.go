package session

import (
	"log/slog"

	"oskim/internal/inputsource"
)

// HiraganaProvider is the input-source type-id served by the built-in
// provider.
const HiraganaProvider = "ibus-hiragana"

// Provider builds the session for one input source.
type Provider func(Deps) *Session

// Registry is the input-source view the manager follows.
type Registry interface {
	Sources
	Current() inputsource.Source
	Subscribe(fn func([]inputsource.Source)) (cancel func())
}

// Manager enables the session of the provider matching the current input
// source and disables it when the source changes. Except for Start, its
// methods must run on the loop.
type Manager struct {
	deps      Deps
	registry  Registry
	logger    *slog.Logger
	providers map[string]Provider

	active   *Session
	activeID string

	capsOn    bool
	capsKnown bool

	onActive []func(*Session)
	cancel   func()
}

// NewManager creates a manager with the hiragana provider registered.
// deps.Sources is replaced by registry.
func NewManager(deps Deps, registry Registry) *Manager {
	deps.Sources = registry
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	m := &Manager{
		deps:      deps,
		registry:  registry,
		logger:    deps.Logger,
		providers: make(map[string]Provider),
	}
	m.Register(HiraganaProvider, New)
	return m
}

// Register adds or replaces the provider for an input-source type-id.
func (m *Manager) Register(typeID string, p Provider) {
	m.providers[typeID] = p
}

// OnActiveChanged registers fn to run after a session was enabled or,
// with nil, after the active one was disabled.
func (m *Manager) OnActiveChanged(fn func(*Session)) {
	m.onActive = append(m.onActive, fn)
}

// Start follows input-source changes and selects the provider for the
// current source. It may be called from any goroutine.
func (m *Manager) Start() {
	loop := m.deps.Loop
	m.cancel = m.registry.Subscribe(func(sources []inputsource.Source) {
		current := inputsource.Default
		if len(sources) > 0 {
			current = sources[0]
		}
		loop.Post(func() { m.Select(current) })
	})
	loop.Post(func() { m.Select(m.registry.Current()) })
}

// Active returns the enabled session, or nil.
func (m *Manager) Active() *Session {
	return m.active
}

// ActiveID returns the type-id of the enabled provider, or "".
func (m *Manager) ActiveID() string {
	return m.activeID
}

// Select enables the provider for src, disabling the previous session.
func (m *Manager) Select(src inputsource.Source) {
	id := src.TypeID()
	if m.active != nil && id == m.activeID {
		return
	}

	provider, ok := m.providers[id]
	if !ok {
		if m.active == nil {
			return
		}
		m.logger.Info("keyboard provider disabled", "provider", m.activeID, "source", id)
		m.disable()
		m.notify(nil)
		return
	}

	m.disable()
	s := provider(m.deps)
	if m.capsKnown {
		s.InitCapsLock(m.capsOn)
	}
	s.SetLevel(0)
	m.active = s
	m.activeID = id
	m.logger.Info("keyboard provider enabled", "provider", id)
	m.notify(s)
}

func (m *Manager) disable() {
	if m.active == nil {
		return
	}
	m.active.Close()
	m.active = nil
	m.activeID = ""
}

func (m *Manager) notify(s *Session) {
	for _, fn := range m.onActive {
		fn(s)
	}
}

// CapsLockChanged records the hardware state and forwards it to the
// active session.
func (m *Manager) CapsLockChanged(on bool) {
	m.capsOn = on
	m.capsKnown = true
	if m.active != nil {
		m.active.CapsLockChanged(on)
	}
}

// Close disables the active session and stops following sources.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.active != nil {
		m.disable()
		m.notify(nil)
	}
}
