package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oskim/internal/inputsource"
	"oskim/internal/layout"
	"oskim/internal/level"
	"oskim/internal/settings"
)

func newManager(t *testing.T, f *fixture) (*Manager, *[]*Session) {
	t.Helper()
	m := NewManager(f.deps(), f.registry)
	var changes []*Session
	m.OnActiveChanged(func(s *Session) { changes = append(changes, s) })
	m.Start()
	t.Cleanup(func() { f.loop.Do(m.Close) })
	f.on(t, func() {})
	return m, &changes
}

func TestManagerIgnoresUnknownSource(t *testing.T) {
	f := newFixture(t, `[('xkb', 'us')]`)
	m, changes := newManager(t, f)

	f.on(t, func() {
		assert.Nil(t, m.Active())
		assert.Empty(t, m.ActiveID())
	})
	assert.Empty(t, *changes)
}

func TestManagerFollowsSource(t *testing.T) {
	f := newFixture(t, `[('xkb', 'us')]`)
	m, changes := newManager(t, f)

	f.settings.Set(settings.InputSourcesSchema, settings.KeyMRUSources, `[('ibus', 'hiragana'), ('xkb', 'us')]`)
	f.on(t, func() {})

	var active *Session
	f.on(t, func() {
		active = m.Active()
		require.NotNil(t, active)
		assert.Equal(t, HiraganaProvider, m.ActiveID())
		assert.Equal(t, layout.Level(0), active.State().Level)
	})
	require.Len(t, *changes, 1)
	assert.Same(t, active, (*changes)[0])

	f.settings.Set(settings.InputSourcesSchema, settings.KeyMRUSources, `[('xkb', 'de'), ('ibus', 'hiragana')]`)
	f.on(t, func() {})

	f.on(t, func() { assert.Nil(t, m.Active()) })
	require.Len(t, *changes, 2)
	assert.Nil(t, (*changes)[1])

	// The disabled session no longer accepts input.
	f.on(t, func() { assert.ErrorIs(t, active.KeyvalPress('a'), ErrClosed) })
}

func TestManagerStartsEnabled(t *testing.T) {
	f := newFixture(t, `[('ibus', 'hiragana')]`)
	f.settings.SetString(settings.HiraganaSchema, settings.KeyMode, "あ")
	m, changes := newManager(t, f)

	f.on(t, func() {
		require.NotNil(t, m.Active())
		// A newly enabled session starts on level 0 whatever the mode.
		assert.Equal(t, layout.Level(0), m.Active().State().Level)
	})
	assert.Len(t, *changes, 1)
}

func TestManagerCustomProvider(t *testing.T) {
	f := newFixture(t, `[('xkb', 'us')]`)
	m := NewManager(f.deps(), f.registry)
	built := 0
	m.Register("xkb-us", func(d Deps) *Session {
		built++
		return New(d)
	})
	m.Start()
	defer f.loop.Do(m.Close)

	f.on(t, func() {
		require.NotNil(t, m.Active())
		assert.Equal(t, "xkb-us", m.ActiveID())
		// Selecting the active source again keeps the session.
		m.Select(inputsource.Source{Type: "xkb", ID: "us"})
	})
	assert.Equal(t, 1, built)
}

func TestManagerCapsLock(t *testing.T) {
	f := newFixture(t, `[('xkb', 'us')]`)
	m, _ := newManager(t, f)

	// Observed while no session is active.
	f.on(t, func() { m.CapsLockChanged(true) })

	f.settings.Set(settings.InputSourcesSchema, settings.KeyMRUSources, `[('ibus', 'hiragana')]`)
	f.on(t, func() {})

	f.on(t, func() {
		s := m.Active()
		require.NotNil(t, s)
		// The seeded state is not a change.
		s.CapsLockChanged(true)
		assert.Equal(t, layout.Level(0), s.State().Level)

		m.CapsLockChanged(false)
		m.CapsLockChanged(true)
		assert.Equal(t, level.Kana, s.State().Level)
		assert.True(t, s.State().Latched)
	})
}
