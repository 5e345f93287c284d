package dbusapi

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oskim/internal/clipboard"
	"oskim/internal/inject"
	"oskim/internal/inputsource"
	"oskim/internal/layout"
	"oskim/internal/session"
	"oskim/internal/settings"
)

type emitted struct {
	name   string
	values []any
}

type fakeEmitter struct {
	mu      sync.Mutex
	signals []emitted
}

func (f *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, emitted{name: name, values: values})
	return nil
}

func (f *fakeEmitter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.signals))
	for i, s := range f.signals {
		out[i] = s.name
	}
	return out
}

func (f *fakeEmitter) last() emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signals[len(f.signals)-1]
}

type harness struct {
	loop     *session.Loop
	settings *settings.Memory
	inj      *inject.Recorder
	clip     *clipboard.Memory
	emitter  *fakeEmitter
	kb       *Keyboard
}

func newHarness(t *testing.T, sources string) *harness {
	t.Helper()
	h := &harness{
		loop:     session.NewLoop(nil),
		settings: settings.NewMemory(),
		inj:      inject.NewRecorder(),
		clip:     &clipboard.Memory{},
		emitter:  &fakeEmitter{},
	}
	t.Cleanup(h.loop.Close)
	h.settings.Set(settings.InputSourcesSchema, settings.KeyMRUSources, sources)

	registry := inputsource.NewRegistry(h.settings, nil)
	registry.Start()
	t.Cleanup(registry.Stop)

	signals := NewSignals(h.emitter, DefaultObjectPath, nil)
	m := session.NewManager(session.Deps{
		Loop:            h.loop,
		Settings:        h.settings,
		Injector:        h.inj,
		Clipboard:       h.clip,
		Layouts:         layout.NewStore(layout.Builtin(), nil),
		AutoRevertShift: true,
		OnLayoutChanged: signals.LayoutChanged,
	}, registry)
	signals.Attach(m)
	m.Start()
	t.Cleanup(func() { h.loop.Do(m.Close) })
	require.NoError(t, h.loop.Do(func() {}))

	h.kb = NewKeyboard(h.loop, m, nil)
	return h
}

func TestInactiveErrors(t *testing.T) {
	h := newHarness(t, `[('xkb', 'us')]`)

	derr := h.kb.KeyvalPress('a')
	require.NotNil(t, derr)
	assert.Equal(t, ErrorInactive, derr.Name)

	_, derr = h.kb.CommitString("x", false)
	require.NotNil(t, derr)
	assert.Equal(t, ErrorInactive, derr.Name)

	_, _, _, derr = h.kb.GetState()
	require.NotNil(t, derr)
	assert.Empty(t, h.inj.Events())
}

func TestKeyvalMethods(t *testing.T) {
	h := newHarness(t, `[('ibus', 'hiragana')]`)

	require.Nil(t, h.kb.KeyvalPress('q'))
	require.Nil(t, h.kb.KeyvalRelease('q'))

	events := h.inj.Events()
	require.Len(t, events, 2)
	assert.True(t, events[0].Pressed)
	assert.False(t, events[1].Pressed)
}

func TestSwitchAndState(t *testing.T) {
	h := newHarness(t, `[('ibus', 'hiragana')]`)

	require.Nil(t, h.kb.SwitchPress(2))
	require.Nil(t, h.kb.SwitchRelease(2))

	lvl, latched, prefixed, derr := h.kb.GetState()
	require.Nil(t, derr)
	assert.Equal(t, int32(2), lvl)
	assert.True(t, latched)
	assert.False(t, prefixed)

	last := h.emitter.last()
	assert.Equal(t, SignalLevelChanged, last.name)
	assert.Equal(t, []any{int32(2), true, false}, last.values)

	derr = h.kb.SwitchPress(7)
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.DBus.Error.Failed", derr.Name)
}

func TestCommitStringMethod(t *testing.T) {
	h := newHarness(t, `[('ibus', 'hiragana')]`)

	// Key commits under an IME are left to the host.
	handled, derr := h.kb.CommitString("ね", true)
	require.Nil(t, derr)
	assert.False(t, handled)

	handled, derr = h.kb.CommitString("ね", false)
	require.Nil(t, derr)
	assert.True(t, handled)
	assert.Equal(t, "ね", h.clip.Text())
}

func TestGetRows(t *testing.T) {
	h := newHarness(t, `[('ibus', 'hiragana')]`)

	out, derr := h.kb.GetRows(0, 0, 4)
	require.Nil(t, derr)

	var got struct {
		Pre  []layout.KeyDescriptor `json:"pre"`
		Post []layout.KeyDescriptor `json:"post"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	pre, post, ok := layout.RowsForLevel(0, 0, 4)
	require.True(t, ok)
	assert.Equal(t, pre, got.Pre)
	assert.Equal(t, post, got.Post)

	out, derr = h.kb.GetRows(0, 2, 5)
	require.Nil(t, derr)
	assert.Equal(t, "null", out)

	out, derr = h.kb.GetRows(9, 0, 4)
	require.Nil(t, derr)
	assert.Equal(t, "null", out)
}

func TestOpenAndClose(t *testing.T) {
	h := newHarness(t, `[('ibus', 'hiragana')]`)
	h.settings.SetString(settings.HiraganaSchema, settings.KeyMode, "あ")
	require.Nil(t, h.kb.SwitchPress(0))
	require.Nil(t, h.kb.Open())

	lvl, latched, _, derr := h.kb.GetState()
	require.Nil(t, derr)
	assert.Equal(t, int32(4), lvl)
	assert.True(t, latched)

	require.Nil(t, h.kb.Close())
	lvl, _, _, _ = h.kb.GetState()
	assert.Equal(t, int32(4), lvl)
}

func TestActiveChangedSignals(t *testing.T) {
	h := newHarness(t, `[('xkb', 'us')]`)
	assert.Empty(t, h.emitter.names())

	h.settings.Set(settings.InputSourcesSchema, settings.KeyMRUSources, `[('ibus', 'hiragana'), ('xkb', 'us')]`)
	require.NoError(t, h.loop.Do(func() {}))
	last := h.emitter.last()
	assert.Equal(t, SignalActiveChanged, last.name)
	assert.Equal(t, []any{true}, last.values)

	h.settings.Set(settings.InputSourcesSchema, settings.KeyMRUSources, `[('xkb', 'us'), ('ibus', 'hiragana')]`)
	require.NoError(t, h.loop.Do(func() {}))
	last = h.emitter.last()
	assert.Equal(t, SignalActiveChanged, last.name)
	assert.Equal(t, []any{false}, last.values)
}

func TestLayoutChangedSignal(t *testing.T) {
	h := newHarness(t, `[('ibus', 'hiragana')]`)

	h.settings.SetString(settings.HiraganaSchema, settings.KeyLayout, layout.VariantNewStickney)
	require.Eventually(t, func() bool {
		for _, n := range h.emitter.names() {
			if n == SignalLayoutChanged {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNodeListsMethods(t *testing.T) {
	node := Node()
	require.Len(t, node.Interfaces, 2)
	var names []string
	for _, m := range node.Interfaces[1].Methods {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{
		"KeyvalPress", "KeyvalRelease", "SwitchPress", "SwitchRelease",
		"CommitString", "GetRows", "GetState", "Open", "Close",
	}, names)
	assert.Len(t, node.Interfaces[1].Signals, 3)
}

func TestToDBusError(t *testing.T) {
	assert.Nil(t, toDBusError(nil))
	assert.Equal(t, ErrorInactive, toDBusError(session.ErrClosed).Name)
	assert.Equal(t, ErrorInactive, toDBusError(ErrInactive).Name)
}
