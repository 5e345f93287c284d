package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oskim/internal/layout"
	"oskim/internal/level"
	"oskim/internal/settings"
)

type staticLayout string

func (s staticLayout) XkbLayout() string { return string(s) }

func newCoordinator(xkb string) (*Coordinator, *level.Machine, *settings.Memory) {
	m := level.New(nil, 0, nil)
	store := settings.NewMemory()
	return New(m, store, staticLayout(xkb), nil), m, store
}

func TestCapsLockDrivesKana(t *testing.T) {
	c, m, _ := newCoordinator("us")
	c.CapsLockChanged(true)
	assert.Equal(t, level.State{Level: level.Kana, Latched: true, CapsLock: true}, m.State())

	c.CapsLockChanged(false)
	assert.Equal(t, level.State{}, m.State())
}

func TestDuplicateCapsLockIsIdempotent(t *testing.T) {
	c, m, _ := newCoordinator("us")
	transitions := 0
	m.Subscribe(func(level.State) { transitions++ })

	c.CapsLockChanged(true)
	m.SetActiveLayer(2)
	transitions = 0

	c.CapsLockChanged(true)
	assert.Zero(t, transitions)
	assert.Equal(t, layout.Level(2), m.State().Level)
}

func TestJapaneseLayoutIgnoresCapsLock(t *testing.T) {
	c, m, _ := newCoordinator("jp")
	c.CapsLockChanged(true)
	assert.Equal(t, layout.Level(0), m.State().Level)
	assert.False(t, m.State().Latched)
	assert.True(t, m.State().CapsLock, "observation is still recorded")
}

func TestModeSetting(t *testing.T) {
	tests := []struct {
		mode string
		want level.State
	}{
		{"あ", level.State{Level: level.Kana, Latched: true}},
		{"ア", level.State{Level: level.Kana, Latched: true}},
		{"ｱ", level.State{Level: level.Kana, Latched: true}},
		{"A", level.State{}},
		{"Ａ", level.State{}},
		{"unknown", level.State{}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			c, m, store := newCoordinator("us")
			m.SetActiveLayer(2)
			store.SetString(settings.HiraganaSchema, settings.KeyMode, tt.mode)
			c.SettingChanged(settings.KeyMode)
			assert.Equal(t, tt.want, m.State())
		})
	}
}

func TestSyncModeUnreadable(t *testing.T) {
	c, m, _ := newCoordinator("us")
	m.SetLayer(level.Kana, true)
	c.SyncMode()
	assert.Equal(t, level.State{}, m.State())
}

func TestLayoutSetting(t *testing.T) {
	c, m, store := newCoordinator("us")
	var got []string
	c.OnLayout = func(v string) { got = append(got, v) }

	store.SetString(settings.HiraganaSchema, settings.KeyLayout, "new_stickney")
	c.SettingChanged(settings.KeyLayout)
	assert.Equal(t, []string{"new_stickney"}, got)
	assert.Equal(t, level.State{}, m.State())

	c.SettingChanged("unrelated")
	assert.Len(t, got, 1)
}
