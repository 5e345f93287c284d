// Package translate turns on-screen key gestures into injected input.
package translate

import (
	"fmt"
	"unicode/utf8"

	"oskim/internal/inject"
	"oskim/internal/keysym"
	"oskim/internal/layout"
	"oskim/internal/level"
)

// Kind selects how an Emission is delivered.
type Kind int

const (
	None Kind = iota
	Keysym
	KeycodeTap
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Keysym:
		return "keysym"
	case KeycodeTap:
		return "keycode-tap"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Emission is the input produced by one key gesture.
type Emission struct {
	Kind     Kind
	Keysym   keysym.Keysym
	Keycodes []uint16
	Pressed  bool

	// Remapped is set when Keysym came from the remap table.
	Remapped bool
}

// ToggleKey is the key that switches between the Latin and kana layers.
const ToggleKey = keysym.CapsLock

// JapaneseLayout is the xkb layout whose keyboards carry kana/eisu keys.
const JapaneseLayout = "jp"

// Tables provides the active remap table.
type Tables interface {
	Table() *layout.RemapTable
}

// Layouts reports the active OS keyboard layout.
type Layouts interface {
	XkbLayout() string
}

// Translator maps key presses and releases for one session.
type Translator struct {
	tables  Tables
	layouts Layouts
	machine *level.Machine
}

// New creates a translator. layouts may be nil when the OS layout is
// unknown, in which case it is treated as "us".
func New(tables Tables, layouts Layouts, machine *level.Machine) *Translator {
	return &Translator{tables: tables, layouts: layouts, machine: machine}
}

func (t *Translator) remap(ks keysym.Keysym) (keysym.Keysym, bool) {
	to, ok := t.tables.Table().Lookup(keysym.ToUnicode(ks))
	if !ok {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(to)
	return keysym.FromUnicode(r), true
}

// TranslatePress returns the emission for pressing ks. The remap table is
// consulted before anything else. The toggle key never types on press.
func (t *Translator) TranslatePress(ks keysym.Keysym) Emission {
	if code, ok := t.remap(ks); ok {
		return Emission{Kind: Keysym, Keysym: code, Pressed: true, Remapped: true}
	}
	if ks == ToggleKey {
		return Emission{Kind: None}
	}
	return Emission{Kind: Keysym, Keysym: ks, Pressed: true}
}

// TranslateRelease returns the emission for releasing ks without touching
// the level state.
func (t *Translator) TranslateRelease(ks keysym.Keysym) Emission {
	if code, ok := t.remap(ks); ok {
		return Emission{Kind: Keysym, Keysym: code, Remapped: true}
	}
	if ks == ToggleKey {
		return Emission{Kind: KeycodeTap, Keycodes: []uint16{t.toggleKeycode()}}
	}
	return Emission{Kind: Keysym, Keysym: ks}
}

// toggleKeycode picks Caps Lock, or on Japanese keyboards the eisu key
// from the kana levels and the kana key from the Latin ones.
func (t *Translator) toggleKeycode() uint16 {
	if t.layouts == nil || t.layouts.XkbLayout() != JapaneseLayout {
		return keysym.KeyCapsLock
	}
	if t.machine.State().Level >= 3 {
		return keysym.KeyHanja
	}
	return keysym.KeyHangeul
}

// Released applies the level transition that follows the release
// emission e of ks.
func (t *Translator) Released(ks keysym.Keysym, e Emission) {
	switch {
	case e.Remapped:
		t.machine.RemappedReleased()
	case ks == keysym.Space:
		t.machine.SpaceReleased()
	case ks == keysym.Hangul:
		t.machine.KanaConversionReleased()
	}
}

// Press translates and injects a key press.
func (t *Translator) Press(ks keysym.Keysym, inj inject.Injector) (Emission, error) {
	e := t.TranslatePress(ks)
	return e, Apply(e, inj)
}

// Release translates and injects a key release, then advances the level
// state. The transition happens even if injection fails.
func (t *Translator) Release(ks keysym.Keysym, inj inject.Injector) (Emission, error) {
	e := t.TranslateRelease(ks)
	err := Apply(e, inj)
	t.Released(ks, e)
	return e, err
}

// Apply delivers e through inj.
func Apply(e Emission, inj inject.Injector) error {
	switch e.Kind {
	case None:
		return nil
	case Keysym:
		if err := inj.InjectKeysym(e.Keysym, e.Pressed); err != nil {
			return fmt.Errorf("inject %s: %w", e.Keysym, err)
		}
	case KeycodeTap:
		for _, code := range e.Keycodes {
			if err := inj.InjectKey(code, true); err != nil {
				return fmt.Errorf("tap key %d: %w", code, err)
			}
			if err := inj.InjectKey(code, false); err != nil {
				return fmt.Errorf("tap key %d: %w", code, err)
			}
		}
	default:
		return fmt.Errorf("unknown emission kind %s", e.Kind)
	}
	return nil
}
