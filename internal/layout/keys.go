// Package layout holds the on-screen keyboard's fixed padding rows and the
// remap tables that translate typed characters for the active IME layout.
package layout

import (
	"fmt"

	"oskim/internal/keysym"
)

// Level identifies one of the six key-layer variants.
//
//	0 lower Latin, 1 upper Latin, 2 symbols,
//	3 kana symbols, 4 kana, 5 kana prefixed
type Level int

// NumLevels is the number of levels every layout page provides.
const NumLevels = 6

// Valid reports whether l is a configured level.
func (l Level) Valid() bool {
	return l >= 0 && l < NumLevels
}

// Action names a key that runs a host action instead of typing.
type Action string

const (
	ActionNone         Action = ""
	ActionHide         Action = "hide"
	ActionLanguageMenu Action = "languageMenu"
	ActionEmoji        Action = "emoji"
)

// KeyDescriptor describes one padding key.
type KeyDescriptor struct {
	Label      string        `json:"label,omitempty"`
	Width      float64       `json:"width,omitempty"`
	Level      *Level        `json:"level,omitempty"`
	Keysym     keysym.Keysym `json:"keyval,omitempty"`
	Action     Action        `json:"action,omitempty"`
	Icon       string        `json:"icon,omitempty"`
	StyleClass string        `json:"extraClassName,omitempty"`
}

// IsSwitch reports whether the key changes level instead of typing.
func (k KeyDescriptor) IsSwitch() bool {
	return k.Level != nil
}

func (k KeyDescriptor) clone() KeyDescriptor {
	if k.Level != nil {
		l := *k.Level
		k.Level = &l
	}
	return k
}

func (k KeyDescriptor) String() string {
	switch {
	case k.Level != nil:
		return fmt.Sprintf("switch(%d)", *k.Level)
	case k.Keysym != 0:
		return fmt.Sprintf("key(%s)", k.Keysym)
	case k.Action != ActionNone:
		return fmt.Sprintf("action(%s)", k.Action)
	default:
		return "inert"
	}
}

func lv(l Level) *Level { return &l }
