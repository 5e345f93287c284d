package keysym

import (
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Stroke is the evdev key and shift state that produce a keysym.
type Stroke struct {
	Code  uint16
	Shift bool
}

func plain(c evdev.EvCode) Stroke   { return Stroke{Code: uint16(c)} }
func shifted(c evdev.EvCode) Stroke { return Stroke{Code: uint16(c), Shift: true} }

var letterCodes = [26]evdev.EvCode{
	evdev.KEY_A, evdev.KEY_B, evdev.KEY_C, evdev.KEY_D, evdev.KEY_E,
	evdev.KEY_F, evdev.KEY_G, evdev.KEY_H, evdev.KEY_I, evdev.KEY_J,
	evdev.KEY_K, evdev.KEY_L, evdev.KEY_M, evdev.KEY_N, evdev.KEY_O,
	evdev.KEY_P, evdev.KEY_Q, evdev.KEY_R, evdev.KEY_S, evdev.KEY_T,
	evdev.KEY_U, evdev.KEY_V, evdev.KEY_W, evdev.KEY_X, evdev.KEY_Y,
	evdev.KEY_Z,
}

var digitCodes = [10]evdev.EvCode{
	evdev.KEY_0, evdev.KEY_1, evdev.KEY_2, evdev.KEY_3, evdev.KEY_4,
	evdev.KEY_5, evdev.KEY_6, evdev.KEY_7, evdev.KEY_8, evdev.KEY_9,
}

var functionStrokes = map[Keysym]Stroke{
	BackSpace: plain(evdev.KEY_BACKSPACE),
	Tab:       plain(evdev.KEY_TAB),
	Return:    plain(evdev.KEY_ENTER),
	Escape:    plain(evdev.KEY_ESC),
	Delete:    plain(evdev.KEY_DELETE),
	ShiftL:    plain(evdev.KEY_LEFTSHIFT),
	ShiftR:    plain(evdev.KEY_RIGHTSHIFT),
	CapsLock:  plain(evdev.KEY_CAPSLOCK),
	Hangul:    plain(evdev.KEY_HANGEUL),
	KPSpace:   plain(evdev.KEY_SPACE),
}

var usPunct = map[rune]Stroke{
	' ': plain(evdev.KEY_SPACE), '.': plain(evdev.KEY_DOT),
	',': plain(evdev.KEY_COMMA), '/': plain(evdev.KEY_SLASH),
	';': plain(evdev.KEY_SEMICOLON), '\'': plain(evdev.KEY_APOSTROPHE),
	'[': plain(evdev.KEY_LEFTBRACE), ']': plain(evdev.KEY_RIGHTBRACE),
	'-': plain(evdev.KEY_MINUS), '=': plain(evdev.KEY_EQUAL),
	'\\': plain(evdev.KEY_BACKSLASH), '`': plain(evdev.KEY_GRAVE),

	'!': shifted(evdev.KEY_1), '@': shifted(evdev.KEY_2),
	'#': shifted(evdev.KEY_3), '$': shifted(evdev.KEY_4),
	'%': shifted(evdev.KEY_5), '^': shifted(evdev.KEY_6),
	'&': shifted(evdev.KEY_7), '*': shifted(evdev.KEY_8),
	'(': shifted(evdev.KEY_9), ')': shifted(evdev.KEY_0),
	'_': shifted(evdev.KEY_MINUS), '+': shifted(evdev.KEY_EQUAL),
	'{': shifted(evdev.KEY_LEFTBRACE), '}': shifted(evdev.KEY_RIGHTBRACE),
	'|': shifted(evdev.KEY_BACKSLASH), ':': shifted(evdev.KEY_SEMICOLON),
	'"': shifted(evdev.KEY_APOSTROPHE), '<': shifted(evdev.KEY_COMMA),
	'>': shifted(evdev.KEY_DOT), '?': shifted(evdev.KEY_SLASH),
	'~': shifted(evdev.KEY_GRAVE),
}

// JIS 106/109 positions as xkb's jp symbols assign them. The yen key
// doubles as backslash; the ro key carries backslash and underscore.
var jpPunct = map[rune]Stroke{
	' ': plain(evdev.KEY_SPACE), '.': plain(evdev.KEY_DOT),
	',': plain(evdev.KEY_COMMA), '/': plain(evdev.KEY_SLASH),
	';': plain(evdev.KEY_SEMICOLON), ':': plain(evdev.KEY_APOSTROPHE),
	'@': plain(evdev.KEY_LEFTBRACE), '[': plain(evdev.KEY_RIGHTBRACE),
	']': plain(evdev.KEY_BACKSLASH), '-': plain(evdev.KEY_MINUS),
	'^': plain(evdev.KEY_EQUAL), '\\': plain(evdev.KEY_RO),

	'!': shifted(evdev.KEY_1), '"': shifted(evdev.KEY_2),
	'#': shifted(evdev.KEY_3), '$': shifted(evdev.KEY_4),
	'%': shifted(evdev.KEY_5), '&': shifted(evdev.KEY_6),
	'\'': shifted(evdev.KEY_7), '(': shifted(evdev.KEY_8),
	')': shifted(evdev.KEY_9), '=': shifted(evdev.KEY_MINUS),
	'~': shifted(evdev.KEY_EQUAL), '|': shifted(evdev.KEY_YEN),
	'`': shifted(evdev.KEY_LEFTBRACE), '{': shifted(evdev.KEY_RIGHTBRACE),
	'}': shifted(evdev.KEY_BACKSLASH), '+': shifted(evdev.KEY_SEMICOLON),
	'*': shifted(evdev.KEY_APOSTROPHE), '<': shifted(evdev.KEY_COMMA),
	'>': shifted(evdev.KEY_DOT), '?': shifted(evdev.KEY_SLASH),
	'_': shifted(evdev.KEY_RO),
}

// Keymap resolves keysyms to strokes for one xkb layout.
type Keymap struct {
	name  string
	punct map[rune]Stroke
}

var (
	// US is the ANSI layout, used for any layout without its own table.
	US = &Keymap{name: "us", punct: usPunct}
	// JP is the JIS layout.
	JP = &Keymap{name: "jp", punct: jpPunct}
)

// KeymapFor returns the keymap of an xkb layout id such as "jp" or
// "us+dvorak". Variants share their base layout's map.
func KeymapFor(layout string) *Keymap {
	base, _, _ := strings.Cut(layout, "+")
	base, _, _ = strings.Cut(base, "(")
	if base == JP.name {
		return JP
	}
	return US
}

// Name returns the base layout id.
func (k *Keymap) Name() string {
	return k.name
}

// Lookup resolves ks to an evdev stroke. Keysyms the layout cannot type
// report false.
func (k *Keymap) Lookup(ks Keysym) (Stroke, bool) {
	if s, ok := functionStrokes[ks]; ok {
		return s, true
	}
	r := ToUnicode(ks)
	switch {
	case r >= 'a' && r <= 'z':
		return plain(letterCodes[r-'a']), true
	case r >= 'A' && r <= 'Z':
		return shifted(letterCodes[r-'A']), true
	case r >= '0' && r <= '9':
		return plain(digitCodes[r-'0']), true
	}
	s, ok := k.punct[r]
	return s, ok
}
