// Package keysym converts between X11 keysyms, Unicode codepoints and the
// Linux evdev keycodes the on-screen keyboard injects.
package keysym

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// Keysym is an X11 keysym value.
type Keysym uint32

// Keysyms referenced by the layout tables and the translator.
const (
	BackSpace Keysym = 0xff08
	Tab       Keysym = 0xff09
	Linefeed  Keysym = 0xff0a
	Return    Keysym = 0xff0d
	Escape    Keysym = 0xff1b
	Delete    Keysym = 0xffff
	KPSpace   Keysym = 0xff80
	Hangul    Keysym = 0xff31 // kana-conversion key
	ShiftL    Keysym = 0xffe1
	ShiftR    Keysym = 0xffe2
	CapsLock  Keysym = 0xffe5
	Space     Keysym = 0x0020
)

// unicodeOffset marks keysyms that directly encode a Unicode codepoint.
const unicodeOffset = 0x01000000

// Evdev keycodes used by the commit and toggle paths.
const (
	KeyLeftCtrl  = uint16(evdev.KEY_LEFTCTRL)
	KeyV         = uint16(evdev.KEY_V)
	KeyLeftShift = uint16(evdev.KEY_LEFTSHIFT)
	KeyCapsLock  = uint16(evdev.KEY_CAPSLOCK)
	KeyHangeul   = uint16(evdev.KEY_HANGEUL) // Japanese kana key
	KeyHanja     = uint16(evdev.KEY_HANJA)   // Japanese eisu key
)

// Legacy kana keysyms 0x04a1-0x04df map onto halfwidth katakana
// U+FF61-U+FF9F in order.
const (
	kanaFirst    Keysym = 0x04a1
	kanaLast     Keysym = 0x04df
	kanaOverline Keysym = 0x047e
	halfwidthOff        = 0xff61 - 0x04a1
)

// ToUnicode returns the codepoint produced by ks, or 0 when ks has no
// character representation.
func ToUnicode(ks Keysym) rune {
	switch {
	case ks >= 0x20 && ks <= 0x7e:
		return rune(ks)
	case ks >= 0xa0 && ks <= 0xff:
		return rune(ks)
	case ks >= kanaFirst && ks <= kanaLast:
		return rune(ks) + halfwidthOff
	case ks == kanaOverline:
		return '‾'
	case ks >= unicodeOffset && ks <= unicodeOffset+0x10ffff:
		return rune(ks - unicodeOffset)
	}

	switch ks {
	case BackSpace:
		return '\b'
	case Tab:
		return '\t'
	case Linefeed:
		return '\n'
	case Return:
		return '\r'
	case Escape:
		return 0x1b
	case Delete:
		return 0x7f
	case KPSpace:
		return ' '
	}
	return 0
}

// FromUnicode returns the keysym that produces r.
func FromUnicode(r rune) Keysym {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return Keysym(r)
	case r >= 0xa0 && r <= 0xff:
		return Keysym(r)
	case r == '\b':
		return BackSpace
	case r == '\t':
		return Tab
	case r == '\n':
		return Linefeed
	case r == '\r':
		return Return
	case r == 0x1b:
		return Escape
	case r == 0x7f:
		return Delete
	}
	return Keysym(unicodeOffset + uint32(r))
}

func (ks Keysym) String() string {
	if name, ok := names[ks]; ok {
		return name
	}
	if r := ToUnicode(ks); r > 0x20 {
		return fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf("0x%04x", uint32(ks))
}

var names = map[Keysym]string{
	BackSpace: "BackSpace",
	Tab:       "Tab",
	Linefeed:  "Linefeed",
	Return:    "Return",
	Escape:    "Escape",
	Delete:    "Delete",
	KPSpace:   "KP_Space",
	Hangul:    "Hangul",
	ShiftL:    "Shift_L",
	ShiftR:    "Shift_R",
	CapsLock:  "Caps_Lock",
	Space:     "space",
}
