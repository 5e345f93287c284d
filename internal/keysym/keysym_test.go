package keysym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToUnicode(t *testing.T) {
	tests := []struct {
		ks   Keysym
		want rune
	}{
		{Keysym('a'), 'a'},
		{Keysym('~'), '~'},
		{Space, ' '},
		{Keysym(0xe9), 'é'},
		{Keysym(0x01003042), 'あ'},
		{Keysym(0x0100ff71), 'ｱ'},
		{Keysym(0x04a1), '｡'},
		{Keysym(0x04b1), 'ｱ'},
		{Keysym(0x04dd), 'ﾝ'},
		{Keysym(0x04df), 'ﾟ'},
		{Keysym(0x047e), '‾'},
		{Keysym(0x04e0), 0},
		{Tab, '\t'},
		{Return, '\r'},
		{CapsLock, 0},
		{Hangul, 0},
		{ShiftR, 0},
	}
	for _, tt := range tests {
		t.Run(tt.ks.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ToUnicode(tt.ks))
		})
	}
}

func TestFromUnicodeRoundTrip(t *testing.T) {
	for _, r := range []rune{'a', 'Z', '0', ' ', '/', 'é', 'あ', 'ア', 'ｱ', '゛', '\t', '\r'} {
		assert.Equal(t, r, ToUnicode(FromUnicode(r)), "rune %q", r)
	}
	assert.Equal(t, Keysym(0x01003061), FromUnicode('ち'))
	assert.Equal(t, Keysym('q'), FromUnicode('q'))
}

func TestLookup(t *testing.T) {
	s, ok := US.Lookup(Keysym('v'))
	assert.True(t, ok)
	assert.Equal(t, Stroke{Code: KeyV}, s)

	s, ok = US.Lookup(Keysym('A'))
	assert.True(t, ok)
	assert.Equal(t, Stroke{Code: 30, Shift: true}, s)

	s, ok = US.Lookup(Keysym('7'))
	assert.True(t, ok)
	assert.Equal(t, uint16(8), s.Code)

	s, ok = US.Lookup(Keysym(':'))
	assert.True(t, ok)
	assert.Equal(t, Stroke{Code: 39, Shift: true}, s)

	s, ok = US.Lookup(CapsLock)
	assert.True(t, ok)
	assert.Equal(t, KeyCapsLock, s.Code)

	_, ok = US.Lookup(FromUnicode('あ'))
	assert.False(t, ok)
}

func TestLookupJapanese(t *testing.T) {
	tests := []struct {
		r    rune
		want Stroke
	}{
		{'@', Stroke{Code: 26}},
		{'^', Stroke{Code: 13}},
		{'[', Stroke{Code: 27}},
		{']', Stroke{Code: 43}},
		{'\\', Stroke{Code: 89}},
		{':', Stroke{Code: 40}},
		{'"', Stroke{Code: 3, Shift: true}},
		{'&', Stroke{Code: 7, Shift: true}},
		{'_', Stroke{Code: 89, Shift: true}},
		{'|', Stroke{Code: 124, Shift: true}},
		{'a', Stroke{Code: 30}},
		{'Q', Stroke{Code: 16, Shift: true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			s, ok := JP.Lookup(FromUnicode(tt.r))
			assert.True(t, ok)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestLayoutsDiffer(t *testing.T) {
	// The remap targets sit on different keys per layout.
	for _, r := range []rune{'@', '^', '[', '\\'} {
		us, _ := US.Lookup(FromUnicode(r))
		jp, _ := JP.Lookup(FromUnicode(r))
		assert.NotEqual(t, us, jp, "rune %q", r)
	}
}

func TestKeymapFor(t *testing.T) {
	assert.Same(t, JP, KeymapFor("jp"))
	assert.Same(t, JP, KeymapFor("jp+kana"))
	assert.Same(t, JP, KeymapFor("jp(OADG109A)"))
	assert.Same(t, US, KeymapFor("us"))
	assert.Same(t, US, KeymapFor("us+dvorak"))
	assert.Same(t, US, KeymapFor(""))
	assert.Equal(t, "jp", KeymapFor("jp+kana").Name())
}

func TestString(t *testing.T) {
	assert.Equal(t, "Caps_Lock", CapsLock.String())
	assert.Equal(t, "'a'", Keysym('a').String())
	assert.Equal(t, "0xfe03", Keysym(0xfe03).String())
}
