// Package commit delivers committed strings to the focused client.
//
// The virtual keyboard can only type single keys, so a string is placed on
// the clipboard and pasted with Ctrl+V.
package commit

import (
	"fmt"

	"oskim/internal/clipboard"
	"oskim/internal/inject"
	"oskim/internal/keysym"
)

// Sources reports whether the active input source is an input method.
type Sources interface {
	IsIME() bool
}

// Strategy commits strings by clipboard paste.
type Strategy struct {
	clip    clipboard.Clipboard
	inj     inject.Injector
	sources Sources
}

// New creates a strategy. sources may be nil, meaning no IME is active.
func New(clip clipboard.Clipboard, inj inject.Injector, sources Sources) *Strategy {
	return &Strategy{clip: clip, inj: inj, sources: sources}
}

// pasteChord is Ctrl down, V down, V up, Ctrl up. Receivers watch for the
// modifier bracketing so the order is fixed.
var pasteChord = [...]struct {
	code    uint16
	pressed bool
}{
	{keysym.KeyLeftCtrl, true},
	{keysym.KeyV, true},
	{keysym.KeyV, false},
	{keysym.KeyLeftCtrl, false},
}

// Commit pastes text and reports whether it injected anything. Key
// originated text is left to the input method when one is active.
func (s *Strategy) Commit(text string, fromKey bool) (bool, error) {
	if text == "" {
		return false, nil
	}
	if fromKey && s.sources != nil && s.sources.IsIME() {
		return false, nil
	}

	if err := s.clip.SetText(text); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	for i, step := range pasteChord {
		if err := s.inj.InjectKey(step.code, step.pressed); err != nil {
			// Do not leave Ctrl held down.
			if i > 0 && i < len(pasteChord)-1 {
				_ = s.inj.InjectKey(keysym.KeyLeftCtrl, false)
			}
			return false, fmt.Errorf("commit: paste chord: %w", err)
		}
	}
	return true, nil
}
