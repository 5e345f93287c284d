// Package inject synthesizes key events through a virtual input device.
package inject

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"oskim/internal/keysym"
)

var (
	// ErrUnmappedKeysym is returned for a keysym the device cannot type.
	ErrUnmappedKeysym = errors.New("inject: keysym has no keycode")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("inject: injector closed")
)

// Injector delivers key events to the focused client. Every event carries
// an implicit monotonic timestamp.
type Injector interface {
	InjectKey(code uint16, pressed bool) error
	InjectKeysym(ks keysym.Keysym, pressed bool) error
	Close() error
}

// LayoutFunc reports the active xkb layout id, such as "us" or "jp".
type LayoutFunc func() string

// Event is one injected key event.
type Event struct {
	Time    time.Time
	Code    uint16
	Keysym  keysym.Keysym
	Pressed bool
}

// IsKeysym reports whether the event was injected by keysym.
func (e Event) IsKeysym() bool {
	return e.Keysym != 0
}

func (e Event) String() string {
	dir := "up"
	if e.Pressed {
		dir = "down"
	}
	if e.IsKeysym() {
		return fmt.Sprintf("%s %s", e.Keysym, dir)
	}
	return fmt.Sprintf("key%d %s", e.Code, dir)
}

// Recorder is an Injector that keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent injections return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *Recorder) InjectKey(code uint16, pressed bool) error {
	return r.record(Event{Code: code, Pressed: pressed})
}

func (r *Recorder) InjectKeysym(ks keysym.Keysym, pressed bool) error {
	return r.record(Event{Keysym: ks, Pressed: pressed})
}

func (r *Recorder) record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.err != nil {
		return r.err
	}
	ev.Time = time.Now()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
