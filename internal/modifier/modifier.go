// Package modifier observes the hardware Caps Lock state.
package modifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	evdev "github.com/holoplot/go-evdev"
)

// DefaultDeviceGlob matches every evdev node.
const DefaultDeviceGlob = "/dev/input/event*"

// ErrNoLED is returned when no input device has a Caps Lock LED.
var ErrNoLED = errors.New("modifier: no input device with a caps lock LED")

// Device is the part of an evdev input device the observer reads.
type Device interface {
	CapableEvents(t evdev.EvType) []evdev.EvCode
	State(t evdev.EvType) (evdev.StateMap, error)
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// OpenFunc opens the input device node at path.
type OpenFunc func(path string) (Device, error)

func openEvdev(path string) (Device, error) {
	d, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CapsLock follows the Caps Lock LED of every keyboard. Caps Lock is on
// when any LED is lit.
type CapsLock struct {
	glob   string
	open   OpenFunc
	logger *slog.Logger
}

// NewCapsLock creates an observer over the nodes matching glob. An empty
// glob uses DefaultDeviceGlob.
func NewCapsLock(glob string, logger *slog.Logger) *CapsLock {
	if glob == "" {
		glob = DefaultDeviceGlob
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CapsLock{glob: glob, open: openEvdev, logger: logger}
}

// WithOpener replaces how device nodes are opened.
func (c *CapsLock) WithOpener(open OpenFunc) *CapsLock {
	c.open = open
	return c
}

func hasCapsLED(d Device) bool {
	for _, code := range d.CapableEvents(evdev.EV_LED) {
		if code == evdev.LED_CAPSL {
			return true
		}
	}
	return false
}

func lit(d Device) (bool, error) {
	state, err := d.State(evdev.EV_LED)
	if err != nil {
		return false, err
	}
	return state[evdev.LED_CAPSL], nil
}

func anyOn(states []bool) bool {
	for _, on := range states {
		if on {
			return true
		}
	}
	return false
}

func closeAll(devs []Device) {
	for _, d := range devs {
		_ = d.Close()
	}
}

// devices opens every matched node that has a Caps Lock LED. Nodes that
// cannot be opened are skipped.
func (c *CapsLock) devices() ([]Device, error) {
	paths, err := filepath.Glob(c.glob)
	if err != nil {
		return nil, fmt.Errorf("modifier: %w", err)
	}
	var devs []Device
	for _, p := range paths {
		d, err := c.open(p)
		if err != nil {
			c.logger.Debug("skipping input device", "path", p, "error", err)
			continue
		}
		if !hasCapsLED(d) {
			_ = d.Close()
			continue
		}
		c.logger.Debug("watching caps lock LED", "path", p)
		devs = append(devs, d)
	}
	if len(devs) == 0 {
		return nil, ErrNoLED
	}
	return devs, nil
}

// Read returns the current state.
func (c *CapsLock) Read() (bool, error) {
	devs, err := c.devices()
	if err != nil {
		return false, err
	}
	defer closeAll(devs)

	var lastErr error
	read := 0
	for _, d := range devs {
		on, err := lit(d)
		if err != nil {
			lastErr = err
			continue
		}
		if on {
			return true, nil
		}
		read++
	}
	if read == 0 {
		return false, fmt.Errorf("modifier: %w", lastErr)
	}
	return false, nil
}

type ledChange struct {
	dev int
	on  bool
	err error
}

// Run reports the state once and then on every EV_LED change until ctx
// is done. It fails when no device has the LED or every device is lost.
func (c *CapsLock) Run(ctx context.Context, fn func(on bool)) error {
	devs, err := c.devices()
	if err != nil {
		return err
	}
	defer closeAll(devs)

	states := make([]bool, len(devs))
	for i, d := range devs {
		on, err := lit(d)
		if err != nil {
			c.logger.Warn("caps lock state unreadable", "error", err)
		}
		states[i] = on
	}
	state := anyOn(states)
	fn(state)

	changes := make(chan ledChange)
	send := func(ch ledChange) bool {
		select {
		case changes <- ch:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for i, d := range devs {
		go func() {
			for {
				ev, err := d.ReadOne()
				if err != nil {
					send(ledChange{dev: i, err: err})
					return
				}
				if ev.Type == evdev.EV_LED && ev.Code == evdev.LED_CAPSL {
					if !send(ledChange{dev: i, on: ev.Value != 0}) {
						return
					}
				}
			}
		}()
	}

	live := len(devs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ch := <-changes:
			if ch.err != nil {
				live--
				states[ch.dev] = false
				c.logger.Warn("caps lock device lost", "error", ch.err, "remaining", live)
				if live == 0 {
					return fmt.Errorf("modifier: %w", ch.err)
				}
			} else {
				states[ch.dev] = ch.on
			}
			if on := anyOn(states); on != state {
				state = on
				fn(on)
			}
		}
	}
}
