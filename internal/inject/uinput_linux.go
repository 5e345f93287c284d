//go:build linux

package inject

import (
	"fmt"
	"log/slog"
	"sync"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"oskim/internal/keysym"
)

// DevicePath is the uinput control node go-evdev creates devices on.
const DevicePath = "/dev/uinput"

const busVirtual = 0x06

// eventWriter is the part of an evdev device the injector writes to.
type eventWriter interface {
	WriteOne(event *evdev.InputEvent) error
	Close() error
}

// Uinput injects events through a kernel virtual keyboard. Keysyms are
// typed as the key that produces them on the active xkb layout.
type Uinput struct {
	mu     sync.Mutex
	dev    eventWriter
	layout LayoutFunc
	held   map[keysym.Keysym]keysym.Stroke
	logger *slog.Logger
}

// OpenUinput creates a virtual keyboard named name. layout may be nil,
// which types everything on the US map.
func OpenUinput(name string, layout LayoutFunc, logger *slog.Logger) (*Uinput, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := unix.Access(DevicePath, unix.W_OK); err != nil {
		return nil, fmt.Errorf("%s not writable: %w", DevicePath, err)
	}
	keys := make([]evdev.EvCode, 0, evdev.KEY_MICMUTE)
	for code := evdev.EvCode(evdev.KEY_ESC); code <= evdev.KEY_MICMUTE; code++ {
		keys = append(keys, code)
	}
	dev, err := evdev.CreateDevice(name,
		evdev.InputID{BusType: busVirtual, Vendor: 0x1, Product: 0x1, Version: 1},
		map[evdev.EvType][]evdev.EvCode{evdev.EV_KEY: keys})
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	logger.Info("virtual keyboard created", "name", name)
	return newUinput(dev, layout, logger), nil
}

func newUinput(dev eventWriter, layout LayoutFunc, logger *slog.Logger) *Uinput {
	if layout == nil {
		layout = func() string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uinput{
		dev:    dev,
		layout: layout,
		held:   make(map[keysym.Keysym]keysym.Stroke),
		logger: logger,
	}
}

func (u *Uinput) key(code uint16, pressed bool) error {
	var value int32
	if pressed {
		value = 1
	}
	err := u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.EvCode(code), Value: value})
	if err != nil {
		return fmt.Errorf("inject key %d: %w", code, err)
	}
	return u.dev.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT})
}

func (u *Uinput) InjectKey(code uint16, pressed bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return ErrClosed
	}
	return u.key(code, pressed)
}

// InjectKeysym types ks. Shifted symbols are bracketed by left shift on
// press and release. A release uses the stroke of its press even if the
// layout changed in between.
func (u *Uinput) InjectKeysym(ks keysym.Keysym, pressed bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return ErrClosed
	}

	stroke, ok := u.held[ks]
	if pressed || !ok {
		km := keysym.KeymapFor(u.layout())
		stroke, ok = km.Lookup(ks)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnmappedKeysym, ks, km.Name())
		}
	}

	if pressed {
		u.held[ks] = stroke
		if stroke.Shift {
			if err := u.key(keysym.KeyLeftShift, true); err != nil {
				return err
			}
		}
		return u.key(stroke.Code, true)
	}

	delete(u.held, ks)
	if err := u.key(stroke.Code, false); err != nil {
		return err
	}
	if stroke.Shift {
		return u.key(keysym.KeyLeftShift, false)
	}
	return nil
}

func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return nil
	}
	err := u.dev.Close()
	u.dev = nil
	return err
}
