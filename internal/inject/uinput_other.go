//go:build !linux

package inject

import (
	"errors"
	"log/slog"

	"oskim/internal/keysym"
)

// DevicePath is the uinput control node.
const DevicePath = "/dev/uinput"

// Uinput is only available on Linux.
type Uinput struct{}

// OpenUinput always fails off Linux.
func OpenUinput(name string, layout LayoutFunc, logger *slog.Logger) (*Uinput, error) {
	return nil, errors.New("inject: uinput requires linux")
}

func (u *Uinput) InjectKey(code uint16, pressed bool) error { return ErrClosed }
func (u *Uinput) InjectKeysym(ks keysym.Keysym, pressed bool) error { return ErrClosed }
func (u *Uinput) Close() error { return nil }
