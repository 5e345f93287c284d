// Package clipboard places committed text on the system clipboard.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNoBackend is returned when no clipboard tool is available.
var ErrNoBackend = errors.New("clipboard: no clipboard command available")

// Clipboard accepts text for pasting.
type Clipboard interface {
	SetText(text string) error
}

// Command writes the clipboard by piping text into an external tool.
type Command struct {
	argv    []string
	timeout time.Duration
}

// DefaultTimeout bounds a single clipboard write.
const DefaultTimeout = 2 * time.Second

// NewCommand returns a backend for command, a whitespace-separated argv.
// An empty command selects wl-copy under Wayland and xclip otherwise.
func NewCommand(command string) (*Command, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		argv = Detect(os.Getenv)
	}
	if len(argv) == 0 {
		return nil, ErrNoBackend
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, argv[0])
	}
	return &Command{argv: argv, timeout: DefaultTimeout}, nil
}

// Detect picks the clipboard tool for the current display server.
func Detect(getenv func(string) string) []string {
	switch {
	case getenv("WAYLAND_DISPLAY") != "":
		return []string{"wl-copy", "--type", "text/plain;charset=utf-8"}
	case getenv("DISPLAY") != "":
		return []string{"xclip", "-selection", "clipboard", "-in"}
	default:
		return nil
	}
}

// Argv returns the command line used for writes.
func (c *Command) Argv() []string {
	return append([]string(nil), c.argv...)
}

func (c *Command) SetText(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard: %s: %w: %s", c.argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Memory is an in-process clipboard.
type Memory struct {
	mu   sync.Mutex
	text string
	sets int
	err  error
}

func (m *Memory) SetText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.text = text
	m.sets++
	return nil
}

// Text returns the last text set.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Sets returns how many writes succeeded.
func (m *Memory) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// FailWith makes subsequent writes return err.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
