package settings

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	dconfWriterInterface = "ca.desrt.dconf.Writer"
	dconfNotify          = "Notify"
	dconfNotifyMember    = dconfWriterInterface + "." + dconfNotify
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// GSettings reads keys with the gsettings tool and learns about changes
// from dconf's Notify signal on the session bus.
type GSettings struct {
	run     Runner
	timeout time.Duration
	logger  *slog.Logger
	subs    subscribers

	mu      sync.Mutex
	conn    *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}
}

// GSettingsOption configures a GSettings store.
type GSettingsOption func(*GSettings)

// WithRunner replaces the command runner.
func WithRunner(r Runner) GSettingsOption {
	return func(g *GSettings) { g.run = r }
}

// NewGSettings creates a store. Call Start to receive change notifications.
func NewGSettings(logger *slog.Logger, opts ...GSettingsOption) *GSettings {
	if logger == nil {
		logger = slog.Default()
	}
	g := &GSettings{run: execRunner, timeout: 2 * time.Second, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GSettings) Get(schema, key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	out, err := g.run(ctx, "gsettings", "get", schema, key)
	if err != nil {
		return "", fmt.Errorf("settings: get %s %s: %w", schema, key, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *GSettings) Subscribe(schema string, fn func(key string)) func() {
	return g.subs.add(schema, fn)
}

// Start subscribes to dconf change signals on the session bus.
func (g *GSettings) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return g.StartOn(conn)
}

// StartOn subscribes to dconf change signals on conn.
func (g *GSettings) StartOn(conn *dbus.Conn) error {
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(dconfWriterInterface),
		dbus.WithMatchMember(dconfNotify),
	); err != nil {
		return fmt.Errorf("failed to watch dconf: %w", err)
	}

	g.mu.Lock()
	g.conn = conn
	g.signals = make(chan *dbus.Signal, 16)
	g.done = make(chan struct{})
	signals, done := g.signals, g.done
	g.mu.Unlock()

	conn.Signal(signals)
	go g.signalLoop(signals, done)
	g.logger.Info("watching dconf for settings changes")
	return nil
}

// Stop removes the signal subscription. The connection stays open.
func (g *GSettings) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return
	}
	g.conn.RemoveSignal(g.signals)
	_ = g.conn.RemoveMatchSignal(
		dbus.WithMatchInterface(dconfWriterInterface),
		dbus.WithMatchMember(dconfNotify),
	)
	close(g.done)
	g.conn = nil
}

func (g *GSettings) signalLoop(signals <-chan *dbus.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			g.handleSignal(sig)
		}
	}
}

func (g *GSettings) handleSignal(sig *dbus.Signal) {
	if sig.Name != dconfNotifyMember || len(sig.Body) < 2 {
		return
	}
	prefix, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changes, ok := sig.Body[1].([]string)
	if !ok {
		return
	}
	for _, path := range DconfPaths(prefix, changes) {
		schema, key, ok := SchemaKey(path)
		if !ok {
			continue
		}
		g.logger.Debug("setting changed", "schema", schema, "key", key)
		g.subs.notify(schema, key)
	}
}

// DconfPaths expands a Notify prefix and its relative changes into full
// key paths. An empty change list means the prefix itself changed.
func DconfPaths(prefix string, changes []string) []string {
	if len(changes) == 0 {
		return []string{prefix}
	}
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, prefix+c)
	}
	return out
}

// SchemaPath returns the dconf directory of a schema with a fixed path.
func SchemaPath(schema string) string {
	return "/" + strings.ReplaceAll(schema, ".", "/") + "/"
}

var watchedSchemas = []string{HiraganaSchema, InputSourcesSchema}

// SchemaKey maps a dconf key path to a watched schema and key.
func SchemaKey(path string) (schema, key string, ok bool) {
	for _, s := range watchedSchemas {
		dir := SchemaPath(s)
		rest, found := strings.CutPrefix(path, dir)
		if !found || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		return s, rest, true
	}
	return "", "", false
}
