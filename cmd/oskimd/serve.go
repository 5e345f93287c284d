package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"oskim/internal/clipboard"
	"oskim/internal/config"
	"oskim/internal/dbusapi"
	"oskim/internal/inject"
	"oskim/internal/inputsource"
	"oskim/internal/layout"
	"oskim/internal/logging"
	"oskim/internal/modifier"
	"oskim/internal/session"
	"oskim/internal/settings"
)

// layoutSettle is how long a layout file must be quiet before reloading.
const layoutSettle = 200 * time.Millisecond

// ServeCmd runs the keyboard service until interrupted.
type ServeCmd struct {
	DryRun  bool `help:"Record key events instead of injecting them."`
	NoWatch bool `help:"Do not reload the configuration file when it changes."`
}

// Run is called by Kong when the serve command is executed.
func (s *ServeCmd) Run(log *logging.Logger, cfg *config.Config, loader *config.Loader) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	store, stopSettings, err := s.settingsStore(cfg, conn, log)
	if err != nil {
		return err
	}
	defer stopSettings()

	registry := inputsource.NewRegistry(store, log.Component("inputsource"))
	registry.Start()
	defer registry.Stop()

	injector, err := s.injector(cfg, registry.XkbLayout, log)
	if err != nil {
		return err
	}
	defer injector.Close()

	loop := session.NewLoop(log.Component("session"))
	defer loop.Close()

	path := dbus.ObjectPath(cfg.DBus.ObjectPath)
	signals := dbusapi.NewSignals(conn, path, log.Component("dbus"))
	layouts := layout.NewStore(layout.Resources(config.ExpandPath(cfg.Keyboard.DataDir)), log.Component("layout"))

	manager := session.NewManager(session.Deps{
		Loop:            loop,
		Settings:        store,
		Injector:        injector,
		Clipboard:       clipboardFor(cfg, log.Logger),
		Layouts:         layouts,
		Logger:          log.Component("session"),
		LongPress:       cfg.LongPress(),
		AutoRevertShift: cfg.Keyboard.AutoRevertShift,
		OnLayoutChanged: signals.LayoutChanged,
	}, registry)
	signals.Attach(manager)

	kb := dbusapi.NewKeyboard(loop, manager, log.Component("dbus"))
	srv, err := dbusapi.Serve(conn, cfg.DBus.BusName, path, kb, log.Component("dbus"))
	if err != nil {
		return err
	}
	defer srv.Close()

	manager.Start()
	defer loop.Do(manager.Close)

	if cfg.Modifier.Enabled {
		go s.watchCapsLock(ctx, cfg, loop, manager, log.Component("modifier"))
	}
	if cfg.Keyboard.WatchLayouts && cfg.Keyboard.DataDir != "" {
		go s.watchLayouts(ctx, config.ExpandPath(cfg.Keyboard.DataDir), layouts, loop, manager, log.Logger)
	}
	if !s.NoWatch {
		s.watchConfig(loader, cfg, log)
		defer loader.Close()
	}

	log.Info("oskimd running", "bus_name", cfg.DBus.BusName, "input", cfg.Input.Backend, "settings", cfg.Settings.Backend)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func (s *ServeCmd) settingsStore(cfg *config.Config, conn *dbus.Conn, log *logging.Logger) (settings.Store, func(), error) {
	switch cfg.Settings.Backend {
	case "memory":
		return seedMemory(cfg.Settings), func() {}, nil
	default:
		gs := settings.NewGSettings(log.Component("settings"))
		if err := gs.StartOn(conn); err != nil {
			return nil, nil, fmt.Errorf("watch settings: %w", err)
		}
		return gs, gs.Stop, nil
	}
}

func (s *ServeCmd) injector(cfg *config.Config, layout inject.LayoutFunc, log *logging.Logger) (inject.Injector, error) {
	if s.DryRun || cfg.Input.Backend == "recorder" {
		log.Info("recording key events without injecting them")
		return inject.NewRecorder(), nil
	}
	u, err := inject.OpenUinput(cfg.Input.DeviceName, layout, log.Component("inject"))
	if err != nil {
		return nil, fmt.Errorf("open virtual keyboard: %w", err)
	}
	return u, nil
}

func clipboardFor(cfg *config.Config, logger *slog.Logger) clipboard.Clipboard {
	if cfg.Clipboard.Backend == "memory" {
		return &clipboard.Memory{}
	}
	cmd, err := clipboard.NewCommand(cfg.Clipboard.Command)
	if err != nil {
		// Commits fail until a clipboard tool is installed; keys still work.
		logger.Warn("no clipboard tool, string commits are disabled", "error", err)
		return unavailableClipboard{err: err}
	}
	return cmd
}

type unavailableClipboard struct{ err error }

func (u unavailableClipboard) SetText(string) error { return u.err }

// seedMemory builds a memory settings store from the config file, for
// desktops without gsettings.
func seedMemory(sc config.SettingsConfig) *settings.Memory {
	m := settings.NewMemory()
	if sc.Mode != "" {
		m.SetString(settings.HiraganaSchema, settings.KeyMode, sc.Mode)
	}
	if sc.Layout != "" {
		m.SetString(settings.HiraganaSchema, settings.KeyLayout, sc.Layout)
	}
	if len(sc.Sources) > 0 {
		m.Set(settings.InputSourcesSchema, settings.KeyMRUSources, mruText(sc.Sources))
	}
	return m
}

// mruText renders "type:id" entries as GVariant a(ss) text.
func mruText(sources []string) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		typ, id, _ := strings.Cut(src, ":")
		parts = append(parts, "("+settings.QuoteString(typ)+", "+settings.QuoteString(id)+")")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s *ServeCmd) watchCapsLock(ctx context.Context, cfg *config.Config, loop *session.Loop, m *session.Manager, logger *slog.Logger) {
	defer logging.Recover(logger, "caps lock observer")
	caps := modifier.NewCapsLock(cfg.Modifier.DeviceGlob, logger)
	observeCapsLock(ctx, caps, func(on bool) {
		loop.Post(func() { m.CapsLockChanged(on) })
	}, logger)
}

type capsObserver interface {
	Run(ctx context.Context, fn func(on bool)) error
}

// observeCapsLock runs obs until it stops and reports why. Without a Caps
// Lock LED the toggle key on non-jp layouts follows only the IME mode.
func observeCapsLock(ctx context.Context, obs capsObserver, changed func(on bool), logger *slog.Logger) {
	err := obs.Run(ctx, changed)
	switch {
	case errors.Is(err, modifier.ErrNoLED):
		logger.Warn("caps lock sync disabled, the latin/kana toggle follows only the IME mode",
			"error", err, "hint", "a keyboard with a caps lock LED must be readable, e.g. by the input group")
	case err != nil:
		logger.Warn("caps lock observer stopped", "error", err)
	}
}

func (s *ServeCmd) watchLayouts(ctx context.Context, dataDir string, layouts *layout.Store, loop *session.Loop, m *session.Manager, logger *slog.Logger) {
	defer logging.Recover(logger, "layout watcher")
	err := layouts.Watch(ctx, dataDir, layoutSettle, func() {
		loop.Post(func() {
			if active := m.Active(); active != nil {
				active.ReloadLayout()
			}
		})
	})
	if err != nil {
		logger.Warn("layout watcher stopped", "error", err)
	}
}

// watchConfig applies the log level of a changed config file. Other
// sections take effect on restart.
func (s *ServeCmd) watchConfig(loader *config.Loader, cfg *config.Config, log *logging.Logger) {
	loader.OnChange(func(next *config.Config) {
		level, err := logging.ParseLevel(next.Logging.Level)
		if err == nil {
			log.SetLevel(level)
		}
		log.Info("configuration reloaded", "path", loader.Path(), "log_level", next.Logging.Level)
		if next.Keyboard != cfg.Keyboard || next.Input != cfg.Input || next.DBus != cfg.DBus {
			log.Warn("restart oskimd to apply keyboard and input changes")
		}
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config file is not watched", "path", loader.Path(), "error", err)
		return
	}
	go func() {
		for err := range loader.Errors() {
			log.Warn("config reload failed", "error", err)
		}
	}()
}
