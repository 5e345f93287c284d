package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"oskim/internal/config"
	"oskim/internal/layout"
)

// CheckLayoutCmd validates a remap table against the resource schema.
type CheckLayoutCmd struct {
	File    string `arg:"" optional:"" type:"path" help:"Remap table file. Defaults to the configured variant."`
	Variant string `help:"IME layout variant to check when no file is given."`
	Dump    bool   `help:"Print every entry."`
}

// Run is called by Kong when the check-layout command is executed.
func (c *CheckLayoutCmd) Run(logger *slog.Logger, cfg *config.Config) error {
	return c.check(os.Stdout, cfg, logger)
}

func (c *CheckLayoutCmd) check(w io.Writer, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		t   *layout.RemapTable
		err error
	)
	if c.File != "" {
		t, err = layout.ReadRemapTable(os.DirFS(filepath.Dir(c.File)), filepath.Base(c.File))
	} else {
		dataDir := config.ExpandPath(cfg.Keyboard.DataDir)
		path := layout.RemapPath(c.Variant)
		t, err = layout.ReadRemapTable(layout.Resources(dataDir), path)
		if errors.Is(err, fs.ErrNotExist) {
			notInstalled(w, dataDir, path)
			return nil
		}
	}
	if err != nil {
		return err
	}

	logger.Debug("remap table valid", "source", t.Source())
	fmt.Fprintf(w, "%s: %d entries\n", t.Source(), t.Len())
	if c.Dump {
		for _, line := range entries(t) {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

// notInstalled explains a variant without a resource. The session loads
// an empty table for it and every key passes through unchanged.
func notInstalled(w io.Writer, dataDir, path string) {
	fmt.Fprintf(w, "%s: not installed, keys pass through unchanged\n", path)
	if dataDir == "" {
		fmt.Fprintf(w, "the built-in layouts provide only %s; set keyboard.data_dir to a directory containing %s\n",
			layout.DefaultRemapPath, path)
		return
	}
	fmt.Fprintf(w, "install it as %s\n", filepath.Join(dataDir, path))
}

func entries(t *layout.RemapTable) []string {
	var lines []string
	t.Each(func(from rune, to string) {
		lines = append(lines, fmt.Sprintf("%c -> %s", from, to))
	})
	sort.Strings(lines)
	return lines
}
