package layout

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"oskim/internal/watcher"
)

// Store holds the active remap table. Readers never block; every reload
// replaces the whole table.
type Store struct {
	fsys   fs.FS
	logger *slog.Logger

	table atomic.Pointer[RemapTable]
	gen   atomic.Uint64

	mu      sync.Mutex
	variant string
}

// NewStore creates a store reading resources from fsys. The store starts
// with an empty table until the first reload.
func NewStore(fsys fs.FS, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{fsys: fsys, logger: logger}
	s.table.Store(NewRemapTable("", nil))
	return s
}

// Table returns the current table.
func (s *Store) Table() *RemapTable {
	return s.table.Load()
}

// Variant returns the variant of the last requested reload.
func (s *Store) Variant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant
}

// Reload loads the table for variant and swaps it in. Any reload still in
// flight is superseded.
func (s *Store) Reload(variant string) *RemapTable {
	s.begin(variant)
	t := LoadRemapTable(s.fsys, variant, s.logger)
	s.table.Store(t)
	return t
}

// ReloadAsync loads the table for variant on its own goroutine and hands
// the swap to post, which must run it on the event loop. A result whose
// request was superseded by a later one is dropped. done, if set, runs on
// the loop after the swap.
func (s *Store) ReloadAsync(variant string, post func(func()), done func(*RemapTable)) {
	gen := s.begin(variant)
	go func() {
		t := LoadRemapTable(s.fsys, variant, s.logger)
		post(func() {
			if s.gen.Load() != gen {
				s.logger.Debug("dropping stale remap table", "path", t.Source())
				return
			}
			s.table.Store(t)
			if done != nil {
				done(t)
			}
		})
	}()
}

func (s *Store) begin(variant string) uint64 {
	s.mu.Lock()
	s.variant = variant
	s.mu.Unlock()
	return s.gen.Add(1)
}

// Watch reports settled changes to the active remap resource under
// dataDir by calling changed. It returns when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, dataDir string, settle time.Duration, changed func()) error {
	dir := filepath.Join(dataDir, filepath.Dir(DefaultRemapPath))
	w, err := watcher.New([]string{dir}, settle, func(path string) bool {
		return filepath.Base(path) == filepath.Base(RemapPath(s.Variant()))
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	s.logger.Info("watching layout resources", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			s.logger.Info("layout resource changed", "path", ev.Path)
			changed()
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			s.logger.Warn("layout watch error", "error", err)
		}
	}
}
