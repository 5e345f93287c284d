// Package watcher reports settled changes to layout resource files.
package watcher

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a file whose content changed and then stayed put for the
// debounce interval.
type Event struct {
	Path      string
	Hash      [32]byte
	Timestamp time.Time
}

// Watcher monitors a set of directories for resource changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dirs      []string
	settle    time.Duration
	tick      time.Duration
	match     func(path string) bool

	// path -> time of the most recent write
	pending   map[string]time.Time
	pendingMu sync.Mutex

	// path -> content hash last reported
	seen map[string][32]byte

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over dirs. Only paths accepted by match are
// reported; a nil match accepts every file.
func New(dirs []string, settle time.Duration, match func(path string) bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = 200 * time.Millisecond
	}
	if match == nil {
		match = func(string) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dirs:      dirs,
		settle:    settle,
		tick:      settle / 2,
		match:     match,
		pending:   make(map[string]time.Time),
		seen:      make(map[string][32]byte),
		events:    make(chan Event, 16),
		errors:    make(chan error, 4),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of settled changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start adds every directory and begins delivering events. Existing files
// are hashed so that an unchanged rewrite is not reported.
func (w *Watcher) Start() error {
	for _, dir := range w.dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := w.fsWatcher.Add(abs); err != nil {
			return err
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := filepath.Join(abs, entry.Name())
			if entry.IsDir() || !w.match(path) {
				continue
			}
			if hash, err := HashFile(path); err == nil {
				w.seen[path] = hash
			}
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.settleLoop()
	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			// Editors often replace the file with a rename.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.match(event.Name) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) settleLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.flushSettled(now)
		}
	}
}

// flushSettled reports files that have not been written for the settle
// interval. Hashing happens outside the lock.
func (w *Watcher) flushSettled(now time.Time) {
	threshold := now.Add(-w.settle)

	var settled []string
	w.pendingMu.Lock()
	for path, lastMod := range w.pending {
		if lastMod.Before(threshold) {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range settled {
		hash, err := HashFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				delete(w.seen, path)
				continue
			}
			select {
			case w.errors <- err:
			default:
			}
			continue
		}
		if prev, ok := w.seen[path]; ok && prev == hash {
			continue
		}
		w.seen[path] = hash

		select {
		case w.events <- Event{Path: path, Hash: hash, Timestamp: now}:
		case <-w.done:
			return
		}
	}
}

// HashFile computes the SHA-256 of a file by streaming it.
func HashFile(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return w.dirs
}
