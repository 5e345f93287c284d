// Package inputsource tracks the desktop's most recently used input
// sources.
package inputsource

import (
	"log/slog"
	"sync"

	"oskim/internal/settings"
)

// Source types.
const (
	TypeXkb  = "xkb"
	TypeIBus = "ibus"
)

// Source is one entry of the input-source list.
type Source struct {
	Type string
	ID   string
}

// TypeID returns the "type-id" name used to select a keyboard provider,
// e.g. "ibus-hiragana".
func (s Source) TypeID() string {
	return s.Type + "-" + s.ID
}

// IsIME reports whether the source is an input method.
func (s Source) IsIME() bool {
	return s.Type == TypeIBus
}

// Default is reported when no source is configured.
var Default = Source{Type: TypeXkb, ID: "us"}

// Registry reads mru-sources from a settings store and keeps the last
// good snapshot.
type Registry struct {
	store  settings.Store
	logger *slog.Logger

	mu      sync.RWMutex
	sources []Source
	subs    map[int]func([]Source)
	next    int

	cancel func()
}

// NewRegistry creates a registry and loads the current list.
func NewRegistry(store settings.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{store: store, logger: logger, subs: make(map[int]func([]Source))}
	r.Refresh()
	return r
}

// Start subscribes to input-source changes.
func (r *Registry) Start() {
	r.cancel = r.store.Subscribe(settings.InputSourcesSchema, func(key string) {
		if key != settings.KeyMRUSources {
			return
		}
		r.Refresh()
	})
}

// Stop cancels the settings subscription.
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Refresh rereads the source list and notifies subscribers when it
// changed. Read errors keep the previous list.
func (r *Registry) Refresh() {
	text, err := r.store.Get(settings.InputSourcesSchema, settings.KeyMRUSources)
	if err != nil {
		r.logger.Warn("failed to read input sources", "error", err)
		return
	}
	pairs, err := settings.ParseStringPairs(text)
	if err != nil {
		r.logger.Warn("failed to parse input sources", "value", text, "error", err)
		return
	}
	sources := make([]Source, len(pairs))
	for i, p := range pairs {
		sources[i] = Source{Type: p[0], ID: p[1]}
	}

	r.mu.Lock()
	if equal(r.sources, sources) {
		r.mu.Unlock()
		return
	}
	r.sources = sources
	fns := make([]func([]Source), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	r.logger.Debug("input sources changed", "current", r.Current().TypeID())
	for _, fn := range fns {
		fn(r.Sources())
	}
}

func equal(a, b []Source) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Sources returns a copy of the list, most recent first.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}

// Current returns the most recently used source.
func (r *Registry) Current() Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.sources) == 0 {
		return Default
	}
	return r.sources[0]
}

// IsIME reports whether the current source is an input method.
func (r *Registry) IsIME() bool {
	return r.Current().IsIME()
}

// XkbLayout returns the most recently used xkb layout, "us" if none.
func (r *Registry) XkbLayout() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		if s.Type == TypeXkb {
			return s.ID
		}
	}
	return Default.ID
}

// Subscribe registers fn for list changes. fn runs on the goroutine that
// delivered the settings change.
func (r *Registry) Subscribe(fn func([]Source)) (cancel func()) {
	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}
