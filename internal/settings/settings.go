// Package settings reads desktop settings and reports external changes.
package settings

import (
	"fmt"
	"sync"
)

// Schemas and keys read by the keyboard.
const (
	HiraganaSchema = "org.freedesktop.ibus.engine.hiragana"
	KeyMode        = "mode"
	KeyLayout      = "layout"

	InputSourcesSchema = "org.gnome.desktop.input-sources"
	KeyMRUSources      = "mru-sources"
)

// Store is a source of settings values in GVariant text form.
//
// Subscribe callbacks may run on any goroutine.
type Store interface {
	Get(schema, key string) (string, error)
	Subscribe(schema string, fn func(key string)) (cancel func())
}

// GetString reads a string-typed key.
func GetString(s Store, schema, key string) (string, error) {
	text, err := s.Get(schema, key)
	if err != nil {
		return "", err
	}
	v, err := ParseString(text)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", schema, key, err)
	}
	return v, nil
}

// subscribers is a registry of per-schema callbacks.
type subscribers struct {
	mu       sync.Mutex
	next     int
	bySchema map[string]map[int]func(string)
}

func (s *subscribers) add(schema string, fn func(string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bySchema == nil {
		s.bySchema = make(map[string]map[int]func(string))
	}
	if s.bySchema[schema] == nil {
		s.bySchema[schema] = make(map[int]func(string))
	}
	id := s.next
	s.next++
	s.bySchema[schema][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.bySchema[schema], id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify(schema, key string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.bySchema[schema]))
	for _, fn := range s.bySchema[schema] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

func (s *subscribers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.bySchema {
		n += len(m)
	}
	return n
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	subs   subscribers
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// ErrNotSet is returned by Memory for keys that were never set.
type ErrNotSet struct {
	Schema, Key string
}

func (e *ErrNotSet) Error() string {
	return fmt.Sprintf("settings: %s %s is not set", e.Schema, e.Key)
}

func (m *Memory) Get(schema, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[schema+"\x00"+key]
	if !ok {
		return "", &ErrNotSet{Schema: schema, Key: key}
	}
	return v, nil
}

// Set stores GVariant text and notifies subscribers.
func (m *Memory) Set(schema, key, text string) {
	m.mu.Lock()
	m.values[schema+"\x00"+key] = text
	m.mu.Unlock()
	m.subs.notify(schema, key)
}

// SetString stores a string value.
func (m *Memory) SetString(schema, key, value string) {
	m.Set(schema, key, QuoteString(value))
}

func (m *Memory) Subscribe(schema string, fn func(key string)) func() {
	return m.subs.add(schema, fn)
}

// Subscribers returns the number of live subscriptions.
func (m *Memory) Subscribers() int {
	return m.subs.count()
}
