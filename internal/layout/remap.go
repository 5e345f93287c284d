package layout

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Resource paths of the IBus Hiragana layouts, relative to the data dir.
const (
	DefaultRemapPath  = "layouts/ibus-hiragana.json"
	StickneyRemapPath = "layouts/ibus-hiragana+new_stickney.json"

	// VariantNewStickney selects the New Stickney kana arrangement.
	VariantNewStickney = "new_stickney"
)

// ErrResourceUnavailable wraps every failure to load a remap resource.
var ErrResourceUnavailable = errors.New("remap resource unavailable")

//go:embed remap.schema.json
var remapSchemaJSON string

//go:embed data
var builtinData embed.FS

// Builtin returns the layout resources compiled into the binary.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinData, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Resources returns the resource tree rooted at dataDir, or the builtin
// resources when dataDir is empty.
func Resources(dataDir string) fs.FS {
	if dataDir == "" {
		return Builtin()
	}
	return os.DirFS(dataDir)
}

var (
	remapSchema     *jsonschema.Schema
	remapSchemaOnce sync.Once
	remapSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	remapSchemaOnce.Do(func() {
		remapSchema, remapSchemaErr = jsonschema.CompileString("remap.schema.json", remapSchemaJSON)
	})
	return remapSchema, remapSchemaErr
}

// RemapTable maps a typed character to the character the IME layout
// expects. A table is immutable once built; the nil table is empty.
type RemapTable struct {
	entries map[rune]string
	source  string
}

// NewRemapTable builds a table from entries. The map is copied.
func NewRemapTable(source string, entries map[rune]string) *RemapTable {
	m := make(map[rune]string, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &RemapTable{entries: m, source: source}
}

// Lookup returns the replacement for r.
func (t *RemapTable) Lookup(r rune) (string, bool) {
	if t == nil || r == 0 {
		return "", false
	}
	s, ok := t.entries[r]
	return s, ok
}

// Len returns the number of entries.
func (t *RemapTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Source returns the resource path the table was loaded from.
func (t *RemapTable) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// RemapPath returns the resource path for a layout variant.
func RemapPath(variant string) string {
	if variant == VariantNewStickney {
		return StickneyRemapPath
	}
	return DefaultRemapPath
}

// LoadRemapTable loads the remap table for variant from fsys. Failures are
// logged and produce an empty table so translation degrades to pass-through.
func LoadRemapTable(fsys fs.FS, variant string, logger *slog.Logger) *RemapTable {
	if logger == nil {
		logger = slog.Default()
	}
	path := RemapPath(variant)
	t, err := ReadRemapTable(fsys, path)
	if err != nil {
		logger.Warn("falling back to pass-through translation", "path", path, "error", err)
		return NewRemapTable(path, nil)
	}
	logger.Info("loaded remap table", "path", path, "entries", t.Len())
	return t
}

// ReadRemapTable reads and validates the resource at path.
func ReadRemapTable(fsys fs.FS, path string) (*RemapTable, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	return ParseRemapTable(path, data)
}

// ParseRemapTable validates data against the remap schema and builds a
// table. A document without a "map" member yields an empty table.
func ParseRemapTable(source string, data []byte) (*RemapTable, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrResourceUnavailable, source, err)
	}
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile remap schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: validate %s: %w", ErrResourceUnavailable, source, err)
	}

	var layout struct {
		Map [][]string `json:"map"`
	}
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrResourceUnavailable, source, err)
	}

	entries := make(map[rune]string, len(layout.Map))
	for i, pair := range layout.Map {
		from, to := pair[0], pair[1]
		if utf8.RuneCountInString(from) != 1 || to == "" {
			return nil, fmt.Errorf("%w: %s: entry %d is not a single-character mapping", ErrResourceUnavailable, source, i)
		}
		r, _ := utf8.DecodeRuneInString(from)
		entries[r] = to
	}
	return &RemapTable{entries: entries, source: source}, nil
}

// Each calls fn for every entry in unspecified order.
func (t *RemapTable) Each(fn func(from rune, to string)) {
	if t == nil {
		return
	}
	for from, to := range t.entries {
		fn(from, to)
	}
}

// String summarizes the table.
func (t *RemapTable) String() string {
	if t.Len() == 0 {
		return "remap{}"
	}
	return fmt.Sprintf("remap{%s: %d entries}", t.source, t.Len())
}
