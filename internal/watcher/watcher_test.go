package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ibus-hiragana.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"map":[]}`), 0600))

	h1, err := HashFile(path)
	require.NoError(t, err)
	h2, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(path, []byte(`{"map":[["a","b"]]}`), 0600))
	h3, err := HashFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestHashFileNotFound(t *testing.T) {
	_, err := HashFile("/nonexistent/file.json")
	assert.Error(t, err)
}

func TestWatcherReportsSettledWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ibus-hiragana.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	w, err := New([]string{dir}, 50*time.Millisecond, func(p string) bool {
		return filepath.Base(p) == "ibus-hiragana.json"
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0600))
	require.NoError(t, os.WriteFile(path, []byte(`{"map":[]}`), 0600))

	select {
	case ev := <-w.Events():
		assert.Equal(t, "ibus-hiragana.json", filepath.Base(ev.Path))
	case <-time.After(3 * time.Second):
		t.Fatal("no event for settled write")
	}
}

func TestWatcherSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ibus-hiragana.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	w, err := New([]string{dir}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}
}
