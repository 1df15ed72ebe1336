package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for SourceWatcher:
// - New fails for a missing root
// - A single change fires one callback after the debounce period
// - Rapid changes to several files are coalesced into one sorted batch
// - The file filter drops unrelated files
// - Rejected directories are not watched
// - Files in directories created after Start are reported
// - Stop is idempotent and safe before Start

const testDebounce = 50 * time.Millisecond

func tsOnly(path string) bool { return strings.HasSuffix(path, ".ts") }

type batches struct {
	mu  sync.Mutex
	got [][]string
	ch  chan struct{}
}

func newBatches() *batches {
	return &batches{ch: make(chan struct{}, 16)}
}

func (b *batches) callback(files []string) {
	b.mu.Lock()
	b.got = append(b.got, files)
	b.mu.Unlock()
	b.ch <- struct{}{}
}

func (b *batches) wait(t *testing.T) {
	t.Helper()
	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
}

func (b *batches) all() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.got...)
}

func startWatcher(t *testing.T, root string, filter Filter) *batches {
	t.Helper()
	w, err := New(root, filter, WithDebounce(testDebounce))
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	b := newBatches()
	require.NoError(t, w.Start(context.Background(), b.callback))
	return b
}

func TestNew_MissingRoot(t *testing.T) {
	t.Parallel()

	w, err := New(filepath.Join(t.TempDir(), "missing"), Filter{})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestWatcher_SingleChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := startWatcher(t, root, Filter{File: tsOnly})

	path := filepath.Join(root, "product.ts")
	require.NoError(t, os.WriteFile(path, []byte("class Product {}"), 0644))

	b.wait(t)
	got := b.all()
	require.Len(t, got, 1)
	assert.Equal(t, []string{path}, got[0])
}

func TestWatcher_CoalescesAndFilters(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := startWatcher(t, root, Filter{File: tsOnly})

	a := filepath.Join(root, "a.ts")
	z := filepath.Join(root, "z.ts")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(z, []byte("x"), 0644))
		require.NoError(t, os.WriteFile(a, []byte("y"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("z"), 0644))
	}

	b.wait(t)
	got := b.all()
	require.Len(t, got, 1)
	assert.Equal(t, []string{a, z}, got[0])
}

func TestWatcher_SkipsRejectedDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ignored := filepath.Join(root, "node_modules")
	require.NoError(t, os.MkdirAll(ignored, 0755))

	b := startWatcher(t, root, Filter{
		Dir:  func(path string) bool { return filepath.Base(path) != "node_modules" },
		File: tsOnly,
	})

	require.NoError(t, os.WriteFile(filepath.Join(ignored, "dep.ts"), []byte("x"), 0644))
	kept := filepath.Join(root, "kept.ts")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0644))

	b.wait(t)
	for _, batch := range b.all() {
		assert.NotContains(t, batch, filepath.Join(ignored, "dep.ts"))
	}
	assert.Contains(t, b.all()[0], kept)
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := startWatcher(t, root, Filter{File: tsOnly})

	sub := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(sub, 0755))
	// Give the watch loop a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "order.ts")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	b.wait(t)
	assert.Contains(t, b.all()[0], path)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	w, err := New(t.TempDir(), Filter{})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())

	started, err := New(t.TempDir(), Filter{})
	require.NoError(t, err)
	require.NoError(t, started.Start(context.Background(), func([]string) {}))
	require.NoError(t, started.Stop())
	assert.NoError(t, started.Stop())
}
