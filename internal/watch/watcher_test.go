package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReloader struct {
	mu      sync.Mutex
	paths   []string
	reloads int
}

func (f *fakeReloader) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeReloader) Reload(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return 3, nil
}

func (f *fakeReloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

func startWatcher(t *testing.T, r *fakeReloader) *Watcher {
	t.Helper()
	w, err := New(r, 50*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	return w
}

func TestNew(t *testing.T) {
	_, err := New(nil, 0, nil)
	assert.Error(t, err)

	w, err := New(&fakeReloader{}, 0, nil)
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	r := &fakeReloader{paths: []string{path}}
	w := startWatcher(t, r)

	// Several writes inside the debounce window collapse into one reload.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("two"), 0o600))
	}

	select {
	case ev := <-w.Events():
		assert.Equal(t, []string{path}, ev.Changed)
		assert.Equal(t, 3, ev.Chunks)
		assert.NoError(t, ev.Err)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, r.count())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	r := &fakeReloader{paths: []string{path}}
	w := startWatcher(t, r)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected reload for %v", ev.Changed)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 0, r.count())
}

func TestWatcher_Add(t *testing.T) {
	r := &fakeReloader{}
	w := startWatcher(t, r)

	dir := t.TempDir()
	path := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))
	require.NoError(t, w.Add(path))
	require.NoError(t, w.Add(filepath.Join(dir, "c.txt")))
	assert.Len(t, w.dirs, 1)

	r.mu.Lock()
	r.paths = []string{path}
	r.mu.Unlock()

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o600))
	select {
	case ev := <-w.Events():
		assert.Equal(t, []string{path}, ev.Changed)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}

	assert.Error(t, w.Add(filepath.Join(dir, "missing", "d.txt")))
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := New(&fakeReloader{}, time.Millisecond, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
