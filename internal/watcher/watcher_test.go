package watcher_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/watcher"
)

func start(t *testing.T, dir string) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(watcher.Config{Dir: dir, DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err)
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "view.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	onChange := start(t, dir)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("v%d: {}", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	swap := filepath.Join(dir, ".view.yaml.swp")
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0o644))
	onChange := start(t, dir)

	require.NoError(t, os.WriteFile(other, []byte("changed"), 0o644))
	require.NoError(t, os.WriteFile(swap, []byte("swap"), 0o644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_NotifiesOnRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	onChange := start(t, dir)

	require.NoError(t, os.Remove(path))

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for removed definition")
	}
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestWatcher_Stop(t *testing.T) {
	w, err := watcher.New(watcher.Config{Dir: t.TempDir(), DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload() error {
	r.calls.Add(1)
	return r.err
}

func TestRun_ReloadsPerSignal(t *testing.T) {
	changes := make(chan struct{})
	r := &countingReloader{err: errors.New("broken yaml")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Run(ctx, changes, r)
		close(done)
	}()

	changes <- struct{}{}
	changes <- struct{}{}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	require.Equal(t, int32(2), r.calls.Load())
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/etc/pagetypes/builtins")

	assert.Equal(t, "/etc/pagetypes/builtins", cfg.Dir)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDur)
}
