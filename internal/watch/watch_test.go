package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaproute/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRefresher struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingRefresher) RefreshSource(path string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return []uuid.UUID{uuid.New()}
}

func (r *recordingRefresher) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, refresher Refresher, paths ...string) {
	t.Helper()
	w, err := New(Config{Debounce: 20 * time.Millisecond, Logger: testutil.NewTestLogger(t)}, refresher)
	require.NoError(t, err)
	for _, p := range paths {
		require.NoError(t, w.Add(p))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		_ = w.Close()
	})
}

func TestWatcher_RefreshesChangedSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(source, []byte("a\n1\n"), 0o644))

	refresher := &recordingRefresher{}
	startWatcher(t, refresher, source)

	require.NoError(t, os.WriteFile(source, []byte("a\n1\n2\n"), 0o644))

	require.Eventually(t, func() bool { return len(refresher.calls()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, source, refresher.calls()[0])
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(source, []byte("a\n1\n"), 0o644))

	refresher := &recordingRefresher{}
	startWatcher(t, refresher, source)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	assert.Never(t, func() bool { return len(refresher.calls()) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(source, nil, 0o644))

	refresher := &recordingRefresher{}
	w, err := New(Config{Debounce: 150 * time.Millisecond}, refresher)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	require.NoError(t, w.Add(source))

	abs, err := filepath.Abs(source)
	require.NoError(t, err)
	for range 5 {
		w.schedule(abs)
	}

	require.Eventually(t, func() bool { return len(refresher.calls()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return len(refresher.calls()) > 1 }, 300*time.Millisecond, 20*time.Millisecond)
}

func TestWatcher_AddTracksSources(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{}, &recordingRefresher{})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Add(filepath.Join(dir, "a.csv")))
	require.NoError(t, w.Add(filepath.Join(dir, "b.csv")))
	assert.Len(t, w.Sources(), 2)
	assert.Len(t, w.dirs, 1)

	assert.Error(t, w.Add(filepath.Join(dir, "missing", "c.csv")))
	assert.Len(t, w.Sources(), 2)
}
