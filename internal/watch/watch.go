// Package watch refreshes routes when their source files change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// DefaultDebounce is the quiet period before a changed source is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// Refresher re-evaluates every route reading path.
type Refresher interface {
	RefreshSource(path string) []uuid.UUID
}

// Config holds watcher configuration.
type Config struct {
	// Debounce is the quiet period per file (default 100ms)
	Debounce time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Watcher watches the directories of route sources and triggers a refresh
// once writes to a source settle.
type Watcher struct {
	fs        *fsnotify.Watcher
	refresher Refresher
	debounce  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	sources map[string]bool // absolute source paths
	dirs    map[string]bool
	timers  map[string]*time.Timer
}

// New creates a watcher. Call Close when done.
func New(cfg Config, refresher Refresher) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fs:        fsw,
		refresher: refresher,
		debounce:  debounce,
		logger:    logger,
		sources:   make(map[string]bool),
		dirs:      make(map[string]bool),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Add starts watching a source file. The containing directory is watched so
// that editors replacing the file by rename are noticed.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sources[abs] = true
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		delete(w.sources, abs)
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	w.logger.Debug("watching source", "path", abs)
	return nil
}

// Sources returns the watched source paths.
func (w *Watcher) Sources() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.sources))
	for p := range w.sources {
		out = append(out, p)
	}
	return out
}

// Run handles file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// schedule (re)starts the debounce timer of a watched source.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.sources[path] {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		routes := w.refresher.RefreshSource(path)
		w.logger.Debug("source changed", "path", path, "routes", len(routes))
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.stopTimers()
	return w.fs.Close()
}
