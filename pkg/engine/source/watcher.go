package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last file event
// before invoking the reload callback.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads rules when files under a path change. Bursts of events
// (editors typically write, rename, and chmod in quick succession) are
// coalesced into a single reload per debounce window.
type Watcher struct {
	path       string
	debounce   time.Duration
	extensions []string
	logger     *slog.Logger

	fs *fsnotify.Watcher

	mu      sync.Mutex
	running bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtensions overrides the watched file extensions.
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) { w.extensions = exts }
}

// NewWatcher creates a watcher over a rule file or directory. Directories
// are watched recursively; hidden entries are skipped.
func NewWatcher(path string, logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		path:       path,
		debounce:   DefaultDebounce,
		extensions: []string{".json"},
		logger:     logger,
		fs:         fs,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches for changes and calls onReload after each debounced burst of
// events. It blocks until the context is cancelled or Close is called.
// Reload failures are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.register(w.path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("watching rule files",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	// The timer is armed on the first relevant event and re-armed on each
	// subsequent one, so the callback fires once per quiet period.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule watcher stopped")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("rule file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := onReload(); err != nil {
				w.logger.Error("rule reload failed", "error", err)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("rule watcher error", "error", err)
		}
	}
}

// Close stops the watcher, unblocking Run.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// register adds the watch path. For directories every non-hidden
// subdirectory is watched; file events arrive through their parent.
func (w *Watcher) register(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fs.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.fs.Add(p)
		}
		return nil
	})
}

// relevant reports whether an event should count toward a reload: writes to
// visible rule files only. Chmod-only events are noise.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, want := range w.extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
