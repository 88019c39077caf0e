package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWatcherRelevantEvents(t *testing.T) {
	w, err := NewWatcher(".", nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"json write", fsnotify.Event{Name: "rules/income.json", Op: fsnotify.Write}, true},
		{"json create", fsnotify.Event{Name: "rules/income.json", Op: fsnotify.Create}, true},
		{"json remove", fsnotify.Event{Name: "rules/income.json", Op: fsnotify.Remove}, true},
		{"chmod ignored", fsnotify.Event{Name: "rules/income.json", Op: fsnotify.Chmod}, false},
		{"wrong extension", fsnotify.Event{Name: "rules/readme.md", Op: fsnotify.Write}, false},
		{"hidden file", fsnotify.Event{Name: "rules/.income.json", Op: fsnotify.Write}, false},
		{"uppercase extension", fsnotify.Event{Name: "rules/income.JSON", Op: fsnotify.Write}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestWatcherCustomExtensions(t *testing.T) {
	w, err := NewWatcher(".", nil, WithExtensions(".yaml"))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if w.relevant(fsnotify.Event{Name: "a.json", Op: fsnotify.Write}) {
		t.Error("json should not be relevant with .yaml extensions")
	}
	if !w.relevant(fsnotify.Event{Name: "a.yaml", Op: fsnotify.Write}) {
		t.Error("yaml should be relevant")
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule.json")
	if err := os.WriteFile(path, []byte(minimalRule), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewWatcher(dir, nil, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() error {
			atomic.AddInt32(&reloads, 1)
			return nil
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	// A burst of writes inside the debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(minimalRule), 0644); err != nil {
			t.Fatalf("rewrite: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	if got := atomic.LoadInt32(&reloads); got != 1 {
		t.Errorf("reloads = %d, want 1", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestWatcherRejectsDoubleRun(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		_ = w.Run(ctx, func() error { return nil })
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(ctx, func() error { return nil }); err == nil {
		t.Error("second Run should fail while the first is active")
	}
}

func TestWatcherMissingPath(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Run(context.Background(), func() error { return nil }); err == nil {
		t.Error("Run should fail for a missing path")
	}
}
