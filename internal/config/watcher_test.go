package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var mu sync.Mutex
	var reloaded Config
	got := make(chan struct{}, 4)

	w, err := NewWatcher(path, func(cfg Config, _ Metadata) {
		mu.Lock()
		reloaded = cfg
		mu.Unlock()
		got <- struct{}{}
	}, WithWatchDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("backend:\n  port: 9200\n"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if reloaded.Backend.Port != 9200 {
		t.Fatalf("expected reloaded port 9200, got %d", reloaded.Backend.Port)
	}
}

func TestNewWatcher_RejectsEmptyPath(t *testing.T) {
	if _, err := NewWatcher("", func(Config, Metadata) {}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
