package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"deskloop/internal/action"
)

type fakeRegistry struct {
	mu      sync.Mutex
	actions []recorded
}

type recorded struct {
	typ     action.Type
	details map[string]any
}

func (f *fakeRegistry) Register(actionType action.Type, details map[string]any, source action.Source, metadata map[string]any) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, recorded{typ: actionType, details: details})
	return uint64(len(f.actions)), nil
}

func (f *fakeRegistry) snapshot() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recorded, len(f.actions))
	copy(out, f.actions)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestObserver_EmitsFileCreated(t *testing.T) {
	dir := t.TempDir()
	reg := &fakeRegistry{}
	obs := New(reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := obs.Watch(ctx, []string{dir}); err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	defer obs.Stop()

	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(reg.snapshot()) > 0
	})

	found := false
	for _, a := range reg.snapshot() {
		if a.typ == action.TypeFileCreated && a.details["src_path"] == path {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a file_created action for %s, got %+v", path, reg.snapshot())
	}
}

func TestObserver_RebuildsWatchesOnReconfigure(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	reg := &fakeRegistry{}
	obs := New(reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := obs.Watch(ctx, []string{dirA}); err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if err := obs.Watch(ctx, []string{dirB}); err != nil {
		t.Fatalf("re-Watch returned error: %v", err)
	}
	defer obs.Stop()

	if err := os.WriteFile(filepath.Join(dirA, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dirB, "seen.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(reg.snapshot()) > 0
	})
	time.Sleep(100 * time.Millisecond)

	for _, a := range reg.snapshot() {
		if a.details["src_path"] == filepath.Join(dirA, "ignored.txt") {
			t.Fatal("expected old watch directory to be torn down")
		}
	}
}

func TestClassify(t *testing.T) {
	if got := classify(fsnotify.Chmod); got != "modified" {
		t.Fatalf("expected unknown op to classify as modified, got %q", got)
	}
}
