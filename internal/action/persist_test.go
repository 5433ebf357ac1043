package action

import (
	"testing"

	"github.com/spf13/afero"
)

func TestPersistAndLoad_RoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(100, nil)
	_, _ = r.Register(TypeFileCreated, FileOperation{EventType: "created", SrcPath: "/tmp/a.txt", FileExtension: ".txt"}.AsMap(), SourceFileWatcher, nil)
	_, _ = r.Register(TypeFileModified, FileOperation{EventType: "modified", SrcPath: "/tmp/a.txt", FileExtension: ".txt"}.AsMap(), SourceFileWatcher, nil)

	path := "/home/user/.deskloop/actions.json"
	if err := r.Persist(fs, path); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}

	restored := New(100, nil)
	restored.Load(fs, path)

	all := restored.All(0)
	if len(all) != 2 {
		t.Fatalf("expected 2 restored actions, got %d", len(all))
	}
	nextID, err := restored.Register(TypeAppFocus, nil, SourceAppTracker, nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if nextID != 3 {
		t.Fatalf("expected next_id to resume from max id + 1 (3), got %d", nextID)
	}
}

func TestLoad_MissingFileYieldsEmptyRegistry(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(100, nil)
	r.Load(fs, "/does/not/exist.json")
	if len(r.All(0)) != 0 {
		t.Fatal("expected empty registry on missing file")
	}
}

func TestLoad_CorruptFileYieldsEmptyRegistry(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/user/.deskloop/actions.json"
	_ = afero.WriteFile(fs, path, []byte("not valid json"), 0o644)

	r := New(100, nil)
	r.Load(fs, path)
	if len(r.All(0)) != 0 {
		t.Fatal("expected empty registry on corrupt file")
	}
}
