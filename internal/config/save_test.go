package config

import (
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func TestSave_WritesAtomicallyAndRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := defaultConfig()
	cfg.Watch.Dirs = []string{"/tmp/project"}

	if err := Save(fs, "/home/user/.deskloop/config.yaml", cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	exists, err := afero.Exists(fs, "/home/user/.deskloop/config.yaml.tmp")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if exists {
		t.Fatal("expected temp file to be renamed away, not left behind")
	}

	raw, err := afero.ReadFile(fs, "/home/user/.deskloop/config.yaml")
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	var roundTripped Config
	if err := yaml.Unmarshal(raw, &roundTripped); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if len(roundTripped.Watch.Dirs) != 1 || roundTripped.Watch.Dirs[0] != "/tmp/project" {
		t.Fatalf("unexpected round-tripped dirs: %v", roundTripped.Watch.Dirs)
	}
}
