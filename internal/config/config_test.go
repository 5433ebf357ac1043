package config

import (
	"errors"
	"testing"
)

func fakeEnv(vals map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := vals[key]
		return v, ok
	}
}

func fakeFile(raw string) FileReader {
	return func(string) ([]byte, error) { return []byte(raw), nil }
}

func missingFile(string) ([]byte, error) {
	return nil, errors.New("not found")
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, meta, err := Load(WithFileReader(missingFile), WithEnv(fakeEnv(nil)))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Watch.RecentOpsCapacity != DefaultRecentOpsCapacity {
		t.Fatalf("expected default capacity, got %d", cfg.Watch.RecentOpsCapacity)
	}
	if cfg.Backend.Port != DefaultBackendPort {
		t.Fatalf("expected default port, got %d", cfg.Backend.Port)
	}
	if !cfg.Logging.Enabled {
		t.Fatal("expected logging enabled by default")
	}
	if meta.Source("watch.dirs") != SourceDefault {
		t.Fatalf("expected default source for watch.dirs, got %v", meta.Source("watch.dirs"))
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	raw := `
watch:
  dirs:
    - ~/Documents
  recent_ops_capacity: 50
logging:
  enabled: false
backend:
  port: 9100
`
	cfg, meta, err := Load(WithFileReader(fakeFile(raw)), WithEnv(fakeEnv(nil)))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Watch.Dirs) != 1 {
		t.Fatalf("expected one watch dir, got %v", cfg.Watch.Dirs)
	}
	if cfg.Watch.RecentOpsCapacity != 50 {
		t.Fatalf("expected capacity 50, got %d", cfg.Watch.RecentOpsCapacity)
	}
	if cfg.Logging.Enabled {
		t.Fatal("expected logging.enabled: false from file to stick")
	}
	if cfg.Backend.Port != 9100 {
		t.Fatalf("expected port 9100, got %d", cfg.Backend.Port)
	}
	if meta.Source("logging.enabled") != SourceFile {
		t.Fatalf("expected file source for logging.enabled, got %v", meta.Source("logging.enabled"))
	}
}

func TestLoad_FileAbsentLoggingSectionKeepsDefault(t *testing.T) {
	raw := `
watch:
  recent_ops_capacity: 75
`
	cfg, _, err := Load(WithFileReader(fakeFile(raw)), WithEnv(fakeEnv(nil)))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Logging.Enabled {
		t.Fatal("expected logging.enabled default to survive an absent logging section")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	raw := `
llm:
  provider: mock
  api_key: file-key
backend:
  port: 9100
`
	env := fakeEnv(map[string]string{
		"DESKLOOP_LLM_API_KEY":  "env-key",
		"DESKLOOP_BACKEND_PORT": "9200",
	})
	cfg, meta, err := Load(WithFileReader(fakeFile(raw)), WithEnv(env))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected env override to win, got %q", cfg.LLM.APIKey)
	}
	if cfg.Backend.Port != 9200 {
		t.Fatalf("expected env port override, got %d", cfg.Backend.Port)
	}
	if meta.Source("llm.api_key") != SourceEnv {
		t.Fatalf("expected env source, got %v", meta.Source("llm.api_key"))
	}
}

func TestLoad_CorruptFileFallsBackToDefaults(t *testing.T) {
	cfg, _, err := Load(WithFileReader(fakeFile("not: valid: yaml: [")), WithEnv(fakeEnv(nil)))
	if err != nil {
		t.Fatalf("Load must not error on corrupt file, got %v", err)
	}
	if cfg.Backend.Port != DefaultBackendPort {
		t.Fatalf("expected default port on corrupt file, got %d", cfg.Backend.Port)
	}
}

func TestExpandHome(t *testing.T) {
	out := expandHome([]string{"~/code", "", "  /tmp/x  "})
	if len(out) != 2 {
		t.Fatalf("expected blank entries dropped, got %v", out)
	}
}
