package action

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"deskloop/internal/async"
)

// PersistInterval is the default cadence of the background flush task
// (spec §4.1).
const PersistInterval = 30 * time.Second

// fileFormat is action_registry.json's on-disk shape (spec §6:
// "{ next_id, actions: [...] }").
type fileFormat struct {
	NextID  uint64   `json:"next_id"`
	Actions []Action `json:"actions"`
}

// Persist serialises the registry to path atomically (write-to-temp +
// rename) via fs. Called on the PersistInterval cadence and on process
// shutdown.
func (r *Registry) Persist(fs afero.Fs, path string) error {
	snapshot, nextID := r.snapshotWithNextID()
	raw, err := json.Marshal(fileFormat{NextID: nextID, Actions: snapshot})
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure registry dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename registry into place: %w", err)
	}
	return nil
}

// Load resumes registry state from path. A missing or corrupt file
// yields an empty registry, never an error (spec §4.1: "never fatal").
func (r *Registry) Load(fs afero.Fs, path string) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return
	}
	var loaded fileFormat
	if err := json.Unmarshal(raw, &loaded); err != nil {
		r.logger.Warn("action registry file corrupt, starting empty: %v", err)
		return
	}
	r.restore(loaded.Actions)
}

// RunPersistLoop flushes the registry to path on PersistInterval until
// ctx is cancelled. Callers should also call Persist once more on
// shutdown to capture anything written since the last tick.
func (r *Registry) RunPersistLoop(ctx context.Context, fs afero.Fs, path string) {
	async.Every(ctx, r.logger, "action.persist", PersistInterval, func(context.Context) {
		if err := r.Persist(fs, path); err != nil {
			r.logger.Warn("action registry persist failed: %v", err)
		}
	})
}
