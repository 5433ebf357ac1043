package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"deskloop/internal/async"
)

// PersistInterval is the default cadence of the background flush task,
// matching the Action Registry's (spec §4.4, §12.4).
const PersistInterval = 30 * time.Second

type persistedState struct {
	Suggestions []Suggestion    `json:"suggestions"`
	Ignored     map[string]bool `json:"ignored_patterns"`
	TimeSaved   int             `json:"time_saved_seconds"`
}

func (m *Manager) snapshot() persistedState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := persistedState{
		Suggestions: make([]Suggestion, 0, len(m.suggestions)),
		Ignored:     make(map[string]bool, len(m.ignored)),
		TimeSaved:   m.timeSaved,
	}
	for _, s := range m.suggestions {
		state.Suggestions = append(state.Suggestions, *s)
	}
	for hash, v := range m.ignored {
		state.Ignored[hash] = v
	}
	return state
}

func (m *Manager) restore(state persistedState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.suggestions = make(map[string]*Suggestion, len(state.Suggestions))
	for i := range state.Suggestions {
		s := state.Suggestions[i]
		m.suggestions[s.SuggestionID] = &s
	}
	if state.Ignored != nil {
		m.ignored = state.Ignored
	}
	m.timeSaved = state.TimeSaved
}

// Persist serialises suggestions, the ignored-pattern set, and the
// time-saved total to path atomically (write-to-temp + rename).
func (m *Manager) Persist(fs afero.Fs, path string) error {
	raw, err := json.Marshal(m.snapshot())
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure suggestions dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp suggestions: %w", err)
	}
	return fs.Rename(tmp, path)
}

// Load resumes manager state from path. A missing or corrupt file
// leaves the manager empty, never an error (matches the Action
// Registry's "never fatal" load semantics, spec §4.1).
func (m *Manager) Load(fs afero.Fs, path string) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return
	}
	var state persistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		m.logger.Warn("suggestions file corrupt, starting empty: %v", err)
		return
	}
	m.restore(state)
}

// RunPersistLoop flushes the manager to path on PersistInterval until
// ctx is cancelled.
func (m *Manager) RunPersistLoop(ctx context.Context, fs afero.Fs, path string) {
	async.Every(ctx, m.logger, "lifecycle.persist", PersistInterval, func(context.Context) {
		if err := m.Persist(fs, path); err != nil {
			m.logger.Warn("suggestions persist failed: %v", err)
		}
	})
}
