package action

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"deskloop/internal/logging"
)

// DefaultCapacity is the registry's default soft cap (spec §4.1).
const DefaultCapacity = 1000

// ErrDropped is returned by Register when the event is silently
// discarded because an automation run is in progress and the source is
// one of the observers quarantined during execution (spec §4.1, §4.5).
var ErrDropped = errors.New("action dropped: automation in progress")

// quarantinedSources are the observer sources suppressed while an
// automation run owns the "in progress" flag, so the Sandbox Executor's
// own file writes and keystrokes don't feed back into the detector.
var quarantinedSources = map[Source]bool{
	SourceFileWatcher:  true,
	SourceInputMonitor: true,
}

// Registry is the Action Registry: a bounded, time-ordered, multi-
// producer multi-reader event store (spec §4.1).
type Registry struct {
	mu       sync.RWMutex
	capacity int
	nextID   uint64
	actions  []Action

	automationRunning atomic.Bool
	logger            logging.Logger
}

// New constructs a Registry with the given soft cap. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int, logger logging.Logger) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		logger:   logging.OrNop(logger),
	}
}

// Register admits a new Action, assigning it a monotonically increasing
// id and the current timestamp. It returns ErrDropped (not a real
// failure) when automation is in progress and source is quarantined.
func (r *Registry) Register(actionType Type, details map[string]any, source Source, metadata map[string]any) (uint64, error) {
	if r.automationRunning.Load() && quarantinedSources[source] {
		return 0, ErrDropped
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	a := Action{
		ID:        r.nextID,
		Timestamp: time.Now(),
		Type:      actionType,
		Source:    source,
		Details:   details,
		Metadata:  metadata,
	}
	r.actions = append(r.actions, a)
	if over := len(r.actions) - r.capacity; over > 0 {
		// FIFO eviction: drop the oldest `over` entries by copying the
		// survivors into a freshly allocated slice, so the old backing
		// array (and the evicted entries) can be reclaimed.
		trimmed := make([]Action, len(r.actions)-over)
		copy(trimmed, r.actions[over:])
		r.actions = trimmed
	}
	return a.ID, nil
}

// Recent returns all actions with timestamp >= now - window, oldest
// first. Empty-on-none.
func (r *Registry) Recent(window time.Duration) []Action {
	cutoff := time.Now().Add(-window)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Action, 0)
	for _, a := range r.actions {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// All returns up to limit actions, newest first. limit <= 0 returns
// every retained action.
func (r *Registry) All(limit int) []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.actions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Action, n)
	for i := 0; i < n; i++ {
		out[i] = r.actions[len(r.actions)-1-i]
	}
	return out
}

// Stats summarises the registry's current contents.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		ByType:   make(map[Type]int),
		BySource: make(map[Source]int),
	}
	for _, a := range r.actions {
		s.Total++
		s.ByType[a.Type]++
		s.BySource[a.Source]++
	}
	return s
}

// SetAutomationRunning sets or clears the "automation in progress" flag
// the Sandbox Executor borrows for the duration of one run.
func (r *Registry) SetAutomationRunning(running bool) {
	r.automationRunning.Store(running)
}

// IsAutomationRunning reports whether an automation run currently owns
// the flag.
func (r *Registry) IsAutomationRunning() bool {
	return r.automationRunning.Load()
}

// snapshotWithNextID returns a defensive copy of the live actions,
// oldest first, plus the current nextID, for persistence.
func (r *Registry) snapshotWithNextID() ([]Action, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out, r.nextID
}

// restore replaces the registry's contents with loaded actions and
// resumes nextID from the maximum id present.
func (r *Registry) restore(actions []Action) {
	sort.Slice(actions, func(i, j int) bool { return actions[i].ID < actions[j].ID })

	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions = actions
	var maxID uint64
	for _, a := range actions {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	r.nextID = maxID
}
