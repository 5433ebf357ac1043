package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"deskloop/internal/async"
	"deskloop/internal/logging"
)

// NotFoundError is returned when a suggestion id is unknown; the API
// layer maps it to HTTP 404 (spec §7).
type NotFoundError struct{ ID string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("suggestion %q not found", e.ID) }

// InvalidTransitionError is returned when a transition is attempted
// from a status that does not permit it; the API layer maps it to HTTP
// 409 (spec §7). State is never mutated when this is returned.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("suggestion %q: cannot transition from %q to %q", e.ID, e.From, e.To)
}

// Executor is the subset of the Sandbox Executor the manager drives
// (spec §4.5 generate/refine/execute). Execute owns toggling the
// Registry's automation-quarantine flag around its own run (spec §4.5
// "before step 2... clears it in a guaranteed finally-equivalent
// path") — the manager itself is not a party to that bracket.
type Executor interface {
	Generate(ctx context.Context, patternDescription, userExplanation string) (script, summary string, err error)
	Refine(ctx context.Context, previousScript, refinementText string) (script, summary string, err error)
	Execute(ctx context.Context, script, explanation string) ExecutionResult
}

// TimeSavedSeconds are the per-file-operation and per-rename heuristic
// constants (spec §4.4, configurable per SPEC_FULL.md §12.3).
type TimeSavedSeconds struct {
	FileOp int
	Rename int
}

// Manager is the Suggestion Lifecycle Manager.
type Manager struct {
	executor  Executor
	heuristic TimeSavedSeconds
	logger    logging.Logger
	now       func() time.Time
	newID     func() string

	mu          sync.Mutex
	suggestions map[string]*Suggestion
	ignored     map[string]bool
	timeSaved   int
}

// New constructs an empty Manager.
func New(executor Executor, heuristic TimeSavedSeconds, logger logging.Logger) *Manager {
	return &Manager{
		executor:    executor,
		heuristic:   heuristic,
		logger:      logging.OrNop(logger),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
		suggestions: make(map[string]*Suggestion),
		ignored:     make(map[string]bool),
	}
}

// Emit implements detector.Suggestions: creates a new pending
// suggestion from a detected pattern.
func (m *Manager) Emit(description, patternHash string, fileOpCount, renameCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Suggestion{
		SuggestionID:       m.newID(),
		CreatedTS:          m.now(),
		PatternDescription: description,
		PatternHash:        patternHash,
		Status:             StatusPending,
		FileOpCount:        fileOpCount,
		RenameCount:        renameCount,
	}
	m.suggestions[s.SuggestionID] = s
	return nil
}

// IsIgnored implements detector.IgnoredPatterns.
func (m *Manager) IsIgnored(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ignored[hash]
}

func (m *Manager) get(id string) (*Suggestion, error) {
	s, ok := m.suggestions[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}

// Get returns a copy of the suggestion with the given id.
func (m *Manager) Get(id string) (Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return Suggestion{}, err
	}
	return *s, nil
}

// Pending returns all pending suggestions.
func (m *Manager) Pending() []Suggestion {
	return m.filter(func(s *Suggestion) bool { return s.Status == StatusPending })
}

// All returns every suggestion, regardless of status.
func (m *Manager) All() []Suggestion {
	return m.filter(func(*Suggestion) bool { return true })
}

func (m *Manager) filter(pred func(*Suggestion) bool) []Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Suggestion, 0, len(m.suggestions))
	for _, s := range m.suggestions {
		if pred(s) {
			out = append(out, *s)
		}
	}
	return out
}

// Accept implements pending -> accepted. Idempotent: accepting an
// already-accepted suggestion is a no-op success (spec §4.4).
func (m *Manager) Accept(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if s.Status == StatusAccepted {
		return nil
	}
	if s.Status != StatusPending {
		return &InvalidTransitionError{ID: id, From: s.Status, To: string(StatusAccepted)}
	}
	s.Status = StatusAccepted
	return nil
}

// Reject implements pending -> rejected; adds the hash to the ignored
// set. Rejecting a suggestion whose hash is already ignored is an
// idempotent no-op (spec §8).
func (m *Manager) Reject(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if m.ignored[s.PatternHash] {
		// Spec §8: rejecting a suggestion whose hash is already ignored is
		// a no-op. A suggestion that reached completed/rejected through a
		// shared hash keeps its own status untouched.
		if s.Status == StatusPending {
			s.Status = StatusRejected
		}
		return nil
	}
	if s.Status != StatusPending {
		return &InvalidTransitionError{ID: id, From: s.Status, To: string(StatusRejected)}
	}
	s.Status = StatusRejected
	m.ignored[s.PatternHash] = true
	return nil
}

// Explain implements accepted -> explained: invokes the Executor in
// script-generation mode and stores (script, summary).
func (m *Manager) Explain(ctx context.Context, id, explanation string) (string, string, error) {
	m.mu.Lock()
	s, err := m.get(id)
	if err != nil {
		m.mu.Unlock()
		return "", "", err
	}
	if s.Status != StatusAccepted {
		m.mu.Unlock()
		return "", "", &InvalidTransitionError{ID: id, From: s.Status, To: string(StatusExplained)}
	}
	description := s.PatternDescription
	m.mu.Unlock()

	script, summary, err := m.executor.Generate(ctx, description, explanation)
	if err != nil {
		return "", "", fmt.Errorf("generate script: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err = m.get(id)
	if err != nil {
		return "", "", err
	}
	s.UserExplanation = explanation
	s.GeneratedScript = script
	s.ScriptSummary = summary
	s.Status = StatusExplained
	return script, summary, nil
}

// Refine implements the explained -> explained self-loop: the previous
// script and the new refinement text go back to the LLM, replacing
// generated_script and script_summary atomically (spec §9).
func (m *Manager) Refine(ctx context.Context, id, refinement string) (string, string, error) {
	m.mu.Lock()
	s, err := m.get(id)
	if err != nil {
		m.mu.Unlock()
		return "", "", err
	}
	if s.Status != StatusExplained {
		m.mu.Unlock()
		return "", "", &InvalidTransitionError{ID: id, From: s.Status, To: string(StatusExplained)}
	}
	previousScript := s.GeneratedScript
	m.mu.Unlock()

	script, summary, err := m.executor.Refine(ctx, previousScript, refinement)
	if err != nil {
		return "", "", fmt.Errorf("refine script: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err = m.get(id)
	if err != nil {
		return "", "", err
	}
	s.GeneratedScript = script
	s.ScriptSummary = summary
	return script, summary, nil
}

// ConfirmAndExecute implements explained -> executing, returning
// immediately; the run itself happens in a detached goroutine (spec §9
// "execution asynchrony").
func (m *Manager) ConfirmAndExecute(ctx context.Context, id string) error {
	m.mu.Lock()
	s, err := m.get(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if s.Status != StatusExplained {
		m.mu.Unlock()
		return &InvalidTransitionError{ID: id, From: s.Status, To: string(StatusExecuting)}
	}
	s.Status = StatusExecuting
	script := s.GeneratedScript
	explanation := s.UserExplanation
	fileOps, renames := s.FileOpCount, s.RenameCount
	m.mu.Unlock()

	async.Go(m.logger, "lifecycle.execute", func() {
		m.runExecution(context.Background(), id, script, explanation, fileOps, renames)
	})
	return nil
}

func (m *Manager) runExecution(ctx context.Context, id, script, explanation string, fileOps, renames int) {
	result := m.executor.Execute(ctx, script, explanation)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return
	}
	s.ExecutionResult = &result
	if result.Success {
		s.Status = StatusCompleted
		m.ignored[s.PatternHash] = true
		saved := fileOps*m.heuristic.FileOp + renames*m.heuristic.Rename
		s.TimeSavedSeconds = saved
		m.timeSaved += saved
	} else {
		s.Status = StatusFailed
		s.ErrorDetails = result.FinalError
	}
}

// TimeSaved returns the accumulated total_seconds (monotonic,
// TimeSavedAccumulator in spec §3).
func (m *Manager) TimeSaved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeSaved
}
