package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type fakeExecutor struct {
	mu            sync.Mutex
	script        string
	summary       string
	genErr        error
	refineScript  string
	refineErr     error
	result        ExecutionResult
	generateCalls int
	refineCalls   int
	executeCalls  int
}

func (f *fakeExecutor) Generate(ctx context.Context, description, explanation string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	return f.script, f.summary, f.genErr
}

func (f *fakeExecutor) Refine(ctx context.Context, previousScript, refinement string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refineCalls++
	return f.refineScript, "refined summary", f.refineErr
}

func (f *fakeExecutor) Execute(ctx context.Context, script, explanation string) ExecutionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executeCalls++
	return f.result
}

func newManager(exec Executor) *Manager {
	return New(exec, TimeSavedSeconds{FileOp: 20, Rename: 25}, nil)
}

func TestAccept_IsIdempotent(t *testing.T) {
	m := newManager(&fakeExecutor{})
	if err := m.Emit("desc", "hash1", 1, 0); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	id := m.Pending()[0].SuggestionID

	if err := m.Accept(id); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	if err := m.Accept(id); err != nil {
		t.Fatalf("second Accept should be idempotent, got: %v", err)
	}
	got, _ := m.Get(id)
	if got.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
}

func TestAccept_RejectsFromWrongState(t *testing.T) {
	m := newManager(&fakeExecutor{})
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID
	m.Reject(id)

	err := m.Accept(id)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestReject_AddsHashToIgnoredSet(t *testing.T) {
	m := newManager(&fakeExecutor{})
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID

	if err := m.Reject(id); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if !m.IsIgnored("hash1") {
		t.Fatal("expected hash1 to be ignored after reject")
	}
}

func TestReject_IdempotentWhenAlreadyIgnored(t *testing.T) {
	m := newManager(&fakeExecutor{})
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID
	m.Reject(id)

	m.Emit("desc again", "hash1", 1, 0)
	all := m.All()
	var secondID string
	for _, s := range all {
		if s.SuggestionID != id {
			secondID = s.SuggestionID
		}
	}
	if err := m.Reject(secondID); err != nil {
		t.Fatalf("expected idempotent reject on already-ignored hash, got %v", err)
	}
	got, _ := m.Get(secondID)
	if got.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", got.Status)
	}
}

func TestExplain_StoresScriptAndAdvancesState(t *testing.T) {
	exec := &fakeExecutor{script: "echo hi", summary: "says hi"}
	m := newManager(exec)
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID
	m.Accept(id)

	script, summary, err := m.Explain(context.Background(), id, "please automate this")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if script != "echo hi" || summary != "says hi" {
		t.Fatalf("unexpected script/summary: %q %q", script, summary)
	}
	got, _ := m.Get(id)
	if got.Status != StatusExplained {
		t.Fatalf("expected explained, got %s", got.Status)
	}
	if got.UserExplanation != "please automate this" {
		t.Fatalf("expected explanation stored, got %q", got.UserExplanation)
	}
}

func TestExplain_RejectsFromPending(t *testing.T) {
	m := newManager(&fakeExecutor{})
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID

	_, _, err := m.Explain(context.Background(), id, "x")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestRefine_ReplacesScriptAndLeavesExactlyOnePairVisible(t *testing.T) {
	exec := &fakeExecutor{script: "echo v1", summary: "v1", refineScript: "echo v2"}
	m := newManager(exec)
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID
	m.Accept(id)
	m.Explain(context.Background(), id, "explain")

	script, summary, err := m.Refine(context.Background(), id, "make it faster")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if script != "echo v2" {
		t.Fatalf("expected refined script, got %q", script)
	}
	if exec.refineCalls != 1 {
		t.Fatalf("expected exactly one refine call, got %d", exec.refineCalls)
	}

	got, _ := m.Get(id)
	if got.GeneratedScript != "echo v2" || got.ScriptSummary != summary {
		t.Fatalf("expected stored script/summary to match refined values, got %+v", got)
	}
}

func TestConfirmAndExecute_CompletedAddsToIgnoredAndAccumulatesTimeSaved(t *testing.T) {
	exec := &fakeExecutor{
		script:  "echo hi",
		summary: "hi",
		result:  ExecutionResult{Success: true},
	}
	m := newManager(exec)
	m.Emit("desc", "hash1", 2, 1)
	id := m.Pending()[0].SuggestionID
	m.Accept(id)
	m.Explain(context.Background(), id, "explain")

	if err := m.ConfirmAndExecute(context.Background(), id); err != nil {
		t.Fatalf("ConfirmAndExecute: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		got, _ := m.Get(id)
		if got.Status == StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("suggestion never reached completed, status=%s", got.Status)
		case <-time.After(time.Millisecond):
		}
	}

	if !m.IsIgnored("hash1") {
		t.Fatal("expected completed suggestion's pattern hash to be ignored")
	}
	if got := m.TimeSaved(); got != 2*20+1*25 {
		t.Fatalf("expected time saved = 2*20+1*25 = 65, got %d", got)
	}
}

func TestConfirmAndExecute_FailureStoresErrorDetails(t *testing.T) {
	exec := &fakeExecutor{
		script:  "echo hi",
		summary: "hi",
		result:  ExecutionResult{Success: false, FinalError: "boom"},
	}
	m := newManager(exec)
	m.Emit("desc", "hash1", 1, 0)
	id := m.Pending()[0].SuggestionID
	m.Accept(id)
	m.Explain(context.Background(), id, "explain")
	m.ConfirmAndExecute(context.Background(), id)

	deadline := time.After(time.Second)
	for {
		got, _ := m.Get(id)
		if got.Status == StatusFailed {
			if got.ErrorDetails != "boom" {
				t.Fatalf("expected error details 'boom', got %q", got.ErrorDetails)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("suggestion never reached failed, status=%s", got.Status)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestGet_UnknownIDReturnsNotFound(t *testing.T) {
	m := newManager(&fakeExecutor{})
	_, err := m.Get("does-not-exist")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPersist_RoundTripsSuggestionsIgnoredAndTimeSaved(t *testing.T) {
	exec := &fakeExecutor{script: "echo hi", summary: "hi", result: ExecutionResult{Success: true}}
	m := newManager(exec)
	m.Emit("desc", "hash1", 2, 0)
	id := m.Pending()[0].SuggestionID
	m.Accept(id)
	m.Explain(context.Background(), id, "explain")
	m.ConfirmAndExecute(context.Background(), id)

	deadline := time.After(time.Second)
	for {
		got, _ := m.Get(id)
		if got.Status == StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatal("suggestion never completed")
		case <-time.After(time.Millisecond):
		}
	}

	fs := afero.NewMemMapFs()
	path := "/var/lib/deskloop/suggestions.json"
	if err := m.Persist(fs, path); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if exists, _ := afero.Exists(fs, path+".tmp"); exists {
		t.Fatal("expected temp file to be removed after rename")
	}

	restored := newManager(&fakeExecutor{})
	restored.Load(fs, path)

	if !restored.IsIgnored("hash1") {
		t.Fatal("expected restored manager to carry the ignored pattern")
	}
	if restored.TimeSaved() != 40 {
		t.Fatalf("expected restored time saved 40, got %d", restored.TimeSaved())
	}
	got, err := restored.Get(id)
	if err != nil {
		t.Fatalf("expected restored suggestion to be found: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected restored status completed, got %s", got.Status)
	}
}

func TestLoad_MissingFileLeavesManagerEmpty(t *testing.T) {
	m := newManager(&fakeExecutor{})
	m.Load(afero.NewMemMapFs(), "/nonexistent/suggestions.json")
	if len(m.All()) != 0 {
		t.Fatalf("expected empty manager, got %d suggestions", len(m.All()))
	}
}
