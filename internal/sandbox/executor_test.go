package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

type fakeClient struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
}

func (f *fakeClient) Ask(ctx context.Context, prompt, agentTag string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.next >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	r := f.responses[f.next]
	f.next++
	return r, nil
}

type fakeInstaller struct {
	fail map[string]bool
}

func (f *fakeInstaller) Install(ctx context.Context, name string) error {
	if f.fail[name] {
		return errors.New("boom")
	}
	return nil
}

type fakeRunner struct {
	mu      sync.Mutex
	results []RunResult
	errs    []error
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context, path string) (RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return RunResult{}, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.results[len(f.results)-1], nil
}

type fakeFlag struct {
	mu    sync.Mutex
	calls []bool
}

func (f *fakeFlag) SetAutomationRunning(running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, running)
}

func newTestExecutor(client *fakeClient, installer Installer, runner Runner, flag *fakeFlag) (*Executor, afero.Fs) {
	fs := afero.NewMemMapFs()
	return New(flag, client, installer, runner, fs, "/var/lib/deskloop/scripts", nil), fs
}

func TestGenerate_ParsesScriptJSONAndFetchesSummary(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"script": "# requires: requests\nprint('hi')"}`,
		"- does a thing\n- does another thing",
	}}
	exec, _ := newTestExecutor(client, &fakeInstaller{}, &fakeRunner{}, &fakeFlag{})

	script, summary, err := exec.Generate(context.Background(), "pattern", "explanation")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if script == "" || summary == "" {
		t.Fatalf("expected non-empty script and summary, got %q %q", script, summary)
	}
}

func TestGenerate_RepairsSlightlyMalformedJSON(t *testing.T) {
	client := &fakeClient{responses: []string{
		"{script: \"print('hi')\",}",
		"- summary",
	}}
	exec, _ := newTestExecutor(client, &fakeInstaller{}, &fakeRunner{}, &fakeFlag{})

	script, _, err := exec.Generate(context.Background(), "pattern", "explanation")
	if err != nil {
		t.Fatalf("expected jsonrepair to recover a near-valid JSON response, got: %v", err)
	}
	if script == "" {
		t.Fatal("expected a non-empty repaired script")
	}
}

func TestExecute_RejectsDisallowedDependency(t *testing.T) {
	exec, _ := newTestExecutor(&fakeClient{}, &fakeInstaller{}, &fakeRunner{}, &fakeFlag{})
	script := "# requires: some-random-package\nprint('hi')"

	result := exec.Execute(context.Background(), script, "explanation")
	if result.Success {
		t.Fatal("expected failure for a disallowed dependency")
	}
	if len(result.LibraryInstallation.Failed) != 1 {
		t.Fatalf("expected one failed library entry, got %v", result.LibraryInstallation.Failed)
	}
}

func TestExecute_SucceedsAndDeletesScript(t *testing.T) {
	flag := &fakeFlag{}
	runner := &fakeRunner{results: []RunResult{{ReturnCode: 0, Output: "done"}}}
	exec, fs := newTestExecutor(&fakeClient{}, &fakeInstaller{}, runner, flag)
	script := "# requires: requests\nprint('hi')"

	result := exec.Execute(context.Background(), script, "explanation")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(result.Attempts))
	}

	entries, _ := afero.ReadDir(fs, "/var/lib/deskloop/scripts")
	if len(entries) != 0 {
		t.Fatalf("expected script to be deleted on success, found %d entries", len(entries))
	}

	flag.mu.Lock()
	defer flag.mu.Unlock()
	if len(flag.calls) != 2 || flag.calls[0] != true || flag.calls[1] != false {
		t.Fatalf("expected automation flag set true then false, got %v", flag.calls)
	}
}

func TestExecute_RetriesUpToMaxAttemptsThenKeepsScript(t *testing.T) {
	runner := &fakeRunner{results: []RunResult{
		{ReturnCode: 1, Output: "fail 1"},
		{ReturnCode: 1, Output: "fail 2"},
		{ReturnCode: 1, Output: "fail 3"},
	}}
	exec, fs := newTestExecutor(&fakeClient{}, &fakeInstaller{}, runner, &fakeFlag{})
	script := "print('hi')"

	result := exec.Execute(context.Background(), script, "explanation")
	if result.Success {
		t.Fatal("expected failure after exhausting retries")
	}
	if len(result.Attempts) != MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", MaxAttempts, len(result.Attempts))
	}
	if result.FinalError == "" {
		t.Fatal("expected a final_error on exhausted retries")
	}

	entries, _ := afero.ReadDir(fs, "/var/lib/deskloop/scripts")
	if len(entries) != 1 {
		t.Fatalf("expected script kept for diagnostics on failure, found %d entries", len(entries))
	}
}

func TestExecute_AutomationFlagClearedEvenOnInstallFailure(t *testing.T) {
	flag := &fakeFlag{}
	installer := &fakeInstaller{fail: map[string]bool{"requests": true}}
	exec, _ := newTestExecutor(&fakeClient{}, installer, &fakeRunner{}, flag)
	script := "# requires: requests\nprint('hi')"

	result := exec.Execute(context.Background(), script, "explanation")
	if result.Success {
		t.Fatal("expected install failure to abort before run")
	}

	flag.mu.Lock()
	defer flag.mu.Unlock()
	if len(flag.calls) != 2 || flag.calls[1] != false {
		t.Fatalf("expected flag cleared even on install failure, got %v", flag.calls)
	}
}
