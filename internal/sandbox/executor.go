// Package sandbox implements the Sandbox Executor (spec §4.5):
// generate/refine a script from user intent via the LLM, install its
// declared dependencies from a known-safe allow-list, run it with
// retries and timeouts, and quarantine the Action Registry's
// file/input observers for the run's duration.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"github.com/spf13/afero"

	"deskloop/internal/lifecycle"
	"deskloop/internal/llm"
	"deskloop/internal/logging"
)

// MaxAttempts is the subprocess retry ceiling (spec §4.5 step 4).
const MaxAttempts = 3

// Registry is the Action Registry's quarantine switch (spec §4.5
// "execution-window quarantine").
type Registry interface {
	SetAutomationRunning(running bool)
}

// Executor implements lifecycle.Executor.
type Executor struct {
	registry  Registry
	client    llm.Client
	installer Installer
	runner    Runner
	fs        afero.Fs
	scriptDir string
	logger    logging.Logger
	newID     func() string
	now       func() time.Time
}

// New constructs an Executor. scriptDir is where materialised scripts
// are written (deleted on success, kept under execution_id on failure).
func New(registry Registry, client llm.Client, installer Installer, runner Runner, fs afero.Fs, scriptDir string, logger logging.Logger) *Executor {
	return &Executor{
		registry:  registry,
		client:    client,
		installer: installer,
		runner:    runner,
		fs:        fs,
		scriptDir: scriptDir,
		logger:    logging.OrNop(logger),
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

type scriptResponse struct {
	Script string `json:"script"`
}

// Generate implements spec §4.5 generate(): one LLM call producing a
// self-contained script, a second producing a 3-5 bullet summary.
func (e *Executor) Generate(ctx context.Context, patternDescription, userExplanation string) (string, string, error) {
	prompt := fmt.Sprintf(
		"Write a self-contained Python script to automate the following user-confirmed pattern.\n"+
			"Pattern: %s\nUser explanation: %s\n\n"+
			"Declare any third-party dependencies with a header line exactly of the form "+
			"\"# requires: pkgA, pkgB\" (omit the line if none are needed).\n"+
			"Reply with a JSON object: {\"script\": \"<the full script text>\"}.",
		patternDescription, userExplanation)

	script, err := e.askForScript(ctx, prompt)
	if err != nil {
		return "", "", err
	}

	summary, err := e.askForSummary(ctx, script)
	if err != nil {
		return "", "", err
	}
	return script, summary, nil
}

// Refine implements spec §4.5 refine(): the previous script and the
// refinement text both go into the prompt; produces a replacement
// script and summary.
func (e *Executor) Refine(ctx context.Context, previousScript, refinementText string) (string, string, error) {
	prompt := fmt.Sprintf(
		"Here is an existing automation script:\n\n%s\n\n"+
			"Apply this requested change: %s\n\n"+
			"Keep the \"# requires:\" header convention if dependencies are used.\n"+
			"Reply with a JSON object: {\"script\": \"<the full updated script text>\"}.",
		previousScript, refinementText)

	script, err := e.askForScript(ctx, prompt)
	if err != nil {
		return "", "", err
	}

	summary, err := e.askForSummary(ctx, script)
	if err != nil {
		return "", "", err
	}
	return script, summary, nil
}

func (e *Executor) askForScript(ctx context.Context, prompt string) (string, error) {
	raw, err := e.client.Ask(ctx, prompt, "sandbox.generate")
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return "", fmt.Errorf("repair script response: %w", err)
	}
	var resp scriptResponse
	if err := json.Unmarshal([]byte(repaired), &resp); err != nil {
		return "", fmt.Errorf("parse script response: %w", err)
	}
	if strings.TrimSpace(resp.Script) == "" {
		return "", fmt.Errorf("llm returned an empty script")
	}
	return resp.Script, nil
}

func (e *Executor) askForSummary(ctx context.Context, script string) (string, error) {
	prompt := "Summarise what this script does in 3 to 5 short bullet points, " +
		"plain language, one bullet per line starting with \"- \":\n\n" + script
	summary, err := e.client.Ask(ctx, prompt, "sandbox.summarize")
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// Execute implements spec §4.5 execute(): scan, install, run-with-
// retries, cleanup, all bracketed by the automation-quarantine flag.
func (e *Executor) Execute(ctx context.Context, script, explanation string) lifecycle.ExecutionResult {
	executionID := e.newID()
	result := lifecycle.ExecutionResult{
		ExecutionID: executionID,
		Timestamp:   e.now(),
	}

	e.registry.SetAutomationRunning(true)
	defer e.registry.SetAutomationRunning(false)

	scan := ScanDependencies(script)
	if len(scan.Rejected) > 0 {
		result.LibraryInstallation = lifecycle.LibraryInstallResult{
			Success: false,
			Failed:  rejectedAsInstallErrors(scan.Rejected),
		}
		result.FinalError = fmt.Sprintf("script declares disallowed dependencies: %s", strings.Join(scan.Rejected, ", "))
		return result
	}

	installResult := e.installAll(ctx, scan.Allowed)
	result.LibraryInstallation = installResult
	if !installResult.Success {
		result.FinalError = "dependency installation failed"
		return result
	}

	path, err := e.materialize(executionID, script)
	if err != nil {
		result.FinalError = fmt.Sprintf("materialize script: %v", err)
		return result
	}

	attempts, success := e.runWithRetries(ctx, path)
	result.Attempts = attempts
	result.Success = success

	if success {
		_ = e.fs.Remove(path)
	} else {
		result.FinalError = lastAttemptError(attempts)
		e.logger.Warn("sandbox: execution %s failed after %d attempts, script kept at %s", executionID, len(attempts), path)
	}
	return result
}

func rejectedAsInstallErrors(names []string) []lifecycle.LibraryInstallErr {
	out := make([]lifecycle.LibraryInstallErr, 0, len(names))
	for _, n := range names {
		out = append(out, lifecycle.LibraryInstallErr{Library: n, Error: "not on the allow-list"})
	}
	return out
}

func (e *Executor) installAll(ctx context.Context, names []string) lifecycle.LibraryInstallResult {
	result := lifecycle.LibraryInstallResult{Success: true}
	for _, name := range names {
		if err := e.installer.Install(ctx, name); err != nil {
			result.Success = false
			result.Failed = append(result.Failed, lifecycle.LibraryInstallErr{Library: name, Error: err.Error()})
			continue
		}
		result.Installed = append(result.Installed, name)
	}
	return result
}

func (e *Executor) materialize(executionID, script string) (string, error) {
	if err := e.fs.MkdirAll(e.scriptDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(e.scriptDir, executionID+".py")
	if err := afero.WriteFile(e.fs, path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Executor) runWithRetries(ctx context.Context, path string) ([]lifecycle.AttemptResult, bool) {
	var attempts []lifecycle.AttemptResult
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		start := e.now()
		run, err := e.runner.Run(ctx, path)
		elapsed := e.now().Sub(start).Seconds()

		if err != nil {
			attempts = append(attempts, lifecycle.AttemptResult{
				Attempt:       attempt,
				ReturnCode:    -1,
				Error:         err.Error(),
				ExecutionTime: elapsed,
			})
			continue
		}

		result := lifecycle.AttemptResult{
			Attempt:       attempt,
			ReturnCode:    run.ReturnCode,
			Output:        run.Output,
			ExecutionTime: elapsed,
		}
		if run.TimedOut {
			result.Error = fmt.Sprintf("timed out after %s", RunTimeout)
		}
		attempts = append(attempts, result)

		if run.ReturnCode == 0 && !run.TimedOut {
			return attempts, true
		}
	}
	return attempts, false
}

func lastAttemptError(attempts []lifecycle.AttemptResult) string {
	if len(attempts) == 0 {
		return "no attempts recorded"
	}
	last := attempts[len(attempts)-1]
	if last.Error != "" {
		return last.Error
	}
	return fmt.Sprintf("exited with return code %d", last.ReturnCode)
}
