// Package detector implements the Short-Term Pattern Detector (spec
// §4.3): a periodic task that pre-filters the recent action window,
// asks the LLM whether it describes a pattern worth automating, and
// emits a Suggestion when it does.
package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"deskloop/internal/action"
	"deskloop/internal/async"
	"deskloop/internal/llm"
	"deskloop/internal/logging"
	"deskloop/internal/tokenbudget"
)

// PromptTokenBudget caps the window-summary prompt sent to the LLM, so
// a noisy 20s window of actions never blows past the provider's
// context limit (spec §4.3 step 5, trimmed per SPEC_FULL.md §11).
const PromptTokenBudget = 1500

const (
	// DetectInterval is the tick period (spec §4.3).
	DetectInterval = 10 * time.Second
	// Window is how far back recent() looks on each tick.
	Window = 20 * time.Second
	// SuggestionCooldown is the minimum gap between emissions.
	SuggestionCooldown = 60 * time.Second
	// MinActions is the pre-filter's minimum total action count.
	MinActions = 3
	// MinSubstantive is the pre-filter's minimum substantive-action count.
	MinSubstantive = 2
)

// Registry is the subset of *action.Registry the detector depends on.
type Registry interface {
	Recent(window time.Duration) []action.Action
}

// IgnoredPatterns reports whether a pattern hash has already been
// resolved (rejected or completed) and should not be re-suggested.
type IgnoredPatterns interface {
	IsIgnored(hash string) bool
}

// Suggestions receives newly detected patterns. fileOpCount/renameCount
// are the triggering window's file_modified/file_created/file_deleted
// and file_renamed/file_moved counts respectively, captured at emission
// time so the eventual completed-transition's time_saved formula (spec
// §4.4) survives past the Action Registry evicting the originals.
type Suggestions interface {
	Emit(description, patternHash string, fileOpCount, renameCount int) error
}

// Detector runs the periodic pattern-detection tick.
type Detector struct {
	registry    Registry
	ignored     IgnoredPatterns
	suggestions Suggestions
	client      llm.Client
	logger      logging.Logger

	mu           sync.Mutex
	muteDeadline time.Time
	lastEmission time.Time
	now          func() time.Time
}

// New constructs a Detector.
func New(registry Registry, ignored IgnoredPatterns, suggestions Suggestions, client llm.Client, logger logging.Logger) *Detector {
	return &Detector{
		registry:    registry,
		ignored:     ignored,
		suggestions: suggestions,
		client:      client,
		logger:      logging.OrNop(logger),
		now:         time.Now,
	}
}

// Mute sets mute_deadline to the given absolute deadline; ticks before
// it are skipped (spec §4.4 "a dedicated API mutates mute_deadline").
func (d *Detector) Mute(deadline time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muteDeadline = deadline
}

// Run starts the periodic tick loop until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) {
	async.Every(ctx, d.logger, "detector.tick", DetectInterval, func(ctx context.Context) {
		d.tick(ctx)
	})
}

func (d *Detector) tick(ctx context.Context) {
	now := d.now()

	d.mu.Lock()
	muted := !d.muteDeadline.IsZero() && now.Before(d.muteDeadline)
	cooling := !d.lastEmission.IsZero() && now.Sub(d.lastEmission) < SuggestionCooldown
	d.mu.Unlock()

	if muted || cooling {
		return
	}

	acts := d.registry.Recent(Window)
	if !passesPreFilter(acts) {
		return
	}

	prompt := buildPrompt(acts)
	response, err := d.client.Ask(ctx, prompt, "detector")
	if err != nil {
		d.logger.Warn("detector: llm call failed, treating as NO_PATTERN: %v", err)
		return
	}
	response = strings.TrimSpace(response)
	if response == "" || response == "NO_PATTERN" {
		return
	}

	hash := patternHash(acts)
	if d.ignored.IsIgnored(hash) {
		return
	}

	fileOps, renames := countFileOpsAndRenames(acts)
	if err := d.suggestions.Emit(response, hash, fileOps, renames); err != nil {
		d.logger.Warn("detector: failed to emit suggestion: %v", err)
		return
	}

	d.mu.Lock()
	d.lastEmission = now
	d.mu.Unlock()
}

// isSubstantive reports whether an action is one the pre-filter and the
// ≥3-same-type rule consider "substantive" (spec §4.3).
func isSubstantive(a action.Action) bool {
	switch a.Type {
	case action.TypeFileCreated, action.TypeFileModified, action.TypeFileMoved,
		action.TypeFileDeleted, action.TypeFileRenamed:
		return true
	case action.TypeKeySequence:
		return hasRecognisedShortcut(a)
	default:
		return false
	}
}

// copyPasteShortcuts are the key tokens a KeySequence's "keys" string is
// scanned for to detect a copy/paste cycle.
var copyPasteShortcuts = []string{"ctrl+c", "ctrl+v", "cmd+c", "cmd+v"}

func hasRecognisedShortcut(a action.Action) bool {
	keys, _ := a.Details["keys"].(string)
	keys = strings.ToLower(keys)
	for _, shortcut := range copyPasteShortcuts {
		if strings.Contains(keys, shortcut) {
			return true
		}
	}
	return false
}

// copyPasteCycles counts ctrl+c-then-ctrl+v (or cmd equivalents) pairs
// across the window's key_sequence actions.
func copyPasteCycles(acts []action.Action) int {
	cycles := 0
	sawCopy := false
	for _, a := range acts {
		if a.Type != action.TypeKeySequence {
			continue
		}
		keys, _ := a.Details["keys"].(string)
		keys = strings.ToLower(keys)
		hasCopy := strings.Contains(keys, "ctrl+c") || strings.Contains(keys, "cmd+c")
		hasPaste := strings.Contains(keys, "ctrl+v") || strings.Contains(keys, "cmd+v")
		if hasCopy {
			sawCopy = true
		}
		if hasPaste && sawCopy {
			cycles++
			sawCopy = false
		}
	}
	return cycles
}

// passesPreFilter implements spec §4.3 step 4.
func passesPreFilter(acts []action.Action) bool {
	if len(acts) < MinActions {
		return false
	}

	subst := make([]action.Action, 0, len(acts))
	allFocus := true
	for _, a := range acts {
		if a.Type != action.TypeAppFocus {
			allFocus = false
		}
		if isSubstantive(a) {
			subst = append(subst, a)
		}
	}
	if allFocus {
		return false
	}
	if len(subst) < MinSubstantive {
		return false
	}

	if sameFileTypeCount(acts) >= 3 {
		return true
	}
	if copyPasteCycles(acts) >= 2 {
		return true
	}
	if len(subst) >= 5 {
		return true
	}
	return false
}

// countFileOpsAndRenames tallies the window's plain file operations
// (created/modified/deleted) separately from renames/moves, matching
// the two terms of the time_saved formula in spec §4.4.
func countFileOpsAndRenames(acts []action.Action) (fileOps int, renames int) {
	for _, a := range acts {
		switch a.Type {
		case action.TypeFileCreated, action.TypeFileModified, action.TypeFileDeleted:
			fileOps++
		case action.TypeFileRenamed, action.TypeFileMoved:
			renames++
		}
	}
	return fileOps, renames
}

// sameFileTypeCount returns the size of the largest group of filesystem
// actions sharing the same (event_type, file_extension) pair.
func sameFileTypeCount(acts []action.Action) int {
	counts := make(map[string]int)
	for _, a := range acts {
		eventType, ok := a.Details["event_type"].(string)
		if !ok {
			continue
		}
		ext, _ := a.Details["file_extension"].(string)
		counts[eventType+"|"+ext]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}

func buildPrompt(acts []action.Action) string {
	var b strings.Builder
	b.WriteString("Observed actions in the last 20 seconds:\n")
	for _, a := range acts {
		b.WriteString(fmt.Sprintf("- %s (%s): %v\n", a.Type, a.Source, a.Details))
	}
	b.WriteString("\nIf these actions form a repeated pattern worth automating, reply with exactly one line: " +
		"\"You <verb> <count> <noun> in <directory-or-context>. You might want to <proposal>.\" " +
		"Otherwise reply with exactly: NO_PATTERN")
	return tokenbudget.TruncateToTokens(b.String(), PromptTokenBudget)
}

// patternHash computes a stable digest over the window's sequence of
// (event_type, file_extension) tuples (spec §4.3 step 7).
func patternHash(acts []action.Action) string {
	var b strings.Builder
	for _, a := range acts {
		eventType, _ := a.Details["event_type"].(string)
		ext, _ := a.Details["file_extension"].(string)
		b.WriteString(eventType)
		b.WriteString("|")
		b.WriteString(ext)
		b.WriteString(";")
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
