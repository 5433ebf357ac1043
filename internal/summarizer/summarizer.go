// Package summarizer implements the Rolling Summariser (spec §4.6):
// a minute-tick and a ten-minute-tick periodic task, each composing a
// prose summary over the Action Registry's recent window via the LLM
// and appending it to a bounded, persisted store.
package summarizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"deskloop/internal/action"
	"deskloop/internal/async"
	"deskloop/internal/llm"
	"deskloop/internal/logging"
	"deskloop/internal/tokenbudget"
)

const (
	// PromptTokenBudget caps the batched-actions prompt sent to the LLM
	// for both tick granularities (SPEC_FULL.md §11).
	PromptTokenBudget = 2000
	// MinuteInterval is the minute-tick cadence (spec §4.6).
	MinuteInterval = 60 * time.Second
	// TenMinuteInterval is the ten-minute-tick cadence (spec §4.6).
	TenMinuteInterval = 600 * time.Second
	// MinActionsForMinuteSummary is the minute-tick's minimum window size.
	MinActionsForMinuteSummary = 3
	// SummaryStoreCapacity bounds each summary store (spec §4.6 "e.g. 500").
	SummaryStoreCapacity = 500
	// TenMinuteLookback is how many minute-summaries the ten-minute tick
	// folds into its narrative when any are available.
	TenMinuteLookback = 10
)

// MinuteSummary is one minute-tick's output (spec §4.6).
type MinuteSummary struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Summary     string    `json:"summary"`
	ActionCount int       `json:"action_count"`
}

// TenMinuteSummary is one ten-minute-tick's output (spec §4.6).
type TenMinuteSummary struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Summary      string    `json:"summary"`
	TotalActions int       `json:"total_actions"`
}

// Registry is the subset of *action.Registry the summariser depends on.
type Registry interface {
	Recent(window time.Duration) []action.Action
}

// Summarizer runs both periodic summary tasks.
type Summarizer struct {
	registry Registry
	client   llm.Client
	logger   logging.Logger
	now      func() time.Time

	mu            sync.Mutex
	minuteNextID  uint64
	tenNextID     uint64
	minuteStore   *lru.Cache[string, MinuteSummary]
	tenMinuteStore *lru.Cache[string, TenMinuteSummary]
}

// New constructs a Summarizer with empty, bounded stores.
func New(registry Registry, client llm.Client, logger logging.Logger) *Summarizer {
	minuteStore, _ := lru.New[string, MinuteSummary](SummaryStoreCapacity)
	tenMinuteStore, _ := lru.New[string, TenMinuteSummary](SummaryStoreCapacity)
	return &Summarizer{
		registry:       registry,
		client:         client,
		logger:         logging.OrNop(logger),
		now:            time.Now,
		minuteStore:    minuteStore,
		tenMinuteStore: tenMinuteStore,
	}
}

// Run starts both periodic ticks until ctx is cancelled.
func (s *Summarizer) Run(ctx context.Context) {
	async.Go(s.logger, "summarizer.minute", func() {
		async.Every(ctx, s.logger, "summarizer.minute", MinuteInterval, s.minuteTick)
	})
	async.Go(s.logger, "summarizer.tenminute", func() {
		async.Every(ctx, s.logger, "summarizer.tenminute", TenMinuteInterval, s.tenMinuteTick)
	})
}

func (s *Summarizer) minuteTick(ctx context.Context) {
	window := s.registry.Recent(MinuteInterval)
	if len(window) < MinActionsForMinuteSummary {
		return
	}

	prompt := buildMinutePrompt(window)
	text, err := s.client.Ask(ctx, prompt, "summarizer.minute")
	if err != nil {
		s.logger.Warn("summarizer: minute-tick llm call failed: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.minuteNextID++
	id := "min-" + strconv.FormatUint(s.minuteNextID, 10)
	s.minuteStore.Add(id, MinuteSummary{
		ID:          id,
		Timestamp:   s.now(),
		Summary:     strings.TrimSpace(text),
		ActionCount: len(window),
	})
}

func (s *Summarizer) tenMinuteTick(ctx context.Context) {
	recentMinutes := s.recentMinuteSummaries(TenMinuteLookback)

	var prompt string
	var totalActions int
	if len(recentMinutes) > 0 {
		prompt = buildTenMinutePromptFromMinutes(recentMinutes)
		for _, m := range recentMinutes {
			totalActions += m.ActionCount
		}
	} else {
		window := s.registry.Recent(TenMinuteInterval)
		if len(window) == 0 {
			return
		}
		prompt = buildMinutePrompt(window)
		totalActions = len(window)
	}

	text, err := s.client.Ask(ctx, prompt, "summarizer.tenminute")
	if err != nil {
		s.logger.Warn("summarizer: ten-minute-tick llm call failed: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenNextID++
	id := "ten-" + strconv.FormatUint(s.tenNextID, 10)
	s.tenMinuteStore.Add(id, TenMinuteSummary{
		ID:           id,
		Timestamp:    s.now(),
		Summary:      strings.TrimSpace(text),
		TotalActions: totalActions,
	})
}

// recentMinuteSummaries returns up to n of the most recently added
// minute summaries, oldest first.
func (s *Summarizer) recentMinuteSummaries(n int) []MinuteSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.minuteStore.Keys()
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}
	out := make([]MinuteSummary, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.minuteStore.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}

// MinuteSummaries returns every stored minute summary, oldest first.
func (s *Summarizer) MinuteSummaries() []MinuteSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.minuteStore.Keys()
	out := make([]MinuteSummary, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.minuteStore.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}

// TenMinuteSummaries returns every stored ten-minute summary, oldest first.
func (s *Summarizer) TenMinuteSummaries() []TenMinuteSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.tenMinuteStore.Keys()
	out := make([]TenMinuteSummary, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.tenMinuteStore.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}

// DeleteMinuteSummary removes a minute summary by id (spec §4.6
// "independently deletable").
func (s *Summarizer) DeleteMinuteSummary(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minuteStore.Remove(id)
}

// DeleteTenMinuteSummary removes a ten-minute summary by id.
func (s *Summarizer) DeleteTenMinuteSummary(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenMinuteStore.Remove(id)
}

func buildMinutePrompt(window []action.Action) string {
	var b strings.Builder
	b.WriteString("Compose a one- or two-sentence prose summary of this activity window:\n")
	for _, a := range window {
		b.WriteString(fmt.Sprintf("- %s (%s)\n", a.Type, a.Source))
	}
	return tokenbudget.TruncateToTokens(b.String(), PromptTokenBudget)
}

func buildTenMinutePromptFromMinutes(minutes []MinuteSummary) string {
	var b strings.Builder
	b.WriteString("Compose a longer narrative summary from these minute-by-minute summaries:\n")
	for _, m := range minutes {
		b.WriteString("- " + m.Summary + "\n")
	}
	return tokenbudget.TruncateToTokens(b.String(), PromptTokenBudget)
}
