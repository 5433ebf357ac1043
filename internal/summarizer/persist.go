package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"deskloop/internal/async"
	"deskloop/internal/logging"
)

// PersistInterval matches the Action Registry's and Lifecycle
// Manager's background flush cadence.
const PersistInterval = 30 * time.Second

// PersistMinute serialises the minute-granularity store to path
// atomically, as a bare list of records (spec §6 "summaries_minute.json:
// list of summary records").
func (s *Summarizer) PersistMinute(fs afero.Fs, path string) error {
	s.mu.Lock()
	records := make([]MinuteSummary, 0, s.minuteStore.Len())
	for _, k := range s.minuteStore.Keys() {
		if v, ok := s.minuteStore.Peek(k); ok {
			records = append(records, v)
		}
	}
	s.mu.Unlock()
	return writeJSONAtomic(fs, path, records)
}

// PersistTenMinute serialises the ten-minute-granularity store to path
// atomically, as a bare list of records (spec §6 "summaries_ten_minute.json:
// list of summary records").
func (s *Summarizer) PersistTenMinute(fs afero.Fs, path string) error {
	s.mu.Lock()
	records := make([]TenMinuteSummary, 0, s.tenMinuteStore.Len())
	for _, k := range s.tenMinuteStore.Keys() {
		if v, ok := s.tenMinuteStore.Peek(k); ok {
			records = append(records, v)
		}
	}
	s.mu.Unlock()
	return writeJSONAtomic(fs, path, records)
}

// Persist flushes both summary stores to their respective documented
// files (spec §6).
func (s *Summarizer) Persist(fs afero.Fs, minutePath, tenMinutePath string) error {
	if err := s.PersistMinute(fs, minutePath); err != nil {
		return err
	}
	return s.PersistTenMinute(fs, tenMinutePath)
}

// Load resumes both summary stores from their respective documented
// files. A missing or corrupt file leaves that store empty, never an
// error. next-id counters resume from the highest numeric suffix seen
// in each store's ids, mirroring the Action Registry's max-id resume.
func (s *Summarizer) Load(fs afero.Fs, minutePath, tenMinutePath string) {
	var minutes []MinuteSummary
	if raw, err := afero.ReadFile(fs, minutePath); err == nil {
		if err := json.Unmarshal(raw, &minutes); err != nil {
			s.logger.Warn("minute summaries file corrupt, starting empty: %v", err)
			minutes = nil
		}
	}
	var tenMinutes []TenMinuteSummary
	if raw, err := afero.ReadFile(fs, tenMinutePath); err == nil {
		if err := json.Unmarshal(raw, &tenMinutes); err != nil {
			s.logger.Warn("ten-minute summaries file corrupt, starting empty: %v", err)
			tenMinutes = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range minutes {
		s.minuteStore.Add(m.ID, m)
		if n := idSuffix(m.ID, "min-"); n > s.minuteNextID {
			s.minuteNextID = n
		}
	}
	for _, t := range tenMinutes {
		s.tenMinuteStore.Add(t.ID, t)
		if n := idSuffix(t.ID, "ten-"); n > s.tenNextID {
			s.tenNextID = n
		}
	}
}

// idSuffix parses the numeric suffix of an "<prefix><n>" id, returning
// 0 if id does not carry that prefix or the suffix isn't numeric.
func idSuffix(id, prefix string) uint64 {
	if !strings.HasPrefix(id, prefix) {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(id, prefix), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// RunPersistLoop flushes both summary stores to their documented files
// on PersistInterval until ctx is cancelled.
func (s *Summarizer) RunPersistLoop(ctx context.Context, fs afero.Fs, minutePath, tenMinutePath string) {
	async.Every(ctx, s.logger, "summarizer.persist", PersistInterval, func(context.Context) {
		if err := s.Persist(fs, minutePath, tenMinutePath); err != nil {
			s.logger.Warn("summaries persist failed: %v", err)
		}
	})
}

func writeJSONAtomic(fs afero.Fs, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", path, err)
	}
	return fs.Rename(tmp, path)
}

// --- AIInteraction log persistence ---

// Persist serialises the interaction log to path atomically, as a bare
// list of records (spec §6 "ai_interactions.json: list of
// {timestamp, agent, prompt, response}").
func (l *InteractionLog) Persist(fs afero.Fs, path string) error {
	records := l.All()
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal interactions: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure interactions dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp interactions: %w", err)
	}
	return fs.Rename(tmp, path)
}

// Load resumes the interaction log from path. A missing or corrupt
// file leaves the log empty, never an error. nextID resumes from the
// highest numeric suffix seen in the loaded ids ("ai-<n>").
func (l *InteractionLog) Load(fs afero.Fs, path string) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return
	}
	var records []AIInteraction
	if err := json.Unmarshal(raw, &records); err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, in := range records {
		l.cache.Add(in.ID, in)
		if n := idSuffix(in.ID, "ai-"); n > l.nextID {
			l.nextID = n
		}
	}
}

// RunPersistLoop flushes the interaction log to path on PersistInterval
// until ctx is cancelled.
func (l *InteractionLog) RunPersistLoop(ctx context.Context, logger logging.Logger, fs afero.Fs, path string) {
	logger = logging.OrNop(logger)
	async.Every(ctx, logger, "interactions.persist", PersistInterval, func(context.Context) {
		if err := l.Persist(fs, path); err != nil {
			logger.Warn("ai interaction log persist failed: %v", err)
		}
	})
}
