package summarizer

import (
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// InteractionLogCapacity bounds the AIInteraction log (spec §3
// AIInteraction, matching the Rolling Summariser's 500-entry soft cap).
const InteractionLogCapacity = 500

// AIInteraction is one LLM call, logged on both success and terminal
// failure (spec §4.7).
type AIInteraction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AgentTag  string    `json:"agent"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
}

// InteractionLog implements llm.Recorder over a bounded, insertion-
// ordered store.
type InteractionLog struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, AIInteraction]
	nextID uint64
	newID  func(uint64) string
}

// NewInteractionLog constructs an empty log capped at
// InteractionLogCapacity entries.
func NewInteractionLog() *InteractionLog {
	cache, _ := lru.New[string, AIInteraction](InteractionLogCapacity)
	return &InteractionLog{
		cache: cache,
		newID: func(n uint64) string { return "ai-" + strconv.FormatUint(n, 10) },
	}
}

// RecordInteraction implements llm.Recorder.
func (l *InteractionLog) RecordInteraction(at time.Time, agentTag, prompt, response string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.newID(l.nextID)
	l.cache.Add(id, AIInteraction{
		ID:        id,
		Timestamp: at,
		AgentTag:  agentTag,
		Prompt:    prompt,
		Response:  response,
	})
}

// All returns every logged interaction, oldest first.
func (l *InteractionLog) All() []AIInteraction {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := l.cache.Keys()
	out := make([]AIInteraction, 0, len(keys))
	for _, k := range keys {
		if v, ok := l.cache.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}
