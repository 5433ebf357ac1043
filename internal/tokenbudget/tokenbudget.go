// Package tokenbudget estimates and trims prompt text to a token
// budget before it is handed to the LLM Client, using the same
// tiktoken cl100k_base encoding the teacher uses for its own context
// window accounting (internal/shared/token/tokenutil_test.go), with a
// words/runes fallback if the encoding can't be loaded.
package tokenbudget

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

var encoding *tiktoken.Tiktoken

func init() {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err == nil {
		encoding = enc
	}
}

// CountTokens returns the token count of text, using cl100k_base when
// available and falling back to EstimateFast otherwise.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast is a cheap word/rune-based token estimate, used when the
// tiktoken encoding could not be loaded.
func EstimateFast(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	runeEstimate := len([]rune(text)) / 4
	if words > runeEstimate {
		return words
	}
	return runeEstimate
}

// TruncateToTokens truncates text so it fits within max tokens,
// appending "...". max <= 0 is a no-op (unbounded).
func TruncateToTokens(text string, max int) string {
	if max <= 0 {
		return text
	}
	if encoding == nil {
		return truncateFastToTokens(text, max)
	}
	tokens := encoding.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return encoding.Decode(tokens[:max]) + "..."
}

func truncateFastToTokens(text string, max int) string {
	if EstimateFast(text) <= max {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ") + "..."
}
