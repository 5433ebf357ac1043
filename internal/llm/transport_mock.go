package llm

import "context"

// MockTransport is a deterministic Transport for development and tests
// when llm.provider: mock (config.go's default).
type MockTransport struct {
	// Response, when set, is returned verbatim. Otherwise Complete
	// echoes a canned NO_PATTERN answer, matching the detector's safe
	// default for an unconfigured LLM backend.
	Response string
}

func (m *MockTransport) Model() string { return "mock" }

func (m *MockTransport) Complete(ctx context.Context, prompt string) (string, error) {
	if m.Response != "" {
		return m.Response, nil
	}
	return "NO_PATTERN", nil
}
