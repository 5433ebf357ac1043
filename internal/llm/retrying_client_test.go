package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	deskerrors "deskloop/internal/errors"
)

type fakeTransport struct {
	mu      sync.Mutex
	calls   int
	err     error
	persist bool // if true, keep returning err forever; else clear after first failure
	resp    string
}

func (f *fakeTransport) Model() string { return "fake" }

func (f *fakeTransport) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		err := f.err
		if !f.persist {
			f.err = nil
		}
		return "", err
	}
	return f.resp, nil
}

type recordedInteraction struct {
	agentTag string
	prompt   string
	response string
}

type fakeRecorder struct {
	mu           sync.Mutex
	interactions []recordedInteraction
}

func (f *fakeRecorder) RecordInteraction(at time.Time, agentTag, prompt, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions = append(f.interactions, recordedInteraction{agentTag, prompt, response})
}

func newTestBreaker() *deskerrors.CircuitBreaker {
	return deskerrors.NewCircuitBreaker("test", deskerrors.CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          time.Second,
	})
}

func TestAsk_SucceedsAfterTransientFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("503 service unavailable"), resp: "hello"}
	recorder := &fakeRecorder{}
	client := NewRetryingClient(transport, deskerrors.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}, newTestBreaker(), recorder, nil)

	got, err := client.Ask(context.Background(), "prompt", "detector")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if transport.calls < 2 {
		t.Fatalf("expected at least one retry, got %d calls", transport.calls)
	}
	if len(recorder.interactions) != 1 || recorder.interactions[0].response != "hello" {
		t.Fatalf("expected one recorded interaction with the successful response, got %+v", recorder.interactions)
	}
}

func TestAsk_PermanentErrorStopsImmediatelyAndRecordsFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("401 unauthorized"), persist: true}
	recorder := &fakeRecorder{}
	client := NewRetryingClient(transport, deskerrors.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, newTestBreaker(), recorder, nil)

	_, err := client.Ask(context.Background(), "prompt", "detector")
	if err == nil {
		t.Fatal("expected a terminal error")
	}
	var llmErr *Error
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected an *llm.Error, got %T: %v", err, err)
	}
	if transport.calls != 1 {
		t.Fatalf("expected exactly one attempt for a permanent error, got %d", transport.calls)
	}
	if len(recorder.interactions) != 1 || recorder.interactions[0].response != "" {
		t.Fatalf("expected one recorded interaction with an empty response on failure, got %+v", recorder.interactions)
	}
}

func TestAsk_ExhaustsRetriesOnPersistentTransientFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused"), persist: true}
	client := NewRetryingClient(transport, deskerrors.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}, newTestBreaker(), nil, nil)

	_, err := client.Ask(context.Background(), "prompt", "detector")
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if transport.calls != 3 {
		t.Fatalf("expected 1 + MaxAttempts = 3 calls, got %d", transport.calls)
	}
}
