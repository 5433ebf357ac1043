package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithResultAndLog_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	result, err := RetryWithResultAndLog(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("boom"), "boom")
		}
		return "ok", nil
	}, nil)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected ok, got %q", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithResultAndLog_StopsOnPermanentError(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	_, err := RetryWithResultAndLog(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		return "", NewPermanentError(errors.New("bad key"), "bad key")
	}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt for a permanent error, got %d", calls)
	}
}

func TestRetryWithResultAndLog_ExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}
	_, err := RetryWithResultAndLog(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		return "", NewTransientError(errors.New("still failing"), "still failing")
	}, nil)
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 1 + MaxAttempts = 3 calls, got %d", calls)
	}
}
