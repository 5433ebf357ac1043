package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, Timeout: 100 * time.Millisecond})

	if cb.State() != StateClosed {
		t.Fatalf("expected closed state, got %v", cb.State())
	}
	for i := 0; i < 5; i++ {
		if err := cb.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected to remain closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, Timeout: 100 * time.Millisecond}
	cb := NewCircuitBreaker("test", cfg)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("failure") })
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open state after %d failures, got %v", cfg.FailureThreshold, cb.State())
	}

	err := cb.Execute(context.Background(), func(context.Context) error {
		t.Fatal("function must not run while circuit is open")
		return nil
	})
	if err == nil || !IsDegraded(err) {
		t.Fatalf("expected degraded error, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, Timeout: 20 * time.Millisecond}
	cb := NewCircuitBreaker("test", cfg)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("fail") })
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %v", cb.State())
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
			t.Fatalf("unexpected error during recovery: %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after success threshold, got %v", cb.State())
	}
}
