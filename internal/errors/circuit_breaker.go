package errors

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is a circuit breaker's current disposition.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes how many failures open the circuit, how
// many half-open successes close it again, and how long it stays open.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// CircuitBreaker protects a flaky dependency (an LLM provider) from
// cascading retries once it is clearly down.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	mu     sync.Mutex
	state  State
	fails  int
	succs  int
	openAt time.Time
}

// NewCircuitBreaker constructs a closed circuit breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// State returns the current breaker state, transitioning open->half-open
// if the timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked()
	return cb.state
}

func (cb *CircuitBreaker) maybeHalfOpenLocked() {
	if cb.state == StateOpen && time.Since(cb.openAt) >= cb.cfg.Timeout {
		cb.state = StateHalfOpen
		cb.succs = 0
	}
}

type degradedError struct {
	breakerName string
}

func (e *degradedError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.breakerName)
}

// Execute runs fn if the circuit permits it, recording the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	cb.maybeHalfOpenLocked()
	if cb.state == StateOpen {
		cb.mu.Unlock()
		return &degradedError{breakerName: cb.name}
	}
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.fails++
		cb.succs = 0
		if cb.state == StateHalfOpen || cb.fails >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openAt = time.Now()
		}
		return err
	}

	cb.fails = 0
	if cb.state == StateHalfOpen {
		cb.succs++
		if cb.succs >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.succs = 0
		}
	}
	return nil
}

// ExecuteFunc is the generic counterpart of Execute for functions that
// return a result alongside an error.
func ExecuteFunc[T any](cb *CircuitBreaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var result T
	err := cb.Execute(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}
