// Package errors classifies recoverable vs. fatal failures and provides
// the retry-with-backoff and circuit-breaker primitives the LLM Client
// and Sandbox Executor build on.
package errors

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts  int // additional attempts after the first; 0 disables retry
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // fraction of the delay to randomize, e.g. 0.25
}

// DefaultRetryConfig matches the LLM contract's "up to 3 tries" policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		JitterFactor: 0.25,
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	base := c.BaseDelay
	if base == 0 {
		base = time.Second
	}
	max := c.MaxDelay
	if max == 0 {
		max = 30 * time.Second
	}
	jitter := c.JitterFactor
	if jitter == 0 {
		jitter = 0.25
	}

	d := float64(base) * float64(int(1)<<attempt)
	if d > float64(max) {
		d = float64(max)
	}
	jitterRange := d * jitter
	d = d - jitterRange + (2 * jitterRange * rand.Float64())
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// retryLogger is the minimal logging contract RetryWithResultAndLog needs.
type retryLogger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
}

// RetryWithResultAndLog runs fn, retrying on transient errors up to
// cfg.MaxAttempts additional times with exponential backoff, logging
// each retry. It gives up immediately on a permanent error.
func RetryWithResultAndLog[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error), logger retryLogger) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		d := cfg.delay(attempt)
		if logger != nil {
			logger.Debug("retrying after transient error (attempt %d/%d, wait %v): %v", attempt+1, cfg.MaxAttempts+1, d, err)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(d):
		}
	}
	if logger != nil {
		logger.Warn("giving up after %d attempts: %v", cfg.MaxAttempts+1, lastErr)
	}
	return zero, lastErr
}
