package errors

import "fmt"

// transientError wraps a root cause deemed safe to retry (timeouts,
// rate limits, 5xx, network blips).
type transientError struct {
	cause   error
	userMsg string
}

func (e *transientError) Error() string { return e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }

// permanentError wraps a root cause that retrying cannot fix (bad
// credentials, invalid request, 4xx other than 429).
type permanentError struct {
	cause   error
	userMsg string
}

func (e *permanentError) Error() string { return e.cause.Error() }
func (e *permanentError) Unwrap() error { return e.cause }

// NewTransientError marks err as retryable, with a user-facing message.
func NewTransientError(err error, userMsg string) error {
	if err == nil {
		return nil
	}
	return &transientError{cause: err, userMsg: userMsg}
}

// NewPermanentError marks err as non-retryable, with a user-facing message.
func NewPermanentError(err error, userMsg string) error {
	if err == nil {
		return nil
	}
	return &permanentError{cause: err, userMsg: userMsg}
}

// IsTransient reports whether err was classified as safe to retry.
// Unclassified errors are treated as transient by default so a bare
// network hiccup still gets retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*permanentError); ok {
		return false
	}
	if _, ok := err.(*degradedError); ok {
		return false
	}
	return true
}

// IsDegraded reports whether err came from an open circuit breaker.
func IsDegraded(err error) bool {
	_, ok := err.(*degradedError)
	return ok
}

// FormatForUser extracts the human-facing message recorded on a
// classified error, falling back to err.Error().
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case *transientError:
		if e.userMsg != "" {
			return e.userMsg
		}
	case *permanentError:
		if e.userMsg != "" {
			return e.userMsg
		}
	case *degradedError:
		return fmt.Sprintf("%s is temporarily unavailable; try again shortly.", e.breakerName)
	}
	return err.Error()
}
