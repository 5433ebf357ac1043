package logging

import "time"

// LatencyLogger logs operation durations that exceed a threshold, the
// way the control-plane router times request handling.
type LatencyLogger struct {
	inner     Logger
	threshold time.Duration
}

// NewLatencyLogger builds a LatencyLogger for the named component with
// the default 200ms threshold.
func NewLatencyLogger(component string) *LatencyLogger {
	return &LatencyLogger{
		inner:     NewComponentLogger(component),
		threshold: 200 * time.Millisecond,
	}
}

// WithThreshold overrides the default logging threshold.
func (l *LatencyLogger) WithThreshold(d time.Duration) *LatencyLogger {
	if l == nil {
		return nil
	}
	l.threshold = d
	return l
}

// Observe logs op's duration if it exceeds the threshold.
func (l *LatencyLogger) Observe(op string, d time.Duration) {
	if l == nil || d < l.threshold {
		return
	}
	l.inner.Warn("%s took %v (threshold %v)", op, d, l.threshold)
}
