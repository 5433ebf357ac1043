package async

import (
	"context"
	"time"
)

// Every runs fn every interval until ctx is cancelled, on a goroutine
// started via Go; a panic in fn is recovered per call rather than
// killing the ticking loop. fn is not run immediately: the first
// invocation happens after the first interval elapses, matching the
// periodic tasks described for the detector and summariser (first tick
// occurs one period in).
func Every(ctx context.Context, logger PanicLogger, name string, interval time.Duration, fn func(context.Context)) {
	Go(logger, name, func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer Recover(logger, name)
					fn(ctx)
				}()
			}
		}
	})
}
