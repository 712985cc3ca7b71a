// Package poll provides a bounded polling primitive for waiting on
// external readiness conditions without ad hoc timer loops.
package poll

import (
	"context"
	"time"
)

// Until calls predicate up to maxAttempts times, waiting interval between
// attempts. It returns true as soon as the predicate does, and false when
// the attempt budget is exhausted or the context is cancelled. The first
// attempt runs immediately.
func Until(ctx context.Context, interval time.Duration, maxAttempts int, predicate func() bool) bool {
	if maxAttempts < 1 {
		return false
	}

	for attempt := 1; ; attempt++ {
		if predicate() {
			return true
		}
		if attempt >= maxAttempts {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}
