package pipecheck

import (
	"context"
	"time"
)

// WaitUntil polls pred every backoff until it returns true or timeout
// elapses. The predicate is evaluated before the first sleep, so an
// immediately-true condition never waits. Returns ErrWaitTimeout on expiry
// and the context error if ctx is cancelled first.
func WaitUntil(ctx context.Context, timeout, backoff time.Duration, pred func() bool) error {
	deadline := time.Now().Add(timeout)
	for {
		if pred() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
