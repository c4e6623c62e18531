// Package retry re-runs host tool invocations that fail for transient
// reasons, such as a database server still starting or a package lock
// held by another process.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Predicate determines whether an error should be retried.
type Predicate func(error) bool

// Policy controls retry behavior.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy waits roughly half a minute in total before giving up.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  6,
		BaseDelay: time.Second,
		MaxDelay:  8 * time.Second,
	}
}

// Once disables retrying.
func Once() Policy { return Policy{Attempts: 1} }

// Do executes fn until it succeeds, shouldRetry rejects the error, or the
// policy's attempts are used up. The last error is returned. A nil
// predicate never retries.
func Do(ctx context.Context, p Policy, shouldRetry Predicate, fn func() error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == p.Attempts || shouldRetry == nil || !shouldRetry(err) {
			return err
		}

		delay := backoffDelay(p.BaseDelay, p.MaxDelay, attempt)
		if delay <= 0 {
			continue
		}
		if !sleep(ctx, delay) {
			return err
		}
	}

	return err
}

// backoffDelay doubles base per attempt up to max and returns a value in
// the upper half of that window.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base << (attempt - 1)
	if max > 0 && delay > max {
		delay = max
	}

	half := int64(delay) / 2
	if half <= 0 {
		return delay
	}
	return time.Duration(half + rand.Int63n(half+1))
}

func sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
