package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBusy = errors.New("busy")

func busy(err error) bool { return errors.Is(err, errBusy) }

func TestDo_RetriesMatchingError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{Attempts: 3}, busy, func() error {
		attempts++
		return errBusy
	})

	if !errors.Is(err, errBusy) {
		t.Fatalf("expected errBusy, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_NoRetryOnOtherError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{Attempts: 3}, busy, func() error {
		attempts++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_NilPredicateRunsOnce(t *testing.T) {
	attempts := 0
	_ = Do(context.Background(), Policy{Attempts: 5}, nil, func() error {
		attempts++
		return errBusy
	})
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{Attempts: 3}, busy, func() error {
		attempts++
		if attempts == 1 {
			return errBusy
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDo_CanceledDuringWaitReturnsLastError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, Policy{Attempts: 3, BaseDelay: time.Hour}, busy, func() error {
		attempts++
		return errBusy
	})

	if !errors.Is(err, errBusy) {
		t.Fatalf("expected errBusy, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestBackoffDelay(t *testing.T) {
	if delay := backoffDelay(0, time.Second, 1); delay != 0 {
		t.Fatalf("expected zero delay, got %v", delay)
	}
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffDelay(time.Second, 4*time.Second, attempt)
		if d > 4*time.Second || d < 500*time.Millisecond {
			t.Errorf("attempt %d: delay %v outside window", attempt, d)
		}
	}
}

func TestOnce(t *testing.T) {
	if p := Once(); p.Attempts != 1 {
		t.Fatalf("Once().Attempts = %d", p.Attempts)
	}
}
