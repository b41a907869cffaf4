package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"docmill/internal/resilience"
)

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	var delays []time.Duration
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Millisecond,
		Factor:      2,
		MaxDelay:    time.Second,
		OnRetry: func(_ int, _ error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}, nil)

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return resilience.Wrap(resilience.ErrTransientIO, "test", "op", "flaky", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(delays) != 2 || delays[0] != 5*time.Millisecond || delays[1] != 10*time.Millisecond {
		t.Fatalf("unexpected delay schedule %v", delays)
	}
}

func TestExecuteDoesNotRetryValidation(t *testing.T) {
	r := resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond}, nil)

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return resilience.Wrap(resilience.ErrValidation, "test", "op", "bad input", nil)
	})
	if !errors.Is(err, resilience.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("validation errors must not consume retries, got %d calls", calls)
	}
}

func TestExecuteWrapsExhaustion(t *testing.T) {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Factor:      2,
		MaxDelay:    time.Second,
	}, nil)

	cause := resilience.Wrap(resilience.ErrNativeInterop, "host", "export", "no response", nil)
	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return cause
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	var exceeded *resilience.MaxRetryExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected MaxRetryExceededError, got %v", err)
	}
	if exceeded.Attempts != 3 {
		t.Fatalf("expected attempt count 3, got %d", exceeded.Attempts)
	}
	if !errors.Is(err, resilience.ErrNativeInterop) {
		t.Fatalf("wrapped error should retain the underlying cause, got %v", err)
	}
}

func TestExecuteStopsBetweenAttemptsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		Factor:      2,
		MaxDelay:    time.Second,
	}, nil)

	calls := 0
	err := r.Execute(ctx, func(context.Context) error {
		calls++
		cancel()
		return resilience.Wrap(resilience.ErrTransientIO, "test", "op", "flaky", nil)
	})
	if !errors.Is(err, resilience.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("cancel must be honored at the between-attempt checkpoint, got %d calls", calls)
	}
}
