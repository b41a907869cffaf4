package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestBreaker(cfg BreakerConfig) (*Breaker, *time.Time) {
	b := NewBreaker(cfg, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.clock = func() time.Time { return now }
	return b, &now
}

func failingOp(context.Context) error {
	return Wrap(ErrNativeInterop, "host", "open", "unresponsive", nil)
}

func succeedingOp(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 5, Window: time.Minute, BreakDuration: 30 * time.Second})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := b.Execute(ctx, failingOp); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d should have reached the operation", i+1)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open after threshold, got %v", b.State())
	}

	invoked := false
	err := b.Execute(ctx, func(context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected fast failure, got %v", err)
	}
	if invoked {
		t.Fatal("operation must not run while the circuit is open")
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{FailureThreshold: 2, Window: time.Minute, BreakDuration: 30 * time.Second})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = b.Execute(ctx, failingOp)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	*now = now.Add(31 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after break duration, got %v", b.State())
	}

	// Exactly one trial call is admitted.
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	if err := b.Execute(ctx, succeedingOp); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second call during trial should fail fast, got %v", err)
	}
	close(release)

	waitForState(t, b, StateClosed)
}

func TestBreakerReopensOnTrialFailure(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{FailureThreshold: 1, Window: time.Minute, BreakDuration: 10 * time.Second})
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	*now = now.Add(11 * time.Second)
	if err := b.Execute(ctx, failingOp); errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("trial call should have been admitted, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected reopen after trial failure, got %v", b.State())
	}
}

func TestBreakerWindowExpiryResetsStreak(t *testing.T) {
	b, now := newTestBreaker(BreakerConfig{FailureThreshold: 3, Window: time.Minute, BreakDuration: 10 * time.Second})
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	_ = b.Execute(ctx, failingOp)

	// Streak ages out before the third failure lands.
	*now = now.Add(2 * time.Minute)
	_ = b.Execute(ctx, failingOp)
	if b.State() != StateClosed {
		t.Fatalf("stale streak should not open the circuit, got %v", b.State())
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 1, Window: time.Minute, BreakDuration: 10 * time.Second})
	ctx := context.Background()

	err := b.Execute(ctx, func(context.Context) error {
		return Wrap(ErrCancelled, "queue", "item", "stopped", nil)
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("cancellation must not trip the breaker, got %v", b.State())
	}
}

func waitForState(t *testing.T, b *Breaker, want BreakerState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if b.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("breaker never reached %v, still %v", want, b.State())
}
