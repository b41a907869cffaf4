package resilience

import (
	"context"
	"log/slog"
	"math"
	"time"

	"docmill/internal/logging"
)

// RetryConfig describes the backoff schedule for transient failures.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget including the first call.
	MaxAttempts int
	// BaseDelay seeds the schedule: delay = BaseDelay * Factor^(attempt-1).
	BaseDelay time.Duration
	// Factor is the exponential growth multiplier.
	Factor float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// OnRetry, when set, observes every scheduled retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig mirrors the configuration defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    30 * time.Second,
	}
}

// Retry executes operations with exponential backoff for transient errors.
type Retry struct {
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetry constructs a retry executor, filling zero config fields with
// defaults.
func NewRetry(cfg RetryConfig, logger *slog.Logger) *Retry {
	defaults := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.Factor <= 1 {
		cfg.Factor = defaults.Factor
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Retry{cfg: cfg, logger: logger}
}

// Execute runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The context is checked between attempts; that gap
// is the cooperative cancellation checkpoint, so an in-progress attempt is
// never abandoned mid-call.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		lastErr = err
		if attempt >= r.cfg.MaxAttempts {
			break
		}

		delay := r.delayFor(attempt)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, delay)
		}
		r.logger.Warn("transient failure, retry scheduled",
			logging.Args(
				logging.String(logging.FieldEventType, "retry_scheduled"),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
			)...)

		select {
		case <-ctx.Done():
			return Wrap(ErrCancelled, "retry", "wait", "cancelled between attempts", ctx.Err())
		case <-time.After(delay):
		}
	}
	return &MaxRetryExceededError{Attempts: r.cfg.MaxAttempts, Cause: lastErr}
}

func (r *Retry) delayFor(attempt int) time.Duration {
	multiplier := math.Pow(r.cfg.Factor, float64(attempt-1))
	delay := time.Duration(float64(r.cfg.BaseDelay) * multiplier)
	if delay > r.cfg.MaxDelay || delay <= 0 {
		delay = r.cfg.MaxDelay
	}
	return delay
}
