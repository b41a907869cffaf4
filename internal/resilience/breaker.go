package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"docmill/internal/logging"
)

// BreakerState is the circuit phase.
type BreakerState int

const (
	// StateClosed lets all calls through.
	StateClosed BreakerState = iota
	// StateOpen fails every call fast without contacting the host.
	StateOpen
	// StateHalfOpen admits exactly one trial call.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the failure threshold and timing.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// Window bounds how long a failure streak stays relevant; a streak whose
	// first failure is older than the window starts counting from scratch.
	Window time.Duration
	// BreakDuration is how long the circuit stays open before a trial call.
	BreakDuration time.Duration
}

// DefaultBreakerConfig mirrors the configuration defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Window:           time.Minute,
		BreakDuration:    30 * time.Second,
	}
}

// Breaker is a consecutive-failure circuit breaker guarding the automation
// host. Cancellation and validation failures do not count against it.
type Breaker struct {
	cfg    BreakerConfig
	logger *slog.Logger
	clock  func() time.Time

	mu          sync.Mutex
	state       BreakerState
	consecutive int
	windowStart time.Time
	breakUntil  time.Time
	trialActive bool
}

// NewBreaker constructs a circuit breaker, filling zero config fields with
// defaults.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *Breaker {
	defaults := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.BreakDuration <= 0 {
		cfg.BreakDuration = defaults.BreakDuration
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Breaker{cfg: cfg, logger: logger, clock: time.Now, state: StateClosed}
}

// Execute gates op behind the circuit. While open it returns ErrCircuitOpen
// without invoking op.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := op(ctx)
	b.afterCall(err)
	return err
}

// State reports the current phase, applying any due open→half-open move.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateOpen:
		return Wrap(ErrCircuitOpen, "breaker", "admit", "host calls suspended", nil)
	case StateHalfOpen:
		if b.trialActive {
			return Wrap(ErrCircuitOpen, "breaker", "admit", "trial call already in flight", nil)
		}
		b.trialActive = true
	}
	return nil
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failure := err != nil && !Cancelled(err) && !isValidation(err)
	now := b.clock()

	switch b.state {
	case StateClosed:
		if !failure {
			b.consecutive = 0
			return
		}
		if b.consecutive == 0 || now.Sub(b.windowStart) > b.cfg.Window {
			b.windowStart = now
			b.consecutive = 0
		}
		b.consecutive++
		if b.consecutive >= b.cfg.FailureThreshold {
			b.open(now)
		}
	case StateHalfOpen:
		b.trialActive = false
		if failure {
			b.open(now)
			return
		}
		b.transition(StateClosed)
		b.consecutive = 0
	}
}

func (b *Breaker) stateLocked() BreakerState {
	if b.state == StateOpen && !b.clock().Before(b.breakUntil) {
		b.transition(StateHalfOpen)
		b.trialActive = false
	}
	return b.state
}

func (b *Breaker) open(now time.Time) {
	b.breakUntil = now.Add(b.cfg.BreakDuration)
	b.transition(StateOpen)
}

func (b *Breaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.logger.Warn("circuit state changed",
		logging.Args(
			logging.String(logging.FieldEventType, "circuit_transition"),
			logging.String("from", prev.String()),
			logging.String("to", next.String()),
			logging.Int("consecutive_failures", b.consecutive),
		)...)
}

func isValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
