package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input rejected at admission; never queued, never retried.
	ErrValidation = errors.New("validation error")
	// ErrTransientIO marks recoverable filesystem or stream failures.
	ErrTransientIO = errors.New("transient io error")
	// ErrNativeInterop marks automation-host communication failures
	// (host unavailable, unresponsive, or mid-call disconnect).
	ErrNativeInterop = errors.New("native interop error")
	// ErrTimeout marks an operation that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrCircuitOpen is returned while the breaker refuses calls.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrCancelled marks cooperative cancellation of a work item.
	ErrCancelled = errors.New("cancelled")
)

// Wrap builds an error tagged with one of the sentinel markers above while
// keeping component/operation context in the message. A nil marker defaults
// to ErrTransientIO so unclassified failures stay retryable.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransientIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error belongs to the closed set of transient
// categories worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrCancelled),
		errors.Is(err, ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrTransientIO),
		errors.Is(err, ErrNativeInterop),
		errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

// Cancelled reports whether an error represents cooperative cancellation.
func Cancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// MaxRetryExceededError wraps the final failure after the attempt budget is
// spent. Callers observe this wrapper, not the raw cause.
type MaxRetryExceededError struct {
	Attempts int
	Cause    error
}

func (e *MaxRetryExceededError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *MaxRetryExceededError) Unwrap() error { return e.Cause }

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
