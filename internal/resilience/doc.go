// Package resilience classifies conversion failures and wraps operations
// with retry and circuit-breaking behavior.
//
// The error taxonomy drives every downstream decision: only transient
// categories (I/O, host interop, timeouts) are retried; validation errors,
// cancellation, and circuit-open failures propagate immediately without
// consuming a retry attempt. Once the attempt budget is exhausted the last
// cause is wrapped in MaxRetryExceededError so callers observe the attempt
// count alongside the underlying failure.
//
// The circuit breaker protects a struggling automation host: after a run of
// consecutive failures inside the sampling window it fails fast without
// contacting the host, then lets exactly one trial call through once the
// break duration elapses.
package resilience
