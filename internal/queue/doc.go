// Package queue holds the in-memory batch queue and the processor that
// drives admitted items through conversion.
//
// Admission is synchronous: Add validates the input file and resolves its
// conversion strategy before the item ever reaches the queue, so a rejected
// file is never counted as admitted. Processing is bounded by a semaphore
// independent of the affinity worker count, and every attempt runs inside
// its own handle scope on a pinned worker. Transient failures follow the
// retry schedule; repeated host failures trip the circuit breaker, which
// fails the remaining items fast instead of hammering a dead host.
//
// The processor finishes exactly once: when the queue is empty and no item
// is in flight it emits a drained event, invokes the finalize hook, and
// closes the event stream.
package queue
