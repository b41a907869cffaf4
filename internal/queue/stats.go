package queue

import "sync/atomic"

// Stats tracks batch counters. The monotonic counters only ever grow;
// Active moves both ways as items enter and leave flight.
type Stats struct {
	admitted  atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	retries   atomic.Int64
	active    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Admitted  int64
	Rejected  int64
	Completed int64
	Failed    int64
	Cancelled int64
	Retries   int64
	Active    int64
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Admitted:  s.admitted.Load(),
		Rejected:  s.rejected.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Cancelled: s.cancelled.Load(),
		Retries:   s.retries.Load(),
		Active:    s.active.Load(),
	}
}

// Settled reports whether every admitted item reached a terminal status.
func (s StatsSnapshot) Settled() bool {
	return s.Completed+s.Failed+s.Cancelled == s.Admitted
}
