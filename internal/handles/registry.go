package handles

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"docmill/internal/logging"
)

// Registry tracks every live native handle in the process along with
// monotonic acquire/release counters. It is constructed at startup and torn
// down at shutdown; there is deliberately no package-level instance.
type Registry struct {
	logger *slog.Logger

	mu   sync.Mutex
	next uint64
	live map[uint64]tracked

	acquired atomic.Int64
	released atomic.Int64
}

// NewRegistry constructs an empty handle registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logging.NewComponentLogger(logger, "handle-registry"),
		live:   make(map[uint64]tracked),
	}
}

// Acquired returns the monotonic count of handles ever tracked.
func (r *Registry) Acquired() int64 { return r.acquired.Load() }

// Released returns the monotonic count of handles released.
func (r *Registry) Released() int64 { return r.released.Load() }

// Active returns the number of handles currently outstanding.
func (r *Registry) Active() int64 { return r.acquired.Load() - r.released.Load() }

func (r *Registry) register(ref Releaser, kind Kind, label string) uint64 {
	r.mu.Lock()
	r.next++
	id := r.next
	r.live[id] = tracked{id: id, ref: ref, kind: kind, label: label, acquiredAt: time.Now()}
	r.mu.Unlock()
	r.acquired.Add(1)
	return id
}

// release removes and releases one handle. The bool reports whether the id
// was still live; false means it was already released (normally, or
// force-released by recovery).
func (r *Registry) release(id uint64) (tracked, error, bool) {
	r.mu.Lock()
	entry, ok := r.live[id]
	if ok {
		delete(r.live, id)
	}
	r.mu.Unlock()
	if !ok {
		return tracked{}, nil, false
	}
	r.released.Add(1)
	return entry, entry.ref.Release(), true
}

// ForceReleaseAll releases every outstanding handle regardless of owning
// scope. This is the health monitor's recovery hammer; scopes whose handles
// were force-released will find them gone at Close and skip them.
func (r *Registry) ForceReleaseAll() int {
	r.mu.Lock()
	doomed := make([]tracked, 0, len(r.live))
	for _, entry := range r.live {
		doomed = append(doomed, entry)
	}
	r.live = make(map[uint64]tracked)
	r.mu.Unlock()

	// Newest first: later acquisitions typically depend on earlier ones.
	sort.Slice(doomed, func(i, j int) bool { return doomed[i].id > doomed[j].id })
	for _, entry := range doomed {
		r.released.Add(1)
		if err := entry.ref.Release(); err != nil {
			r.logger.Warn("forced release failed",
				logging.Args(
					logging.String(logging.FieldEventType, "handle_force_release_failed"),
					logging.String("kind", string(entry.kind)),
					logging.String("context", entry.label),
					logging.Error(err),
				)...)
		}
	}
	if len(doomed) > 0 {
		r.logger.Warn("force-released outstanding handles",
			logging.Args(
				logging.String(logging.FieldEventType, "handle_force_release"),
				logging.Int("count", len(doomed)),
			)...)
	}
	return len(doomed)
}
