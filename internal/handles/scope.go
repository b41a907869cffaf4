package handles

import (
	"log/slog"
	"sync"

	"docmill/internal/logging"
)

// Scope owns the native handles acquired during one logical operation and
// guarantees their release when closed. Closing is idempotent and
// best-effort: a failed release is logged and never interrupts the release
// of the remaining handles.
//
// The intended shape is:
//
//	scope := handles.NewScope(registry, logger, "convert item 42")
//	defer scope.Close()
type Scope struct {
	registry *Registry
	logger   *slog.Logger
	label    string

	mu     sync.Mutex
	ids    []uint64
	closed bool
}

// NewScope creates a scope bound to the given registry.
func NewScope(registry *Registry, logger *slog.Logger, label string) *Scope {
	return &Scope{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "handle-scope"),
		label:    label,
	}
}

// Track registers a handle for release at scope close and returns it
// unchanged so acquisition reads naturally:
//
//	doc := handles.Track(scope, app.OpenDocument(path), handles.KindDocument, path)
func Track[T Releaser](s *Scope, handle T, kind Kind, context string) T {
	s.track(handle, kind, context)
	return handle
}

// TrackAll registers a batch of handles in order and returns the slice
// unchanged.
func TrackAll[T Releaser](s *Scope, batch []T, kind Kind, context string) []T {
	for _, handle := range batch {
		s.track(handle, kind, context)
	}
	return batch
}

func (s *Scope) track(ref Releaser, kind Kind, context string) {
	if ref == nil {
		return
	}
	id := s.registry.register(ref, kind, s.label+": "+context)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// A closed scope cannot defer release; drop the reference now so it
		// never leaks.
		if _, err, live := s.registry.release(id); live && err != nil {
			s.releaseFailed(kind, context, err)
		}
		return
	}
	s.ids = append(s.ids, id)
	s.mu.Unlock()
}

// Count returns how many handles the scope has tracked and not yet closed.
func (s *Scope) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Close releases every tracked handle in reverse acquisition order. Calling
// Close on an already-closed scope is a no-op.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ids := s.ids
	s.ids = nil
	s.mu.Unlock()

	for i := len(ids) - 1; i >= 0; i-- {
		if entry, err, live := s.registry.release(ids[i]); live && err != nil {
			s.releaseFailed(entry.kind, entry.label, err)
		}
	}
}

func (s *Scope) releaseFailed(kind Kind, context string, err error) {
	s.logger.Warn("handle release failed",
		logging.Args(
			logging.String(logging.FieldEventType, "handle_release_failed"),
			logging.String("kind", string(kind)),
			logging.String("context", context),
			logging.Error(err),
		)...)
}
