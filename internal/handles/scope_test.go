package handles_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"docmill/internal/handles"
	"docmill/internal/logging"
)

// fakeRef records release calls so tests can assert exactly-once semantics.
type fakeRef struct {
	mu       sync.Mutex
	name     string
	releases int
	fail     error
	order    *[]string
}

func (f *fakeRef) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.fail
}

func (f *fakeRef) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

func TestScopeReleasesInReverseOrder(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "test")

	var order []string
	for i := 0; i < 3; i++ {
		handles.Track(scope, &fakeRef{name: fmt.Sprintf("h%d", i), order: &order}, handles.KindDocument, "doc")
	}
	scope.Close()

	if len(order) != 3 || order[0] != "h2" || order[1] != "h1" || order[2] != "h0" {
		t.Fatalf("expected reverse release order, got %v", order)
	}
	if registry.Active() != 0 {
		t.Fatalf("expected no active handles, got %d", registry.Active())
	}
	if registry.Acquired() != registry.Released() {
		t.Fatalf("acquire/release mismatch: %d vs %d", registry.Acquired(), registry.Released())
	}
}

func TestScopeReleasesWhenOperationFails(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	refs := []*fakeRef{{name: "a"}, {name: "b"}}

	err := func() (retErr error) {
		scope := handles.NewScope(registry, logging.NewNop(), "failing op")
		defer scope.Close()
		handles.Track(scope, refs[0], handles.KindApplication, "app")
		handles.Track(scope, refs[1], handles.KindDocument, "doc")
		return errors.New("conversion exploded")
	}()
	if err == nil {
		t.Fatal("expected error from operation")
	}
	for _, ref := range refs {
		if ref.releaseCount() != 1 {
			t.Fatalf("handle %s released %d times, want 1", ref.name, ref.releaseCount())
		}
	}
}

func TestScopeTracksEmptyCollection(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "empty collection")

	// The collection handle itself must be released even though it holds no
	// elements.
	coll := &fakeRef{name: "collection"}
	handles.Track(scope, coll, handles.KindCollection, "documents")
	handles.TrackAll(scope, []*fakeRef{}, handles.KindDocument, "elements")

	scope.Close()
	if coll.releaseCount() != 1 {
		t.Fatalf("empty collection handle released %d times, want 1", coll.releaseCount())
	}
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "idempotent")

	ref := &fakeRef{name: "once"}
	handles.Track(scope, ref, handles.KindDocument, "doc")

	scope.Close()
	scope.Close()
	if ref.releaseCount() != 1 {
		t.Fatalf("expected single release, got %d", ref.releaseCount())
	}
	if registry.Released() != 1 {
		t.Fatalf("expected released counter 1, got %d", registry.Released())
	}
}

func TestScopeContinuesPastReleaseFailure(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "failure tolerant")

	first := &fakeRef{name: "first"}
	failing := &fakeRef{name: "failing", fail: errors.New("host is gone")}
	handles.Track(scope, first, handles.KindDocument, "doc")
	handles.Track(scope, failing, handles.KindDocument, "doc")

	scope.Close()
	if failing.releaseCount() != 1 {
		t.Fatalf("failing handle not attempted")
	}
	if first.releaseCount() != 1 {
		t.Fatal("release failure must not stop subsequent releases")
	}
}

func TestTrackOnClosedScopeReleasesImmediately(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "late tracking")
	scope.Close()

	ref := &fakeRef{name: "late"}
	handles.Track(scope, ref, handles.KindDocument, "doc")
	if ref.releaseCount() != 1 {
		t.Fatalf("late-tracked handle must be released immediately, got %d", ref.releaseCount())
	}
	if registry.Active() != 0 {
		t.Fatalf("expected no active handles, got %d", registry.Active())
	}
}

func TestForceReleaseAll(t *testing.T) {
	registry := handles.NewRegistry(logging.NewNop())
	scope := handles.NewScope(registry, logging.NewNop(), "recovery")

	refs := []*fakeRef{{name: "a"}, {name: "b"}, {name: "c"}}
	for _, ref := range refs {
		handles.Track(scope, ref, handles.KindDocument, "doc")
	}

	if released := registry.ForceReleaseAll(); released != 3 {
		t.Fatalf("expected 3 forced releases, got %d", released)
	}
	// Scope close after recovery must not double-release.
	scope.Close()
	for _, ref := range refs {
		if ref.releaseCount() != 1 {
			t.Fatalf("handle %s released %d times, want exactly 1", ref.name, ref.releaseCount())
		}
	}
}
