package host

import (
	"context"

	"docmill/internal/handles"
)

// Application is a live automation-host instance.
type Application interface {
	handles.Releaser

	// OpenDocument loads a document and returns its handle. The returned
	// handle is affine to the thread that opened it.
	OpenDocument(ctx context.Context, path string) (Document, error)
	// Documents returns the host's open-document collection. The collection
	// handle must be tracked even when it is empty.
	Documents(ctx context.Context) (Collection, error)
	// ProcessID identifies the external host process backing this instance.
	ProcessID() int
	// Quit asks the host to exit cleanly.
	Quit(ctx context.Context) error
}

// Document is one open document inside a host.
type Document interface {
	handles.Releaser

	// ExportTo writes the document to path in the given target format.
	ExportTo(ctx context.Context, path, format string) error
	// Close closes the document inside the host without saving.
	Close(ctx context.Context) error
}

// Collection is an indexed set of native objects. Indexing follows the host
// convention and is 1-based; implicit iteration is not offered because the
// hidden enumerator object it would allocate has no release hook.
type Collection interface {
	handles.Releaser

	Count(ctx context.Context) (int, error)
	// Item returns the element at 1-based index i.
	Item(ctx context.Context, i int) (Document, error)
}

// Factory launches host instances.
type Factory interface {
	Launch(ctx context.Context) (Application, error)
}

// Tracker records spawned host processes so orphans can be reaped. Satisfied
// by procguard.Guard.
type Tracker interface {
	Register(ctx context.Context, pid int, executable string) error
	Release(ctx context.Context, pid int) error
}
