package handles

import "time"

// Releaser is the single operation every native handle must support.
// Release returns the handle's external reference; it must tolerate the
// underlying object being gone already.
type Releaser interface {
	Release() error
}

// Kind tags what sort of native object a tracked handle refers to.
type Kind string

const (
	KindApplication Kind = "application"
	KindDocument    Kind = "document"
	KindCollection  Kind = "collection"
	KindOther       Kind = "other"
)

type tracked struct {
	id         uint64
	ref        Releaser
	kind       Kind
	label      string
	acquiredAt time.Time
}
