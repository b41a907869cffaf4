// Package handles bounds the lifetime of native automation handles.
//
// Handles returned by the automation host are reference-counted externally
// and are invisible to the Go garbage collector; every one that is not
// explicitly released grows the host's memory and can leave host processes
// running after docmill exits. A Scope tracks every handle acquired during
// one logical operation and releases them all, in reverse acquisition order,
// when it closes — on every exit path, including panics unwound past a
// deferred Close.
//
// Collection handles are tracked the moment they are obtained, before their
// element count is known. Gating release on "count > 0" is the classic leak
// this package exists to prevent: an empty collection is still a live native
// object.
//
// The Registry is constructed explicitly at startup (never a package global)
// and keeps the live-handle table plus atomic acquire/release counters that
// the health monitor samples.
package handles
