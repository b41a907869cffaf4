// Package affinity provides the fixed pool of OS-thread-pinned workers that
// all automation-host calls are marshaled onto.
//
// The host's objects are thread-affine: a handle created on one thread must
// be used and released from that same thread for its entire lifetime. Each
// worker goroutine therefore locks itself to its OS thread once at startup,
// runs an optional pin hook (the place an apartment or host context is
// initialized), and then serves closures strictly one at a time. Work is
// assigned to the least-loaded worker and results come back through futures,
// so callers suspend without ever acquiring affinity themselves.
//
// A submitted closure must finish its work synchronously on the worker. If
// it needs the result of an asynchronous operation it must block for it
// in-place; handing affinity-constrained work to an unpinned goroutine is
// exactly the failure class this pool exists to eliminate.
package affinity
