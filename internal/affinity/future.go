package affinity

import (
	"context"
	"fmt"
)

// Future carries the result of a closure running on a pinned worker.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Wait suspends until the closure finishes or the context is done. A context
// expiry abandons the result; the closure itself still runs to completion on
// its worker, which is deliberate — affinity work is never interrupted
// mid-call.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit enqueues fn onto the least-loaded pinned worker and returns a
// future for its result. fn receives the worker it runs on so it can assert
// or log its affinity.
func Submit[T any](p *Pool, fn func(*Worker) (T, error)) (*Future[T], error) {
	f := &Future[T]{done: make(chan struct{})}
	err := p.submit(func(w *Worker) {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("affinity closure panicked: %v", r)
			}
		}()
		f.value, f.err = fn(w)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Do is submit-and-wait: the calling goroutine suspends while the closure
// runs to completion on a pinned worker.
func Do[T any](ctx context.Context, p *Pool, fn func(*Worker) (T, error)) (T, error) {
	future, err := Submit(p, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return future.Wait(ctx)
}

// Verify checks every worker and reports the ones that are not live and
// pinned. Run it after construction, before the pool accepts production
// traffic.
func (p *Pool) Verify(ctx context.Context) error {
	for _, w := range p.workers {
		f := &Future[string]{done: make(chan struct{})}
		if err := p.submitTo(w, func(w *Worker) {
			defer close(f.done)
			f.value = w.Token()
		}); err != nil {
			return fmt.Errorf("worker %d check not accepted: %w", w.id, err)
		}

		token, err := f.Wait(ctx)
		if err != nil {
			return fmt.Errorf("worker %d check: %w", w.id, err)
		}
		if token == "" {
			return fmt.Errorf("worker %d has no affinity token", w.id)
		}
	}
	return nil
}
