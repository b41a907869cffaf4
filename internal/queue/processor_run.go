package queue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"docmill/internal/logging"
)

// Run processes the queue until every admitted item settles, then emits the
// drained event, runs the finalize hook, and closes the event stream. Items
// may be added concurrently with Run until it finishes. A context
// cancellation stops admission, cancels still-queued items, and lets
// in-flight attempts finish rather than abandoning them mid-call.
func (p *Processor) Run(ctx context.Context) error {
	parallelism := int64(p.cfg.Queue.Parallelism)
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := semaphore.NewWeighted(parallelism)
	var wg sync.WaitGroup

	for {
		if ctx.Err() != nil {
			p.cancelQueued()
		}
		item := p.nextQueued()
		if item == nil {
			if p.drained() {
				break
			}
			if ctx.Err() != nil {
				// Only in-flight completions can move the state now.
				<-p.wake
				continue
			}
			select {
			case <-p.wake:
			case <-ctx.Done():
			}
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting for a slot; the item was already
			// pulled off the queue, so settle it here.
			p.finishItem(item, StatusCancelled, "batch cancelled", 0)
			p.settleInflight()
			continue
		}

		wg.Add(1)
		go func(it *Item) {
			defer wg.Done()
			defer sem.Release(1)
			defer p.settleInflight()
			p.processItem(ctx, it)
		}(item)
	}

	wg.Wait()
	p.finalize()
	return ctx.Err()
}

// cancelQueued moves every still-queued item straight to cancelled.
func (p *Processor) cancelQueued() {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.closed = true
	p.mu.Unlock()

	for _, item := range pending {
		p.finishItem(item, StatusCancelled, "batch cancelled", 0)
	}
}

// finalize runs once, after the last item settles. The finalization hook
// gets to release batch-scoped resources before the drained event lands and
// the stream closes.
func (p *Processor) finalize() {
	stats := p.stats.Snapshot()
	if p.onDrained != nil {
		p.onDrained(stats)
	}
	p.events.publishFinal(Event{Type: EventQueueDrained, Stats: stats})

	p.logger.Info("queue drained",
		logging.Args(
			logging.String(logging.FieldEventType, "queue_drained"),
			logging.Int64("admitted", stats.Admitted),
			logging.Int64("completed", stats.Completed),
			logging.Int64("failed", stats.Failed),
			logging.Int64("cancelled", stats.Cancelled),
			logging.Int64("retries", stats.Retries),
			logging.Int64("events_dropped", p.events.droppedCount()),
		)...)
}
