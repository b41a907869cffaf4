package queue

import (
	"context"
	"time"

	"docmill/internal/affinity"
	"docmill/internal/convert"
	"docmill/internal/handles"
	"docmill/internal/logging"
	"docmill/internal/resilience"
)

// processItem runs one item to a terminal status. Each attempt executes in a
// fresh handle scope on a pinned worker, gated by the circuit breaker, with
// the retry schedule wrapped around the whole thing.
func (p *Processor) processItem(ctx context.Context, item *Item) {
	output := p.destinationFor(item)
	p.markStarted(item, output)

	ctx = logging.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, p.logger)
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: p.cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(p.cfg.Retry.BaseDelayMS) * time.Millisecond,
		Factor:      p.cfg.Retry.Factor,
		MaxDelay:    time.Duration(p.cfg.Retry.MaxDelayMS) * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			p.recordRetry(item, attempt, err)
		},
	}, logger)

	attempts := 0
	err := retry.Execute(ctx, func(ctx context.Context) error {
		attempts++
		return p.breaker.Execute(ctx, func(ctx context.Context) error {
			_, convErr := affinity.Do(ctx, p.pool, func(w *affinity.Worker) (convert.Result, error) {
				scope := handles.NewScope(p.registry, logger, "item "+item.ID)
				defer scope.Close()
				return item.converter.Convert(ctx, scope, convert.Request{
					InputPath:  item.SourcePath,
					OutputPath: output,
					Format:     item.Format,
				})
			})
			return convErr
		})
	})

	switch {
	case err == nil:
		p.finishItem(item, StatusCompleted, "", attempts)
	case resilience.Cancelled(err):
		p.finishItem(item, StatusCancelled, err.Error(), attempts)
	default:
		p.finishItem(item, StatusFailed, err.Error(), attempts)
	}
}

func (p *Processor) markStarted(item *Item, output string) {
	p.mu.Lock()
	item.Status = StatusProcessing
	item.StartedAt = time.Now()
	item.OutputPath = output
	snapshot := item.clone()
	p.mu.Unlock()

	p.stats.active.Add(1)
	p.events.publish(Event{Type: EventItemStarted, Item: snapshot, Attempt: 1})
}

func (p *Processor) recordRetry(item *Item, attempt int, err error) {
	p.mu.Lock()
	item.RetryCount++
	item.LastError = err.Error()
	snapshot := item.clone()
	p.mu.Unlock()

	p.stats.retries.Add(1)
	p.events.publish(Event{Type: EventItemRetrying, Item: snapshot, Attempt: attempt})
}

// finishItem moves an item to its terminal status and publishes the matching
// event. It is also the settling path for items cancelled before their first
// attempt.
func (p *Processor) finishItem(item *Item, status Status, lastError string, attempts int) {
	p.mu.Lock()
	if item.Status.Terminal() {
		p.mu.Unlock()
		return
	}
	started := item.Status == StatusProcessing
	item.Status = status
	item.Attempts = attempts
	item.LastError = lastError
	item.FinishedAt = time.Now()
	snapshot := item.clone()
	p.mu.Unlock()

	if started {
		p.stats.active.Add(-1)
	}

	var eventType EventType
	switch status {
	case StatusCompleted:
		p.stats.completed.Add(1)
		eventType = EventItemCompleted
	case StatusFailed:
		p.stats.failed.Add(1)
		eventType = EventItemFailed
		p.logger.Error("item failed",
			logging.Args(
				logging.String(logging.FieldItemID, item.ID),
				logging.String(logging.FieldEventType, "item_failed"),
				logging.String("source", snapshot.SourcePath),
				logging.Int("attempts", attempts),
				logging.String("last_error", lastError),
			)...)
	case StatusCancelled:
		p.stats.cancelled.Add(1)
		eventType = EventItemCancelled
	default:
		return
	}
	// Terminal events carry the counters so consumers can track batch
	// progress without polling.
	p.events.publish(Event{Type: eventType, Item: snapshot, Attempt: attempts, Stats: p.stats.Snapshot()})
}
