package queue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"docmill/internal/affinity"
	"docmill/internal/config"
	"docmill/internal/convert"
	"docmill/internal/fileutil"
	"docmill/internal/handles"
	"docmill/internal/logging"
	"docmill/internal/resilience"
)

// ErrClosed is returned by Add once the processor has finished or begun
// cancelling.
var ErrClosed = errors.New("queue closed to new items")

// Processor drives admitted items through conversion. Construct with New,
// admit with Add, then call Run once; Run returns after every admitted item
// has settled.
type Processor struct {
	cfg        *config.Config
	pool       *affinity.Pool
	registry   *handles.Registry
	converters *convert.Registry
	breaker    *resilience.Breaker
	logger     *slog.Logger
	events     *publisher
	stats      Stats

	// onDrained, when set, runs synchronously after the drained event and
	// before the event stream closes.
	onDrained func(StatsSnapshot)

	mu       sync.Mutex
	items    map[string]*Item
	order    []string
	pending  []*Item
	inflight int
	closed   bool

	wake chan struct{}
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithFinalize registers a hook invoked exactly once, after the last item
// settles and before the event stream closes.
func WithFinalize(fn func(StatsSnapshot)) Option {
	return func(p *Processor) { p.onDrained = fn }
}

// New constructs a processor wired to the given worker pool, handle
// registry, and strategy table.
func New(cfg *config.Config, pool *affinity.Pool, registry *handles.Registry, converters *convert.Registry, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg:        cfg,
		pool:       pool,
		registry:   registry,
		converters: converters,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			FailureThreshold: cfg.Circuit.FailureThreshold,
			Window:           time.Duration(cfg.Circuit.WindowSeconds) * time.Second,
			BreakDuration:    time.Duration(cfg.Circuit.BreakSeconds) * time.Second,
		}, logger),
		logger: logging.NewComponentLogger(logger, "queue"),
		events: newPublisher(cfg.Queue.EventBuffer),
		items:  make(map[string]*Item),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add validates source and admits it as a queued item. An empty dest lets
// the processor derive the output path from the configured output
// directory. Validation failures return a validation-tagged error and the
// file is never admitted.
func (p *Processor) Add(ctx context.Context, source, dest string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		p.stats.rejected.Add(1)
		return nil, resilience.Wrap(resilience.ErrCancelled, "queue", "admit", "admission cancelled", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		p.stats.rejected.Add(1)
		return nil, resilience.Wrap(resilience.ErrValidation, "queue", "admit", "file not accessible: "+source, err)
	}
	if info.IsDir() {
		p.stats.rejected.Add(1)
		return nil, resilience.Wrap(resilience.ErrValidation, "queue", "admit", "not a regular file: "+source, nil)
	}
	converter, err := p.converters.Lookup(source)
	if err != nil {
		p.stats.rejected.Add(1)
		return nil, err
	}

	item := &Item{
		ID:         uuid.NewString(),
		SourcePath: source,
		OutputPath: dest,
		Format:     p.cfg.Host.OutputFormat,
		Status:     StatusQueued,
		EnqueuedAt: time.Now(),
		converter:  converter,
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.stats.rejected.Add(1)
		return nil, ErrClosed
	}
	p.items[item.ID] = item
	p.order = append(p.order, item.ID)
	p.pending = append(p.pending, item)
	p.mu.Unlock()

	p.stats.admitted.Add(1)
	p.logger.Info("item admitted",
		logging.Args(
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "item_admitted"),
			logging.String("source", source),
		)...)
	p.notify()
	return item, nil
}

// Events exposes the lifecycle event stream. The channel closes after the
// drained event.
func (p *Processor) Events() <-chan Event { return p.events.events() }

// DroppedEvents reports how many events were discarded because the consumer
// lagged.
func (p *Processor) DroppedEvents() int64 { return p.events.droppedCount() }

// Stats returns the current counters.
func (p *Processor) Stats() StatsSnapshot { return p.stats.Snapshot() }

// IsProcessing reports whether any admitted item is still waiting or being
// converted.
func (p *Processor) IsProcessing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0 || p.inflight > 0
}

// Items lists every admitted item in admission order.
func (p *Processor) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Item, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.items[id].clone())
	}
	return out
}

// Item looks up one admitted item by ID.
func (p *Processor) Item(id string) (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[id]
	if !ok {
		return Item{}, false
	}
	return item.clone(), true
}

// BreakerState exposes the circuit phase for health reporting.
func (p *Processor) BreakerState() resilience.BreakerState { return p.breaker.State() }

func (p *Processor) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Processor) nextQueued() *Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return nil
	}
	item := p.pending[0]
	p.pending = p.pending[1:]
	p.inflight++
	return item
}

func (p *Processor) settleInflight() {
	p.mu.Lock()
	p.inflight--
	p.mu.Unlock()
	p.notify()
}

func (p *Processor) drained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 && p.inflight == 0 {
		p.closed = true
		return true
	}
	return false
}

// destinationFor fixes the output path at processing time. Explicit
// destinations from Add win; otherwise the name derives from the source and
// collisions within one batch resolve to numbered alternates.
func (p *Processor) destinationFor(item *Item) string {
	if item.OutputPath != "" {
		return item.OutputPath
	}
	name := fileutil.DestinationName(item.SourcePath, item.Format)
	return fileutil.UniquePath(filepath.Join(p.cfg.Paths.OutputDir, name))
}
