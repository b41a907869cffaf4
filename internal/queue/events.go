package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType labels queue lifecycle events.
type EventType string

const (
	EventItemStarted   EventType = "item_started"
	EventItemRetrying  EventType = "item_retrying"
	EventItemCompleted EventType = "item_completed"
	EventItemFailed    EventType = "item_failed"
	EventItemCancelled EventType = "item_cancelled"
	// EventQueueDrained is the final event: every admitted item settled.
	EventQueueDrained EventType = "queue_drained"
)

// Event is one observable queue transition. Item is a detached copy; drained
// events carry the final counters instead.
type Event struct {
	Type    EventType
	Item    Item
	Attempt int
	Stats   StatsSnapshot
	At      time.Time
}

// publisher fans events into a buffered channel. Publishing never blocks the
// processing path; when the consumer lags, progress events are dropped and
// counted. One buffer slot is reserved for the terminal drained event so it
// is delivered even to a consumer that never kept up.
type publisher struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

func newPublisher(buffer int) *publisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &publisher{ch: make(chan Event, buffer+1)}
}

func (p *publisher) publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// The last slot belongs to the drained event.
	if len(p.ch) >= cap(p.ch)-1 {
		p.dropped.Add(1)
		return
	}
	ev.At = time.Now()
	p.ch <- ev
}

// publishFinal emits the terminal event into the reserved slot and closes
// the stream. Buffered events remain readable; consumers see the channel
// close after draining them.
func (p *publisher) publishFinal(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	ev.At = time.Now()
	p.ch <- ev
	p.closed = true
	close(p.ch)
}

func (p *publisher) events() <-chan Event { return p.ch }

func (p *publisher) droppedCount() int64 { return p.dropped.Load() }
