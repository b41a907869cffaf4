package queue

import (
	"time"

	"docmill/internal/convert"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether a status can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Item is one document admitted into the batch.
type Item struct {
	ID         string
	SourcePath string
	OutputPath string
	Format     string
	Status     Status
	// Attempts is the total number of conversion attempts made.
	Attempts int
	// RetryCount is how many retries the item consumed beyond its first
	// attempt.
	RetryCount int
	LastError  string
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	// converter is resolved at admission so processing never revisits the
	// strategy table.
	converter convert.Converter
}

// clone returns a copy safe to hand outside the processor's lock.
func (i *Item) clone() Item {
	copied := *i
	copied.converter = nil
	return copied
}
