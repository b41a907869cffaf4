package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	batchIDKey contextKey = iota
	itemIDKey
)

// WithBatchID stores the batch identifier for downstream log enrichment.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	if batchID == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, batchID)
}

// WithItemID stores the work item identifier for downstream log enrichment.
func WithItemID(ctx context.Context, itemID string) context.Context {
	if itemID == "" {
		return ctx
	}
	return context.WithValue(ctx, itemIDKey, itemID)
}

// WithContext returns a logger enriched with any batch/item identifiers the
// context carries. A nil logger falls back to the no-op logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if batchID, ok := ctx.Value(batchIDKey).(string); ok && batchID != "" {
		logger = logger.With(String(FieldBatchID, batchID))
	}
	if itemID, ok := ctx.Value(itemIDKey).(string); ok && itemID != "" {
		logger = logger.With(String(FieldItemID, itemID))
	}
	return logger
}
