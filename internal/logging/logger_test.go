package logging_test

import (
	"context"
	"testing"

	"docmill/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewDefaultsToConsole(t *testing.T) {
	logger, err := logging.New(logging.Options{Level: "debug"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Debug("smoke", logging.String("key", "value"))
}

func TestWithContextEnrichment(t *testing.T) {
	ctx := logging.WithBatchID(context.Background(), "batch-1")
	ctx = logging.WithItemID(ctx, "item-9")

	logger := logging.WithContext(ctx, logging.NewNop())
	if logger == nil {
		t.Fatal("expected logger")
	}
	// Nil base must not panic and must still return a usable logger.
	logging.WithContext(ctx, nil).Info("noop")
}

func TestNewComponentLoggerNilBase(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "queue")
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Info("still works")
}
