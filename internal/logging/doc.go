// Package logging assembles the structured slog loggers used across docmill.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes typed attribute helpers plus field-name constants so
// every component tags log lines with batch IDs, item IDs, and event types
// the same way. A no-op logger is provided for tests and wiring code that
// cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the system.
package logging
