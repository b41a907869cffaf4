// Package convert defines the conversion capability workers execute and the
// strategy table that picks an implementation per file kind.
//
// There is deliberately no service hierarchy: a Converter is a single
// Convert operation, implementations are registered against file-extension
// kinds, and the registry resolves the strategy at admission time so
// unsupported inputs are rejected before they consume queue capacity.
package convert
