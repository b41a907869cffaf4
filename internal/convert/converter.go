package convert

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"docmill/internal/handles"
	"docmill/internal/resilience"
)

// Result describes one finished conversion attempt.
type Result struct {
	Success      bool
	OutputPath   string
	ErrorMessage string
}

// Request carries everything a converter needs for one document.
type Request struct {
	InputPath  string
	OutputPath string
	// Format is the target export format tag, e.g. "pdf".
	Format string
}

// Converter turns one input document into one output document. All native
// handles acquired during the conversion must be tracked in scope; the
// caller closes the scope when the attempt ends, whatever the outcome.
type Converter interface {
	Convert(ctx context.Context, scope *handles.Scope, req Request) (Result, error)
}

// Kind normalizes a path into its dispatch tag (lowercased extension
// without the dot).
func Kind(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Registry maps file kinds to conversion strategies.
type Registry struct {
	strategies map[string]Converter
}

// NewRegistry creates an empty strategy table.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Converter)}
}

// Register binds a converter to one or more file kinds, replacing any
// previous binding.
func (r *Registry) Register(converter Converter, kinds ...string) {
	for _, kind := range kinds {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == "" {
			continue
		}
		r.strategies[kind] = converter
	}
}

// Lookup resolves the strategy for a path. Unsupported kinds produce a
// validation error so admission can reject them synchronously.
func (r *Registry) Lookup(path string) (Converter, error) {
	kind := Kind(path)
	if kind == "" {
		return nil, resilience.Wrap(resilience.ErrValidation, "convert", "lookup", "file has no extension: "+path, nil)
	}
	converter, ok := r.strategies[kind]
	if !ok {
		return nil, resilience.Wrap(resilience.ErrValidation, "convert", "lookup", "unsupported file kind: "+kind, nil)
	}
	return converter, nil
}

// Supported lists the registered kinds in stable order.
func (r *Registry) Supported() []string {
	kinds := make([]string, 0, len(r.strategies))
	for kind := range r.strategies {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
