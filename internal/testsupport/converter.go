package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"docmill/internal/convert"
	"docmill/internal/handles"
)

// ScriptedConverter implements convert.Converter with per-input failure
// scripts. Each scripted failure is consumed once; after the script runs out
// the conversion succeeds and writes the output file.
type ScriptedConverter struct {
	mu       sync.Mutex
	failures map[string][]error
	calls    map[string]int
}

// NewScriptedConverter constructs a converter that succeeds for every input.
func NewScriptedConverter() *ScriptedConverter {
	return &ScriptedConverter{
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// FailWith queues errors that successive Convert calls for input will return
// before the conversion starts succeeding.
func (c *ScriptedConverter) FailWith(input string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[input] = append(c.failures[input], errs...)
}

// Calls reports how many Convert attempts input has received.
func (c *ScriptedConverter) Calls(input string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[input]
}

// Convert satisfies convert.Converter.
func (c *ScriptedConverter) Convert(ctx context.Context, scope *handles.Scope, req convert.Request) (convert.Result, error) {
	c.mu.Lock()
	c.calls[req.InputPath]++
	var err error
	if queued := c.failures[req.InputPath]; len(queued) > 0 {
		err = queued[0]
		c.failures[req.InputPath] = queued[1:]
	}
	c.mu.Unlock()

	if err != nil {
		return convert.Result{ErrorMessage: err.Error()}, err
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return convert.Result{ErrorMessage: err.Error()}, err
	}
	if err := os.WriteFile(req.OutputPath, []byte("converted"), 0o644); err != nil {
		return convert.Result{ErrorMessage: err.Error()}, err
	}
	return convert.Result{Success: true, OutputPath: req.OutputPath}, nil
}
