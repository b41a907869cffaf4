package convert

import (
	"context"
	"log/slog"
	"path/filepath"

	"docmill/internal/handles"
	"docmill/internal/host"
	"docmill/internal/logging"
	"docmill/internal/resilience"
)

// HostConverter exports documents through the automation host. One attempt
// opens the input, exports it, and closes it again; every native handle the
// attempt touches is tracked in the caller's scope so a failure anywhere in
// the sequence still releases everything.
type HostConverter struct {
	manager *host.Manager
	logger  *slog.Logger
}

// NewHostConverter builds the host-backed converter.
func NewHostConverter(manager *host.Manager, logger *slog.Logger) *HostConverter {
	return &HostConverter{
		manager: manager,
		logger:  logging.NewComponentLogger(logger, "convert"),
	}
}

// Convert runs one conversion attempt on the calling worker thread. The
// document handle is closed eagerly on success; scope teardown covers the
// failure paths.
func (c *HostConverter) Convert(ctx context.Context, scope *handles.Scope, req Request) (Result, error) {
	app, err := c.manager.Acquire(ctx)
	if err != nil {
		return failure(err), err
	}

	doc, err := app.OpenDocument(ctx, req.InputPath)
	if err != nil {
		err = resilience.Wrap(resilience.ErrNativeInterop, "convert", "open", "open failed for "+filepath.Base(req.InputPath), err)
		return failure(err), err
	}
	doc = handles.Track(scope, doc, handles.KindDocument, filepath.Base(req.InputPath))

	if err := doc.ExportTo(ctx, req.OutputPath, req.Format); err != nil {
		if resilience.Cancelled(err) || ctx.Err() != nil {
			err = resilience.Wrap(resilience.ErrTimeout, "convert", "export", "export interrupted for "+filepath.Base(req.InputPath), err)
		} else if !resilience.Retryable(err) {
			err = resilience.Wrap(resilience.ErrNativeInterop, "convert", "export", "export failed for "+filepath.Base(req.InputPath), err)
		}
		return failure(err), err
	}

	if err := doc.Close(ctx); err != nil {
		// The export already landed; the scope still releases the handle.
		c.logger.Warn("document close failed after export",
			logging.Args(
				logging.String(logging.FieldEventType, "doc_close_failed"),
				logging.String("input", req.InputPath),
				logging.Error(err),
			)...)
	}

	return Result{Success: true, OutputPath: req.OutputPath}, nil
}

func failure(err error) Result {
	return Result{ErrorMessage: err.Error()}
}
