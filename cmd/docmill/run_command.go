package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docmill/internal/affinity"
	"docmill/internal/config"
	"docmill/internal/convert"
	"docmill/internal/fileutil"
	"docmill/internal/handles"
	"docmill/internal/health"
	"docmill/internal/host"
	"docmill/internal/logging"
	"docmill/internal/preflight"
	"docmill/internal/procguard"
	"docmill/internal/queue"
	"docmill/internal/resilience"
)

// supportedKinds are the input extensions the automation host can load.
var supportedKinds = []string{
	"doc", "docx", "odt", "rtf", "txt", "html",
	"xls", "xlsx", "ods", "csv",
	"ppt", "pptx", "odp",
}

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Convert a batch of documents",
		Long: "Convert the given files, or every supported file in the input directory " +
			"when no arguments are provided. The run exits once all admitted items settle.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cmd, cfg, args, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-item progress output")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, args []string, quiet bool) error {
	out := cmd.OutOrStdout()

	logger, err := logging.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	ctx = logging.WithBatchID(ctx, uuid.NewString())
	logger = logging.WithContext(ctx, logger)

	results := preflight.RunAll(ctx, cfg)
	if !preflight.Passed(results) {
		for _, result := range results {
			if !result.Passed {
				fmt.Fprintf(out, "preflight: %s failed: %s\n", result.Name, result.Detail)
			}
		}
		return errors.New("preflight checks failed")
	}

	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "docmill.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire batch lock: %w", err)
	}
	if !locked {
		return errors.New("another docmill batch is already running")
	}
	defer func() { _ = lock.Unlock() }()

	ledger, err := procguard.OpenLedger(cfg.Paths.StateDir)
	if err != nil {
		return fmt.Errorf("open process ledger: %w", err)
	}
	defer ledger.Close()

	grace := time.Duration(cfg.Host.ShutdownGraceSeconds) * time.Second
	guard := procguard.NewGuard(ledger, grace, logger)
	if reaped, err := guard.ReapOrphans(ctx); err != nil {
		logger.Warn("orphan reap failed", logging.Args(logging.Error(err))...)
	} else if reaped > 0 {
		fmt.Fprintf(out, "Reaped %d orphaned host process(es) from a previous run.\n", reaped)
	}

	registry := handles.NewRegistry(logger)
	pool := affinity.NewPool(affinity.Config{
		Workers:    cfg.Workers.Count,
		QueueDepth: cfg.Workers.QueueDepth,
		Logger:     logger,
	})
	drainTimeout := time.Duration(cfg.Workers.DrainTimeoutSeconds) * time.Second
	defer func() { _ = pool.Shutdown(drainTimeout) }()
	if err := pool.Verify(ctx); err != nil {
		return fmt.Errorf("verify worker pool: %w", err)
	}

	manager := host.NewManager(&host.ExecFactory{
		Binary:    cfg.Host.Binary,
		ExtraArgs: cfg.Host.ExtraArgs,
		WorkDir:   cfg.Paths.WorkDir,
		Logger:    logger,
	}, guard, registry, host.ManagerConfig{
		RecycleAfterUses: cfg.Host.RecycleAfterUses,
		ShutdownGrace:    grace,
	}, logger)
	defer manager.Close(context.Background())

	strategies := convert.NewRegistry()
	strategies.Register(convert.NewHostConverter(manager, logger), supportedKinds...)

	// The host process is batch-scoped: the finalization hook quits it
	// once the last item settles, so event consumers observe a quiesced
	// host alongside the final counters. The deferred Close covers exits
	// before the queue drains; closing twice is a no-op.
	processor := queue.New(cfg, pool, registry, strategies, logger,
		queue.WithFinalize(func(queue.StatsSnapshot) {
			manager.Close(context.Background())
		}))

	monitor := health.NewMonitor(cfg.Health, registry, guard, pool, manager, logger)
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go monitor.Run(monitorCtx)

	admitted, rejected := admitInputs(ctx, cmd, cfg, processor, args)
	if admitted == 0 {
		if rejected > 0 {
			return fmt.Errorf("no items admitted (%d rejected)", rejected)
		}
		fmt.Fprintln(out, "Nothing to convert.")
		return nil
	}

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for ev := range processor.Events() {
			if !quiet {
				printEvent(out, ev)
			}
		}
	}()

	runErr := processor.Run(ctx)
	<-progressDone

	fmt.Fprintln(out, renderReport(processor.Items(), processor.Stats()))

	stats := processor.Stats()
	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		return fmt.Errorf("batch cancelled with %d item(s) unprocessed", stats.Cancelled)
	case runErr != nil:
		return runErr
	case stats.Failed > 0:
		return fmt.Errorf("%d of %d item(s) failed%s", stats.Failed, stats.Admitted, circuitNote(processor.BreakerState()))
	}
	return nil
}

// admitInputs feeds the explicit arguments, or the input directory when none
// are given, into the processor. Rejections are reported, not fatal.
func admitInputs(ctx context.Context, cmd *cobra.Command, cfg *config.Config, processor *queue.Processor, args []string) (admitted, rejected int) {
	out := cmd.OutOrStdout()

	sources := args
	if len(sources) == 0 {
		sources = discoverInputs(cfg.Paths.InputDir)
	}
	for _, source := range sources {
		if _, err := processor.Add(ctx, source, ""); err != nil {
			rejected++
			fmt.Fprintf(out, "rejected %s: %v\n", source, err)
			continue
		}
		admitted++
	}
	return admitted, rejected
}

// discoverInputs lists the supported files directly under inputDir in name
// order. Subdirectories are not walked.
func discoverInputs(inputDir string) []string {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil
	}
	var sources []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind := convert.Kind(entry.Name())
		for _, supported := range supportedKinds {
			if kind == supported {
				sources = append(sources, filepath.Join(inputDir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(sources)
	return sources
}

func printEvent(out io.Writer, ev queue.Event) {
	switch ev.Type {
	case queue.EventItemStarted:
		fmt.Fprintf(out, "converting %s\n", fileutil.DisplayTitle(ev.Item.SourcePath))
	case queue.EventItemRetrying:
		fmt.Fprintf(out, "retrying %s (attempt %d): %s\n", filepath.Base(ev.Item.SourcePath), ev.Attempt+1, ev.Item.LastError)
	case queue.EventItemCompleted:
		fmt.Fprintf(out, "completed %s -> %s\n", filepath.Base(ev.Item.SourcePath), ev.Item.OutputPath)
	case queue.EventItemFailed:
		fmt.Fprintf(out, "failed %s: %s\n", filepath.Base(ev.Item.SourcePath), ev.Item.LastError)
	case queue.EventItemCancelled:
		fmt.Fprintf(out, "cancelled %s\n", filepath.Base(ev.Item.SourcePath))
	}
}

// circuitNote annotates the summary when the breaker ended the run open.
func circuitNote(state resilience.BreakerState) string {
	if state == resilience.StateOpen {
		return " (circuit open; automation host repeatedly failed)"
	}
	return ""
}
