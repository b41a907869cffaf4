package procguard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"docmill/internal/logging"
)

// Guard tracks spawned host processes and terminates orphans.
type Guard struct {
	ledger *Ledger
	logger *slog.Logger
	grace  time.Duration
}

// NewGuard wraps a ledger. grace bounds how long a terminated process gets
// between SIGTERM and SIGKILL.
func NewGuard(ledger *Ledger, grace time.Duration, logger *slog.Logger) *Guard {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Guard{
		ledger: ledger,
		logger: logging.NewComponentLogger(logger, "procguard"),
		grace:  grace,
	}
}

// Register records a spawned host process. The identity snapshot taken here
// is what later authorizes termination.
func (g *Guard) Register(ctx context.Context, pid int, executable string) error {
	comm, ticks, err := processIdentity(pid)
	if err != nil {
		return fmt.Errorf("identify pid %d: %w", pid, err)
	}
	if executable == "" {
		executable = comm
	}
	entry := Entry{PID: pid, Executable: comm, StartTicks: ticks, RegisteredAt: time.Now()}
	if err := g.ledger.Insert(ctx, entry); err != nil {
		return fmt.Errorf("record pid %d: %w", pid, err)
	}
	g.logger.Debug("host process registered",
		logging.Args(
			logging.Int("pid", pid),
			logging.String("executable", comm),
		)...)
	return nil
}

// Release removes a process from tracking after a clean shutdown.
func (g *Guard) Release(ctx context.Context, pid int) error {
	return g.ledger.Remove(ctx, pid)
}

// Tracked returns the current ledger entries.
func (g *Guard) Tracked(ctx context.Context) ([]Entry, error) {
	return g.ledger.List(ctx)
}

// TotalRSS sums the resident memory of every tracked process that is still
// alive and still matches its recorded identity.
func (g *Guard) TotalRSS(ctx context.Context) int64 {
	entries, err := g.ledger.List(ctx)
	if err != nil {
		g.logger.Warn("ledger read failed during sampling", logging.Args(logging.Error(err))...)
		return 0
	}
	var total int64
	for _, entry := range entries {
		if g.matches(entry) {
			total += processRSS(entry.PID)
		}
	}
	return total
}

// ReapOrphans terminates every tracked process whose identity still matches
// its ledger entry, then clears the entries. Entries whose PID is gone or
// reused are dropped without signalling anything. Returns how many processes
// were terminated.
func (g *Guard) ReapOrphans(ctx context.Context) (int, error) {
	entries, err := g.ledger.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tracked processes: %w", err)
	}

	reaped := 0
	for _, entry := range entries {
		if !processExists(entry.PID) {
			if err := g.ledger.Remove(ctx, entry.PID); err != nil {
				g.logger.Warn("stale ledger row not removed",
					logging.Args(logging.Int("pid", entry.PID), logging.Error(err))...)
			}
			continue
		}
		if !g.matches(entry) {
			// PID reuse, or a host the user launched themselves. Never touch
			// a process we cannot prove we spawned.
			g.logger.Warn("tracked pid no longer matches recorded identity, skipping",
				logging.Args(
					logging.String(logging.FieldEventType, "procguard_identity_mismatch"),
					logging.Int("pid", entry.PID),
					logging.String("expected_executable", entry.Executable),
				)...)
			if err := g.ledger.Remove(ctx, entry.PID); err != nil {
				g.logger.Warn("mismatched ledger row not removed",
					logging.Args(logging.Int("pid", entry.PID), logging.Error(err))...)
			}
			continue
		}

		g.terminate(entry)
		reaped++
		if err := g.ledger.Remove(ctx, entry.PID); err != nil {
			g.logger.Warn("reaped ledger row not removed",
				logging.Args(logging.Int("pid", entry.PID), logging.Error(err))...)
		}
	}
	if reaped > 0 {
		g.logger.Info("orphaned host processes terminated",
			logging.Args(
				logging.String(logging.FieldEventType, "procguard_reap"),
				logging.Int("count", reaped),
			)...)
	}
	return reaped, nil
}

func (g *Guard) matches(entry Entry) bool {
	comm, ticks, err := processIdentity(entry.PID)
	if err != nil {
		return false
	}
	return comm == entry.Executable && ticks == entry.StartTicks
}

func (g *Guard) terminate(entry Entry) {
	if err := signalProcess(entry.PID, unix.SIGTERM); err != nil {
		return
	}
	deadline := time.Now().Add(g.grace)
	for time.Now().Before(deadline) {
		if !processExists(entry.PID) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err := signalProcess(entry.PID, unix.SIGKILL); err != nil {
		g.logger.Warn("SIGKILL failed",
			logging.Args(logging.Int("pid", entry.PID), logging.Error(err))...)
	}
}
