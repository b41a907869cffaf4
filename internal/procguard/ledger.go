package procguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS host_processes (
	pid INTEGER PRIMARY KEY,
	executable TEXT NOT NULL,
	start_ticks INTEGER NOT NULL,
	registered_at TEXT NOT NULL
);
`

// Entry is one tracked host process.
type Entry struct {
	PID          int
	Executable   string
	StartTicks   uint64
	RegisteredAt time.Time
}

// Ledger persists tracked host processes in SQLite so orphan cleanup works
// across docmill restarts.
type Ledger struct {
	db   *sql.DB
	path string
}

// OpenLedger opens (creating if needed) the ledger database under stateDir.
func OpenLedger(stateDir string) (*Ledger, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}
	path := filepath.Join(stateDir, "procguard.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Path returns the ledger database location.
func (l *Ledger) Path() string { return l.path }

// Close releases the database.
func (l *Ledger) Close() error { return l.db.Close() }

// Insert records a host process, replacing any stale row for a reused PID.
func (l *Ledger) Insert(ctx context.Context, entry Entry) error {
	return l.execWithRetry(ctx,
		`INSERT OR REPLACE INTO host_processes (pid, executable, start_ticks, registered_at) VALUES (?, ?, ?, ?)`,
		entry.PID, entry.Executable, int64(entry.StartTicks), entry.RegisteredAt.UTC().Format(time.RFC3339Nano),
	)
}

// Remove deletes the row for a released process. Removing an absent PID is
// not an error.
func (l *Ledger) Remove(ctx context.Context, pid int) error {
	return l.execWithRetry(ctx, `DELETE FROM host_processes WHERE pid = ?`, pid)
}

// List returns every tracked process.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT pid, executable, start_ticks, registered_at FROM host_processes ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var ticks int64
		var registered string
		if err := rows.Scan(&entry.PID, &entry.Executable, &ticks, &registered); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entry.StartTicks = uint64(ticks)
		if ts, err := time.Parse(time.RFC3339Nano, registered); err == nil {
			entry.RegisteredAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (l *Ledger) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = l.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
