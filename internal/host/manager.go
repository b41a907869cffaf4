package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docmill/internal/handles"
	"docmill/internal/logging"
	"docmill/internal/resilience"
)

// ManagerConfig controls host lifecycle behavior.
type ManagerConfig struct {
	// RecycleAfterUses is how many conversions one host instance serves
	// before it is quit and relaunched. Zero disables recycling.
	RecycleAfterUses int
	// ShutdownGrace bounds how long Quit may take before the instance is
	// abandoned to the process guard.
	ShutdownGrace time.Duration
}

// Manager owns the live host instance, lending it out one use at a time and
// recycling it on schedule. All calls into the returned Application must
// happen on an affinity worker; the manager only tracks lifecycle.
type Manager struct {
	factory  Factory
	tracker  Tracker
	registry *handles.Registry
	logger   *slog.Logger
	cfg      ManagerConfig

	mu   sync.Mutex
	app  Application
	uses int
}

// NewManager constructs a host manager. tracker may be nil in tests.
func NewManager(factory Factory, tracker Tracker, registry *handles.Registry, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if registry == nil {
		registry = handles.NewRegistry(logger)
	}
	return &Manager{
		factory:  factory,
		tracker:  tracker,
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "host-manager"),
		cfg:      cfg,
	}
}

// Acquire returns the live host instance, launching or recycling as needed,
// and counts one use against the recycle threshold.
func (m *Manager) Acquire(ctx context.Context) (Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.app != nil && m.cfg.RecycleAfterUses > 0 && m.uses >= m.cfg.RecycleAfterUses {
		m.logger.Info("recycling automation host",
			logging.Args(
				logging.String(logging.FieldEventType, "host_recycle"),
				logging.Int("uses", m.uses),
				logging.Int("threshold", m.cfg.RecycleAfterUses),
			)...)
		m.shutdownLocked(ctx)
	}

	if m.app == nil {
		app, err := m.factory.Launch(ctx)
		if err != nil {
			return nil, resilience.Wrap(resilience.ErrNativeInterop, "host", "launch", "automation host failed to start", err)
		}
		if m.tracker != nil {
			if err := m.tracker.Register(ctx, app.ProcessID(), ""); err != nil {
				m.logger.Warn("host process not recorded; orphan cleanup cannot cover it",
					logging.Args(
						logging.String(logging.FieldEventType, "host_track_failed"),
						logging.Int("pid", app.ProcessID()),
						logging.Error(err),
					)...)
			}
		}
		m.app = app
		m.uses = 0
		m.logger.Info("automation host launched",
			logging.Args(
				logging.String(logging.FieldEventType, "host_launched"),
				logging.Int("pid", app.ProcessID()),
			)...)
	}

	m.uses++
	return m.app, nil
}

// Uses reports how many acquisitions the current instance has served.
func (m *Manager) Uses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uses
}

// Recycle force-quits the live instance so the next Acquire launches fresh.
// The health monitor calls this during recovery.
func (m *Manager) Recycle(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.app == nil {
		return
	}
	m.logger.Warn("forced host recycle",
		logging.Args(logging.String(logging.FieldEventType, "host_recycle_forced"))...)
	m.shutdownLocked(ctx)
}

// Close quits the live instance during shutdown.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownLocked(ctx)
}

func (m *Manager) shutdownLocked(ctx context.Context) {
	if m.app == nil {
		return
	}
	app := m.app
	m.app = nil
	m.uses = 0
	pid := app.ProcessID()

	quitCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownGrace)
	defer cancel()

	// Close anything still open so the host does not prompt on exit; the
	// scope releases the collection and document handles either way.
	scope := handles.NewScope(m.registry, m.logger, "host shutdown")
	if err := CloseAllDocuments(quitCtx, scope, app); err != nil {
		m.logger.Warn("closing open documents before quit failed",
			logging.Args(
				logging.String(logging.FieldEventType, "host_drain_failed"),
				logging.Error(err),
			)...)
	}
	scope.Close()

	if err := app.Quit(quitCtx); err != nil {
		m.logger.Warn("host quit failed; process guard will reap it",
			logging.Args(
				logging.String(logging.FieldEventType, "host_quit_failed"),
				logging.Int("pid", pid),
				logging.Error(err),
			)...)
	} else if m.tracker != nil {
		if err := m.tracker.Release(quitCtx, pid); err != nil {
			m.logger.Warn("host ledger entry not released",
				logging.Args(
					logging.Int("pid", pid),
					logging.Error(err),
				)...)
		}
	}
	if err := app.Release(); err != nil {
		m.logger.Warn("host application handle release failed",
			logging.Args(logging.Error(err))...)
	}
}

// String describes the manager state for diagnostics.
func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.app == nil {
		return "host: idle"
	}
	return fmt.Sprintf("host: pid %d, %d uses", m.app.ProcessID(), m.uses)
}
