package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docmill/internal/config"
	"docmill/internal/logging"
)

// HandleTracker reports and reclaims tracked native handles. Satisfied by
// handles.Registry.
type HandleTracker interface {
	Active() int64
	ForceReleaseAll() int
}

// MemoryTracker reports resident memory of tracked host processes.
// Satisfied by procguard.Guard.
type MemoryTracker interface {
	TotalRSS(ctx context.Context) int64
}

// WorkerPool reports affinity worker liveness. Satisfied by affinity.Pool.
type WorkerPool interface {
	Size() int
	LiveWorkers() int
}

// HostRecycler force-recycles the automation host. Satisfied by
// host.Manager.
type HostRecycler interface {
	Recycle(ctx context.Context)
}

// Sample is one point-in-time reading.
type Sample struct {
	ActiveHandles int64
	HostRSSMiB    int64
	WorkersLive   int
	WorkersTotal  int
	TakenAt       time.Time
}

// Monitor samples resource usage and drives recovery on threshold breaches.
type Monitor struct {
	cfg      config.Health
	handles  HandleTracker
	memory   MemoryTracker
	pool     WorkerPool
	recycler HostRecycler
	logger   *slog.Logger

	mu         sync.Mutex
	last       Sample
	recoveries int
}

// NewMonitor constructs a monitor. memory, pool, and recycler may be nil
// when the corresponding signal is not available.
func NewMonitor(cfg config.Health, handles HandleTracker, memory MemoryTracker, pool WorkerPool, recycler HostRecycler, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		handles:  handles,
		memory:   memory,
		pool:     pool,
		recycler: recycler,
		logger:   logging.NewComponentLogger(logger, "health"),
	}
}

// Run samples on the configured interval until the context is done.
func (m *Monitor) Run(ctx context.Context) {
	interval := time.Duration(m.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check takes one sample, alerts on breaches, and runs recovery when handles
// or host memory exceed their limits. It returns the sample so callers can
// surface it in status output.
func (m *Monitor) Check(ctx context.Context) Sample {
	sample := m.sample(ctx)

	m.mu.Lock()
	m.last = sample
	m.mu.Unlock()

	breached := false
	if m.cfg.MaxActiveHandles > 0 && sample.ActiveHandles > m.cfg.MaxActiveHandles {
		breached = true
		m.logger.Warn("active handle count exceeded limit",
			logging.Args(
				logging.String(logging.FieldEventType, "health_handles_breach"),
				logging.Alert("resource_breach"),
				logging.Int64("active", sample.ActiveHandles),
				logging.Int64("limit", m.cfg.MaxActiveHandles),
			)...)
	}
	if m.cfg.MaxHostRSSMiB > 0 && sample.HostRSSMiB > m.cfg.MaxHostRSSMiB {
		breached = true
		m.logger.Warn("host memory exceeded limit",
			logging.Args(
				logging.String(logging.FieldEventType, "health_memory_breach"),
				logging.Alert("resource_breach"),
				logging.Int64("rss_mib", sample.HostRSSMiB),
				logging.Int64("limit_mib", m.cfg.MaxHostRSSMiB),
			)...)
	}
	if sample.WorkersTotal > 0 && sample.WorkersLive < sample.WorkersTotal {
		// Dead workers cannot be restarted without losing their affinity
		// guarantees; alert so the operator restarts the batch.
		m.logger.Error("affinity workers lost",
			logging.Args(
				logging.String(logging.FieldEventType, "health_workers_lost"),
				logging.Alert("worker_loss"),
				logging.Int("live", sample.WorkersLive),
				logging.Int("total", sample.WorkersTotal),
			)...)
	}

	if breached {
		m.recover(ctx)
	}
	return sample
}

// Last returns the most recent sample.
func (m *Monitor) Last() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Recoveries reports how many times recovery has run.
func (m *Monitor) Recoveries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recoveries
}

func (m *Monitor) sample(ctx context.Context) Sample {
	sample := Sample{TakenAt: time.Now()}
	if m.handles != nil {
		sample.ActiveHandles = m.handles.Active()
	}
	if m.memory != nil {
		sample.HostRSSMiB = m.memory.TotalRSS(ctx) / (1 << 20)
	}
	if m.pool != nil {
		sample.WorkersTotal = m.pool.Size()
		sample.WorkersLive = m.pool.LiveWorkers()
	}
	return sample
}

// recover drops leaked handles and recycles the host. Conversions in flight
// during recovery fail and settle through the retry path.
func (m *Monitor) recover(ctx context.Context) {
	m.mu.Lock()
	m.recoveries++
	m.mu.Unlock()

	released := 0
	if m.handles != nil {
		released = m.handles.ForceReleaseAll()
	}
	if m.recycler != nil {
		m.recycler.Recycle(ctx)
	}
	m.logger.Warn("resource recovery completed",
		logging.Args(
			logging.String(logging.FieldEventType, "health_recovery"),
			logging.Alert("recovery"),
			logging.Int("handles_released", released),
		)...)
}
