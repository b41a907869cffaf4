package affinity

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"docmill/internal/logging"
)

// ErrPoolClosed is returned for submissions after shutdown began.
var ErrPoolClosed = errors.New("affinity pool closed")

// Config describes pool construction parameters.
type Config struct {
	// Workers is the number of pinned worker threads. Default 1: most
	// automation hosts tolerate exactly one driving thread per process.
	Workers int
	// QueueDepth is each worker's private queue capacity. Default 16.
	QueueDepth int
	// Pin runs on the locked OS thread before the worker accepts work.
	Pin func() error
	// Unpin runs on the locked OS thread as the worker exits.
	Unpin func()
	// Logger receives worker lifecycle events.
	Logger *slog.Logger
}

// Pool is a fixed set of persistent, OS-thread-pinned workers.
type Pool struct {
	workers []*Worker
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Worker is one pinned execution slot. Its affinity token is generated on
// the locked thread at startup and never changes.
type Worker struct {
	id      int
	jobs    chan func(*Worker)
	pending atomic.Int64
	alive   atomic.Bool

	tokenMu sync.Mutex
	token   string
}

// ID returns the worker's slot index.
func (w *Worker) ID() int { return w.id }

// Token returns the worker's affinity token, empty until the worker has
// pinned its thread.
func (w *Worker) Token() string {
	w.tokenMu.Lock()
	defer w.tokenMu.Unlock()
	return w.token
}

// NewPool starts the workers and returns once all of them are running. Pin
// failures mark the affected worker dead; Verify surfaces them before the
// pool takes production traffic.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 16
	}
	logger := logging.NewComponentLogger(cfg.Logger, "affinity-pool")

	p := &Pool{logger: logger}
	p.workers = make([]*Worker, cfg.Workers)
	for i := range p.workers {
		w := &Worker{id: i, jobs: make(chan func(*Worker), cfg.QueueDepth)}
		p.workers[i] = w
		p.wg.Add(1)
		go p.run(w, cfg.Pin, cfg.Unpin)
	}
	return p
}

func (p *Pool) run(w *Worker, pin func() error, unpin func()) {
	defer p.wg.Done()

	// The lock is never undone: this goroutine owns its OS thread for the
	// life of the process so every handle created here stays valid here.
	runtime.LockOSThread()

	if pin != nil {
		if err := pin(); err != nil {
			p.logger.Error("worker pin failed",
				logging.Args(
					logging.String(logging.FieldEventType, "worker_pin_failed"),
					logging.Int("worker", w.id),
					logging.Error(err),
				)...)
			p.drainDead(w)
			return
		}
	}
	if unpin != nil {
		defer unpin()
	}

	w.tokenMu.Lock()
	w.token = uuid.NewString()
	w.tokenMu.Unlock()
	w.alive.Store(true)

	p.logger.Debug("worker pinned",
		logging.Args(
			logging.Int("worker", w.id),
			logging.String("affinity_token", w.Token()),
		)...)

	for job := range w.jobs {
		job(w)
		w.pending.Add(-1)
	}
	w.alive.Store(false)
}

// drainDead completes queued jobs with the worker handle so futures resolve
// instead of hanging; the jobs themselves observe a dead worker.
func (p *Pool) drainDead(w *Worker) {
	for job := range w.jobs {
		job(w)
		w.pending.Add(-1)
	}
}

// submit places a job on the least-loaded live worker's private queue. The
// send happens under the pool lock so shutdown can never close a queue a
// submission is about to use.
func (p *Pool) submit(job func(*Worker)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	target := p.leastLoaded()
	if target == nil {
		return errors.New("no live affinity workers")
	}
	target.pending.Add(1)
	target.jobs <- job
	return nil
}

// submitTo queues a job on one specific worker, under the same lock as
// submit so shutdown cannot close the queue mid-send. The send does not
// wait: a full queue rejects the job.
func (p *Pool) submitTo(w *Worker, job func(*Worker)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case w.jobs <- job:
		w.pending.Add(1)
		return nil
	default:
		return fmt.Errorf("worker %d queue full", w.id)
	}
}

func (p *Pool) leastLoaded() *Worker {
	var best *Worker
	for _, w := range p.workers {
		if !w.alive.Load() {
			continue
		}
		if best == nil || w.pending.Load() < best.pending.Load() {
			best = w
		}
	}
	if best != nil {
		return best
	}
	// Workers may still be pinning just after construction; queue on the
	// least-loaded slot and let Verify catch the ones that never come up.
	for _, w := range p.workers {
		if best == nil || w.pending.Load() < best.pending.Load() {
			best = w
		}
	}
	return best
}

// Size returns the configured worker count.
func (p *Pool) Size() int { return len(p.workers) }

// LiveWorkers returns how many workers are pinned and serving.
func (p *Pool) LiveWorkers() int {
	live := 0
	for _, w := range p.workers {
		if w.alive.Load() {
			live++
		}
	}
	return live
}

// Shutdown stops intake, then waits up to drainTimeout for in-flight and
// queued closures to finish. Workers still busy after the timeout are
// abandoned; their goroutines exit when the current closure returns.
func (p *Pool) Shutdown(drainTimeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, w := range p.workers {
		close(w.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(drainTimeout):
		return fmt.Errorf("affinity pool drain timed out after %s", drainTimeout)
	}
}
