// Package threadpool provides a fixed-size pool of worker goroutines
// that run jobs taken from one shared unbounded queue.
//
// Closing the pool closes the queue, lets every queued job run
// and waits for each worker to exit.
package threadpool

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/segmentio/ksuid"
)

var (
	// ErrPoolClosed is returned by Execute once Close has been called.
	ErrPoolClosed = fmt.Errorf("threadpool: pool is closed")
	// ErrNilJob is returned by Execute for a nil Job.
	ErrNilJob = fmt.Errorf("threadpool: nil job")
	// ErrNoWorkers is returned by Execute once every worker has stopped
	// before Close, the job would otherwise never run.
	ErrNoWorkers = fmt.Errorf("threadpool: no workers left")
	// ErrJobExited is reported by Close for a worker stopped by a job
	// that called runtime.Goexit.
	ErrJobExited = fmt.Errorf("threadpool: job exited the worker goroutine")
	// ErrJobsDropped is reported by Close when queued jobs were left
	// without any worker to run them.
	ErrJobsDropped = fmt.Errorf("threadpool: queued jobs dropped")
)

// Job is a unit of work. It runs exactly once on one of the workers.
type Job func()

// PanicPolicy decides what a worker does after a job panics.
type PanicPolicy int

const (
	// PanicExit stops the worker. The pool keeps its advertised size
	// but runs with one worker less, and Close reports a *PanicError.
	// Once no worker is left Execute fails with ErrNoWorkers.
	PanicExit PanicPolicy = iota
	// PanicRecover logs the panic and keeps the worker running.
	PanicRecover
)

func (pp PanicPolicy) String() string {
	switch pp {
	case PanicExit:
		return "exit"
	case PanicRecover:
		return "recover"
	default:
		return fmt.Sprintf("PanicPolicy(%d)", int(pp))
	}
}

// ParsePanicPolicy parses "exit" or "recover", case insensitive.
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exit":
		return PanicExit, nil
	case "recover":
		return PanicRecover, nil
	default:
		return PanicExit, fmt.Errorf("threadpool: unknown panic policy %q", s)
	}
}

// Options configurates the ThreadPool. The zero value is ready to use.
type Options struct {
	// Logger receives the lifecycle trace of the pool and its workers.
	// Nil discards everything.
	Logger *slog.Logger
	// Metrics, if not nil, is updated as jobs flow through the pool.
	Metrics *Metrics
	// PanicPolicy is applied when a job panics, PanicExit by default.
	PanicPolicy PanicPolicy
}

// ThreadPool runs jobs on a fixed set of workers.
//
// NOTE that the queue is unbounded: Execute never blocks, so a producer
// that outpaces the workers grows the queue without limit.
type ThreadPool struct {
	id          string
	logger      *slog.Logger
	metrics     *Metrics
	panicPolicy PanicPolicy

	queue   *channel
	sender  atomic.Pointer[sender]
	workers []*worker

	live atomic.Int32
	busy atomic.Int32

	closeLock sync.Mutex
}

// New creates a ThreadPool with size workers.
// It panics if size is not positive.
func New(size int) *ThreadPool {
	return NewWith(size, Options{})
}

// NewWith creates a ThreadPool with size workers and Options.
// It panics if size is not positive.
func NewWith(size int, opts Options) *ThreadPool {
	if size <= 0 {
		panic("threadpool: size must be positive")
	}

	id := ksuid.New().String()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	tx, rx := newChannel()

	p := &ThreadPool{
		id:          id,
		logger:      logger.With(slog.String("pool_id", id)),
		metrics:     opts.Metrics,
		panicPolicy: opts.PanicPolicy,

		queue:   tx.c,
		workers: make([]*worker, 0, size),
	}
	p.sender.Store(tx)

	shared := &sharedReceiver{rx: rx}
	for i := 0; i < size; i++ {
		p.workers = append(p.workers, newWorker(i, p, shared))
	}
	p.logger.Info("threadpool started",
		slog.Int("workers", size), slog.String("panic_policy", p.panicPolicy.String()))
	return p
}

// ID returns the unique id of the pool, it is attached to every log record as pool_id.
func (p *ThreadPool) ID() string {
	return p.id
}

// Size returns the number of workers the pool was created with.
func (p *ThreadPool) Size() int {
	return len(p.workers)
}

// Stats contains a snapshot of the pool counters.
type Stats struct {
	// Workers is the size of the pool, it never changes.
	Workers int
	// LiveWorkers is lower than Workers once a worker has exited,
	// either because of a panic or because the pool was closed.
	LiveWorkers int
	BusyWorkers int
	Pending     int
}

// Stats returns the current stats.
func (p *ThreadPool) Stats() Stats {
	return Stats{
		Workers:     len(p.workers),
		LiveWorkers: int(p.live.Load()),
		BusyWorkers: int(p.busy.Load()),
		Pending:     p.queue.len(),
	}
}

// workerExited runs on the goroutine of every worker right before it exits.
// The last one to leave disconnects the queue, like a channel losing its receiver.
func (p *ThreadPool) workerExited() {
	p.metrics.workerStopped()
	if p.live.Add(-1) == 0 {
		p.queue.disconnect()
	}
}

// Execute queues job and returns without waiting for it to start.
// It fails with ErrPoolClosed once Close has been called,
// and with ErrNoWorkers once every worker has stopped.
func (p *ThreadPool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	tx := p.sender.Load()
	if tx == nil {
		return ErrPoolClosed
	}
	return p.metrics.enqueue(func() error { return tx.send(job) })
}

// Close stops accepting jobs, waits until every queued job has run
// and joins the workers in id order. Jobs are never interrupted.
//
// The returned error joins a *PanicError for each worker stopped by a panic,
// an ErrJobExited for each worker stopped by runtime.Goexit, and ErrJobsDropped
// if jobs were still queued when the last worker stopped.
// Calling Close again is a no-op that returns nil.
func (p *ThreadPool) Close() error {
	p.closeLock.Lock()
	defer p.closeLock.Unlock()

	// The queue must be closed first, otherwise idle workers never return.
	if tx := p.sender.Swap(nil); tx != nil {
		p.logger.Info("threadpool shutting down")
		tx.close()
	}

	var (
		errs   []error
		joined int
	)
	for _, w := range p.workers {
		t := w.take()
		if t == nil {
			continue
		}
		p.logger.Info("shutting down worker", workerAttr(w.id))
		if err := t.join(); err != nil {
			errs = append(errs, err)
		}
		joined++
	}
	failed := len(errs)
	if n := p.queue.drop(); n > 0 {
		p.metrics.dropped(n)
		p.logger.Error("queued jobs dropped", slog.Int("jobs", n))
		errs = append(errs, fmt.Errorf("%w: %d left in the queue", ErrJobsDropped, n))
	}
	if joined > 0 {
		p.logger.Info("threadpool shutdown completed", slog.Int("failed_workers", failed))
	}
	return errors.Join(errs...)
}
