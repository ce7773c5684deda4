package threadpool

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// PanicError is returned by ThreadPool.Close for every worker
// that was stopped by a panicking job.
type PanicError struct {
	WorkerID int
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("threadpool: worker %d panicked: %v", e.WorkerID, e.Value)
}

// Unwrap exposes the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// thread is the join handle of a worker goroutine.
// err is written by the goroutine itself and read only after done is closed.
type thread struct {
	done chan struct{}
	err  error
}

func spawn(fn func(t *thread)) *thread {
	t := &thread{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		fn(t)
	}()
	return t
}

// join blocks until the goroutine has exited.
func (t *thread) join() error {
	<-t.done
	return t.err
}

type worker struct {
	id     int
	thread *thread
}

func newWorker(id int, p *ThreadPool, rx *sharedReceiver) *worker {
	w := &worker{id: id}
	p.live.Add(1)
	p.metrics.workerStarted()
	w.thread = spawn(func(t *thread) {
		defer p.workerExited()
		w.run(p, rx, t)
	})
	return w
}

// take hands out the join handle once, later calls return nil.
func (w *worker) take() *thread {
	t := w.thread
	w.thread = nil
	return t
}

func (w *worker) run(p *ThreadPool, rx *sharedReceiver, t *thread) {
	for {
		job, ok := rx.next()
		if !ok {
			p.logger.Debug("worker disconnected; shutting down", workerAttr(w.id))
			return
		}
		p.metrics.dequeued()
		p.logger.Debug("worker got a job; executing", workerAttr(w.id))
		if stop := w.execute(p, t, job); stop {
			return
		}
	}
}

// execute runs job and reports whether the worker must stop.
// A job that calls runtime.Goexit takes the worker goroutine down with it,
// so that case is recorded on t before the goroutine unwinds.
func (w *worker) execute(p *ThreadPool, t *thread, job Job) (stop bool) {
	p.busy.Add(1)
	start := time.Now()
	returned := false
	defer func() {
		r := recover()
		p.busy.Add(-1)
		p.metrics.finished(start, !returned)

		switch {
		case returned:
		case r == nil:
			p.logger.Error("job exited the worker goroutine; worker stopped", workerAttr(w.id))
			t.err = fmt.Errorf("threadpool: worker %d: %w", w.id, ErrJobExited)
		case p.panicPolicy == PanicRecover:
			p.logger.Error("job panicked; worker keeps running",
				workerAttr(w.id), slog.Any("panic", r))
		default:
			perr := &PanicError{WorkerID: w.id, Value: r, Stack: debug.Stack()}
			p.logger.Error("job panicked; worker stopped",
				workerAttr(w.id), slog.Any("panic", r), slog.String("stack", string(perr.Stack)))
			t.err = perr
			stop = true
		}
	}()

	job()
	returned = true
	return false
}
