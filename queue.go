package threadpool

import (
	"sync"
)

// channel is an unbounded FIFO of jobs. Sends never block; a receive blocks
// until a job is available or the channel is closed and drained.
type channel struct {
	lock   sync.Mutex
	ready  sync.Cond
	buf    []Job
	closed bool

	// disconnected is set once no receiver is left to drain buf.
	disconnected bool
}

func newChannel() (*sender, *receiver) {
	c := &channel{}
	c.ready.L = &c.lock
	return &sender{c: c}, &receiver{c: c}
}

func (c *channel) len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.buf)
}

// disconnect makes every later send fail with ErrNoWorkers.
func (c *channel) disconnect() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.disconnected = true
}

// drop discards the buffered jobs and returns how many there were.
func (c *channel) drop() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := len(c.buf)
	c.buf = nil
	return n
}

// sender is the producing side of a channel. It is safe for concurrent use.
type sender struct {
	c *channel
}

func (s *sender) send(job Job) error {
	c := s.c
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrPoolClosed
	}
	if c.disconnected {
		return ErrNoWorkers
	}
	c.buf = append(c.buf, job)
	c.ready.Signal()
	return nil
}

// close wakes every blocked receiver. Jobs already buffered are still delivered.
func (s *sender) close() {
	c := s.c
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.ready.Broadcast()
}

// receiver is the consuming side of a channel.
type receiver struct {
	c *channel
}

// recv returns false only once the channel is closed and empty.
func (r *receiver) recv() (Job, bool) {
	c := r.c
	c.lock.Lock()
	defer c.lock.Unlock()

	for len(c.buf) == 0 {
		if c.closed {
			return nil, false
		}
		c.ready.Wait()
	}
	job := c.buf[0]
	c.buf[0] = nil // Let the closure be collected.
	c.buf = c.buf[1:]
	if len(c.buf) == 0 {
		c.buf = nil
	}
	return job, true
}

// sharedReceiver lets many workers take turns on a single receiver.
// The lock covers the dequeue only, never the execution of the job.
type sharedReceiver struct {
	lock sync.Mutex
	rx   *receiver
}

func (s *sharedReceiver) next() (Job, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.rx.recv()
}
