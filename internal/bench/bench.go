// Package bench submits a batch of sleeping jobs to a pool from several
// goroutines and measures how long the pool takes to drain them.
package bench

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noskovii/threadpool"
	"github.com/noskovii/threadpool/internal/config"
)

// Executor is the part of *threadpool.ThreadPool used by Run.
type Executor interface {
	Execute(job threadpool.Job) error
	Close() error
	Size() int
}

// Result describes one run.
type Result struct {
	Submitted int
	Executed  int
	Workers   int
	Elapsed   time.Duration
	// Ideal is ceil(jobs/workers) * job duration.
	Ideal time.Duration
}

func (r Result) String() string {
	return fmt.Sprintf("jobs: %d/%d, workers: %d, elapsed: %s, ideal: %s",
		r.Executed, r.Submitted, r.Workers, r.Elapsed.Round(time.Millisecond), r.Ideal)
}

// Run spreads cfg.Jobs over cfg.Submitters goroutines, then closes pool
// and waits for it. The pool is closed even when a submission fails.
func Run(pool Executor, cfg config.BenchConfig) (Result, error) {
	var (
		executed atomic.Int64
		accepted atomic.Int64
	)
	job := func() {
		time.Sleep(cfg.JobDuration)
		executed.Add(1)
	}

	if cfg.Submitters <= 0 {
		cfg.Submitters = 1
	}

	start := time.Now()
	g := errgroup.Group{}
	for s := 0; s < cfg.Submitters; s++ {
		n := cfg.Jobs / cfg.Submitters
		if s < cfg.Jobs%cfg.Submitters {
			n++
		}
		g.Go(func() error {
			for i := 0; i < n; i++ {
				if err := pool.Execute(job); err != nil {
					return fmt.Errorf("submit job: %w", err)
				}
				accepted.Add(1)
			}
			return nil
		})
	}
	submitErr := g.Wait()
	closeErr := pool.Close()
	elapsed := time.Since(start)

	workers := pool.Size()
	rounds := (cfg.Jobs + workers - 1) / workers
	result := Result{
		Submitted: int(accepted.Load()),
		Executed:  int(executed.Load()),
		Workers:   workers,
		Elapsed:   elapsed,
		Ideal:     time.Duration(rounds) * cfg.JobDuration,
	}
	if closeErr != nil {
		closeErr = fmt.Errorf("close pool: %w", closeErr)
	}
	return result, errors.Join(submitErr, closeErr)
}
