package threadpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by a ThreadPool.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsPanicked  prometheus.Counter
	LiveWorkers   prometheus.Gauge
	BusyWorkers   prometheus.Gauge
	PendingJobs   prometheus.Gauge
	JobDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// Pools sharing a Metrics value aggregate into the same series.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	const subsystem = "threadpool"
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted by the pool.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally.",
		}),
		JobsPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_panicked_total",
			Help:      "Total number of jobs that panicked.",
		}),
		LiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_workers",
			Help:      "Number of worker goroutines that are still running.",
		}),
		BusyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "busy_workers",
			Help:      "Number of workers currently executing a job.",
		}),
		PendingJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_pending_jobs",
			Help:      "Number of jobs waiting in the queue.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.JobsSubmitted,
		m.JobsCompleted,
		m.JobsPanicked,
		m.LiveWorkers,
		m.BusyWorkers,
		m.PendingJobs,
		m.JobDuration,
	)
	return m
}

// enqueue counts the job as pending before send so that a worker
// picking it up right away never drives the gauge below zero.
func (m *Metrics) enqueue(send func() error) error {
	if m == nil {
		return send()
	}
	m.PendingJobs.Inc()
	if err := send(); err != nil {
		m.PendingJobs.Dec()
		return err
	}
	m.JobsSubmitted.Inc()
	return nil
}

func (m *Metrics) dequeued() {
	if m == nil {
		return
	}
	m.PendingJobs.Dec()
	m.BusyWorkers.Inc()
}

func (m *Metrics) finished(start time.Time, panicked bool) {
	if m == nil {
		return
	}
	m.BusyWorkers.Dec()
	m.JobDuration.Observe(time.Since(start).Seconds())
	if panicked {
		m.JobsPanicked.Inc()
	} else {
		m.JobsCompleted.Inc()
	}
}

func (m *Metrics) dropped(n int) {
	if m != nil {
		m.PendingJobs.Sub(float64(n))
	}
}

func (m *Metrics) workerStarted() {
	if m != nil {
		m.LiveWorkers.Inc()
	}
}

func (m *Metrics) workerStopped() {
	if m != nil {
		m.LiveWorkers.Dec()
	}
}
