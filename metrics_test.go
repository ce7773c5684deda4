package threadpool

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")
	pool := NewWith(2, Options{Metrics: m, PanicPolicy: PanicRecover})
	require.Equal(t, float64(2), testutil.ToFloat64(m.LiveWorkers))

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Execute(func() {}))
	}
	require.NoError(t, pool.Execute(func() { panic("boom") }))
	require.NoError(t, pool.Close())
	require.ErrorIs(t, pool.Execute(func() {}), ErrPoolClosed)

	require.Equal(t, float64(6), testutil.ToFloat64(m.JobsSubmitted))
	require.Equal(t, float64(5), testutil.ToFloat64(m.JobsCompleted))
	require.Equal(t, float64(1), testutil.ToFloat64(m.JobsPanicked))
	require.Equal(t, float64(0), testutil.ToFloat64(m.LiveWorkers))
	require.Equal(t, float64(0), testutil.ToFloat64(m.BusyWorkers))
	require.Equal(t, float64(0), testutil.ToFloat64(m.PendingJobs))

	count, err := testutil.GatherAndCount(reg, "test_threadpool_job_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMetrics_DroppedJobs(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")
	pool := NewWith(1, Options{Metrics: m})
	releasec := make(chan struct{})
	require.NoError(t, pool.Execute(func() {
		<-releasec
		panic("boom")
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Execute(func() {}))
	}
	close(releasec)
	require.ErrorIs(t, pool.Close(), ErrJobsDropped)

	require.Equal(t, float64(4), testutil.ToFloat64(m.JobsSubmitted))
	require.Equal(t, float64(1), testutil.ToFloat64(m.JobsPanicked))
	require.Equal(t, float64(0), testutil.ToFloat64(m.PendingJobs))
	require.Equal(t, float64(0), testutil.ToFloat64(m.LiveWorkers))
}

func TestMetrics_Nil(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		require.NoError(t, m.enqueue(func() error { return nil }))
		m.dequeued()
		m.finished(time.Now(), false)
		m.finished(time.Now(), true)
		m.dropped(1)
		m.workerStarted()
		m.workerStopped()
	})
}
