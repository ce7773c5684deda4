package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noskovii/threadpool/internal/config"
)

func TestRun(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.Size = 2
	cfg.Pool.Metrics = true
	cfg.Bench.Jobs = 3
	cfg.Bench.JobDuration = time.Millisecond
	cfg.Log.Level = "debug"

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	require.NoError(t, run(cfg, stdout, stderr))

	out := stdout.String()
	require.Contains(t, out, "jobs: 3/3, workers: 2")
	require.Contains(t, out, "poolbench_threadpool_jobs_submitted_total 3")
	require.Contains(t, out, "poolbench_threadpool_jobs_completed_total 3")
	require.Contains(t, stderr.String(), "worker got a job; executing")
}

func TestRun_WithoutMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Bench.Jobs = 1
	cfg.Bench.JobDuration = 0

	stdout := &bytes.Buffer{}
	require.NoError(t, run(cfg, stdout, &bytes.Buffer{}))
	require.NotContains(t, stdout.String(), "poolbench_threadpool")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "poolbench.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("pool:\n  size: 3\n"), 0o644))

	t.Setenv(config.EnvJobs, "42")
	cfg, err := loadConfig(configFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Pool.Size)
	require.Equal(t, 42, cfg.Bench.Jobs)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"), "")
	require.Error(t, err)
}
