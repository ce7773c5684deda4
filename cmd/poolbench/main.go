// Command poolbench runs a batch of sleeping jobs through a threadpool
// and prints how close the wall clock time gets to perfect parallelism.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/noskovii/threadpool"
	"github.com/noskovii/threadpool/internal/bench"
	"github.com/noskovii/threadpool/internal/config"
)

var version = "dev"

func main() {
	var (
		configFile  = flag.String("config", "", "YAML config file")
		envFile     = flag.String("env", ".env", "env file loaded before reading THREADPOOL_* variables")
		size        = flag.Int("size", 0, "number of workers, overrides the config")
		jobs        = flag.Int("jobs", -1, "number of jobs, overrides the config")
		metrics     = flag.Bool("metrics", false, "print Prometheus metrics after the run")
		showVersion = flag.Bool("version", false, "print the version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("poolbench version %s\n", version)
		return
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *size > 0 {
		cfg.Pool.Size = *size
	}
	if *jobs >= 0 {
		cfg.Bench.Jobs = *jobs
	}
	if *metrics {
		cfg.Pool.Metrics = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(configFile, envFile string) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, stdout, stderr io.Writer) error {
	logger, err := cfg.Log.Logger(stderr)
	if err != nil {
		return err
	}

	var (
		reg     *prometheus.Registry
		metrics *threadpool.Metrics
	)
	if cfg.Pool.Metrics {
		reg = prometheus.NewRegistry()
		metrics = threadpool.NewMetrics(reg, "poolbench")
	}
	opts, err := cfg.Pool.Options(logger, metrics)
	if err != nil {
		return err
	}

	pool := threadpool.NewWith(cfg.Pool.Size, opts)
	result, err := bench.Run(pool, cfg.Bench)
	fmt.Fprintln(stdout, result)
	if err != nil {
		return err
	}

	if reg != nil {
		return writeMetrics(stdout, reg)
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
