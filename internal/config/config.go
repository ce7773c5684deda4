// Package config loads the poolbench settings from a YAML file,
// an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/noskovii/threadpool"
)

// Config is the structure of the configuration file.
type Config struct {
	Pool  PoolConfig  `yaml:"pool"`
	Bench BenchConfig `yaml:"bench"`
	Log   LogConfig   `yaml:"log"`
}

// PoolConfig configures the ThreadPool.
type PoolConfig struct {
	Size        int    `yaml:"size"`
	PanicPolicy string `yaml:"panic_policy"`
	Metrics     bool   `yaml:"metrics"`
}

// BenchConfig describes the load submitted to the pool.
type BenchConfig struct {
	Jobs        int           `yaml:"jobs"`
	Submitters  int           `yaml:"submitters"`
	JobDuration time.Duration `yaml:"job_duration"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Size:        4,
			PanicPolicy: threadpool.PanicExit.String(),
		},
		Bench: BenchConfig{
			Jobs:        10,
			Submitters:  1,
			JobDuration: 50 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile reads a YAML file on top of Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile copies the variables of a .env file into the process
// environment without overriding the ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvSize        = "THREADPOOL_SIZE"
	EnvPanicPolicy = "THREADPOOL_PANIC_POLICY"
	EnvMetrics     = "THREADPOOL_METRICS"
	EnvJobs        = "THREADPOOL_JOBS"
	EnvSubmitters  = "THREADPOOL_SUBMITTERS"
	EnvJobDuration = "THREADPOOL_JOB_DURATION"
	EnvLogLevel    = "THREADPOOL_LOG_LEVEL"
	EnvLogFormat   = "THREADPOOL_LOG_FORMAT"
)

// ApplyEnv overrides the fields whose variable is set, lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		EnvSize:       &c.Pool.Size,
		EnvJobs:       &c.Bench.Jobs,
		EnvSubmitters: &c.Bench.Submitters,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		EnvPanicPolicy: &c.Pool.PanicPolicy,
		EnvLogLevel:    &c.Log.Level,
		EnvLogFormat:   &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvMetrics); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a boolean: %w", EnvMetrics, v, err)
		}
		c.Pool.Metrics = b
	}
	if v, ok := lookup(EnvJobDuration); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a valid duration: %w", EnvJobDuration, v, err)
		}
		c.Bench.JobDuration = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Pool.Size <= 0 {
		return fmt.Errorf("config: pool size must be positive, got %d", c.Pool.Size)
	}
	if _, err := threadpool.ParsePanicPolicy(c.Pool.PanicPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Bench.Jobs < 0 {
		return fmt.Errorf("config: jobs must not be negative, got %d", c.Bench.Jobs)
	}
	if c.Bench.Submitters <= 0 {
		return fmt.Errorf("config: submitters must be positive, got %d", c.Bench.Submitters)
	}
	if c.Bench.JobDuration < 0 {
		return fmt.Errorf("config: job duration must not be negative, got %s", c.Bench.JobDuration)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Log.Format)
	}
	return nil
}

func (c LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return level, fmt.Errorf("config: invalid log level %q: %w", c.Level, err)
	}
	return level, nil
}

// Logger builds a slog.Logger writing to w.
func (c LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Options converts the pool settings into threadpool.Options.
func (c PoolConfig) Options(logger *slog.Logger, metrics *threadpool.Metrics) (threadpool.Options, error) {
	policy, err := threadpool.ParsePanicPolicy(c.PanicPolicy)
	if err != nil {
		return threadpool.Options{}, fmt.Errorf("config: %w", err)
	}
	return threadpool.Options{
		Logger:      logger,
		Metrics:     metrics,
		PanicPolicy: policy,
	}, nil
}
