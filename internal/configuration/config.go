// Package configuration loads and validates worker configuration from YAML
// files and environment variables. It covers Temporal connectivity, the
// training service endpoint, estimator tuning, and logging, with sane
// defaults so a worker can start against a local Temporal dev server with
// nothing but a trainer endpoint.
package configuration

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
)

const (
	// DefaultTaskQueue is the Temporal task queue the worker polls.
	DefaultTaskQueue = "contributivity"

	// DefaultTemporalHostPort targets a local Temporal dev server.
	DefaultTemporalHostPort = "localhost:7233"

	// DefaultTemporalNamespace is the Temporal namespace workflows run in.
	DefaultTemporalNamespace = "default"

	// DefaultTrainerTimeout bounds a single train-and-score HTTP call. One
	// full cycle can take hours on a real training service.
	DefaultTrainerTimeout = 2 * time.Hour
)

// Config holds the complete worker configuration.
type Config struct {
	// Temporal holds the workflow engine connection settings.
	Temporal TemporalConfig `yaml:"temporal"`

	// Trainer holds the training service connection settings.
	Trainer TrainerConfig `yaml:"trainer"`

	// Estimator tunes the contributivity estimators. Zero-valued fields
	// take their defaults.
	Estimator domain.EstimatorConfig `yaml:"estimator"`

	// LogLevel selects the slog level: debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// TemporalConfig holds Temporal client and worker settings.
type TemporalConfig struct {
	// HostPort is the Temporal frontend address.
	HostPort string `yaml:"host_port"`

	// Namespace is the Temporal namespace.
	Namespace string `yaml:"namespace"`

	// TaskQueue is the queue the worker polls and clients dispatch to.
	TaskQueue string `yaml:"task_queue"`
}

// TrainerConfig holds training service settings.
type TrainerConfig struct {
	// Endpoint is the base URL of the training service.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single train-and-score call.
	Timeout time.Duration `yaml:"timeout"`

	// Retry controls retries on transient training service failures.
	Retry oracle.RetryConfig `yaml:"retry"`
}

// DefaultConfig returns a configuration suitable for local development,
// minus the trainer endpoint which has no sensible default.
func DefaultConfig() *Config {
	return &Config{
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHostPort,
			Namespace: DefaultTemporalNamespace,
			TaskQueue: DefaultTaskQueue,
		},
		Trainer: TrainerConfig{
			Timeout: DefaultTrainerTimeout,
			Retry:   oracle.DefaultRetryConfig(),
		},
		Estimator: domain.DefaultEstimatorConfig(),
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path, layers it over the defaults, applies
// environment overrides, and validates the result. An empty path skips the
// file and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on the loaded configuration.
// Environment wins over file values so deployments can override without
// editing files.
func (c *Config) applyEnv() {
	if v := os.Getenv("TEMPORAL_HOST_PORT"); v != "" {
		c.Temporal.HostPort = v
	}
	if v := os.Getenv("TEMPORAL_NAMESPACE"); v != "" {
		c.Temporal.Namespace = v
	}
	if v := os.Getenv("TEMPORAL_TASK_QUEUE"); v != "" {
		c.Temporal.TaskQueue = v
	}
	if v := os.Getenv("TRAINER_ENDPOINT"); v != "" {
		c.Trainer.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if c.Temporal.HostPort == "" {
		return fmt.Errorf("temporal.host_port is required")
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal.task_queue is required")
	}
	if c.Trainer.Endpoint == "" {
		return fmt.Errorf("trainer.endpoint is required (file or TRAINER_ENDPOINT)")
	}
	if c.Trainer.Timeout <= 0 {
		return fmt.Errorf("trainer.timeout must be positive")
	}

	estimator := c.Estimator
	estimator.Normalize()
	if err := estimator.Validate(); err != nil {
		return fmt.Errorf("estimator config: %w", err)
	}
	return nil
}
