package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mlcoop/contribmeter/internal/domain"
)

// Configuration validation errors.
var (
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")
)

// RetryConfig controls retry behavior for failed training calls.
// Implements exponential backoff with optional full jitter. Only transport
// failures are retried; a trainer that rejected a coalition will reject it
// again, and re-running a multi-hour training cycle on a semantic refusal
// wastes the scarcest resource in the system.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// InitialInterval is the starting backoff duration.
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`

	// MaxInterval caps the backoff duration.
	MaxInterval time.Duration `json:"max_interval" yaml:"max_interval"`

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// UseJitter enables full jitter randomization of each delay.
	UseJitter bool `json:"use_jitter" yaml:"use_jitter"`
}

// DefaultRetryConfig returns retry settings sized for a training service:
// few attempts, generous intervals.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 10 * time.Second,
		MaxInterval:     5 * time.Minute,
		Multiplier:      2.0,
		UseJitter:       true,
	}
}

// RetryTrainer decorates a Trainer with retry on transient transport
// failures. Rejections and context cancellations pass through untouched.
type RetryTrainer struct {
	inner  Trainer
	config RetryConfig
	logger *slog.Logger
}

// NewRetryTrainer wraps the trainer with the given retry configuration.
func NewRetryTrainer(inner Trainer, cfg RetryConfig, logger *slog.Logger) (*RetryTrainer, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	}
	if cfg.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		return nil, fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v",
			errMaxIntervalInvalid, cfg.MaxInterval, cfg.InitialInterval)
	}
	if cfg.Multiplier < 1.0 {
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RetryTrainer{inner: inner, config: cfg, logger: logger.With("component", "trainer-retry")}, nil
}

// TrainAndScore delegates to the inner trainer, retrying unavailability
// errors with exponential backoff.
func (r *RetryTrainer) TrainAndScore(ctx context.Context, nodes []domain.Node, epochs int) (float64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.backoff(attempt)
			r.logger.Warn("retrying training call",
				"attempt", attempt,
				"max_attempts", r.config.MaxAttempts,
				"delay", delay,
				"error", lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		score, err := r.inner.TrainAndScore(ctx, nodes, epochs)
		if err == nil {
			return score, nil
		}
		if !errors.Is(err, ErrTrainerUnavailable) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("training unavailable after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// backoff computes the delay before the given attempt, exponential in the
// number of prior attempts with an interval cap and optional full jitter.
func (r *RetryTrainer) backoff(attempt int) time.Duration {
	delay := r.config.InitialInterval
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxInterval {
			delay = r.config.MaxInterval
			break
		}
	}

	if r.config.UseJitter {
		// Full jitter: random between 0 and the computed delay.
		jitterMs := rand.Int64N(delay.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
		delay = time.Duration(jitterMs) * time.Millisecond
	}
	return delay
}
