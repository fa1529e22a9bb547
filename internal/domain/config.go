package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultSVAccuracy is the target relative precision for TMCS means.
	DefaultSVAccuracy = 0.01

	// DefaultAlpha is the truncation tolerance: once the gap between the
	// running coalition value and the full-coalition value falls below
	// alpha times the full value, the rest of the permutation is skipped.
	DefaultAlpha = 0.9

	// DefaultContribAccuracy is the confidence-interval target; the normal
	// quantile used by the stopping rule is taken at 1 - contrib_accuracy.
	DefaultContribAccuracy = 0.05

	// DefaultMaxExactNodes is the node count above which exact Shapley
	// computation is refused.
	DefaultMaxExactNodes = 10

	// DefaultMaxPermutations caps TMCS sampling so a degenerate oracle
	// (identical scores everywhere) still terminates.
	DefaultMaxPermutations = 500

	// DefaultMinPermutations is the number of permutations sampled before
	// the stopping criterion is first consulted; standard errors from one
	// or two samples are meaningless.
	DefaultMinPermutations = 10

	// DefaultTruncationFloor is the absolute threshold used when the
	// full-coalition score is too close to zero for the multiplicative
	// alpha rule to produce a usable threshold.
	DefaultTruncationFloor = 1e-6
)

// EstimatorConfig carries the recognized tuning options for the three
// estimation methods. Zero values are filled in by Normalize; explicit
// out-of-range values fail validation rather than being silently clamped.
type EstimatorConfig struct {
	// SVAccuracy is the target relative precision of every node's TMCS
	// mean before sampling stops.
	SVAccuracy float64 `json:"sv_accuracy" yaml:"sv_accuracy" validate:"omitempty,gt=0,lt=1"`

	// Alpha is the TMCS truncation tolerance in (0,1]. Raising it toward 1
	// widens the truncation window and never increases oracle calls.
	Alpha float64 `json:"alpha" yaml:"alpha" validate:"omitempty,gt=0,lte=1"`

	// ContribAccuracy sets the confidence level 1-ContribAccuracy for the
	// normal-approximation interval in the stopping rule.
	ContribAccuracy float64 `json:"contrib_accuracy" yaml:"contrib_accuracy" validate:"omitempty,gt=0,lt=1"`

	// MaxExactNodes is the node-count threshold above which the exact
	// estimator refuses to run.
	MaxExactNodes int `json:"max_exact_nodes" yaml:"max_exact_nodes" validate:"omitempty,min=1"`

	// MaxPermutations is the hard iteration cap guaranteeing TMCS
	// termination on adversarial or degenerate inputs.
	MaxPermutations int `json:"max_permutations" yaml:"max_permutations" validate:"omitempty,min=1"`

	// MinPermutations is sampled before convergence is first checked.
	MinPermutations int `json:"min_permutations" yaml:"min_permutations" validate:"omitempty,min=1"`

	// MaxDuration optionally bounds TMCS wall time. Zero means no time
	// cap; the permutation cap still applies.
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration" validate:"min=0"`

	// TruncationFloor is the absolute fallback threshold used when the
	// full-coalition score is near zero and alpha*|full| would effectively
	// disable truncation.
	TruncationFloor float64 `json:"truncation_floor" yaml:"truncation_floor" validate:"omitempty,gt=0"`

	// Seed seeds the permutation sampler. Zero selects a time-based seed;
	// any other value makes the sampled permutation sequence reproducible.
	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultEstimatorConfig returns the recognized defaults:
// sv_accuracy 0.01, alpha 0.9, contrib_accuracy 0.05.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		SVAccuracy:      DefaultSVAccuracy,
		Alpha:           DefaultAlpha,
		ContribAccuracy: DefaultContribAccuracy,
		MaxExactNodes:   DefaultMaxExactNodes,
		MaxPermutations: DefaultMaxPermutations,
		MinPermutations: DefaultMinPermutations,
		TruncationFloor: DefaultTruncationFloor,
	}
}

// Merge fills zero-valued fields from base. It runs before Normalize so
// operator-supplied worker defaults take precedence over the built-in ones
// while an explicit value in the request always wins.
func (c *EstimatorConfig) Merge(base EstimatorConfig) {
	if c.SVAccuracy == 0 {
		c.SVAccuracy = base.SVAccuracy
	}
	if c.Alpha == 0 {
		c.Alpha = base.Alpha
	}
	if c.ContribAccuracy == 0 {
		c.ContribAccuracy = base.ContribAccuracy
	}
	if c.MaxExactNodes == 0 {
		c.MaxExactNodes = base.MaxExactNodes
	}
	if c.MaxPermutations == 0 {
		c.MaxPermutations = base.MaxPermutations
	}
	if c.MinPermutations == 0 {
		c.MinPermutations = base.MinPermutations
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = base.MaxDuration
	}
	if c.TruncationFloor == 0 {
		c.TruncationFloor = base.TruncationFloor
	}
	if c.Seed == 0 {
		c.Seed = base.Seed
	}
}

// Normalize fills zero-valued fields with their defaults. It does not touch
// fields that were set explicitly, so a deliberate out-of-range value still
// fails Validate.
func (c *EstimatorConfig) Normalize() {
	defaults := DefaultEstimatorConfig()
	if c.SVAccuracy == 0 {
		c.SVAccuracy = defaults.SVAccuracy
	}
	if c.Alpha == 0 {
		c.Alpha = defaults.Alpha
	}
	if c.ContribAccuracy == 0 {
		c.ContribAccuracy = defaults.ContribAccuracy
	}
	if c.MaxExactNodes == 0 {
		c.MaxExactNodes = defaults.MaxExactNodes
	}
	if c.MaxPermutations == 0 {
		c.MaxPermutations = defaults.MaxPermutations
	}
	if c.MinPermutations == 0 {
		c.MinPermutations = defaults.MinPermutations
	}
	if c.TruncationFloor == 0 {
		c.TruncationFloor = defaults.TruncationFloor
	}
}

// Validate checks the configuration against its struct tags plus the
// cross-field constraint between the permutation bounds.
func (c *EstimatorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MinPermutations > c.MaxPermutations {
		return fmt.Errorf("%w: min_permutations %d exceeds max_permutations %d",
			ErrInvalidConfig, c.MinPermutations, c.MaxPermutations)
	}
	return nil
}
