package domain

import "time"

// IndependentScoresInput is the contract for the ComputeIndependentScores
// activity: one singleton training run per node, then raw and additive
// score vectors derived from the results.
type IndependentScoresInput struct {
	// ScenarioID correlates this run's records and events.
	ScenarioID string `json:"scenario_id" validate:"required"`

	// Partition fixes the node layout and anchor scores for this run.
	Partition Partition `json:"partition" validate:"required"`

	// Epochs is the training budget forwarded to every oracle call.
	Epochs int `json:"epochs" validate:"min=1"`
}

// Validate checks the input against its operation contract.
func (i *IndependentScoresInput) Validate() error {
	if err := validate.Struct(i); err != nil {
		return err
	}
	return i.Partition.Validate()
}

// IndependentScoresOutput carries both variants the independent method
// produces. Raw holds singleton scores as returned by the oracle; Additive
// rescales them so the vector sums to the partition's FullScore while
// preserving relative proportions. Variances are zero by construction
// (no repeated sampling), so records built from this output use ZeroVector.
type IndependentScoresOutput struct {
	// Raw is the per-node singleton score vector.
	Raw []float64 `json:"raw" validate:"required,min=1"`

	// Additive is the efficiency-normalized score vector.
	Additive []float64 `json:"additive" validate:"required,min=1"`

	// OracleCalls is the number of training runs consumed (always n).
	OracleCalls int64 `json:"oracle_calls" validate:"min=0"`

	// Elapsed is the wall time the method spent.
	Elapsed time.Duration `json:"elapsed" validate:"min=0"`
}

// Validate checks the output against its operation contract.
func (o *IndependentScoresOutput) Validate() error { return validate.Struct(o) }

// ExactShapleyInput is the contract for the ComputeExactShapley activity.
type ExactShapleyInput struct {
	// ScenarioID correlates this run's records and events.
	ScenarioID string `json:"scenario_id" validate:"required"`

	// Partition fixes the node layout and anchor scores for this run.
	Partition Partition `json:"partition" validate:"required"`

	// Epochs is the training budget forwarded to every oracle call.
	Epochs int `json:"epochs" validate:"min=1"`

	// Config supplies MaxExactNodes; other fields are ignored here.
	Config EstimatorConfig `json:"config"`
}

// Validate checks the input against its operation contract.
func (i *ExactShapleyInput) Validate() error {
	if err := validate.Struct(i); err != nil {
		return err
	}
	return i.Partition.Validate()
}

// ExactShapleyOutput carries the exact Shapley value vector. Stds are zero:
// the computation is exact modulo per-call oracle noise.
type ExactShapleyOutput struct {
	// Values is the per-node Shapley value vector.
	Values []float64 `json:"values" validate:"required,min=1"`

	// OracleCalls counts distinct coalition evaluations (<= 2^n - 1 with
	// memoization).
	OracleCalls int64 `json:"oracle_calls" validate:"min=0"`

	// Elapsed is the wall time the method spent.
	Elapsed time.Duration `json:"elapsed" validate:"min=0"`
}

// Validate checks the output against its operation contract.
func (o *ExactShapleyOutput) Validate() error { return validate.Struct(o) }

// TMCSInput is the contract for the ComputeTMCS activity.
type TMCSInput struct {
	// ScenarioID correlates this run's records and events.
	ScenarioID string `json:"scenario_id" validate:"required"`

	// Partition fixes the node layout and anchor scores for this run.
	Partition Partition `json:"partition" validate:"required"`

	// Epochs is the training budget forwarded to every oracle call.
	Epochs int `json:"epochs" validate:"min=1"`

	// Config supplies the sampling, truncation, and stopping parameters.
	Config EstimatorConfig `json:"config"`
}

// Validate checks the input against its operation contract.
func (i *TMCSInput) Validate() error {
	if err := validate.Struct(i); err != nil {
		return err
	}
	return i.Partition.Validate()
}

// TMCSOutput carries the Monte Carlo estimate together with its precision
// and the diagnostics needed to judge it: whether the stopping criterion
// was actually met or a cap fired first, how many permutations were walked,
// and how many oracle calls truncation left standing.
type TMCSOutput struct {
	// Values is the per-node estimated Shapley value vector (running means).
	Values []float64 `json:"values" validate:"required,min=1"`

	// Stds is the per-node standard error of each running mean.
	Stds []float64 `json:"stds" validate:"required,min=1"`

	// Converged reports whether every node met the relative-precision
	// target. False means a permutation or wall-clock cap stopped sampling
	// and Values is the best estimate so far, not an error.
	Converged bool `json:"converged"`

	// Permutations is the number of permutation walks completed.
	Permutations int `json:"permutations" validate:"min=0"`

	// OracleCalls is the number of training runs consumed after truncation
	// savings.
	OracleCalls int64 `json:"oracle_calls" validate:"min=0"`

	// Elapsed is the wall time the method spent.
	Elapsed time.Duration `json:"elapsed" validate:"min=0"`
}

// Validate checks the output against its operation contract.
func (o *TMCSOutput) Validate() error { return validate.Struct(o) }

// ContributivityRequest asks the workflow to measure one scenario's
// partition with a set of methods. Methods listing MethodIndependentRaw or
// MethodIndependentAdditive both map onto the single independent activity,
// which always produces the two records together.
type ContributivityRequest struct {
	// ScenarioID correlates records, events, and the caller's result rows.
	ScenarioID string `json:"scenario_id" validate:"required"`

	// Partition fixes the node layout and anchor scores.
	Partition Partition `json:"partition" validate:"required"`

	// Epochs is the per-training-run budget for every method.
	Epochs int `json:"epochs" validate:"min=1"`

	// Methods selects which estimators to run, in order.
	Methods []Method `json:"methods" validate:"required,min=1,dive,oneof=shapley independent_raw independent_additive tmcs"`

	// Config tunes the estimators; zero fields take defaults.
	Config EstimatorConfig `json:"config"`
}

// Validate checks the request against its operation contract.
func (r *ContributivityRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	return r.Partition.Validate()
}

// MethodFailure reports one method's abort without implicating the others.
// A training failure on one coalition stops only the method that issued it.
type MethodFailure struct {
	// Method names the estimator that failed.
	Method Method `json:"method"`

	// Coalition is the coalition whose evaluation triggered the failure,
	// when the failure was a training failure; empty otherwise.
	Coalition string `json:"coalition,omitempty"`

	// Error is the failure description.
	Error string `json:"error"`
}

// ContributivityReport is the workflow's result: the records that were
// produced plus the failures that were swallowed per method. The caller
// owns serialization and persistence.
type ContributivityReport struct {
	// ScenarioID echoes the request's correlation ID.
	ScenarioID string `json:"scenario_id"`

	// Records holds one entry per completed method variant.
	Records []ContributivityRecord `json:"records"`

	// Failures lists the methods that aborted and why.
	Failures []MethodFailure `json:"failures,omitempty"`
}
