package domain

import (
	"errors"
	"fmt"
)

// ErrPartitionTooLarge indicates a partition exceeds the bitmask node ceiling.
var ErrPartitionTooLarge = errors.New("partition too large")

// ErrNodeIndexOutOfOrder indicates partition nodes are not ordered 0..n-1.
var ErrNodeIndexOutOfOrder = errors.New("node indexes must be contiguous and ordered")

// ErrInvalidConfig indicates the estimator configuration is invalid.
var ErrInvalidConfig = errors.New("invalid estimator configuration")

// ErrEmptyCoalitionEvaluation indicates code attempted to route the empty
// coalition through the training oracle. The empty coalition's value is a
// configured constant; hitting this error is a programming bug, not a
// training problem.
var ErrEmptyCoalitionEvaluation = errors.New("empty coalition must not be evaluated by the oracle")

// TrainingFailureError reports that the external training procedure could
// not produce a score for a coalition, e.g. the combined dataset was empty
// or training did not converge. It aborts the estimator that issued the
// evaluation: silently dropping an oracle sample would bias the running
// means, so no partial result is returned.
type TrainingFailureError struct {
	// Coalition identifies the coalition whose training run failed.
	Coalition Coalition

	// Epochs is the training budget that was requested.
	Epochs int

	// Err is the underlying trainer error.
	Err error
}

// Error formats the failure with the coalition that triggered it, which is
// what the per-method failure report surfaces to the user.
func (e *TrainingFailureError) Error() string {
	return fmt.Sprintf("training failed for coalition %s (epochs=%d): %v", e.Coalition, e.Epochs, e.Err)
}

// Unwrap exposes the underlying trainer error for errors.Is/As chains.
func (e *TrainingFailureError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a record constructed with vector lengths
// that do not match the node count. This is a programming or configuration
// error and is never retried.
type DimensionMismatchError struct {
	// Field names the offending vector ("scores" or "stds").
	Field string

	// Got is the length that was supplied.
	Got int

	// Want is the partition's node count.
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s has length %d, node count is %d", e.Field, e.Got, e.Want)
}

// InfeasibleExactError reports that exact Shapley computation was requested
// for a node count above the configured threshold. The 2^n oracle-call cost
// makes silently proceeding worse than refusing; the caller must choose
// TMCS explicitly instead.
type InfeasibleExactError struct {
	// NodeCount is the requested partition size.
	NodeCount int

	// MaxNodes is the configured feasibility threshold.
	MaxNodes int
}

func (e *InfeasibleExactError) Error() string {
	return fmt.Sprintf("exact Shapley computation infeasible: %d nodes exceeds threshold %d (up to 2^%d oracle calls); use TMCS",
		e.NodeCount, e.MaxNodes, e.NodeCount)
}
