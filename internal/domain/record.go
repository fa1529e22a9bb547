package domain

import (
	"fmt"
	"strings"
	"time"
)

// Method identifies one of the contributivity estimation methods.
// The names are stable identifiers used in records, events, and the
// downstream CSV emitted by the caller.
type Method string

const (
	// MethodShapley is the exact Shapley value computation.
	MethodShapley Method = "shapley"

	// MethodIndependentRaw is the per-node singleton training score, as-is.
	MethodIndependentRaw Method = "independent_raw"

	// MethodIndependentAdditive is the singleton score normalized so the
	// vector sums to the full-coalition score.
	MethodIndependentAdditive Method = "independent_additive"

	// MethodTMCS is the Truncated Monte Carlo Shapley estimate.
	MethodTMCS Method = "tmcs"
)

// String returns the string representation of the method.
func (m Method) String() string { return string(m) }

// ContributivityRecord aggregates one method's output for a scenario run:
// the per-node score vector, the per-node standard deviation of each score,
// and the elapsed wall time the method consumed. Records are immutable
// after construction and carry no behavior beyond storage and display.
type ContributivityRecord struct {
	// Method names the estimator that produced this record.
	Method Method `json:"method"`

	// Scores is the per-node contributivity vector, ordered by node index.
	Scores []float64 `json:"scores"`

	// Stds is the per-node standard deviation of each score. All zeros for
	// the exact and independent methods; the standard error of the running
	// mean for TMCS.
	Stds []float64 `json:"stds"`

	// Elapsed is the wall time the method spent, dominated by oracle calls.
	Elapsed time.Duration `json:"elapsed"`
}

// NewContributivityRecord builds a record after checking that both vectors
// match the node count. A mismatch is a programming error and yields a
// *DimensionMismatchError; there is no partially constructed record.
// The input slices are copied so later mutation by the caller cannot reach
// into the record.
func NewContributivityRecord(
	method Method,
	nodeCount int,
	scores, stds []float64,
	elapsed time.Duration,
) (*ContributivityRecord, error) {
	if len(scores) != nodeCount {
		return nil, &DimensionMismatchError{Field: "scores", Got: len(scores), Want: nodeCount}
	}
	if len(stds) != nodeCount {
		return nil, &DimensionMismatchError{Field: "stds", Got: len(stds), Want: nodeCount}
	}

	record := &ContributivityRecord{
		Method:  method,
		Scores:  append([]float64(nil), scores...),
		Stds:    append([]float64(nil), stds...),
		Elapsed: elapsed,
	}
	return record, nil
}

// Sum returns the total of the score vector. For exact Shapley values this
// equals value(full) - value(empty) up to floating point; for TMCS it
// converges there.
func (r *ContributivityRecord) Sum() float64 {
	var total float64
	for _, s := range r.Scores {
		total += s
	}
	return total
}

// String renders the record in the tabular form the reporting layer prints.
func (r *ContributivityRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (elapsed %s)\n", r.Method, r.Elapsed)
	for i, score := range r.Scores {
		fmt.Fprintf(&b, "  node %d: %.6f (std %.6f)\n", i, score, r.Stds[i])
	}
	return b.String()
}

// ZeroVector returns a fresh all-zero vector of length n. Shared helper
// for the methods whose variance vector is zero by definition.
func ZeroVector(n int) []float64 { return make([]float64, n) }
