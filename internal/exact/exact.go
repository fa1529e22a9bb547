// Package exact implements the exact Shapley value computation by direct
// subset enumeration. Each node's value is the multinomially weighted
// average of its marginal contribution over every coalition that excludes
// it, so the cost is up to 2^n-1 oracle calls and the estimator refuses to
// run above a configurable node-count threshold.
package exact

import (
	"context"
	"fmt"
	"time"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
)

// ProgressReporter receives progress messages during enumeration, one per
// node whose subsets have been fully processed.
type ProgressReporter func(message string)

// Estimate computes exact Shapley values over the partition:
//
//	phi_i = sum over subsets S of N\{i} of |S|!(n-|S|-1)!/n! * (v(S+i) - v(S))
//
// Subsets are enumerated as bitmasks, keeping memory bounded, and
// coalition values are memoized for the duration of the pass so each
// distinct non-empty subset costs exactly one oracle call. The memoization
// is a cost optimization only: with a noisy oracle it pins each coalition
// to one sampled value, which also keeps the efficiency axiom exact within
// the run. The empty coalition's value is the partition's configured
// constant and never goes through the oracle.
func Estimate(
	ctx context.Context,
	eval oracle.Evaluator,
	partition *domain.Partition,
	epochs int,
	maxExactNodes int,
	report ProgressReporter,
) (*domain.ExactShapleyOutput, error) {
	n := partition.NodeCount()
	if n > maxExactNodes {
		return nil, &domain.InfeasibleExactError{NodeCount: n, MaxNodes: maxExactNodes}
	}

	start := time.Now()
	memo := oracle.NewPassMemo(eval)
	weights := multinomialWeights(n)
	full := partition.Full()

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		others := full.Without(i)

		// Standard descending bitmask walk over all subsets of `others`,
		// including `others` itself and the empty set.
		for sub := others; ; sub = (sub - 1) & others {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			vWithout, err := coalitionValue(ctx, memo, partition, sub, epochs)
			if err != nil {
				return nil, err
			}
			vWith, err := coalitionValue(ctx, memo, partition, sub.With(i), epochs)
			if err != nil {
				return nil, err
			}

			values[i] += weights[sub.Size()] * (vWith - vWithout)

			if sub.IsEmpty() {
				break
			}
		}

		if report != nil {
			report(fmt.Sprintf("enumerated subsets for node %d/%d", i+1, n))
		}
	}

	return &domain.ExactShapleyOutput{
		Values:      values,
		OracleCalls: int64(memo.CachedCount()),
		Elapsed:     time.Since(start),
	}, nil
}

// coalitionValue resolves a coalition's value, short-circuiting the empty
// coalition to the configured baseline so it never reaches the oracle.
func coalitionValue(
	ctx context.Context,
	memo *oracle.PassMemo,
	partition *domain.Partition,
	coalition domain.Coalition,
	epochs int,
) (float64, error) {
	if coalition.IsEmpty() {
		return partition.EmptyScore, nil
	}
	return memo.Evaluate(ctx, coalition, epochs)
}

// multinomialWeights precomputes w[s] = s!(n-1-s)!/n! for every subset
// size s in 0..n-1. The weights over all subsets of N\{i} sum to 1, which
// is what makes phi a weighted average of marginal contributions.
func multinomialWeights(n int) []float64 {
	fact := make([]float64, n+1)
	fact[0] = 1
	for k := 1; k <= n; k++ {
		fact[k] = fact[k-1] * float64(k)
	}

	weights := make([]float64, n)
	for s := 0; s < n; s++ {
		weights[s] = fact[s] * fact[n-1-s] / fact[n]
	}
	return weights
}
