// Package tmcs implements Truncated Monte Carlo Shapley, the workhorse
// estimator for node counts where exact enumeration is intractable. It
// samples random permutations of the nodes, walks each one while growing a
// coalition, and records every node's marginal contribution. Two devices
// keep the oracle bill down: truncation ends a walk once the running
// coalition's value is close enough to the full-coalition value that the
// remaining marginals are negligible, and a variance-driven stopping rule
// ends sampling once every node's running mean is precise enough.
package tmcs

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
)

// ProgressReporter receives progress messages during sampling, one per
// completed permutation walk.
type ProgressReporter func(message string)

// Estimate runs TMCS over the partition. The config must already be
// normalized and validated; the caller owns that so a deliberately
// out-of-range setting fails loudly at the activity boundary instead of
// being silently repaired here.
//
// Termination is structural, never an error: sampling stops when every
// node meets the relative-precision target (Converged=true), or when the
// permutation cap or wall-clock cap fires first (Converged=false with the
// best estimate so far). A cancelled context also stops cleanly at a
// permutation boundary; only a failure inside the oracle aborts the run.
func Estimate(
	ctx context.Context,
	eval oracle.Evaluator,
	partition *domain.Partition,
	epochs int,
	cfg domain.EstimatorConfig,
	report ProgressReporter,
) (*domain.TMCSOutput, error) {
	n := partition.NodeCount()
	start := time.Now()

	// A single node owns the whole gap by definition; no sampling needed.
	if n == 1 {
		return &domain.TMCSOutput{
			Values:    []float64{partition.FullScore - partition.EmptyScore},
			Stds:      []float64{0},
			Converged: true,
		}, nil
	}

	rng := newRNG(cfg.Seed)
	zQuantile := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(1 - cfg.ContribAccuracy/2)
	threshold := truncationThreshold(partition.FullScore, cfg)

	stats := make([]RunningStat, n)
	var oracleCalls int64
	permutations := 0
	converged := false

	for permutations < cfg.MaxPermutations {
		if ctx.Err() != nil {
			break // Stop cleanly at a permutation boundary with the best estimate.
		}
		if cfg.MaxDuration > 0 && time.Since(start) >= cfg.MaxDuration {
			break
		}

		perm := domain.Permutation(rng.Perm(n))

		calls, err := walkPermutation(ctx, eval, partition, perm, epochs, threshold, stats)
		if err != nil {
			return nil, err
		}
		oracleCalls += calls
		permutations++

		if report != nil {
			report(fmt.Sprintf("permutation %d walked (%d oracle calls total)", permutations, oracleCalls))
		}

		if permutations >= cfg.MinPermutations && allWithinTarget(stats, zQuantile, cfg.SVAccuracy) {
			converged = true
			break
		}
	}

	values := make([]float64, n)
	stds := make([]float64, n)
	for i := range stats {
		values[i] = stats[i].Mean()
		stds[i] = stats[i].StdErr()
	}

	return &domain.TMCSOutput{
		Values:       values,
		Stds:         stds,
		Converged:    converged,
		Permutations: permutations,
		OracleCalls:  oracleCalls,
		Elapsed:      time.Since(start),
	}, nil
}

// walkPermutation grows a coalition along one permutation, recording each
// node's marginal contribution. Before every oracle call it applies the
// truncation rule: once the gap between the running value and the
// full-coalition value drops below the threshold, the remaining nodes in
// this walk contribute nothing worth a training run and receive a zero
// marginal sample. Marginals within the walk must be computed in
// coalition-growth order because each one depends on the running baseline.
func walkPermutation(
	ctx context.Context,
	eval oracle.Evaluator,
	partition *domain.Partition,
	perm domain.Permutation,
	epochs int,
	threshold float64,
	stats []RunningStat,
) (int64, error) {
	coalition := domain.EmptyCoalition
	vPrev := partition.EmptyScore
	truncated := false
	var calls int64

	for _, node := range perm {
		if truncated || math.Abs(partition.FullScore-vPrev) < threshold {
			truncated = true
			stats[node].Add(0)
			continue
		}

		coalition = coalition.With(node)
		vCurr, err := eval.Evaluate(ctx, coalition, epochs)
		if err != nil {
			return calls, err
		}
		calls++

		stats[node].Add(vCurr - vPrev)
		vPrev = vCurr
	}

	return calls, nil
}

// truncationThreshold derives the absolute truncation threshold from the
// multiplicative alpha rule. When the full-coalition score is itself near
// zero, alpha*|full| collapses to a near-zero threshold and effectively
// disables truncation, so the configured absolute floor takes over.
func truncationThreshold(fullScore float64, cfg domain.EstimatorConfig) float64 {
	threshold := cfg.Alpha * math.Abs(fullScore)
	if threshold < cfg.TruncationFloor {
		threshold = cfg.TruncationFloor
	}
	return threshold
}

// allWithinTarget reports whether every node's running mean has reached
// the relative-precision target under a normal-approximation confidence
// interval. A mean of zero cannot certify relative precision, so nodes
// with zero means keep the loop running until a cap fires; a degenerate
// oracle returning identical scores everywhere therefore terminates via
// the iteration cap instead of being misread as infinitely precise.
func allWithinTarget(stats []RunningStat, zQuantile, svAccuracy float64) bool {
	for i := range stats {
		if stats[i].Count() < 2 {
			return false
		}
		mean := math.Abs(stats[i].Mean())
		if mean == 0 {
			return false
		}
		if zQuantile*stats[i].StdErr()/mean >= svAccuracy {
			return false
		}
	}
	return true
}

// newRNG builds the permutation sampler. A zero seed selects a time-based
// seed; any other value makes the permutation sequence reproducible.
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
