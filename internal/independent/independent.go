// Package independent implements the independent-training baseline
// comparator: every node trains alone, and the resulting singleton scores
// are reported both raw and rescaled onto the full-coalition score. It is
// the cheapest method (n oracle calls) and the sanity check the Shapley
// estimators are compared against.
package independent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
)

// maxConcurrency bounds parallel singleton training runs. Evaluations of
// different singletons are independent, so concurrency is safe; the bound
// keeps the external training service from being flooded.
const maxConcurrency = 4

// ProgressReporter receives progress messages during long-running
// estimation, one per completed training run.
type ProgressReporter func(message string)

// Estimate trains each node's singleton coalition once and derives the two
// score vectors. Raw is value({i}) as returned by the oracle. Additive is
// raw rescaled so the vector sums to the partition's FullScore, preserving
// relative proportions; this enforces the efficiency axiom against the
// known full-coalition baseline. When every raw score is zero there are no
// proportions to preserve and the full score is split equally.
//
// A training failure on any node aborts the whole estimate: a partially
// populated vector would silently misattribute the missing node's share.
func Estimate(
	ctx context.Context,
	eval oracle.Evaluator,
	partition *domain.Partition,
	epochs int,
	report ProgressReporter,
) (*domain.IndependentScoresOutput, error) {
	n := partition.NodeCount()
	start := time.Now()

	raw := make([]float64, n)
	errs := make([]error, n)

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				errs[idx] = ctx.Err()
				return
			}

			score, err := eval.Evaluate(ctx, domain.SingletonCoalition(idx), epochs)
			if err != nil {
				errs[idx] = err
				return
			}
			raw[idx] = score

			if report != nil {
				report(singletonProgress(idx, n))
			}
		}(i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &domain.IndependentScoresOutput{
		Raw:         raw,
		Additive:    AdditiveNormalize(raw, partition.FullScore),
		OracleCalls: int64(n),
		Elapsed:     time.Since(start),
	}, nil
}

// AdditiveNormalize rescales raw singleton scores so the vector sums to
// fullScore while preserving relative proportions. A zero raw sum has no
// proportions to preserve, so the full score splits equally.
func AdditiveNormalize(raw []float64, fullScore float64) []float64 {
	additive := make([]float64, len(raw))
	if len(raw) == 0 {
		return additive
	}

	var sum float64
	for _, score := range raw {
		sum += score
	}

	if sum == 0 {
		share := fullScore / float64(len(raw))
		for i := range additive {
			additive[i] = share
		}
		return additive
	}

	scale := fullScore / sum
	for i, score := range raw {
		additive[i] = score * scale
	}
	return additive
}

func singletonProgress(idx, n int) string {
	return fmt.Sprintf("trained singleton %s (%d/%d)", domain.SingletonCoalition(idx), idx+1, n)
}
