//nolint:testpackage // Tests exercise unexported helpers alongside the public API
package tmcs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
)

func testPartition(n int, fullScore, emptyScore float64) *domain.Partition {
	nodes := make([]domain.Node, n)
	for i := range nodes {
		nodes[i] = domain.Node{Index: i, DatasetRef: "ds", Weight: 1}
	}
	return &domain.Partition{Nodes: nodes, FullScore: fullScore, EmptyScore: emptyScore}
}

// coalitionOracle builds a deterministic oracle whose value depends only on
// the set of member indexes, asserting the empty coalition never arrives.
func coalitionOracle(t *testing.T, partition *domain.Partition, value func(members []int) float64) oracle.Evaluator {
	t.Helper()
	trainer := oracle.TrainerFunc(func(_ context.Context, nodes []domain.Node, _ int) (float64, error) {
		require.NotEmpty(t, nodes, "empty coalition must never reach the trainer")
		members := make([]int, len(nodes))
		for i, node := range nodes {
			members[i] = node.Index
		}
		return value(members), nil
	})
	return oracle.New(trainer, partition, nil)
}

func testConfig() domain.EstimatorConfig {
	cfg := domain.DefaultEstimatorConfig()
	cfg.Seed = 42
	return cfg
}

func TestEstimate(t *testing.T) {
	ctx := context.Background()

	t.Run("converges exactly on a symmetric linear oracle", func(t *testing.T) {
		// value(S) = |S|: every marginal contribution is exactly 1, so the
		// estimate is phi_i = 1 with zero variance and convergence fires on
		// the first check.
		n := 3
		partition := testPartition(n, float64(n), 0)
		eval := coalitionOracle(t, partition, func(members []int) float64 {
			return float64(len(members))
		})

		cfg := testConfig()
		cfg.Alpha = 0.001 // threshold below 1 keeps every walk full length
		cfg.MinPermutations = 2
		cfg.MaxPermutations = 100

		output, err := Estimate(ctx, eval, partition, 5, cfg, nil)
		require.NoError(t, err)

		assert.True(t, output.Converged)
		assert.Equal(t, cfg.MinPermutations, output.Permutations,
			"zero-variance marginals should converge on the first check")
		assert.InDeltaSlice(t, []float64{1, 1, 1}, output.Values, 1e-9)
		assert.InDeltaSlice(t, []float64{0, 0, 0}, output.Stds, 1e-9)
		assert.Equal(t, int64(cfg.MinPermutations*n), output.OracleCalls)
	})

	t.Run("higher alpha never costs more oracle calls", func(t *testing.T) {
		// Deterministic additive oracle so the only difference between runs
		// is the truncation threshold; the fixed seed makes the sampled
		// permutation sequence identical across both runs.
		n := 3
		run := func(alpha float64) *domain.TMCSOutput {
			partition := testPartition(n, 6, 0)
			eval := coalitionOracle(t, partition, func(members []int) float64 {
				var v float64
				for _, m := range members {
					v += float64(m + 1)
				}
				return v
			})

			cfg := testConfig()
			cfg.Alpha = alpha
			cfg.MinPermutations = 5
			cfg.MaxPermutations = 5

			output, err := Estimate(ctx, eval, partition, 5, cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, 5, output.Permutations)
			return output
		}

		tight := run(0.001)
		loose := run(0.9)

		assert.Equal(t, int64(5*n), tight.OracleCalls, "tight threshold should evaluate every step")
		assert.Less(t, loose.OracleCalls, tight.OracleCalls,
			"widening the truncation window must save oracle calls")
	})

	t.Run("degenerate constant oracle terminates at the permutation cap", func(t *testing.T) {
		// value(S) = FullScore everywhere: the walk truncates before the
		// first evaluation, every marginal is 0, and a zero mean can never
		// certify relative precision. The cap is the only exit.
		partition := testPartition(3, 0.7, 0.7)
		eval := coalitionOracle(t, partition, func(_ []int) float64 { return 0.7 })

		cfg := testConfig()
		cfg.MinPermutations = 2
		cfg.MaxPermutations = 20

		output, err := Estimate(ctx, eval, partition, 5, cfg, nil)
		require.NoError(t, err)

		assert.False(t, output.Converged)
		assert.Equal(t, 20, output.Permutations)
		assert.Zero(t, output.OracleCalls, "immediate truncation should spend no training runs")
		assert.InDeltaSlice(t, []float64{0, 0, 0}, output.Values, 1e-12)
	})

	t.Run("truncation floor takes over when the full score is zero", func(t *testing.T) {
		// alpha*|0| is a zero threshold, which would disable truncation
		// entirely; the absolute floor keeps the all-zero oracle truncated.
		partition := testPartition(3, 0, 0)
		eval := coalitionOracle(t, partition, func(_ []int) float64 { return 0 })

		cfg := testConfig()
		cfg.MinPermutations = 2
		cfg.MaxPermutations = 10

		output, err := Estimate(ctx, eval, partition, 5, cfg, nil)
		require.NoError(t, err)

		assert.Zero(t, output.OracleCalls)
		assert.False(t, output.Converged)
	})

	t.Run("single node skips sampling entirely", func(t *testing.T) {
		partition := testPartition(1, 0.9, 0.1)
		trainerCalled := false
		trainer := oracle.TrainerFunc(func(_ context.Context, _ []domain.Node, _ int) (float64, error) {
			trainerCalled = true
			return 0, nil
		})
		eval := oracle.New(trainer, partition, nil)

		output, err := Estimate(ctx, eval, partition, 5, testConfig(), nil)
		require.NoError(t, err)

		assert.True(t, output.Converged)
		assert.InDeltaSlice(t, []float64{0.8}, output.Values, 1e-12)
		assert.InDeltaSlice(t, []float64{0}, output.Stds, 1e-12)
		assert.False(t, trainerCalled)
	})

	t.Run("identical seeds reproduce the estimate", func(t *testing.T) {
		value := func(members []int) float64 {
			var v float64
			for _, m := range members {
				v += float64(m*m + 1)
			}
			return v
		}
		run := func() *domain.TMCSOutput {
			partition := testPartition(4, 18, 0)
			eval := coalitionOracle(t, partition, value)

			cfg := testConfig()
			cfg.Alpha = 0.001
			cfg.MinPermutations = 8
			cfg.MaxPermutations = 8

			output, err := Estimate(ctx, eval, partition, 5, cfg, nil)
			require.NoError(t, err)
			return output
		}

		first := run()
		second := run()
		assert.Equal(t, first.Values, second.Values)
		assert.Equal(t, first.OracleCalls, second.OracleCalls)
	})

	t.Run("training failure aborts the run", func(t *testing.T) {
		partition := testPartition(3, 3, 0)
		trainer := oracle.TrainerFunc(func(_ context.Context, nodes []domain.Node, _ int) (float64, error) {
			if len(nodes) == 2 {
				return 0, errors.New("pair training failed")
			}
			return float64(len(nodes)), nil
		})
		eval := oracle.New(trainer, partition, nil)

		cfg := testConfig()
		cfg.Alpha = 0.001

		output, err := Estimate(ctx, eval, partition, 5, cfg, nil)
		require.Error(t, err)
		assert.Nil(t, output)

		var trainErr *domain.TrainingFailureError
		assert.ErrorAs(t, err, &trainErr)
	})

	t.Run("cancelled context stops cleanly at a permutation boundary", func(t *testing.T) {
		partition := testPartition(3, 3, 0)
		eval := coalitionOracle(t, partition, func(members []int) float64 {
			return float64(len(members))
		})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		output, err := Estimate(cancelled, eval, partition, 5, testConfig(), nil)
		require.NoError(t, err, "cancellation before the first walk is a clean stop, not a failure")

		assert.False(t, output.Converged)
		assert.Zero(t, output.Permutations)
		assert.Zero(t, output.OracleCalls)
	})

	t.Run("reports progress per permutation", func(t *testing.T) {
		partition := testPartition(2, 2, 0)
		eval := coalitionOracle(t, partition, func(members []int) float64 {
			return float64(len(members))
		})

		cfg := testConfig()
		cfg.Alpha = 0.001
		cfg.MinPermutations = 3
		cfg.MaxPermutations = 3

		var messages []string
		_, err := Estimate(ctx, eval, partition, 5, cfg, func(msg string) {
			messages = append(messages, msg)
		})
		require.NoError(t, err)
		assert.Len(t, messages, 3)
	})
}

func TestTruncationThreshold(t *testing.T) {
	t.Run("scales with the full score", func(t *testing.T) {
		cfg := domain.EstimatorConfig{Alpha: 0.9, TruncationFloor: 1e-6}
		assert.InDelta(t, 0.9, truncationThreshold(1.0, cfg), 1e-12)
		assert.InDelta(t, 0.9, truncationThreshold(-1.0, cfg), 1e-12)
	})

	t.Run("floor wins near zero", func(t *testing.T) {
		cfg := domain.EstimatorConfig{Alpha: 0.9, TruncationFloor: 1e-6}
		assert.InDelta(t, 1e-6, truncationThreshold(0, cfg), 1e-18)
		assert.InDelta(t, 1e-6, truncationThreshold(1e-9, cfg), 1e-18)
	})
}

func TestAllWithinTarget(t *testing.T) {
	t.Run("needs at least two samples per node", func(t *testing.T) {
		stats := make([]RunningStat, 1)
		stats[0].Add(1)
		assert.False(t, allWithinTarget(stats, 1.96, 0.01))
	})

	t.Run("zero mean never certifies", func(t *testing.T) {
		stats := make([]RunningStat, 1)
		stats[0].Add(0)
		stats[0].Add(0)
		assert.False(t, allWithinTarget(stats, 1.96, 0.01))
	})

	t.Run("zero variance with nonzero mean certifies", func(t *testing.T) {
		stats := make([]RunningStat, 2)
		for i := range stats {
			stats[i].Add(1)
			stats[i].Add(1)
		}
		assert.True(t, allWithinTarget(stats, 1.96, 0.01))
	})

	t.Run("one imprecise node blocks the whole check", func(t *testing.T) {
		stats := make([]RunningStat, 2)
		stats[0].Add(1)
		stats[0].Add(1)
		stats[1].Add(10)
		stats[1].Add(-10)
		assert.False(t, allWithinTarget(stats, 1.96, 0.01))
	})
}
