//nolint:testpackage // Tests exercise unexported helpers alongside the public API
package exact

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
// the set of member indexes.
func coalitionOracle(partition *domain.Partition, value func(members []int) float64) oracle.Evaluator {
	trainer := oracle.TrainerFunc(func(_ context.Context, nodes []domain.Node, _ int) (float64, error) {
		members := make([]int, len(nodes))
		for i, node := range nodes {
			members[i] = node.Index
		}
		return value(members), nil
	})
	return oracle.New(trainer, partition, nil)
}

func TestEstimate(t *testing.T) {
	ctx := context.Background()

	t.Run("symmetric linear oracle splits evenly", func(t *testing.T) {
		// value(S) = 10*|S|: every node's marginal contribution is 10 in
		// every coalition, so each Shapley value must be exactly 10.
		partition := testPartition(3, 30, 0)
		eval := coalitionOracle(partition, func(members []int) float64 {
			return 10 * float64(len(members))
		})

		output, err := Estimate(ctx, eval, partition, 5, 10, nil)
		require.NoError(t, err)

		assert.InDeltaSlice(t, []float64{10, 10, 10}, output.Values, 1e-9)
	})

	t.Run("efficiency axiom holds for an asymmetric oracle", func(t *testing.T) {
		partition := testPartition(4, 0, 0.5)
		value := func(members []int) float64 {
			// Arbitrary superadditive-ish function with interactions.
			v := 0.5
			for _, m := range members {
				v += float64(m+1) * 0.3
			}
			if len(members) >= 2 {
				v += 0.7
			}
			return v
		}
		eval := coalitionOracle(partition, value)

		output, err := Estimate(ctx, eval, partition, 5, 10, nil)
		require.NoError(t, err)

		vFull := value([]int{0, 1, 2, 3})
		var sum float64
		for _, phi := range output.Values {
			sum += phi
		}
		assert.InDelta(t, vFull-partition.EmptyScore, sum, 1e-9,
			"Shapley values must sum to value(full) - value(empty)")
	})

	t.Run("values are invariant under node relabeling", func(t *testing.T) {
		// value depends on the dataset behind each node, not its index.
		// Swapping two nodes' datasets must swap their values exactly.
		weights := map[string]float64{"ds-a": 1.0, "ds-b": 2.5, "ds-c": 0.5}
		value := func(nodes []domain.Node) float64 {
			var v float64
			for _, node := range nodes {
				v += weights[node.DatasetRef]
			}
			return v
		}
		trainer := oracle.TrainerFunc(func(_ context.Context, nodes []domain.Node, _ int) (float64, error) {
			return value(nodes), nil
		})

		original := testPartition(3, 4, 0)
		original.Nodes[0].DatasetRef = "ds-a"
		original.Nodes[1].DatasetRef = "ds-b"
		original.Nodes[2].DatasetRef = "ds-c"

		relabeled := testPartition(3, 4, 0)
		relabeled.Nodes[0].DatasetRef = "ds-c"
		relabeled.Nodes[1].DatasetRef = "ds-a"
		relabeled.Nodes[2].DatasetRef = "ds-b"

		out1, err := Estimate(ctx, oracle.New(trainer, original, nil), original, 5, 10, nil)
		require.NoError(t, err)
		out2, err := Estimate(ctx, oracle.New(trainer, relabeled, nil), relabeled, 5, 10, nil)
		require.NoError(t, err)

		assert.InDelta(t, out1.Values[0], out2.Values[1], 1e-9, "ds-a value should follow its node")
		assert.InDelta(t, out1.Values[1], out2.Values[2], 1e-9, "ds-b value should follow its node")
		assert.InDelta(t, out1.Values[2], out2.Values[0], 1e-9, "ds-c value should follow its node")
	})

	t.Run("single node receives the whole gap", func(t *testing.T) {
		partition := testPartition(1, 0.8, 0.2)
		eval := coalitionOracle(partition, func(_ []int) float64 { return 0.8 })

		output, err := Estimate(ctx, eval, partition, 5, 10, nil)
		require.NoError(t, err)

		assert.InDeltaSlice(t, []float64{0.6}, output.Values, 1e-12)
		assert.Equal(t, int64(1), output.OracleCalls)
	})

	t.Run("memoization costs one call per distinct subset", func(t *testing.T) {
		n := 4
		partition := testPartition(n, 0, 0)
		calls := 0
		trainer := oracle.TrainerFunc(func(_ context.Context, nodes []domain.Node, _ int) (float64, error) {
			calls++
			return float64(len(nodes)), nil
		})
		eval := oracle.New(trainer, partition, nil)

		output, err := Estimate(ctx, eval, partition, 5, 10, nil)
		require.NoError(t, err)

		want := 1<<n - 1 // every non-empty subset exactly once
		assert.Equal(t, want, calls)
		assert.Equal(t, int64(want), output.OracleCalls)
	})

	t.Run("refuses partitions above the exact threshold", func(t *testing.T) {
		partition := testPartition(11, 0, 0)
		eval := coalitionOracle(partition, func(members []int) float64 { return float64(len(members)) })

		output, err := Estimate(ctx, eval, partition, 5, 10, nil)
		require.Error(t, err)
		assert.Nil(t, output)

		var infeasible *domain.InfeasibleExactError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, 11, infeasible.NodeCount)
		assert.Equal(t, 10, infeasible.MaxNodes)
	})

	t.Run("training failure aborts the pass", func(t *testing.T) {
		partition := testPartition(3, 0, 0)
		trainer := oracle.TrainerFunc(func(_ context.Context, nodes []domain.Node, _ int) (float64, error) {
			if len(nodes) == 2 {
				return 0, errors.New("pair training failed")
			}
			return float64(len(nodes)), nil
		})
		eval := oracle.New(trainer, partition, nil)

		_, err := Estimate(ctx, eval, partition, 5, 10, nil)
		require.Error(t, err)

		var trainErr *domain.TrainingFailureError
		assert.ErrorAs(t, err, &trainErr)
	})

	t.Run("cancelled context aborts enumeration", func(t *testing.T) {
		partition := testPartition(3, 0, 0)
		eval := coalitionOracle(partition, func(members []int) float64 { return float64(len(members)) })

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Estimate(cancelled, eval, partition, 5, 10, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("reports progress per node", func(t *testing.T) {
		partition := testPartition(3, 0, 0)
		eval := coalitionOracle(partition, func(members []int) float64 { return float64(len(members)) })

		var messages []string
		_, err := Estimate(ctx, eval, partition, 5, 10, func(msg string) {
			messages = append(messages, msg)
		})
		require.NoError(t, err)
		assert.Len(t, messages, 3)
	})
}

func TestMultinomialWeights(t *testing.T) {
	t.Run("weights over all subsets sum to one", func(t *testing.T) {
		for n := 1; n <= 8; n++ {
			weights := multinomialWeights(n)
			var sum float64
			for s := 0; s < n; s++ {
				// C(n-1, s) subsets of each size.
				binom := 1.0
				for k := 0; k < s; k++ {
					binom = binom * float64(n-1-k) / float64(k+1)
				}
				sum += binom * weights[s]
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "weights for n=%d should sum to 1", n)
		}
	})

	t.Run("two-node weights are one half each", func(t *testing.T) {
		weights := multinomialWeights(2)
		assert.InDeltaSlice(t, []float64{0.5, 0.5}, weights, 1e-12)
	})
}
