package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContributivityRecord(t *testing.T) {
	t.Run("builds record with matching dimensions", func(t *testing.T) {
		record, err := NewContributivityRecord(
			MethodShapley, 3,
			[]float64{1, 2, 3}, []float64{0, 0, 0},
			time.Second,
		)
		require.NoError(t, err)
		assert.Equal(t, MethodShapley, record.Method)
		assert.Equal(t, []float64{1, 2, 3}, record.Scores)
		assert.Equal(t, time.Second, record.Elapsed)
	})

	t.Run("rejects score dimension mismatch", func(t *testing.T) {
		record, err := NewContributivityRecord(
			MethodTMCS, 3,
			[]float64{1, 2}, []float64{0, 0, 0},
			0,
		)
		require.Error(t, err)
		assert.Nil(t, record)

		var dimErr *DimensionMismatchError
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, "scores", dimErr.Field)
		assert.Equal(t, 2, dimErr.Got)
		assert.Equal(t, 3, dimErr.Want)
	})

	t.Run("rejects std dimension mismatch", func(t *testing.T) {
		_, err := NewContributivityRecord(
			MethodTMCS, 2,
			[]float64{1, 2}, []float64{0},
			0,
		)
		var dimErr *DimensionMismatchError
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, "stds", dimErr.Field)
	})

	t.Run("copies input slices", func(t *testing.T) {
		scores := []float64{1, 2}
		record, err := NewContributivityRecord(MethodIndependentRaw, 2, scores, ZeroVector(2), 0)
		require.NoError(t, err)

		scores[0] = 99
		assert.InDelta(t, 1.0, record.Scores[0], 1e-12, "record should not observe caller mutation")
	})

	t.Run("sum totals the score vector", func(t *testing.T) {
		record, err := NewContributivityRecord(MethodShapley, 3, []float64{1.5, 2.5, -1}, ZeroVector(3), 0)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, record.Sum(), 1e-12)
	})

	t.Run("string renders every node", func(t *testing.T) {
		record, err := NewContributivityRecord(MethodTMCS, 2, []float64{0.5, 0.25}, []float64{0.01, 0.02}, time.Minute)
		require.NoError(t, err)

		rendered := record.String()
		assert.Contains(t, rendered, "tmcs")
		assert.Contains(t, rendered, "node 0")
		assert.Contains(t, rendered, "node 1")
	})
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector(4)
	assert.Len(t, v, 4)
	for i, x := range v {
		assert.Zero(t, x, "element %d should be zero", i)
	}
}
