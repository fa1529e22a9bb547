package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyKeys(t *testing.T) {
	t.Run("deterministic for identical inputs", func(t *testing.T) {
		k1 := ContributivityComputedIdempotencyKey("wf-1", MethodShapley)
		k2 := ContributivityComputedIdempotencyKey("wf-1", MethodShapley)
		assert.Equal(t, k1, k2)
	})

	t.Run("distinct across methods", func(t *testing.T) {
		k1 := ContributivityComputedIdempotencyKey("wf-1", MethodShapley)
		k2 := ContributivityComputedIdempotencyKey("wf-1", MethodTMCS)
		assert.NotEqual(t, k1, k2)
	})

	t.Run("distinct across event types", func(t *testing.T) {
		k1 := ContributivityComputedIdempotencyKey("wf-1", MethodTMCS)
		k2 := OracleUsageIdempotencyKey("wf-1", MethodTMCS)
		assert.NotEqual(t, k1, k2)
	})

	t.Run("distinct across workflow keys", func(t *testing.T) {
		k1 := OracleUsageIdempotencyKey("wf-1", MethodTMCS)
		k2 := OracleUsageIdempotencyKey("wf-2", MethodTMCS)
		assert.NotEqual(t, k1, k2)
	})
}

func TestNewContributivityComputedEvent(t *testing.T) {
	t.Run("builds valid envelope with payload", func(t *testing.T) {
		env, err := NewContributivityComputedEvent(
			"scenario-1", "wf-1", "run-1",
			MethodTMCS,
			[]float64{0.4, 0.6}, []float64{0.01, 0.02},
			1500*time.Millisecond, true, 42,
			"tmcs-activity", "wf-1",
		)
		require.NoError(t, err)
		require.NoError(t, env.Validate())

		assert.Equal(t, EventTypeContributivityComputed, env.EventType)
		assert.Equal(t, "scenario-1", env.ScenarioID)
		assert.Equal(t, 1, env.Version)

		var payload ContributivityComputedPayload
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, MethodTMCS, payload.Method)
		assert.Equal(t, []float64{0.4, 0.6}, payload.Scores)
		assert.True(t, payload.Converged)
		assert.Equal(t, int64(1500), payload.ElapsedMs)
		assert.Equal(t, int64(42), payload.OracleCalls)
	})

	t.Run("rejects empty score vector", func(t *testing.T) {
		_, err := NewContributivityComputedEvent(
			"scenario-1", "wf-1", "run-1",
			MethodTMCS,
			nil, nil,
			0, true, 0,
			"tmcs-activity", "wf-1",
		)
		assert.Error(t, err)
	})
}

func TestNewOracleUsageEvent(t *testing.T) {
	t.Run("builds valid envelope with payload", func(t *testing.T) {
		env, err := NewOracleUsageEvent(
			"scenario-1", "wf-1", "run-1",
			MethodShapley, 7, 5, 3,
			2*time.Second, "exact-shapley-activity", "wf-1",
		)
		require.NoError(t, err)
		require.NoError(t, env.Validate())

		var payload OracleUsagePayload
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, int64(7), payload.TotalCalls)
		assert.Equal(t, 5, payload.Epochs)
		assert.Equal(t, 3, payload.NodeCount)
	})

	t.Run("rejects zero epochs", func(t *testing.T) {
		_, err := NewOracleUsageEvent(
			"scenario-1", "wf-1", "run-1",
			MethodShapley, 7, 0, 3,
			0, "exact-shapley-activity", "wf-1",
		)
		assert.Error(t, err)
	})
}
