package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event emitted by the system.
// Typed constants give compile-time safety and exhaustive switches in
// event handling.
type EventType string

const (
	// EventTypeContributivityComputed is emitted when one method finishes.
	// One event per produced record with the full score vector attached.
	EventTypeContributivityComputed EventType = "ContributivityComputed"

	// EventTypeOracleUsage is emitted once per activity with aggregated
	// training-run consumption, the cost center of the whole system.
	EventTypeOracleUsage EventType = "OracleUsage"
)

// EventEnvelope wraps all events with consistent metadata for projection
// processing: workflow context, idempotency, sequencing, and the payload.
type EventEnvelope struct {
	// IdempotencyKey ensures events are processed exactly once during
	// retries. Generated deterministically from workflow context and
	// event content.
	IdempotencyKey string `json:"idempotency_key" validate:"required"`

	// EventType identifies the specific type of event for routing.
	EventType EventType `json:"event_type" validate:"required"`

	// Version enables event schema evolution; starts at 1.
	Version int `json:"version" validate:"required,min=1"`

	// OccurredAt records when the event occurred.
	OccurredAt time.Time `json:"occurred_at" validate:"required"`

	// ScenarioID correlates events with the scenario run that produced them.
	ScenarioID string `json:"scenario_id" validate:"required"`

	// WorkflowID identifies the Temporal workflow that generated this event.
	WorkflowID string `json:"workflow_id" validate:"required"`

	// RunID identifies the specific workflow execution run.
	RunID string `json:"run_id" validate:"required"`

	// Sequence enables ordered event processing for projections.
	Sequence int `json:"sequence" validate:"min=0"`

	// Payload contains the event-specific data as JSON.
	Payload json.RawMessage `json:"payload" validate:"required"`

	// Producer identifies the component that emitted this event.
	Producer string `json:"producer" validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error { return validate.Struct(e) }

// ContributivityComputedPayload carries one method's result for
// projections: the vectors, timing, and whether the estimate converged.
type ContributivityComputedPayload struct {
	// Method names the estimator variant that produced the record.
	Method Method `json:"method" validate:"required"`

	// Scores is the per-node contributivity vector.
	Scores []float64 `json:"scores" validate:"required,min=1"`

	// Stds is the per-node standard deviation vector.
	Stds []float64 `json:"stds" validate:"required,min=1"`

	// ElapsedMs is the method's wall time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms" validate:"min=0"`

	// Converged is false only for TMCS runs stopped by a cap.
	Converged bool `json:"converged"`

	// OracleCalls is the number of training runs the method consumed.
	OracleCalls int64 `json:"oracle_calls" validate:"min=0"`
}

// Validate checks if the payload meets all requirements.
func (c *ContributivityComputedPayload) Validate() error { return validate.Struct(c) }

// OracleUsagePayload aggregates training-run consumption for one activity.
// Training is the dominant cost, so projections track it the way an LLM
// pipeline tracks token spend.
type OracleUsagePayload struct {
	// Method names the estimator the usage belongs to.
	Method Method `json:"method" validate:"required"`

	// TotalCalls is the aggregate number of train-and-score cycles.
	TotalCalls int64 `json:"total_calls" validate:"min=0"`

	// Epochs is the per-call training budget that was in effect.
	Epochs int `json:"epochs" validate:"min=1"`

	// NodeCount is the partition size, for cost-per-node analytics.
	NodeCount int `json:"node_count" validate:"min=1"`

	// ElapsedMs is the activity's wall time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms" validate:"min=0"`
}

// Validate checks if the payload meets all requirements.
func (o *OracleUsagePayload) Validate() error { return validate.Struct(o) }

// NewEventEnvelope creates an EventEnvelope with required fields populated.
// The payload should be marshaled JSON for the specific event type.
func NewEventEnvelope(
	eventType EventType,
	scenarioID, workflowID, runID string,
	payload json.RawMessage,
	producer string,
) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		Version:    1,
		ScenarioID: scenarioID,
		WorkflowID: workflowID,
		RunID:      runID,
		Sequence:   0,
		Payload:    payload,
		Producer:   producer,
		OccurredAt: time.Now(),
	}
}

// GenerateIdempotencyKey creates a deterministic key for event
// deduplication by hashing the workflow-scoped key with an event suffix.
// Retries and replays of the same logical event produce identical keys.
func GenerateIdempotencyKey(workflowKey, eventSuffix string) string {
	hasher := sha256.New()
	hasher.Write([]byte(workflowKey + eventSuffix))
	return hex.EncodeToString(hasher.Sum(nil))
}

// ContributivityComputedIdempotencyKey generates the key for one method's
// record event: H(workflow_key || ":record:" || method).
func ContributivityComputedIdempotencyKey(workflowKey string, method Method) string {
	return GenerateIdempotencyKey(workflowKey, fmt.Sprintf(":record:%s", method))
}

// OracleUsageIdempotencyKey generates the key for an activity's usage
// event: H(workflow_key || ":usage:" || method).
func OracleUsageIdempotencyKey(workflowKey string, method Method) string {
	return GenerateIdempotencyKey(workflowKey, fmt.Sprintf(":usage:%s", method))
}

// NewContributivityComputedEvent creates the record event for one method.
func NewContributivityComputedEvent(
	scenarioID, workflowID, runID string,
	method Method,
	scores, stds []float64,
	elapsed time.Duration,
	converged bool,
	oracleCalls int64,
	producer string,
	workflowKey string,
) (EventEnvelope, error) {
	payload := ContributivityComputedPayload{
		Method:      method,
		Scores:      scores,
		Stds:        stds,
		ElapsedMs:   elapsed.Milliseconds(),
		Converged:   converged,
		OracleCalls: oracleCalls,
	}
	if err := payload.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid contributivity computed payload: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := NewEventEnvelope(EventTypeContributivityComputed, scenarioID, workflowID, runID, payloadJSON, producer)
	envelope.IdempotencyKey = ContributivityComputedIdempotencyKey(workflowKey, method)

	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return envelope, nil
}

// NewOracleUsageEvent creates the aggregated usage event for one activity.
func NewOracleUsageEvent(
	scenarioID, workflowID, runID string,
	method Method,
	totalCalls int64,
	epochs, nodeCount int,
	elapsed time.Duration,
	producer string,
	workflowKey string,
) (EventEnvelope, error) {
	payload := OracleUsagePayload{
		Method:     method,
		TotalCalls: totalCalls,
		Epochs:     epochs,
		NodeCount:  nodeCount,
		ElapsedMs:  elapsed.Milliseconds(),
	}
	if err := payload.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid oracle usage payload: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := NewEventEnvelope(EventTypeOracleUsage, scenarioID, workflowID, runID, payloadJSON, producer)
	envelope.IdempotencyKey = OracleUsageIdempotencyKey(workflowKey, method)

	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return envelope, nil
}
