// Package events provides the generic event infrastructure for domain
// event emission. It defines the Envelope type that wraps domain events
// with consistent metadata and the EventSink interface events flow
// through on their way to storage or a broker.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps domain events with consistent metadata for reliable
// processing. It is a generic container for any domain-specific payload
// plus the standard fields for routing, idempotency, and correlation.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "ContributivityComputed", "OracleUsage".
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	// Examples: "tmcs-activity", "exact-shapley-activity".
	Source string `json:"source"`

	// Version enables schema evolution, following semantic versioning.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	IdempotencyKey string `json:"idempotency_key"`

	// ScenarioID identifies the scenario run the event belongs to.
	ScenarioID string `json:"scenario_id"`

	// WorkflowID identifies the workflow that triggered this event.
	WorkflowID string `json:"workflow_id"`

	// RunID identifies the specific workflow execution run.
	RunID string `json:"run_id"`

	// Payload contains the domain-specific event data as JSON.
	Payload json.RawMessage `json:"payload"`
}

// EventSink is the interface for emitting events to downstream consumers.
// Implementations may be database outboxes, message queues, or plain log
// outputs. Sinks must tolerate duplicates (idempotency keys make them
// no-ops) and return quickly; events matter for observability, never for
// correctness.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	// Callers must not fail their primary operation on sink errors.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null EventSink for tests or disabled emission.
type NoOpEventSink struct{}

// Append implements EventSink with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }
