package independent

import (
	"context"
	"fmt"
	"time"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/pkg/activity"
	"github.com/mlcoop/contribmeter/pkg/events"
)

const producer = "independent-activity"

// EventEmitter handles event emission for the independent-scores method.
// Emission is best-effort; failures are logged without affecting the
// estimate.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates an EventEmitter over the shared base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitComputed emits one ContributivityComputed event per score variant.
func (e *EventEmitter) EmitComputed(
	ctx context.Context,
	scenarioID string,
	method domain.Method,
	scores []float64,
	elapsed time.Duration,
	oracleCalls int64,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewContributivityComputedEvent(
		scenarioID, wfCtx.WorkflowID, wfCtx.RunID,
		method, scores, domain.ZeroVector(len(scores)), elapsed,
		true, oracleCalls, producer, wfCtx.WorkflowID,
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create ContributivityComputed event",
			"method", method, "error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent),
		fmt.Sprintf("ContributivityComputed[%s]", method))
}

// EmitUsage emits the aggregated OracleUsage event for the activity.
func (e *EventEmitter) EmitUsage(
	ctx context.Context,
	scenarioID string,
	output *domain.IndependentScoresOutput,
	epochs, nodeCount int,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewOracleUsageEvent(
		scenarioID, wfCtx.WorkflowID, wfCtx.RunID,
		domain.MethodIndependentRaw, output.OracleCalls, epochs, nodeCount,
		output.Elapsed, producer, wfCtx.WorkflowID,
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create OracleUsage event", "error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent),
		fmt.Sprintf("OracleUsage[%s]", domain.MethodIndependentRaw))
}

// convertDomainEventToEnvelope bridges the domain event envelope to the
// generic event infrastructure.
func convertDomainEventToEnvelope(domainEvent domain.EventEnvelope) events.Envelope {
	return events.Envelope{
		ID:             domainEvent.IdempotencyKey,
		Type:           string(domainEvent.EventType),
		Source:         domainEvent.Producer,
		Version:        fmt.Sprintf("%d.0.0", domainEvent.Version),
		Timestamp:      domainEvent.OccurredAt,
		IdempotencyKey: domainEvent.IdempotencyKey,
		ScenarioID:     domainEvent.ScenarioID,
		WorkflowID:     domainEvent.WorkflowID,
		RunID:          domainEvent.RunID,
		Payload:        domainEvent.Payload,
	}
}
