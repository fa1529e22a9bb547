package tmcs

import (
	"context"
	"fmt"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/pkg/activity"
	"github.com/mlcoop/contribmeter/pkg/events"
)

const producer = "tmcs-activity"

// EventEmitter handles event emission for the TMCS method.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates an EventEmitter over the shared base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitComputed emits the ContributivityComputed event for the run,
// including per-node standard errors and the convergence verdict so
// consumers can distinguish a certified estimate from a capped one.
func (e *EventEmitter) EmitComputed(
	ctx context.Context,
	scenarioID string,
	output *domain.TMCSOutput,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewContributivityComputedEvent(
		scenarioID, wfCtx.WorkflowID, wfCtx.RunID,
		domain.MethodTMCS, output.Values, output.Stds,
		output.Elapsed, output.Converged, output.OracleCalls, producer, wfCtx.WorkflowID,
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create ContributivityComputed event",
			"method", domain.MethodTMCS, "error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent),
		fmt.Sprintf("ContributivityComputed[%s]", domain.MethodTMCS))
}

// EmitUsage emits the aggregated OracleUsage event for the activity.
func (e *EventEmitter) EmitUsage(
	ctx context.Context,
	scenarioID string,
	output *domain.TMCSOutput,
	epochs, nodeCount int,
	wfCtx activity.WorkflowContext,
) {
	domainEvent, err := domain.NewOracleUsageEvent(
		scenarioID, wfCtx.WorkflowID, wfCtx.RunID,
		domain.MethodTMCS, output.OracleCalls, epochs, nodeCount,
		output.Elapsed, producer, wfCtx.WorkflowID,
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create OracleUsage event", "error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent),
		fmt.Sprintf("OracleUsage[%s]", domain.MethodTMCS))
}

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
