package independent

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
	pkgactivity "github.com/mlcoop/contribmeter/pkg/activity"
)

// Activities handles the independent-scores Temporal activity. It owns the
// trainer dependency and wires progress reporting to activity heartbeats
// so Temporal can distinguish a slow training run from a hung one.
type Activities struct {
	pkgactivity.BaseActivities
	trainer oracle.Trainer
	events  *EventEmitter
}

// NewActivities creates independent-scores activities with the provided
// trainer and shared base infrastructure.
func NewActivities(base pkgactivity.BaseActivities, trainer oracle.Trainer) *Activities {
	return &Activities{
		BaseActivities: base,
		trainer:        trainer,
		events:         NewEventEmitter(base),
	}
}

// ComputeIndependentScores runs one singleton training per node and
// returns the raw and additive score vectors.
//
// The operation:
// 1. Validates the input contract
// 2. Evaluates every singleton coalition with bounded concurrency
// 3. Derives the additive (efficiency-normalized) variant
// 4. Emits record and usage events for observability
//
// A training failure on any node aborts the activity with a non-retryable
// error carrying the failing coalition: retrying would re-run n full
// training cycles against a trainer that already refused one of them.
func (a *Activities) ComputeIndependentScores(
	ctx context.Context,
	input domain.IndependentScoresInput,
) (*domain.IndependentScoresOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("ComputeIndependentScores", err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting ComputeIndependentScores activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"scenario_id", input.ScenarioID,
		"nodes", input.Partition.NodeCount(),
		"epochs", input.Epochs)

	eval := oracle.New(a.trainer, &input.Partition, nil)

	reporter := func(message string) { a.RecordHeartbeat(ctx, message) }

	output, err := Estimate(ctx, eval, &input.Partition, input.Epochs, reporter)
	if err != nil {
		var trainErr *domain.TrainingFailureError
		if errors.As(err, &trainErr) {
			return nil, nonRetryable("ComputeIndependentScores", err,
				fmt.Sprintf("training failed for coalition %s", trainErr.Coalition),
				trainErr.Coalition.String())
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, retryable("ComputeIndependentScores", err, "context cancelled")
		}
		return nil, nonRetryable("ComputeIndependentScores", err, "independent estimation failed")
	}

	if err := output.Validate(); err != nil {
		return nil, nonRetryable("ComputeIndependentScores", err, "invalid output")
	}

	a.events.EmitComputed(ctx, input.ScenarioID, domain.MethodIndependentRaw,
		output.Raw, output.Elapsed, output.OracleCalls, wfCtx)
	a.events.EmitComputed(ctx, input.ScenarioID, domain.MethodIndependentAdditive,
		output.Additive, output.Elapsed, output.OracleCalls, wfCtx)
	a.events.EmitUsage(ctx, input.ScenarioID, output, input.Epochs, input.Partition.NodeCount(), wfCtx)

	pkgactivity.SafeLog(ctx, "ComputeIndependentScores completed",
		"oracle_calls", output.OracleCalls,
		"elapsed", output.Elapsed)

	return output, nil
}

// Error helpers - wrap errors as Temporal application errors. Details ride
// along so the workflow can recover structured context after serialization.

func nonRetryable(tag string, cause error, msg string, details ...interface{}) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause, details...)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
