package exact

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
	pkgactivity "github.com/mlcoop/contribmeter/pkg/activity"
)

// Activities handles the exact Shapley Temporal activity.
type Activities struct {
	pkgactivity.BaseActivities
	trainer  oracle.Trainer
	defaults domain.EstimatorConfig
	events   *EventEmitter
}

// NewActivities creates exact-Shapley activities with the provided trainer
// and shared base infrastructure. Worker-side defaults fill config fields
// the request leaves at zero, so operators can lower the exact-computation
// threshold without every caller repeating it.
func NewActivities(base pkgactivity.BaseActivities, trainer oracle.Trainer, defaults domain.EstimatorConfig) *Activities {
	return &Activities{
		BaseActivities: base,
		trainer:        trainer,
		defaults:       defaults,
		events:         NewEventEmitter(base),
	}
}

// ComputeExactShapley computes exact Shapley values by subset enumeration.
//
// The operation:
// 1. Validates the input contract and normalizes the config
// 2. Refuses partitions above the exact-computation threshold
// 3. Enumerates subsets with pass-scoped memoization of coalition values
// 4. Emits record and usage events for observability
//
// Refusal above the threshold is deliberate and non-retryable: the caller
// must explicitly choose TMCS instead of having an exponential computation
// silently downgraded.
func (a *Activities) ComputeExactShapley(
	ctx context.Context,
	input domain.ExactShapleyInput,
) (*domain.ExactShapleyOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("ComputeExactShapley", err, "invalid input")
	}

	cfg := input.Config
	cfg.Merge(a.defaults)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, nonRetryable("ComputeExactShapley", err, "invalid config")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting ComputeExactShapley activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"scenario_id", input.ScenarioID,
		"nodes", input.Partition.NodeCount(),
		"epochs", input.Epochs,
		"max_exact_nodes", cfg.MaxExactNodes)

	eval := oracle.New(a.trainer, &input.Partition, nil)

	reporter := func(message string) { a.RecordHeartbeat(ctx, message) }

	output, err := Estimate(ctx, eval, &input.Partition, input.Epochs, cfg.MaxExactNodes, reporter)
	if err != nil {
		var infeasible *domain.InfeasibleExactError
		if errors.As(err, &infeasible) {
			return nil, nonRetryable("ComputeExactShapley", err, infeasible.Error())
		}
		var trainErr *domain.TrainingFailureError
		if errors.As(err, &trainErr) {
			return nil, nonRetryable("ComputeExactShapley", err,
				fmt.Sprintf("training failed for coalition %s", trainErr.Coalition),
				trainErr.Coalition.String())
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, retryable("ComputeExactShapley", err, "context cancelled")
		}
		return nil, nonRetryable("ComputeExactShapley", err, "exact Shapley computation failed")
	}

	if err := output.Validate(); err != nil {
		return nil, nonRetryable("ComputeExactShapley", err, "invalid output")
	}

	a.events.EmitComputed(ctx, input.ScenarioID, output, wfCtx)
	a.events.EmitUsage(ctx, input.ScenarioID, output, input.Epochs, input.Partition.NodeCount(), wfCtx)

	pkgactivity.SafeLog(ctx, "ComputeExactShapley completed",
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
