package tmcs

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/oracle"
	pkgactivity "github.com/mlcoop/contribmeter/pkg/activity"
)

// Activities handles the TMCS Temporal activity.
type Activities struct {
	pkgactivity.BaseActivities
	trainer  oracle.Trainer
	defaults domain.EstimatorConfig
	events   *EventEmitter
}

// NewActivities creates TMCS activities with the provided trainer and
// shared base infrastructure. Worker-side defaults fill config fields the
// request leaves at zero, so operators can tune sampling caps without
// every caller repeating them.
func NewActivities(base pkgactivity.BaseActivities, trainer oracle.Trainer, defaults domain.EstimatorConfig) *Activities {
	return &Activities{
		BaseActivities: base,
		trainer:        trainer,
		defaults:       defaults,
		events:         NewEventEmitter(base),
	}
}

// ComputeTMCS estimates Shapley values by truncated Monte Carlo sampling.
//
// The operation:
// 1. Validates the input contract and normalizes the config
// 2. Samples permutations until convergence or a cap fires
// 3. Heartbeats after every completed permutation walk
// 4. Emits record and usage events for observability
//
// Hitting a cap is not an error: the output carries Converged=false and
// the best estimate so far, and the workflow decides what to do with an
// uncertified result.
func (a *Activities) ComputeTMCS(
	ctx context.Context,
	input domain.TMCSInput,
) (*domain.TMCSOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable("ComputeTMCS", err, "invalid input")
	}

	cfg := input.Config
	cfg.Merge(a.defaults)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, nonRetryable("ComputeTMCS", err, "invalid config")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting ComputeTMCS activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"scenario_id", input.ScenarioID,
		"nodes", input.Partition.NodeCount(),
		"epochs", input.Epochs,
		"sv_accuracy", cfg.SVAccuracy,
		"alpha", cfg.Alpha,
		"max_permutations", cfg.MaxPermutations)

	eval := oracle.New(a.trainer, &input.Partition, nil)

	reporter := func(message string) { a.RecordHeartbeat(ctx, message) }

	output, err := Estimate(ctx, eval, &input.Partition, input.Epochs, cfg, reporter)
	if err != nil {
		var trainErr *domain.TrainingFailureError
		if errors.As(err, &trainErr) {
			return nil, nonRetryable("ComputeTMCS", err,
				fmt.Sprintf("training failed for coalition %s", trainErr.Coalition),
				trainErr.Coalition.String())
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, retryable("ComputeTMCS", err, "context cancelled")
		}
		return nil, nonRetryable("ComputeTMCS", err, "TMCS estimation failed")
	}

	if err := output.Validate(); err != nil {
		return nil, nonRetryable("ComputeTMCS", err, "invalid output")
	}

	a.events.EmitComputed(ctx, input.ScenarioID, output, wfCtx)
	a.events.EmitUsage(ctx, input.ScenarioID, output, input.Epochs, input.Partition.NodeCount(), wfCtx)

	pkgactivity.SafeLog(ctx, "ComputeTMCS completed",
		"permutations", output.Permutations,
		"converged", output.Converged,
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
