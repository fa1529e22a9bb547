// Package worker exposes helpers to register workflows/activities with a Temporal worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/mlcoop/contribmeter/internal/domain"
	"github.com/mlcoop/contribmeter/internal/exact"
	"github.com/mlcoop/contribmeter/internal/independent"
	"github.com/mlcoop/contribmeter/internal/oracle"
	"github.com/mlcoop/contribmeter/internal/tmcs"
	"github.com/mlcoop/contribmeter/internal/workflow"
	"github.com/mlcoop/contribmeter/pkg/activity"
	"github.com/mlcoop/contribmeter/pkg/events"
)

// RegisterAll registers all workflows and activities with the Temporal worker.
// This function must be called during worker initialization before starting
// the worker. The registration is not thread-safe and should only be called
// once during application startup.
//
// The function creates method-specific activity instances over one shared
// trainer and shared base infrastructure for event emission and logging.
// The estimator config becomes the worker-side defaults merged into request
// config fields left at zero.
func RegisterAll(w sdkworker.Worker, trainer oracle.Trainer, estimator domain.EstimatorConfig) {
	eventSink := events.NewNoOpEventSink()

	base := activity.NewBaseActivities(eventSink)

	// Register method-specific activities.
	independentActivities := independent.NewActivities(base, trainer)
	exactActivities := exact.NewActivities(base, trainer, estimator)
	tmcsActivities := tmcs.NewActivities(base, trainer, estimator)

	// Register workflow.
	w.RegisterWorkflow(workflow.ContributivityWorkflow)

	// Register activities from each method.
	w.RegisterActivity(independentActivities.ComputeIndependentScores)
	w.RegisterActivity(exactActivities.ComputeExactShapley)
	w.RegisterActivity(tmcsActivities.ComputeTMCS)
}
