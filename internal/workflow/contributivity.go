package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mlcoop/contribmeter/internal/domain"
)

// Activity names as registered by the worker. The workflow refers to
// activities by name so activity structs stay out of workflow code.
const (
	ActivityComputeIndependentScores = "ComputeIndependentScores"
	ActivityComputeExactShapley      = "ComputeExactShapley"
	ActivityComputeTMCS              = "ComputeTMCS"
)

// ContributivityWorkflow runs the requested estimators over one scenario's
// partition and returns a report with one record per completed method
// variant. Each estimator runs as its own activity; a failure in one is
// captured as a MethodFailure and does not abort the others, so the caller
// always gets every record that could be produced.
func ContributivityWorkflow(
	ctx workflow.Context,
	req domain.ContributivityRequest,
) (*domain.ContributivityReport, error) {
	// Validate request early to fail fast on invalid input.
	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid contributivity request",
			"Validation",
			err,
		)
	}

	// Estimator activities are long-running and heartbeat once per unit of
	// progress (singleton run, node enumeration, permutation walk). Training
	// failures arrive as non-retryable application errors, so the retry
	// policy only covers transient infrastructure faults.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout(req.Config),
		HeartbeatTimeout:    5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	report := &domain.ContributivityReport{ScenarioID: req.ScenarioID}

	for _, method := range dedupeMethods(req.Methods) {
		switch method {
		case domain.MethodIndependentRaw, domain.MethodIndependentAdditive:
			runIndependent(ctx, req, report)
		case domain.MethodShapley:
			runExactShapley(ctx, req, report)
		case domain.MethodTMCS:
			runTMCS(ctx, req, report)
		}
	}

	return report, nil
}

// runIndependent executes the independent-scores activity and appends the
// raw and additive records it yields.
func runIndependent(
	ctx workflow.Context,
	req domain.ContributivityRequest,
	report *domain.ContributivityReport,
) {
	input := domain.IndependentScoresInput{
		ScenarioID: req.ScenarioID,
		Partition:  req.Partition,
		Epochs:     req.Epochs,
	}

	var output domain.IndependentScoresOutput
	err := workflow.ExecuteActivity(ctx, ActivityComputeIndependentScores, input).Get(ctx, &output)
	if err != nil {
		report.Failures = append(report.Failures,
			methodFailure(domain.MethodIndependentRaw, err),
			methodFailure(domain.MethodIndependentAdditive, err))
		return
	}

	n := req.Partition.NodeCount()
	zeros := domain.ZeroVector(n)

	appendRecord(report, domain.MethodIndependentRaw, n, output.Raw, zeros, output.Elapsed)
	appendRecord(report, domain.MethodIndependentAdditive, n, output.Additive, zeros, output.Elapsed)
}

// runExactShapley executes the exact Shapley activity and appends its
// record. An infeasibility refusal surfaces as a MethodFailure like any
// other abort; the caller chose the method, the workflow only reports.
func runExactShapley(
	ctx workflow.Context,
	req domain.ContributivityRequest,
	report *domain.ContributivityReport,
) {
	input := domain.ExactShapleyInput{
		ScenarioID: req.ScenarioID,
		Partition:  req.Partition,
		Epochs:     req.Epochs,
		Config:     req.Config,
	}

	var output domain.ExactShapleyOutput
	err := workflow.ExecuteActivity(ctx, ActivityComputeExactShapley, input).Get(ctx, &output)
	if err != nil {
		report.Failures = append(report.Failures, methodFailure(domain.MethodShapley, err))
		return
	}

	n := req.Partition.NodeCount()
	appendRecord(report, domain.MethodShapley, n, output.Values, domain.ZeroVector(n), output.Elapsed)
}

// runTMCS executes the TMCS activity and appends its record. A capped,
// unconverged run still yields a record; Converged travels in the emitted
// events and the activity output, not in the record itself.
func runTMCS(
	ctx workflow.Context,
	req domain.ContributivityRequest,
	report *domain.ContributivityReport,
) {
	input := domain.TMCSInput{
		ScenarioID: req.ScenarioID,
		Partition:  req.Partition,
		Epochs:     req.Epochs,
		Config:     req.Config,
	}

	var output domain.TMCSOutput
	err := workflow.ExecuteActivity(ctx, ActivityComputeTMCS, input).Get(ctx, &output)
	if err != nil {
		report.Failures = append(report.Failures, methodFailure(domain.MethodTMCS, err))
		return
	}

	appendRecord(report, domain.MethodTMCS, req.Partition.NodeCount(), output.Values, output.Stds, output.Elapsed)
}

func appendRecord(
	report *domain.ContributivityReport,
	method domain.Method,
	nodeCount int,
	scores, stds []float64,
	elapsed time.Duration,
) {
	record, err := domain.NewContributivityRecord(method, nodeCount, scores, stds, elapsed)
	if err != nil {
		report.Failures = append(report.Failures, methodFailure(method, err))
		return
	}
	report.Records = append(report.Records, *record)
}

// methodFailure converts an activity error into a report entry. Estimator
// activities attach the failing coalition as an application-error detail,
// which survives Temporal's error serialization where the original error
// chain does not.
func methodFailure(method domain.Method, err error) domain.MethodFailure {
	failure := domain.MethodFailure{Method: method, Error: err.Error()}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.HasDetails() {
		var coalition string
		if detailErr := appErr.Details(&coalition); detailErr == nil {
			failure.Coalition = coalition
		}
	}
	return failure
}

// dedupeMethods collapses duplicate method requests while preserving
// order. Raw and additive both map onto the one independent activity, so
// requesting both must not run it twice.
func dedupeMethods(methods []domain.Method) []domain.Method {
	seen := make(map[domain.Method]bool, len(methods))
	out := make([]domain.Method, 0, len(methods))
	for _, m := range methods {
		key := m
		if m == domain.MethodIndependentAdditive {
			key = domain.MethodIndependentRaw
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// activityTimeout sizes the start-to-close timeout from the estimator's
// own wall-clock cap with headroom for validation and event emission.
func activityTimeout(cfg domain.EstimatorConfig) time.Duration {
	cfg.Normalize()
	if cfg.MaxDuration <= 0 {
		return 24 * time.Hour
	}
	return cfg.MaxDuration + 10*time.Minute
}
