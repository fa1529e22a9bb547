// Package oracle wraps the external train-and-evaluate procedure as the
// coalition-value oracle the estimators consume. Training a model on a
// coalition's combined data is the single dominant cost center of the
// system, and it is stochastic: two evaluations of the same coalition may
// legitimately return different scores.
//
// Oracle Semantics:
//   - Evaluate(coalition, epochs) runs one full training cycle and returns
//     a scalar higher-is-better test score.
//   - The empty coalition short-circuits to the partition's configured
//     baseline without touching the trainer.
//   - Failures surface as *domain.TrainingFailureError and abort the
//     estimator that issued the call; dropped samples would bias means.
//   - No idempotence is assumed. PassMemo adds per-pass caching as a pure
//     cost optimization where an estimator's semantics allow it.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mlcoop/contribmeter/internal/domain"
)

// Trainer is the external collaborator that trains a model on the union of
// a coalition's datasets and scores it on the held-out test set. The core
// does not dictate architecture, loss, or metric; it only requires that
// scores across coalitions are commensurable on one scale.
//
// Implementations are expected to be slow (minutes per call) and noisy.
// They must honor context cancellation.
type Trainer interface {
	// TrainAndScore trains on the listed nodes' combined data for the
	// given epoch budget and returns the test score.
	TrainAndScore(ctx context.Context, nodes []domain.Node, epochs int) (float64, error)
}

// TrainerFunc adapts a plain function to the Trainer interface. Tests use
// this for deterministic oracle stubs.
type TrainerFunc func(ctx context.Context, nodes []domain.Node, epochs int) (float64, error)

// TrainAndScore implements Trainer by calling the function.
func (f TrainerFunc) TrainAndScore(ctx context.Context, nodes []domain.Node, epochs int) (float64, error) {
	return f(ctx, nodes, epochs)
}

// Oracle is the coalition-value client handed to estimators. It resolves
// coalitions against a fixed partition, short-circuits the empty
// coalition, counts training runs for savings measurement and usage
// events, and wraps failures with the coalition that triggered them.
type Oracle struct {
	trainer   Trainer
	partition *domain.Partition
	logger    *slog.Logger

	calls atomic.Int64
}

// New creates an oracle over the given partition. A nil logger disables
// per-call logging.
func New(trainer Trainer, partition *domain.Partition, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Oracle{trainer: trainer, partition: partition, logger: logger}
}

// Evaluate returns the value of a coalition: the test score of a model
// trained on the coalition's combined data for the given epoch budget.
// The empty coalition returns the partition's EmptyScore constant without
// a training run. Every non-empty evaluation is one full external
// train/evaluate cycle.
func (o *Oracle) Evaluate(ctx context.Context, coalition domain.Coalition, epochs int) (float64, error) {
	if coalition.IsEmpty() {
		return o.partition.EmptyScore, nil
	}
	if epochs < 1 {
		return 0, fmt.Errorf("epoch budget must be positive, got %d", epochs)
	}
	if members := coalition.Members(); members[len(members)-1] >= o.partition.NodeCount() {
		return 0, fmt.Errorf("coalition %s references nodes outside the %d-node partition",
			coalition, o.partition.NodeCount())
	}

	nodes := make([]domain.Node, 0, coalition.Size())
	for _, idx := range coalition.Members() {
		nodes = append(nodes, o.partition.Nodes[idx])
	}

	start := time.Now()
	o.calls.Add(1)

	score, err := o.trainer.TrainAndScore(ctx, nodes, epochs)
	if err != nil {
		return 0, &domain.TrainingFailureError{Coalition: coalition, Epochs: epochs, Err: err}
	}

	o.logger.Debug("coalition evaluated",
		"coalition", coalition.String(),
		"size", coalition.Size(),
		"epochs", epochs,
		"score", score,
		"elapsed", time.Since(start))

	return score, nil
}

// Calls returns the number of training runs issued so far. The counter is
// atomic so concurrent singleton evaluations account correctly.
func (o *Oracle) Calls() int64 { return o.calls.Load() }

// Partition exposes the partition the oracle resolves coalitions against.
func (o *Oracle) Partition() *domain.Partition { return o.partition }
