package oracle

import (
	"context"
	"sync"

	"github.com/mlcoop/contribmeter/internal/domain"
)

// Evaluator is the coalition-value contract estimators program against.
// *Oracle is the production implementation; PassMemo layers caching on top
// of any Evaluator.
type Evaluator interface {
	// Evaluate returns the value of the coalition under the given epoch
	// budget.
	Evaluate(ctx context.Context, coalition domain.Coalition, epochs int) (float64, error)
}

// PassMemo caches coalition values for the duration of one estimation
// pass. The oracle is stochastic, so this caching is a cost optimization,
// not a correctness requirement: the exact estimator reuses value(S)
// across the many node/subset pairs that share S, which is what brings its
// cost down from n*2^(n-1) calls to one call per distinct subset. Sampling
// estimators that rely on fresh noise per evaluation must not wrap their
// oracle in a PassMemo.
//
// A PassMemo must not outlive its pass; create a fresh one per estimator
// run.
type PassMemo struct {
	inner Evaluator

	mu     sync.Mutex
	values map[domain.Coalition]float64
}

// NewPassMemo wraps an evaluator with a pass-scoped cache.
func NewPassMemo(inner Evaluator) *PassMemo {
	return &PassMemo{inner: inner, values: make(map[domain.Coalition]float64)}
}

// Evaluate returns the cached value for the coalition, evaluating through
// the inner oracle on first sight. Errors are not cached: a failed
// evaluation aborts the estimator anyway.
func (m *PassMemo) Evaluate(ctx context.Context, coalition domain.Coalition, epochs int) (float64, error) {
	m.mu.Lock()
	if value, ok := m.values[coalition]; ok {
		m.mu.Unlock()
		return value, nil
	}
	m.mu.Unlock()

	value, err := m.inner.Evaluate(ctx, coalition, epochs)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.values[coalition] = value
	m.mu.Unlock()
	return value, nil
}

// CachedCount returns the number of distinct coalitions evaluated so far.
func (m *PassMemo) CachedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
