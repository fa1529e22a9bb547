// Package domain defines the value objects and operation contracts for
// contributivity measurement across a multi-partner machine-learning
// collaboration. It models nodes and coalitions, the records produced by
// each estimator, and the typed errors that cross activity boundaries.
//
// Contributivity Model:
//   - A Partition fixes the ordered set of nodes and the two anchor scores
//     (full-coalition and empty-coalition values).
//   - Estimators attribute the gap between those anchors to individual
//     nodes: exact Shapley values for small n, independent baselines, and
//     Truncated Monte Carlo Shapley for everything else.
//   - Every estimator emits a ContributivityRecord; records are immutable
//     and dimension-checked at construction.
//
// All operation inputs and outputs validate themselves with struct tags so
// activities can fail fast on contract violations before touching the
// expensive training oracle.
package domain

import "fmt"

// Node is one participant in the collaboration. It contributes a private
// data partition identified by DatasetRef and carries an aggregation
// weight proportional to its data volume. Nodes are immutable once the
// scenario's partition is fixed.
type Node struct {
	// Index is the node's position in the partition, 0..n-1.
	Index int `json:"index" validate:"min=0"`

	// DatasetRef is an opaque handle to the node's local dataset.
	// The training oracle resolves it; the core never dereferences it.
	DatasetRef string `json:"dataset_ref" validate:"required"`

	// Weight is the node's aggregation weight, proportional to its data
	// volume. Forwarded to the trainer for federated averaging; the
	// estimators themselves treat nodes symmetrically.
	Weight float64 `json:"weight" validate:"gt=0"`
}

// Partition is the fixed node layout for one scenario run together with
// the two anchor scores every estimator needs: the externally supplied
// full-coalition score and the configured empty-coalition baseline.
type Partition struct {
	// Nodes lists the participants ordered by Index.
	Nodes []Node `json:"nodes" validate:"required,min=1,dive"`

	// FullScore is the test score of the model trained on all nodes
	// jointly. Supplied by the caller, typically from a federated
	// training pass that happened before contributivity measurement.
	FullScore float64 `json:"full_score"`

	// EmptyScore is the defined value of the empty coalition. It is a
	// configured constant (0 or a random-baseline score) and is never
	// produced by the oracle.
	EmptyScore float64 `json:"empty_score"`
}

// NodeCount returns the number of nodes in the partition.
func (p *Partition) NodeCount() int { return len(p.Nodes) }

// Full returns the coalition of all nodes in the partition.
func (p *Partition) Full() Coalition { return FullCoalition(len(p.Nodes)) }

// Validate checks structural tags plus the ordering invariants that tags
// cannot express: contiguous indexes 0..n-1 and the MaxNodes ceiling.
func (p *Partition) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if len(p.Nodes) > MaxNodes {
		return fmt.Errorf("%w: %d nodes exceeds the %d-node ceiling", ErrPartitionTooLarge, len(p.Nodes), MaxNodes)
	}
	for i, node := range p.Nodes {
		if node.Index != i {
			return fmt.Errorf("%w: node at position %d has index %d", ErrNodeIndexOutOfOrder, i, node.Index)
		}
	}
	return nil
}

// TotalWeight sums the aggregation weights of all nodes.
func (p *Partition) TotalWeight() float64 {
	var total float64
	for _, node := range p.Nodes {
		total += node.Weight
	}
	return total
}
