package domain

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// MaxNodes is the largest node count a partition may hold.
// Coalitions are represented as uint64 bitmasks, so 64 is a hard ceiling;
// every estimator in this package is intractable long before that anyway.
const MaxNodes = 64

// Coalition is a set of node indexes encoded as a bitmask.
// Bit i set means node i belongs to the coalition. Two coalitions that
// differ only in the order members were added are the same value, which
// gives set semantics for free and makes coalitions usable as map keys
// when memoizing oracle evaluations.
type Coalition uint64

// EmptyCoalition is the coalition containing no nodes.
// Its value is always the configured baseline constant and is never
// computed through the training oracle.
const EmptyCoalition Coalition = 0

// FullCoalition returns the coalition containing all n nodes.
func FullCoalition(n int) Coalition {
	if n <= 0 {
		return EmptyCoalition
	}
	if n >= MaxNodes {
		return Coalition(^uint64(0))
	}
	return Coalition(uint64(1)<<uint(n) - 1)
}

// SingletonCoalition returns the coalition containing only node i.
func SingletonCoalition(i int) Coalition { return Coalition(1) << uint(i) }

// With returns a new coalition with node i added.
// The receiver is unchanged; coalitions are immutable values.
func (c Coalition) With(i int) Coalition { return c | SingletonCoalition(i) }

// Without returns a new coalition with node i removed.
func (c Coalition) Without(i int) Coalition { return c &^ SingletonCoalition(i) }

// Contains reports whether node i belongs to the coalition.
func (c Coalition) Contains(i int) bool { return c&SingletonCoalition(i) != 0 }

// Size returns the number of nodes in the coalition.
func (c Coalition) Size() int { return bits.OnesCount64(uint64(c)) }

// IsEmpty reports whether the coalition contains no nodes.
func (c Coalition) IsEmpty() bool { return c == EmptyCoalition }

// Members returns the node indexes in the coalition in ascending order.
func (c Coalition) Members() []int {
	members := make([]int, 0, c.Size())
	for rest := uint64(c); rest != 0; {
		i := bits.TrailingZeros64(rest)
		members = append(members, i)
		rest &^= uint64(1) << uint(i)
	}
	return members
}

// String renders the coalition as "{0,2,5}" for logs and error messages.
func (c Coalition) String() string {
	members := c.Members()
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = fmt.Sprintf("%d", m)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Permutation is an ordering of all n node indexes. Walking it left to
// right generates the nested coalition chain emptyset subset {p0} subset
// {p0,p1} subset ... subset full, which is how TMCS accumulates marginal
// contributions.
type Permutation []int

// Validate checks that the permutation is a bijection over 0..n-1.
func (p Permutation) Validate(n int) error {
	if len(p) != n {
		return fmt.Errorf("permutation length %d does not match node count %d", len(p), n)
	}
	seen := make([]bool, n)
	for _, idx := range p {
		if idx < 0 || idx >= n {
			return fmt.Errorf("permutation contains out-of-range index %d", idx)
		}
		if seen[idx] {
			return fmt.Errorf("permutation contains duplicate index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}

// Prefix returns the coalition formed by the first k elements of the
// permutation.
func (p Permutation) Prefix(k int) Coalition {
	c := EmptyCoalition
	for i := 0; i < k && i < len(p); i++ {
		c = c.With(p[i])
	}
	return c
}

// IdentityPermutation returns the permutation 0,1,...,n-1.
func IdentityPermutation(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// SortedCopy returns an ascending copy of the permutation. Used by tests
// that need the underlying set without the ordering.
func (p Permutation) SortedCopy() []int {
	cp := make([]int, len(p))
	copy(cp, p)
	sort.Ints(cp)
	return cp
}
