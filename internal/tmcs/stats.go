package tmcs

import "math"

// RunningStat accumulates a stream of marginal-contribution samples with
// Welford's algorithm. Naive sum-of-squares accumulation loses precision
// over many permutations when the mean dwarfs the variance; Welford's
// update keeps the variance numerically stable regardless of scale.
//
// A RunningStat is confined to the estimator goroutine; it needs no
// locking because marginal contributions within a permutation walk are
// produced strictly in coalition-growth order.
type RunningStat struct {
	count int64
	mean  float64
	m2    float64
}

// Add folds one sample into the running statistics.
func (s *RunningStat) Add(x float64) {
	s.count++
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (x - s.mean)
}

// Count returns the number of samples accumulated.
func (s *RunningStat) Count() int64 { return s.count }

// Mean returns the running mean, 0 before any sample.
func (s *RunningStat) Mean() float64 { return s.mean }

// Variance returns the unbiased sample variance, 0 with fewer than two
// samples.
func (s *RunningStat) Variance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.m2 / float64(s.count-1)
}

// StdErr returns the standard error of the mean, the quantity the
// stopping criterion compares against the precision target.
func (s *RunningStat) StdErr() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.Variance() / float64(s.count))
}
