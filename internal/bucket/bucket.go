// Package bucket discretizes inter-event time deltas on a log scale.
package bucket

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoEdges is returned when an edges sequence has no elements.
var ErrNoEdges = errors.New("bucket edges must not be empty")

// NumericDomainError reports a delta whose log-scaled value is undefined.
type NumericDomainError struct {
	Delta float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("ln(delta+1) undefined for delta %g", e.Delta)
}

// Digitize returns the index of the first bin strictly greater than x, so
// values below bins[0] fall in 0 and values at or above the last bin fall in
// len(bins). bins must be increasing.
func Digitize(x float64, bins []float64) int {
	return sort.Search(len(bins), func(i int) bool { return bins[i] > x })
}

// Bucket returns digitize(ln(delta+1), edges[1:]). The first element of edges
// is a spacing hint and not a boundary.
func Bucket(delta float64, edges []float64) (int, error) {
	if len(edges) < 1 {
		return 0, ErrNoEdges
	}
	if math.IsNaN(delta) || delta <= -1 {
		return 0, &NumericDomainError{Delta: delta}
	}
	return Digitize(math.Log(delta+1), edges[1:]), nil
}

// Edges builds [spacing, min, ..., max] with n evenly spaced boundaries.
func Edges(min, max float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("bins must be at least 1, got %d", n)
	}
	if n == 1 {
		return []float64{0, min}, nil
	}
	if max <= min {
		return nil, fmt.Errorf("max %g must be greater than min %g", max, min)
	}
	step := (max - min) / float64(n-1)
	edges := make([]float64, 0, n+1)
	edges = append(edges, step)
	for i := 0; i < n; i++ {
		edges = append(edges, min+step*float64(i))
	}
	return edges, nil
}

// Validate checks that edges is non-empty and its boundaries strictly increase.
func Validate(edges []float64) error {
	if len(edges) < 1 {
		return ErrNoEdges
	}
	for i := 2; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return fmt.Errorf("bucket edges must increase: edges[%d]=%g after %g", i, edges[i], edges[i-1])
		}
	}
	return nil
}

// Count returns the number of distinct buckets edges can produce.
func Count(edges []float64) int {
	if len(edges) == 0 {
		return 0
	}
	return len(edges)
}
