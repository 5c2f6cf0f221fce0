package bucket

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigitize(t *testing.T) {
	bins := []float64{0, 2, 5}

	tests := []struct {
		x    float64
		want int
	}{
		{-1, 0},
		{0, 1}, // equal to an edge is not strictly greater
		{0.5, 1},
		{2, 2},
		{4.99, 2},
		{5, 3},
		{100, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Digitize(tt.x, bins), "x=%g", tt.x)
	}
}

func TestBucketScenario(t *testing.T) {
	edges := []float64{123.0, 0, 2, 5} // first element is ignored

	b, err := Bucket(1, edges)
	require.NoError(t, err)
	assert.Equal(t, 1, b, "ln(2)≈0.69 lies in [0, 2)")

	b, err = Bucket(0, edges)
	require.NoError(t, err)
	assert.Equal(t, 1, b, "ln(1)=0 ties with edge 0 and lands right of it")

	b, err = Bucket(math.Exp(5)-1+1e-9, edges)
	require.NoError(t, err)
	assert.Equal(t, 3, b)
}

func TestBucketBelowFirstEdge(t *testing.T) {
	b, err := Bucket(0, []float64{1, 0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, b)

	// Negative deltas above -1 map below zero log-seconds.
	b, err = Bucket(-0.5, []float64{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, b)
}

func TestBucketErrors(t *testing.T) {
	_, err := Bucket(10, nil)
	assert.ErrorIs(t, err, ErrNoEdges)

	for _, d := range []float64{-1, -2, math.NaN()} {
		_, err := Bucket(d, []float64{1, 0, 1})
		var domainErr *NumericDomainError
		require.ErrorAs(t, err, &domainErr, "delta %g", d)
	}
}

func TestBucketMonotonic(t *testing.T) {
	edges, err := Edges(0, 10, 20)
	require.NoError(t, err)

	prev := -1
	for d := 0.0; d < 200000; d = d*1.3 + 1 {
		b, err := Bucket(d, edges)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b, prev)
		assert.LessOrEqual(t, b, len(edges))
		prev = b
	}
}

func TestEdges(t *testing.T) {
	edges, err := Edges(0, 10, 6)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 0, 2, 4, 6, 8, 10}, edges, 1e-9)
	require.NoError(t, Validate(edges))

	_, err = Edges(0, 10, 0)
	assert.Error(t, err)
	_, err = Edges(5, 5, 3)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrNoEdges)
	assert.NoError(t, Validate([]float64{99}))
	assert.NoError(t, Validate([]float64{99, 0, 1}))
	assert.Error(t, Validate([]float64{0, 1, 1}))
	assert.Error(t, Validate([]float64{0, 3, 2}))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(nil))
	assert.Equal(t, 4, Count([]float64{1, 0, 2, 5}))
}
