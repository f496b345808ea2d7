package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndVariance(t *testing.T) {
	_, ok := mean(nil)
	assert.False(t, ok)

	m, ok := mean([]float64{2, 4, 6})
	require.True(t, ok)
	assert.InDelta(t, 4.0, m, 1e-9)

	_, ok = sampleVariance([]float64{3})
	assert.False(t, ok)

	v, ok := sampleVariance([]float64{2, 4, 6})
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)

	lo, hi := minMax([]float64{5, -1, 3})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 5.0, hi)
}

func TestPearsonCorrelation(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
		ok   bool
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}, 1, true},
		{"perfect negative", []float64{1, 2, 3}, []float64{9, 6, 3}, -1, true},
		{"zero variance", []float64{1, 2, 3}, []float64{5, 5, 5}, 0, false},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0, false},
		{"single pair", []float64{1}, []float64{1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := pearsonCorrelation(tt.x, tt.y)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, r, 1e-9)
			assert.False(t, math.IsNaN(r))
		})
	}
}

func TestLinearSlope(t *testing.T) {
	s, ok := linearSlope([]float64{2010, 2011, 2012}, []float64{100, 110, 120})
	require.True(t, ok)
	assert.InDelta(t, 10.0, s, 1e-9)

	_, ok = linearSlope([]float64{2010, 2010}, []float64{1, 2})
	assert.False(t, ok)
}
