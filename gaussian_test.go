package clucov

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

func TestGaussianMatchesDistmv(t *testing.T) {
	mean := []float64{1, -2, 0.5}
	cov := mat.NewSymDense(3, []float64{
		2.0, 0.3, 0.1,
		0.3, 1.0, -0.2,
		0.1, -0.2, 0.5,
	})
	g, err := NewGaussian(mean, cov)
	require.NoError(t, err)
	ref, ok := distmv.NewNormal(mean, cov, nil)
	require.True(t, ok)

	for _, x := range [][]float64{
		{1, -2, 0.5},
		{0, 0, 0},
		{3, -1, 2},
		{-4, 5, -1},
	} {
		assert.InDelta(t, ref.LogProb(x), g.LogDensity(x), 1e-9, "x=%v", x)
		assert.InDelta(t, math.Exp(ref.LogProb(x)), g.Density(x), 1e-12, "x=%v", x)
	}
}

func TestGaussianSquaredMahalanobis(t *testing.T) {
	g, err := NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{4, 0, 0, 1}))
	require.NoError(t, err)

	tests := []struct {
		x    []float64
		want float64
	}{
		{[]float64{0, 0}, 0},
		{[]float64{2, 0}, 1},
		{[]float64{0, 3}, 9},
		{[]float64{2, 1}, 2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, g.SquaredMahalanobis(tt.x), 1e-12, "x=%v", tt.x)
	}
}

func TestGaussian1DAgreesWithGeneralFormula(t *testing.T) {
	mean, variance := 1.5, 0.7
	g1 := NewGaussian1D(mean, variance)
	gn, err := NewGaussian([]float64{mean}, mat.NewSymDense(1, []float64{variance}))
	require.NoError(t, err)

	for _, x := range []float64{-3, 0, 1.5, 2, 10} {
		want := math.Exp(-0.5*(x-mean)*(x-mean)/variance) / math.Sqrt(2*math.Pi*variance)
		assert.InDelta(t, want, g1.Density1D(x), 1e-14)
		assert.InDelta(t, want, g1.Density([]float64{x}), 1e-14)
		assert.InDelta(t, want, gn.Density([]float64{x}), 1e-14)
		assert.InDelta(t, (x-mean)*(x-mean)/variance, gn.SquaredMahalanobis([]float64{x}), 1e-12)
	}
}

func TestGaussianSingularCovarianceIsRegularised(t *testing.T) {
	// Perfectly collinear members: rank-one covariance.
	s, err := SummaryOf([][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, nil)
	require.NoError(t, err)

	g, err := s.Gaussian()
	require.NoError(t, err)
	on := g.SquaredMahalanobis([]float64{2, 2})
	off := g.SquaredMahalanobis([]float64{2, 1})
	assert.False(t, math.IsNaN(on))
	assert.Less(t, on, 10.0, "points on the line stay close")
	assert.Greater(t, off, 1e3, "points off the line are far away")
	assert.False(t, math.IsInf(g.LogDensity([]float64{1.5, 1.5}), 0))
}

func TestGaussianZeroCovariance(t *testing.T) {
	g, err := NewGaussian([]float64{1, 1}, mat.NewSymDense(2, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.SquaredMahalanobis([]float64{1, 1}))

	g1 := NewGaussian1D(3, 0)
	assert.Equal(t, 0.0, g1.SquaredMahalanobis([]float64{3}))
	assert.False(t, math.IsInf(g1.LogDensity1D(3), 0))
}

func TestGaussianNaNCovarianceFails(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{math.NaN(), 0, 0, 1})
	_, err := NewGaussian([]float64{0, 0}, cov)
	assert.ErrorIs(t, err, ErrSingularCovariance)
}

func TestGaussianDimensionMismatch(t *testing.T) {
	_, err := NewGaussian([]float64{0, 0, 0}, mat.NewSymDense(2, nil))
	var dimErr *DimensionError
	assert.ErrorAs(t, err, &dimErr)

	_, err = NewGaussian(nil, mat.NewSymDense(1, nil))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
