package clucov

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric measures how far apart two points are. Initialization uses it
// to attach every point to its nearest provisional center.
// ReducedDistance must preserve the ordering of Distance; it is used where only
// comparisons matter (e.g., squared Euclidean skips sqrt).
type DistanceMetric interface {
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
// ReducedDistance delegates to the same function.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64        { return f(a, b) }
func (f DistanceFunc) ReducedDistance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
// ReducedDistance returns squared Euclidean distance (skips sqrt).
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return math.Sqrt(euclideanSumOfSquares(a, b))
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	return euclideanSumOfSquares(a, b)
}

func euclideanSumOfSquares(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 1) }

func (m ManhattanMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }

// ChebyshevMetric computes the Chebyshev (L-infinity) distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, math.Inf(1)) }

func (m ChebyshevMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }

// Sub returns a - b.
// It fails with a *DimensionError when the lengths differ.
func Sub(a, b []float64) ([]float64, error) {
	if err := checkDim(len(a), len(b)); err != nil {
		return nil, err
	}
	return floats.SubTo(make([]float64, len(a)), a, b), nil
}

// Add returns a + b.
// It fails with a *DimensionError when the lengths differ.
func Add(a, b []float64) ([]float64, error) {
	if err := checkDim(len(a), len(b)); err != nil {
		return nil, err
	}
	return floats.AddTo(make([]float64, len(a)), a, b), nil
}

// Dot returns the scalar product of a and b.
// It fails with a *DimensionError when the lengths differ.
func Dot(a, b []float64) (float64, error) {
	if err := checkDim(len(a), len(b)); err != nil {
		return 0, err
	}
	return floats.Dot(a, b), nil
}

// centeredDot returns (x - mean)·dir without allocating.
// Callers guarantee equal lengths.
func centeredDot(x, mean, dir []float64) float64 {
	var sum float64
	for i := range x {
		sum += (x[i] - mean[i]) * dir[i]
	}
	return sum
}
