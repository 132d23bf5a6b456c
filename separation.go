package clucov

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// separationSteps is the number of intervals the segment between the two
// means is divided into; the mixture is sampled at the interior points.
const separationSteps = 50

// Separation measures how clearly two weighted populations form two modes.
//
// With g1, g2 the normal models of a and b and w1, w2 their weights, the
// mixture f(x) = w1·g1(x) + w2·g2(x) is evaluated at both means (h1, h2) and
// at m2 + i·(m1-m2)/50 for i = 1..49, whose minimum is h0. The statistic is
// h0/√(h1·h2): a deep valley between the means gives a value near 0, heavily
// overlapping populations a value near or above 1.
//
// The result is NaN when either summary carries no weight.
func Separation(a, b Summary) (float64, error) {
	if err := checkDim(a.Dim(), b.Dim()); err != nil {
		return 0, err
	}
	if a.IsEmpty() || b.IsEmpty() {
		return math.NaN(), nil
	}
	if a.Dim() == 1 {
		return separation1D(a.mean[0], a.Variance(), a.weight, b.mean[0], b.Variance(), b.weight), nil
	}

	ga, err := a.Gaussian()
	if err != nil {
		return 0, err
	}
	gb, err := b.Gaussian()
	if err != nil {
		return 0, err
	}
	la, lb := math.Log(a.weight), math.Log(b.weight)
	pair := make([]float64, 2)
	logMix := func(x []float64) float64 {
		pair[0] = la + ga.LogDensity(x)
		pair[1] = lb + gb.LogDensity(x)
		return floats.LogSumExp(pair)
	}

	h1 := logMix(a.mean)
	h2 := logMix(b.mean)

	step := floats.SubTo(make([]float64, a.Dim()), a.mean, b.mean)
	floats.Scale(1.0/separationSteps, step)
	x := make([]float64, a.Dim())
	h0 := math.Inf(1)
	for i := 1; i < separationSteps; i++ {
		floats.AddScaledTo(x, b.mean, float64(i), step)
		h0 = min(h0, logMix(x))
	}
	return math.Exp(h0 - 0.5*(h1+h2)), nil
}

// scalarSeparation is Separation for two one-dimensional accumulators.
func scalarSeparation(a, b *ScalarAccumulator) float64 {
	return separation1D(a.Mean(), a.Variance(), a.Weight(), b.Mean(), b.Variance(), b.Weight())
}

func separation1D(m1, v1, w1, m2, v2, w2 float64) float64 {
	if !(w1 > 0) || !(w2 > 0) {
		return math.NaN()
	}
	g1 := NewGaussian1D(m1, v1)
	g2 := NewGaussian1D(m2, v2)
	l1, l2 := math.Log(w1), math.Log(w2)
	logMix := func(x float64) float64 {
		return logAddExp(l1+g1.LogDensity1D(x), l2+g2.LogDensity1D(x))
	}

	h1 := logMix(m1)
	h2 := logMix(m2)
	step := (m1 - m2) / separationSteps
	h0 := math.Inf(1)
	for i := 1; i < separationSteps; i++ {
		h0 = min(h0, logMix(m2+float64(i)*step))
	}
	return math.Exp(h0 - 0.5*(h1+h2))
}

func logAddExp(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}
