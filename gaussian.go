package clucov

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

const (
	// ridgeStart is the first diagonal load, relative to the mean variance,
	// tried when a covariance matrix is not positive definite.
	ridgeStart = 1e-10
	// ridgeAttempts bounds how often the load is increased tenfold.
	ridgeAttempts = 12
	// varianceFloor is the relative lower bound for one-dimensional variances.
	varianceFloor = 1e-12
)

var log2Pi = math.Log(2 * math.Pi)

// Gaussian is a multivariate normal distribution fixed at construction.
//
// Covariance matrices that are singular or not positive definite (a cluster
// whose members are collinear, or a single repeated point) are regularised by
// loading the diagonal with ε·tr(Σ)/D, starting at ε=1e-10 and growing tenfold
// until the Cholesky factorisation succeeds. One-dimensional variances are
// floored at 1e-12·max(1, μ²).
type Gaussian struct {
	mean []float64
	// chol is the lower Cholesky factor L of Σ = L·Lᵀ, row-major.
	chol []float64
	// logNorm is -½(D·log 2π + log|Σ|).
	logNorm  float64
	variance float64
}

// NewGaussian builds the normal distribution N(mean, cov). A one-dimensional
// model is built with the scalar formulas of NewGaussian1D.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	d := len(mean)
	if d == 0 {
		return nil, fmt.Errorf("%w: gaussian dimension must be >= 1", ErrInvalidArgument)
	}
	if err := checkDim(d, cov.SymmetricDim()); err != nil {
		return nil, err
	}
	if d == 1 {
		return NewGaussian1D(mean[0], cov.At(0, 0)), nil
	}

	chol, err := factorize(cov)
	if err != nil {
		return nil, err
	}
	var l mat.TriDense
	chol.LTo(&l)
	g := &Gaussian{
		mean:    slices.Clone(mean),
		chol:    make([]float64, d*d),
		logNorm: -0.5 * (float64(d)*log2Pi + chol.LogDet()),
	}
	for i := range d {
		for j := 0; j <= i; j++ {
			g.chol[i*d+j] = l.At(i, j)
		}
	}
	return g, nil
}

// NewGaussian1D builds the univariate normal distribution N(mean, variance).
func NewGaussian1D(mean, variance float64) *Gaussian {
	floor := varianceFloor * max(1, mean*mean)
	if !(variance > floor) {
		variance = floor
	}
	return &Gaussian{
		mean:     []float64{mean},
		logNorm:  -0.5 * (log2Pi + math.Log(variance)),
		variance: variance,
	}
}

func factorize(cov mat.Symmetric) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if chol.Factorize(cov) {
		return &chol, nil
	}
	d := cov.SymmetricDim()
	scale := mat.Trace(cov) / float64(d)
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	reg := mat.NewSymDense(d, nil)
	eps := ridgeStart * scale
	for range ridgeAttempts {
		reg.CopySym(cov)
		for i := range d {
			reg.SetSym(i, i, reg.At(i, i)+eps)
		}
		if chol.Factorize(reg) {
			return &chol, nil
		}
		eps *= 10
	}
	return nil, ErrSingularCovariance
}

// Dim returns the dimension of the distribution.
func (g *Gaussian) Dim() int { return len(g.mean) }

// Mean returns a copy of the distribution mean.
func (g *Gaussian) Mean() []float64 { return slices.Clone(g.mean) }

// SquaredMahalanobis returns (x-μ)ᵀ·Σ⁻¹·(x-μ).
// x must have length Dim.
func (g *Gaussian) SquaredMahalanobis(x []float64) float64 {
	if g.chol == nil {
		d := x[0] - g.mean[0]
		return d * d / g.variance
	}
	// Solve L·y = x-μ by forward substitution; then the distance is |y|².
	d := len(g.mean)
	y := make([]float64, d)
	var sum float64
	for i := range d {
		v := x[i] - g.mean[i]
		row := g.chol[i*d : i*d+i]
		for j, lij := range row {
			v -= lij * y[j]
		}
		v /= g.chol[i*d+i]
		y[i] = v
		sum += v * v
	}
	return sum
}

// LogDensity returns the natural logarithm of the density at x.
func (g *Gaussian) LogDensity(x []float64) float64 {
	return g.logNorm - 0.5*g.SquaredMahalanobis(x)
}

// Density returns the probability density at x.
func (g *Gaussian) Density(x []float64) float64 {
	return math.Exp(g.LogDensity(x))
}

// LogDensity1D is LogDensity for a one-dimensional model evaluated at a scalar.
func (g *Gaussian) LogDensity1D(x float64) float64 {
	d := x - g.mean[0]
	return g.logNorm - 0.5*d*d/g.variance
}

// Density1D is Density for a one-dimensional model evaluated at a scalar.
func (g *Gaussian) Density1D(x float64) float64 {
	return math.Exp(g.LogDensity1D(x))
}
