package clucov

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Summary is an immutable snapshot of the zeroth, first and second moments of
// a finite weighted point set: sample count, total weight, mean vector and
// covariance matrix.
//
// The covariance is weight-normalised (Σ w·(x-μ)(x-μ)ᵀ / Σ w), which is the
// form for which Combine is an exact identity. Samples with zero weight do
// not contribute, not even to Count.
type Summary struct {
	count  int
	weight float64
	mean   []float64
	cov    *mat.SymDense
}

// NewSummary builds a Summary from precomputed moments. It is intended for
// PointSet implementations that compute group moments themselves.
func NewSummary(count int, weight float64, mean []float64, cov mat.Symmetric) (Summary, error) {
	if len(mean) == 0 {
		return Summary{}, fmt.Errorf("%w: summary dimension must be >= 1", ErrInvalidArgument)
	}
	if err := checkDim(len(mean), cov.SymmetricDim()); err != nil {
		return Summary{}, err
	}
	if count < 0 || weight < 0 || math.IsNaN(weight) {
		return Summary{}, fmt.Errorf("%w: count %d and weight %v must be >= 0", ErrInvalidArgument, count, weight)
	}
	c := mat.NewSymDense(len(mean), nil)
	c.CopySym(cov)
	return Summary{count: count, weight: weight, mean: slices.Clone(mean), cov: c}, nil
}

func emptySummary(dim int) Summary {
	return Summary{mean: make([]float64, dim), cov: mat.NewSymDense(dim, nil)}
}

// Dim returns the dimension of the summarised samples.
func (s Summary) Dim() int { return len(s.mean) }

// Count returns the number of samples with positive weight.
func (s Summary) Count() int { return s.count }

// Weight returns the total sample weight.
func (s Summary) Weight() float64 { return s.weight }

// IsEmpty reports whether the summary carries no weight.
func (s Summary) IsEmpty() bool { return s.weight <= 0 }

// Mean returns a copy of the weighted mean.
func (s Summary) Mean() []float64 { return slices.Clone(s.mean) }

// Covariance returns a copy of the weighted covariance matrix.
func (s Summary) Covariance() *mat.SymDense {
	c := mat.NewSymDense(s.Dim(), nil)
	c.CopySym(s.cov)
	return c
}

// Variance returns the first diagonal element of the covariance, which is the
// variance of a one-dimensional summary.
func (s Summary) Variance() float64 { return s.cov.At(0, 0) }

// Gaussian returns the normal model with this summary's mean and covariance.
func (s Summary) Gaussian() (*Gaussian, error) {
	return NewGaussian(s.mean, s.cov)
}

// Combine returns the summary of the union of two disjoint sample sets:
//
//	ρ = w1/(w1+w2)
//	μ = ρ·μ1 + (1-ρ)·μ2
//	Σ = ρ·Σ1 + (1-ρ)·Σ2 + ρ(1-ρ)(μ1-μ2)(μ1-μ2)ᵀ
//
// It fails with a *DimensionError when the summaries have different dimensions.
func Combine(a, b Summary) (Summary, error) {
	if err := checkDim(a.Dim(), b.Dim()); err != nil {
		return Summary{}, err
	}
	d := a.Dim()
	switch {
	case a.IsEmpty() && b.IsEmpty():
		s := emptySummary(d)
		s.count = a.count + b.count
		return s, nil
	case a.IsEmpty():
		s := b.clone()
		s.count += a.count
		return s, nil
	case b.IsEmpty():
		s := a.clone()
		s.count += b.count
		return s, nil
	}

	w := a.weight + b.weight
	rho := a.weight / w

	mean := make([]float64, d)
	delta := make([]float64, d)
	for i := range mean {
		mean[i] = rho*a.mean[i] + (1-rho)*b.mean[i]
		delta[i] = a.mean[i] - b.mean[i]
	}

	var scaled mat.SymDense
	scaled.ScaleSym(1-rho, b.cov)
	cov := mat.NewSymDense(d, nil)
	cov.ScaleSym(rho, a.cov)
	cov.AddSym(cov, &scaled)
	cov.SymRankOne(cov, rho*(1-rho), mat.NewVecDense(d, delta))

	return Summary{count: a.count + b.count, weight: w, mean: mean, cov: cov}, nil
}

func (s Summary) clone() Summary {
	return Summary{count: s.count, weight: s.weight, mean: s.Mean(), cov: s.Covariance()}
}

// SummaryOf computes the moments of points directly with the two-pass batch
// formulas. A nil weights slice gives every point weight 1.
func SummaryOf(points [][]float64, weights []float64) (Summary, error) {
	if len(points) == 0 {
		return Summary{}, fmt.Errorf("%w: SummaryOf needs at least one point to fix the dimension", ErrInvalidArgument)
	}
	if weights != nil {
		if err := checkDim(len(points), len(weights)); err != nil {
			return Summary{}, err
		}
	}
	d := len(points[0])
	if d == 0 {
		return Summary{}, fmt.Errorf("%w: summary dimension must be >= 1", ErrInvalidArgument)
	}
	weightOf := func(i int) float64 {
		if weights == nil {
			return 1
		}
		return weights[i]
	}

	s := emptySummary(d)
	for i, p := range points {
		if err := checkDim(d, len(p)); err != nil {
			return Summary{}, err
		}
		w := weightOf(i)
		if w < 0 || math.IsNaN(w) {
			return Summary{}, fmt.Errorf("%w: negative weight %v at index %d", ErrInvalidArgument, w, i)
		}
		if w == 0 {
			continue
		}
		s.count++
		s.weight += w
		for j := range d {
			s.mean[j] += w * p[j]
		}
	}
	if s.weight == 0 {
		return s, nil
	}
	for j := range d {
		s.mean[j] /= s.weight
	}

	delta := make([]float64, d)
	for i, p := range points {
		w := weightOf(i)
		if w == 0 {
			continue
		}
		for j := range d {
			delta[j] = p[j] - s.mean[j]
		}
		s.cov.SymRankOne(s.cov, w/s.weight, mat.NewVecDense(d, delta))
	}
	return s, nil
}

// Accumulator tracks the running count, weight, mean and covariance of a
// weighted stream of D-dimensional samples using the weighted Welford update,
// which stays stable over many samples where naive sums of squares do not.
type Accumulator struct {
	count  int
	weight float64
	mean   []float64
	// m2 is the weighted co-moment Σ w·(x-μ)(x-μ)ᵀ.
	m2    *mat.SymDense
	delta *mat.VecDense
}

// NewAccumulator returns an empty accumulator for dim-dimensional samples.
func NewAccumulator(dim int) *Accumulator {
	return &Accumulator{
		mean:  make([]float64, dim),
		m2:    mat.NewSymDense(dim, nil),
		delta: mat.NewVecDense(dim, nil),
	}
}

// Dim returns the sample dimension.
func (a *Accumulator) Dim() int { return len(a.mean) }

// Count returns the number of samples with positive weight seen so far.
func (a *Accumulator) Count() int { return a.count }

// Weight returns the total weight seen so far.
func (a *Accumulator) Weight() float64 { return a.weight }

// Update adds sample x with weight w. A zero weight is a no-op.
func (a *Accumulator) Update(x []float64, w float64) error {
	if err := checkDim(len(a.mean), len(x)); err != nil {
		return err
	}
	if w < 0 || math.IsNaN(w) {
		return fmt.Errorf("%w: negative weight %v", ErrInvalidArgument, w)
	}
	if w == 0 {
		return nil
	}
	prev := a.weight
	a.count++
	a.weight += w
	r := w / a.weight
	for i := range a.mean {
		d := x[i] - a.mean[i]
		a.delta.SetVec(i, d)
		a.mean[i] += r * d
	}
	// x - μ' = (W/W')·(x - μ), so the co-moment increment is a symmetric rank one.
	a.m2.SymRankOne(a.m2, w*prev/a.weight, a.delta)
	return nil
}

// Finalize returns the Summary of all samples seen so far. Calling it again
// without further updates returns an equal Summary.
func (a *Accumulator) Finalize() Summary {
	d := len(a.mean)
	s := Summary{count: a.count, weight: a.weight, mean: slices.Clone(a.mean), cov: mat.NewSymDense(d, nil)}
	if a.weight > 0 {
		s.cov.ScaleSym(1/a.weight, a.m2)
	}
	return s
}

// ScalarAccumulator is the one-dimensional Accumulator. It is used for the
// per-hyperplane projections, where allocating matrices per sample would
// dominate the search.
type ScalarAccumulator struct {
	count  int
	weight float64
	mean   float64
	m2     float64
}

// Update adds sample x with weight w. Non-positive and NaN weights are ignored.
func (a *ScalarAccumulator) Update(x, w float64) {
	if !(w > 0) {
		return
	}
	prev := a.weight
	a.count++
	a.weight += w
	d := x - a.mean
	a.mean += d * w / a.weight
	a.m2 += w * prev / a.weight * d * d
}

// Count returns the number of samples with positive weight seen so far.
func (a *ScalarAccumulator) Count() int { return a.count }

// Weight returns the total weight seen so far.
func (a *ScalarAccumulator) Weight() float64 { return a.weight }

// Mean returns the running weighted mean.
func (a *ScalarAccumulator) Mean() float64 { return a.mean }

// Variance returns the running weight-normalised variance.
func (a *ScalarAccumulator) Variance() float64 {
	if a.weight == 0 {
		return 0
	}
	return a.m2 / a.weight
}

// Finalize returns the one-dimensional Summary of all samples seen so far.
func (a *ScalarAccumulator) Finalize() Summary {
	return Summary{
		count:  a.count,
		weight: a.weight,
		mean:   []float64{a.mean},
		cov:    mat.NewSymDense(1, []float64{a.Variance()}),
	}
}
