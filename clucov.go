package clucov

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// Config controls the refinement loop.
// Start with [DefaultConfig], set MahalanobisCutoff, and override the fields
// you need.
type Config struct {
	// MaxIterations is a hard stop for the refinement loop. Reaching it is
	// reported as StopMaxIterations, not as an error.
	// Must be >= 1. Default: 20.
	MaxIterations int

	// Planes is the number of random hyperplane normals searched per
	// iteration for a cluster's best separating direction.
	// Must be >= 1. Default: 100.
	Planes int

	// MahalanobisCutoff is the squared Mahalanobis distance beyond which a
	// point is left unassigned (label 0) rather than given to its most likely
	// cluster. There is no universally good value (9 and 100 are both in
	// use), so DefaultConfig leaves it NaN and validation rejects NaN: it must
	// be set explicitly. Must be >= 0.
	MahalanobisCutoff float64

	// SplitThreshold is the separation statistic below which a cluster is
	// split along its hyperplane. 0 disables splitting.
	// Must be >= 0. Default: 0.1.
	SplitThreshold float64

	// MergeThreshold is the separation statistic above which the two most
	// overlapping clusters are merged.
	// Must be >= 0. Default: 0.2.
	MergeThreshold float64

	// MinMembers is the smallest member count a cluster may have. Smaller
	// clusters are pruned, and splits that would produce one are refused.
	// Must be >= 2. Default: 10.
	MinMembers int

	// MaxClusters caps the number of live clusters. Initialization fails if
	// it would create more, and splits are refused past it.
	// Must be >= 1. Default: 100.
	MaxClusters int

	// FewChanges is the number of reassigned points at or below which
	// reassignment alone does not make an iteration significant.
	// Must be >= 0. Default: 0.
	FewChanges int

	// Metric measures distances to provisional centers during
	// initialization. Default: EuclideanMetric.
	Metric DistanceMetric

	// Seed seeds the PCG random source used when no source is passed with
	// WithRand. Default: 1.
	Seed uint64

	// Workers controls the number of goroutines for the per-point
	// assignment. Results do not depend on it. 0 means use runtime.NumCPU().
	// Default: 0 (auto).
	Workers int
}

// DefaultConfig returns a Config with reasonable defaults. MahalanobisCutoff
// is NaN and must be set before use.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     20,
		Planes:            100,
		MahalanobisCutoff: math.NaN(),
		SplitThreshold:    0.1,
		MergeThreshold:    0.2,
		MinMembers:        10,
		MaxClusters:       100,
		Metric:            EuclideanMetric{},
		Seed:              1,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
// Thresholds and the cutoff are left alone since zero is meaningful for them.
func applyDefaults(cfg *Config) {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 20
	}
	if cfg.Planes == 0 {
		cfg.Planes = 100
	}
	if cfg.MinMembers == 0 {
		cfg.MinMembers = 10
	}
	if cfg.MaxClusters == 0 {
		cfg.MaxClusters = 100
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("%w: MaxIterations must be >= 1, got %d", ErrInvalidConfig, cfg.MaxIterations)
	}
	if cfg.Planes < 1 {
		return fmt.Errorf("%w: Planes must be >= 1, got %d", ErrInvalidConfig, cfg.Planes)
	}
	if math.IsNaN(cfg.MahalanobisCutoff) {
		return fmt.Errorf("%w: MahalanobisCutoff must be set explicitly", ErrInvalidConfig)
	}
	if cfg.MahalanobisCutoff < 0 {
		return fmt.Errorf("%w: MahalanobisCutoff must be >= 0, got %f", ErrInvalidConfig, cfg.MahalanobisCutoff)
	}
	if cfg.SplitThreshold < 0 || math.IsNaN(cfg.SplitThreshold) {
		return fmt.Errorf("%w: SplitThreshold must be >= 0, got %f", ErrInvalidConfig, cfg.SplitThreshold)
	}
	if cfg.MergeThreshold < 0 || math.IsNaN(cfg.MergeThreshold) {
		return fmt.Errorf("%w: MergeThreshold must be >= 0, got %f", ErrInvalidConfig, cfg.MergeThreshold)
	}
	if cfg.MinMembers < 2 {
		return fmt.Errorf("%w: MinMembers must be >= 2, got %d", ErrInvalidConfig, cfg.MinMembers)
	}
	if cfg.MaxClusters < 1 {
		return fmt.Errorf("%w: MaxClusters must be >= 1, got %d", ErrInvalidConfig, cfg.MaxClusters)
	}
	if cfg.FewChanges < 0 {
		return fmt.Errorf("%w: FewChanges must be >= 0, got %d", ErrInvalidConfig, cfg.FewChanges)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("%w: Workers must be >= 0 (0 means runtime.NumCPU()), got %d", ErrInvalidConfig, cfg.Workers)
	}
	return nil
}

// StopReason tells why the refinement loop ended.
type StopReason int

const (
	// StopConverged means an iteration made no significant change.
	StopConverged StopReason = iota
	// StopMaxIterations means Config.MaxIterations was reached first.
	StopMaxIterations
	// StopTooFewClusters means fewer than two clusters were left alive.
	StopTooFewClusters
)

func (r StopReason) String() string {
	switch r {
	case StopConverged:
		return "converged"
	case StopMaxIterations:
		return "max_iterations"
	case StopTooFewClusters:
		return "too_few_clusters"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Result contains the output of a clustering run.
type Result struct {
	// Labels assigns each point to a final cluster (1..k) or 0 for
	// background points not attributable to any cluster.
	Labels []int

	// Clusters holds the final clusters; Clusters[i] has identifier i+1 and
	// they are ordered by non-increasing member count.
	Clusters []*Cluster

	// Overlap is the k×k matrix whose column j gives, for the points of
	// cluster j+1, the fraction of their weighted density attributable to
	// each cluster's model. Columns sum to 1; a clean partition is close to
	// the identity. Nil when no cluster survived.
	Overlap *mat.Dense

	// Iterations is the number of refinement iterations performed.
	Iterations int

	// Stop tells why the loop ended.
	Stop StopReason
}

// Fit clusters data in one call: it builds a Dataset, initializes an Engine
// with strategy and runs it. Each element of data is a point; all points must
// have the same dimensionality. A nil weights slice weighs every point 1.
func Fit(ctx context.Context, data [][]float64, weights []float64, strategy Strategy, cfg Config, opts ...Option) (*Result, error) {
	if len(data) == 0 {
		applyDefaults(&cfg)
		if err := validateConfig(&cfg); err != nil {
			return nil, err
		}
		return &Result{Labels: []int{}, Stop: StopTooFewClusters}, nil
	}

	ds, err := NewDataset(data, weights)
	if err != nil {
		return nil, err
	}
	e, err := New(ds, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(ctx, strategy); err != nil {
		return nil, err
	}
	return e.Run(ctx)
}
