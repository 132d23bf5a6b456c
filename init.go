package clucov

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// Strategy chooses the initial grouping of the points. It is one of
// RandomSeeds, Radius or Labeled.
type Strategy interface {
	fmt.Stringer
	// provisionalLabels returns a group label per point (0 = no group).
	provisionalLabels(ctx context.Context, e *Engine) ([]int, error)
}

// RandomSeeds draws K distinct points uniformly at random as provisional
// centers and groups every point with its nearest center.
type RandomSeeds struct {
	K int
}

func (s RandomSeeds) String() string { return fmt.Sprintf("random_seeds(k=%d)", s.K) }

func (s RandomSeeds) provisionalLabels(ctx context.Context, e *Engine) ([]int, error) {
	n := e.points.Len()
	if s.K < 1 || s.K > n {
		return nil, fmt.Errorf("%w: RandomSeeds.K must be in [1, %d], got %d", ErrInvalidConfig, n, s.K)
	}
	if s.K > e.cfg.MaxClusters {
		return nil, fmt.Errorf("%w: RandomSeeds.K %d exceeds MaxClusters %d", ErrInvalidConfig, s.K, e.cfg.MaxClusters)
	}
	return e.nearestCenter(ctx, randomDistinct(e.rng, n, s.K))
}

// randomDistinct picks k distinct indices in [0, n) by rejection sampling.
func randomDistinct(rng *rand.Rand, n, k int) []int {
	seen := make(map[int]bool, k)
	picks := make([]int, 0, k)
	for len(picks) < k {
		i := rng.IntN(n)
		if seen[i] {
			continue
		}
		seen[i] = true
		picks = append(picks, i)
	}
	return picks
}

// Radius starts from point 0 as the only center, scans the remaining points
// in order and promotes every point farther than R from all existing centers
// to a new center. Every point is then grouped with its nearest center.
// Initialization fails with ErrInvalidConfig if this yields more than
// Config.MaxClusters centers.
type Radius struct {
	R float64
}

func (s Radius) String() string { return fmt.Sprintf("radius(r=%g)", s.R) }

func (s Radius) provisionalLabels(ctx context.Context, e *Engine) ([]int, error) {
	if !(s.R > 0) || math.IsInf(s.R, 1) {
		return nil, fmt.Errorf("%w: Radius.R must be positive and finite, got %f", ErrInvalidConfig, s.R)
	}
	metric := e.cfg.Metric
	centers := []int{0}
	for i := 1; i < e.points.Len(); i++ {
		if err := checkCancel(ctx, i); err != nil {
			return nil, err
		}
		p := e.points.Point(i)
		isolated := true
		for _, c := range centers {
			if metric.Distance(p, e.points.Point(c)) <= s.R {
				isolated = false
				break
			}
		}
		if !isolated {
			continue
		}
		centers = append(centers, i)
		if len(centers) > e.cfg.MaxClusters {
			return nil, fmt.Errorf("%w: radius %g yields more than MaxClusters=%d centers", ErrInvalidConfig, s.R, e.cfg.MaxClusters)
		}
	}
	return e.nearestCenter(ctx, centers)
}

// Labeled keeps the labels already present in the point set as the initial
// groups.
type Labeled struct{}

func (Labeled) String() string { return "labeled" }

func (Labeled) provisionalLabels(ctx context.Context, e *Engine) ([]int, error) {
	labels := make([]int, e.points.Len())
	for i := range labels {
		labels[i] = e.points.Label(i)
	}
	return labels, nil
}

// nearestCenter labels every point with 1 + the position in centers of its
// nearest center under Config.Metric. Ties go to the earlier center. Larger
// center sets are searched through a centerTree.
func (e *Engine) nearestCenter(ctx context.Context, centers []int) ([]int, error) {
	metric := e.cfg.Metric
	coords := make([][]float64, len(centers))
	for k, c := range centers {
		coords[k] = e.points.Point(c)
	}

	tree := newCenterTree(coords, metric)
	if len(coords) <= centerLeafSize {
		tree = nil
	}

	labels := make([]int, e.points.Len())
	err := parallelRange(ctx, len(labels), e.cfg.Workers, func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			if err := checkCancel(ctx, i-start); err != nil {
				return err
			}
			p := e.points.Point(i)
			if tree != nil {
				labels[i] = tree.nearest(p) + 1
				continue
			}
			best, bestDist := 0, math.Inf(1)
			for k, c := range coords {
				if d := metric.ReducedDistance(p, c); d < bestDist {
					best, bestDist = k, d
				}
			}
			labels[i] = best + 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}
