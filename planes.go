package clucov

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// findPlanes reassigns every point to its most likely cluster and searches
// Config.Planes random directions for the one along which each cluster looks
// most bimodal. It returns the number of points whose label changed, or -1
// without doing anything if fewer than two clusters are alive.
func (e *Engine) findPlanes(ctx context.Context) (int, error) {
	clusters := e.clusters()
	if len(clusters) < 2 {
		return -1, nil
	}

	best, err := e.assign(ctx, clusters)
	if err != nil {
		return 0, err
	}

	dim := e.points.Dim()
	planes := e.cfg.Planes
	e.normals = make([][]float64, planes)
	for k := range e.normals {
		e.normals[k] = randomDirection(e.rng, dim)
	}

	// proj[c][2k] holds the negative projections of cluster c on normal k,
	// proj[c][2k+1] the non-negative ones.
	proj := make([][]ScalarAccumulator, len(clusters))
	for ci, c := range clusters {
		proj[ci] = make([]ScalarAccumulator, 2*planes)
		c.members = 0
	}

	changed := 0
	for i := range best {
		if err := checkCancel(ctx, i); err != nil {
			return 0, err
		}
		label := 0
		if ci := best[i]; ci >= 0 {
			c := clusters[ci]
			label = c.id
			c.members++
			x, w := e.points.Point(i), e.points.Weight(i)
			acc := proj[ci]
			for k, normal := range e.normals {
				p := centeredDot(x, c.summary.mean, normal)
				if p < 0 {
					acc[2*k].Update(p, w)
				} else {
					acc[2*k+1].Update(p, w)
				}
			}
		}
		if e.points.Label(i) != label {
			changed++
			e.points.SetLabel(i, label)
		}
	}

	for ci, c := range clusters {
		bestK, bestScore := -1, math.Inf(1)
		acc := proj[ci]
		for k := range planes {
			neg, pos := &acc[2*k], &acc[2*k+1]
			if neg.Count() < 2 || pos.Count() < 2 {
				continue
			}
			if s := scalarSeparation(neg, pos); s < bestScore {
				bestK, bestScore = k, s
			}
		}
		c.planeScore = bestScore
		if bestK < 0 || bestScore > 1 {
			c.plane = randomDirection(e.rng, dim)
		} else {
			c.plane = slices.Clone(e.normals[bestK])
		}
	}
	return changed, nil
}

// assign returns, for every point, the position in clusters of the cluster
// maximising log(W) + log g(x), or -1 if that cluster's squared Mahalanobis
// distance to the point exceeds Config.MahalanobisCutoff. Points are split
// across Config.Workers goroutines; each writes only its own slot.
func (e *Engine) assign(ctx context.Context, clusters []*Cluster) ([]int, error) {
	logW := make([]float64, len(clusters))
	for ci, c := range clusters {
		logW[ci] = math.Log(c.weight()) + c.model.logNorm
	}
	cutoff := e.cfg.MahalanobisCutoff

	best := make([]int, e.points.Len())
	err := parallelRange(ctx, len(best), e.cfg.Workers, func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			if err := checkCancel(ctx, i-start); err != nil {
				return err
			}
			x := e.points.Point(i)
			b, bScore, bDist := -1, math.Inf(-1), 0.0
			for ci, c := range clusters {
				m := c.model.SquaredMahalanobis(x)
				if s := logW[ci] - 0.5*m; s > bScore {
					b, bScore, bDist = ci, s, m
				}
			}
			if b >= 0 && bDist > cutoff {
				b = -1
			}
			best[i] = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// randomDirection returns a unit vector with uniformly distributed direction.
func randomDirection(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for {
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		if n := floats.Norm(v, 2); n > 0 {
			floats.Scale(1/n, v)
			return v
		}
	}
}

// finalize is the last, assignment-only iteration: every point is assigned
// with the final models, clusters left without members are dropped, and the
// moments and models of the others are rebuilt from their members.
func (e *Engine) finalize(ctx context.Context) error {
	clusters := e.clusters()
	if len(clusters) == 0 {
		return nil
	}
	best, err := e.assign(ctx, clusters)
	if err != nil {
		return err
	}
	for _, c := range clusters {
		c.members = 0
	}
	for i, ci := range best {
		label := 0
		if ci >= 0 {
			label = clusters[ci].id
			clusters[ci].members++
		}
		e.points.SetLabel(i, label)
	}

	groups, err := e.points.GroupMoments()
	if err != nil {
		return err
	}
	for _, c := range clusters {
		if c.members == 0 {
			delete(e.alive, c.id)
		}
	}
	for _, g := range groups {
		if c, ok := e.alive[g.Label]; ok {
			c.summary = g.Summary
		}
	}
	return e.refreshModels()
}
