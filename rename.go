package clucov

import (
	"cmp"
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// rename renumbers the live clusters 1..k by decreasing member count, ties
// keeping creation order, and rewrites the point labels to match.
func (e *Engine) rename() {
	clusters := e.clusters()
	slices.SortStableFunc(clusters, func(a, b *Cluster) int {
		return cmp.Compare(b.members, a.members)
	})

	ids := make(map[int]int, len(clusters))
	e.alive = make(map[int]*Cluster, len(clusters))
	for k, c := range clusters {
		ids[c.id] = k + 1
		c.id = k + 1
		e.alive[c.id] = c
	}
	e.nextID = len(clusters) + 1

	// Each point is read before it is rewritten, so old and new identifiers
	// never get confused even though the two ranges overlap.
	for i := range e.points.Len() {
		if l := e.points.Label(i); l != 0 {
			e.points.SetLabel(i, ids[l])
		}
	}
}

// overlap returns the k×k matrix whose entry (i, j) is the share of the
// weighted density of cluster j+1's members attributable to cluster i+1's
// model, normalised per column. It expects identifiers 1..k, as left by
// rename, and returns nil when there are no clusters.
func (e *Engine) overlap(ctx context.Context) (*mat.Dense, error) {
	clusters := e.clusters()
	k := len(clusters)
	if k == 0 {
		return nil, nil
	}

	logW := make([]float64, k)
	for ci, c := range clusters {
		logW[ci] = math.Log(c.weight())
	}

	m := mat.NewDense(k, k, nil)
	scores := make([]float64, k)
	for i := range e.points.Len() {
		if err := checkCancel(ctx, i); err != nil {
			return nil, err
		}
		j := e.points.Label(i) - 1
		if j < 0 {
			continue
		}
		x, w := e.points.Point(i), e.points.Weight(i)
		for ci, c := range clusters {
			scores[ci] = logW[ci] + c.model.LogDensity(x)
		}
		total := floats.LogSumExp(scores)
		if math.IsInf(total, -1) {
			continue
		}
		for ci, s := range scores {
			m.Set(ci, j, m.At(ci, j)+w*math.Exp(s-total))
		}
	}

	for j := range k {
		col := mat.Col(nil, j, m)
		if sum := floats.Sum(col); sum > 0 {
			floats.Scale(1/sum, col)
			m.SetCol(j, col)
		}
	}
	return m, nil
}
