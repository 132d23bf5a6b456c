package clucov

import (
	"context"
	"fmt"
)

// removeSmall deletes every cluster with fewer than Config.MinMembers
// members and resets their points to 0.
func (e *Engine) removeSmall(ctx context.Context) int {
	pruned := 0
	for _, c := range e.clusters() {
		if c.members >= e.cfg.MinMembers {
			continue
		}
		for _, i := range e.points.IndicesOfGroup(c.id) {
			e.points.SetLabel(i, 0)
		}
		delete(e.alive, c.id)
		pruned++
		e.log.LogPrune(ctx, c)
	}
	return pruned
}

// calculateMoments accumulates the members of every cluster into its left
// (negative) or right (non-negative) side of the cluster's hyperplane.
func (e *Engine) calculateMoments(ctx context.Context) error {
	dim := e.points.Dim()
	for _, c := range e.alive {
		c.left = NewAccumulator(dim)
		c.right = NewAccumulator(dim)
		c.leftMembers, c.rightMembers = 0, 0
	}

	n := e.points.Len()
	if len(e.left) != n {
		e.left = make([]bool, n)
	}
	for i := range n {
		if err := checkCancel(ctx, i); err != nil {
			return err
		}
		c, ok := e.alive[e.points.Label(i)]
		if !ok {
			continue
		}
		x := e.points.Point(i)
		side := c.right
		e.left[i] = centeredDot(x, c.summary.mean, c.plane) < 0
		if e.left[i] {
			side = c.left
			c.leftMembers++
		} else {
			c.rightMembers++
		}
		if err := side.Update(x, e.points.Weight(i)); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// split replaces every cluster whose two sides are separated by a valley
// deeper than Config.SplitThreshold with one cluster per side, provided both
// sides keep Config.MinMembers members and Config.MaxClusters is respected.
// Members are counted the way pruning counts them, zero-weight points
// included.
// Surviving clusters get their moments recomputed from the two sides.
func (e *Engine) split(ctx context.Context) (int, error) {
	splits := 0
	for _, c := range e.clusters() {
		left, right := c.left.Finalize(), c.right.Finalize()
		c.left, c.right = nil, nil

		score, err := Separation(right, left)
		if err != nil {
			return splits, fmt.Errorf("cluster %d (%s): %w", c.id, c.lineage, err)
		}
		c.splitScore = score

		if !(score < e.cfg.SplitThreshold) ||
			c.leftMembers < e.cfg.MinMembers || c.rightMembers < e.cfg.MinMembers ||
			len(e.alive)+1 > e.cfg.MaxClusters {
			merged, err := Combine(right, left)
			if err != nil {
				return splits, err
			}
			c.summary = merged
			continue
		}

		r := e.addCluster(c.lineage+"r", right)
		l := e.addCluster(c.lineage+"l", left)
		r.members, l.members = 0, 0
		for _, i := range e.points.IndicesOfGroup(c.id) {
			side := r
			if e.left[i] {
				side = l
			}
			side.members++
			e.points.SetLabel(i, side.id)
		}
		delete(e.alive, c.id)
		splits++
		e.log.LogSplit(ctx, c, r, l, score)
	}
	return splits, nil
}

// combine greedily merges the pair of clusters with the highest separation
// statistic while it exceeds Config.MergeThreshold. Pairs are visited in
// identifier order and ties keep the first pair found.
func (e *Engine) combine(ctx context.Context) (int, error) {
	// Identifiers are never reused, so scores of retired pairs go stale
	// without ever being looked up again.
	scores := make(map[[2]int]float64)
	merges := 0
	for {
		clusters := e.clusters()
		var a, b *Cluster
		best := e.cfg.MergeThreshold
		for i, ci := range clusters {
			for _, cj := range clusters[i+1:] {
				key := [2]int{ci.id, cj.id}
				s, ok := scores[key]
				if !ok {
					var err error
					if s, err = Separation(ci.summary, cj.summary); err != nil {
						return merges, err
					}
					scores[key] = s
				}
				if s > best {
					a, b, best = ci, cj, s
				}
			}
		}
		if a == nil {
			return merges, nil
		}

		s, err := Combine(a.summary, b.summary)
		if err != nil {
			return merges, err
		}
		m := e.addCluster(mergedLineage(a, b), s)
		m.members = a.members + b.members
		for _, old := range []*Cluster{a, b} {
			for _, i := range e.points.IndicesOfGroup(old.id) {
				e.points.SetLabel(i, m.id)
			}
			delete(e.alive, old.id)
		}
		merges++
		e.log.LogMerge(ctx, a, b, m, best)
	}
}
