package clucov

import (
	"cmp"
	"math"
	"slices"
)

// centerLeafSize is the maximum number of centers per leaf of a centerTree.
// Center sets no larger than this are scanned linearly.
const centerLeafSize = 8

// treeNode describes a single node of a centerTree.
type treeNode struct {
	start, end int
	leaf       bool
}

// centerTree is a KD-tree over the provisional centers of an initialization,
// answering nearest-center queries. Centers are stored in a flat row-major
// array and reordered internally via an index permutation.
//
// The tree is stored as a binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - node bounds are stored as min/max per dimension per node
type centerTree struct {
	data   []float64 // flat row-major center coordinates
	dims   int
	metric DistanceMetric
	idx    []int // permutation: tree-order position → center index
	nodes  []treeNode
	// lo[node*dims + j] = min value of feature j in node
	lo []float64
	// hi[node*dims + j] = max value of feature j in node
	hi []float64
}

// newCenterTree builds a KD-tree over centers. It returns nil when the metric
// has no axis-aligned lower bound, in which case callers scan linearly.
func newCenterTree(centers [][]float64, metric DistanceMetric) *centerTree {
	switch metric.(type) {
	case EuclideanMetric, ManhattanMetric, ChebyshevMetric:
	default:
		return nil
	}
	n := len(centers)
	if n == 0 {
		return nil
	}
	dims := len(centers[0])

	t := &centerTree{
		data:   make([]float64, 0, n*dims),
		dims:   dims,
		metric: metric,
		idx:    make([]int, n),
	}
	for i, c := range centers {
		t.data = append(t.data, c...)
		t.idx[i] = i
	}
	size := treeSize(n)
	t.nodes = make([]treeNode, size)
	t.lo = make([]float64, size*dims)
	t.hi = make([]float64, size*dims)
	t.build(0, 0, n)
	return t
}

// treeSize returns an upper bound on the number of nodes needed for n
// centers.
func treeSize(n int) int {
	leaves := (n + centerLeafSize - 1) / centerLeafSize
	depth, v := 0, 1
	for v < leaves {
		v *= 2
		depth++
	}
	return (1 << (depth + 1)) - 1 + 2
}

// build recursively builds the subtree for centers idx[start:end].
func (t *centerTree) build(node, start, end int) {
	for node >= len(t.nodes) {
		t.nodes = append(t.nodes, treeNode{})
		t.lo = append(t.lo, make([]float64, t.dims)...)
		t.hi = append(t.hi, make([]float64, t.dims)...)
	}

	base := node * t.dims
	for j := range t.dims {
		t.lo[base+j] = math.Inf(1)
		t.hi[base+j] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		c := t.center(t.idx[i])
		for j, v := range c {
			t.lo[base+j] = math.Min(t.lo[base+j], v)
			t.hi[base+j] = math.Max(t.hi[base+j], v)
		}
	}

	if end-start <= centerLeafSize {
		t.nodes[node] = treeNode{start: start, end: end, leaf: true}
		return
	}

	// Split at the median of the dimension with the greatest spread.
	split, spread := 0, -1.0
	for j := range t.dims {
		if s := t.hi[base+j] - t.lo[base+j]; s > spread {
			split, spread = j, s
		}
	}
	slices.SortFunc(t.idx[start:end], func(a, b int) int {
		return cmp.Compare(t.data[a*t.dims+split], t.data[b*t.dims+split])
	})
	mid := start + (end-start)/2

	t.nodes[node] = treeNode{start: start, end: end}
	t.build(2*node+1, start, mid)
	t.build(2*node+2, mid, end)
}

func (t *centerTree) center(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}

// nearest returns the index of the center closest to q under the tree's
// metric. Ties go to the lowest center index.
func (t *centerTree) nearest(q []float64) int {
	best, bestDist := -1, math.Inf(1)
	t.search(0, q, &best, &bestDist)
	return best
}

func (t *centerTree) search(node int, q []float64, best *int, bestDist *float64) {
	nd := t.nodes[node]
	if nd.leaf {
		for i := nd.start; i < nd.end; i++ {
			c := t.idx[i]
			d := t.metric.ReducedDistance(q, t.center(c))
			if d < *bestDist || (d == *bestDist && c < *best) {
				*best, *bestDist = c, d
			}
		}
		return
	}

	near, far := 2*node+1, 2*node+2
	nearBound, farBound := t.minReduced(near, q), t.minReduced(far, q)
	if farBound < nearBound {
		near, far = far, near
		nearBound, farBound = farBound, nearBound
	}
	// Bounds equal to the best distance are still visited so that ties
	// resolve to the lowest index.
	if nearBound <= *bestDist {
		t.search(near, q, best, bestDist)
	}
	if farBound <= *bestDist {
		t.search(far, q, best, bestDist)
	}
}

// minReduced returns a lower bound, in reduced-distance space, on the
// distance between q and any center in node.
func (t *centerTree) minReduced(node int, q []float64) float64 {
	base := node * t.dims
	var bound float64
	for j, v := range q {
		var gap float64
		if lo := t.lo[base+j]; v < lo {
			gap = lo - v
		} else if hi := t.hi[base+j]; v > hi {
			gap = v - hi
		}
		switch t.metric.(type) {
		case EuclideanMetric:
			bound += gap * gap
		case ChebyshevMetric:
			bound = math.Max(bound, gap)
		default:
			bound += gap
		}
	}
	return bound
}
