package clucov

import (
	"math/rand/v2"
	"testing"
)

// bruteNearest is the linear scan the tree must agree with.
func bruteNearest(centers [][]float64, q []float64, metric DistanceMetric) int {
	best := 0
	for k := 1; k < len(centers); k++ {
		if metric.ReducedDistance(q, centers[k]) < metric.ReducedDistance(q, centers[best]) {
			best = k
		}
	}
	return best
}

// --- Construction tests ---

func TestCenterTree_Construction_Permutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	centers, _ := randomPoints(rng, 50, 3)
	tree := newCenterTree(centers, EuclideanMetric{})
	if tree == nil {
		t.Fatal("expected a tree for the Euclidean metric")
	}

	seen := make(map[int]bool)
	for _, v := range tree.idx {
		if v < 0 || v >= len(centers) {
			t.Errorf("idx contains out-of-range index %d", v)
		}
		if seen[v] {
			t.Errorf("idx contains duplicate index %d", v)
		}
		seen[v] = true
	}
	if len(seen) != len(centers) {
		t.Errorf("idx covers %d centers, want %d", len(seen), len(centers))
	}
}

func TestCenterTree_Construction_LeavesRespectSize(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	centers, _ := randomPoints(rng, 100, 2)
	tree := newCenterTree(centers, EuclideanMetric{})

	total := 0
	var walk func(node int)
	walk = func(node int) {
		nd := tree.nodes[node]
		if nd.leaf {
			if nd.end-nd.start > centerLeafSize {
				t.Errorf("leaf %d has %d centers, want <= %d", node, nd.end-nd.start, centerLeafSize)
			}
			total += nd.end - nd.start
			return
		}
		walk(2*node + 1)
		walk(2*node + 2)
	}
	walk(0)
	if total != len(centers) {
		t.Errorf("leaves hold %d centers, want %d", total, len(centers))
	}
}

func TestCenterTree_UnsupportedMetric(t *testing.T) {
	centers := [][]float64{{0, 0}, {1, 1}}
	metric := DistanceFunc(func(a, b []float64) float64 { return 0 })
	if tree := newCenterTree(centers, metric); tree != nil {
		t.Error("expected nil tree for an arbitrary DistanceFunc")
	}
}

// --- Query tests ---

func TestCenterTree_Nearest_MatchesBruteForce(t *testing.T) {
	metrics := map[string]DistanceMetric{
		"euclidean": EuclideanMetric{},
		"manhattan": ManhattanMetric{},
		"chebyshev": ChebyshevMetric{},
	}
	for name, metric := range metrics {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(3, 3))
			for _, dims := range []int{1, 2, 5} {
				centers, _ := randomPoints(rng, 60, dims)
				queries, _ := randomPoints(rng, 300, dims)
				tree := newCenterTree(centers, metric)
				for i, q := range queries {
					got, want := tree.nearest(q), bruteNearest(centers, q, metric)
					if got != want {
						t.Errorf("dims=%d query %d: nearest = %d, want %d", dims, i, got, want)
					}
				}
			}
		})
	}
}

func TestCenterTree_Nearest_TiesGoToLowestIndex(t *testing.T) {
	// Every center appears twice; the first copy must always win.
	var centers [][]float64
	for i := range 20 {
		centers = append(centers, []float64{float64(i), 0})
	}
	for i := range 20 {
		centers = append(centers, []float64{float64(i), 0})
	}
	tree := newCenterTree(centers, EuclideanMetric{})

	for i := range 20 {
		q := []float64{float64(i), 1}
		if got := tree.nearest(q); got != i {
			t.Errorf("nearest(%v) = %d, want %d", q, got, i)
		}
	}
	// Equidistant between centers 3 and 4.
	if got := tree.nearest([]float64{3.5, 0}); got != 3 {
		t.Errorf("nearest(3.5, 0) = %d, want 3", got)
	}
}

func TestNearestCenter_TreeAndScanAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	points, _ := randomPoints(rng, 400, 2)
	ds, err := NewDataset(points, nil)
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(ds, testConfig())
	if err != nil {
		t.Fatal(err)
	}

	centers := randomDistinct(e.rng, len(points), 40)
	labels, err := e.nearestCenter(t.Context(), centers)
	if err != nil {
		t.Fatal(err)
	}
	coords := make([][]float64, len(centers))
	for k, c := range centers {
		coords[k] = points[c]
	}
	for i, p := range points {
		if want := bruteNearest(coords, p, EuclideanMetric{}) + 1; labels[i] != want {
			t.Errorf("point %d: label %d, want %d", i, labels[i], want)
		}
	}
}
