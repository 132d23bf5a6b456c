package clucov

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// PointSet is the weighted, labelled point cloud an Engine clusters.
//
// Labels are cluster identifiers; 0 means unassigned (background). Point,
// Weight and Label must be safe for concurrent use by multiple goroutines as
// long as no SetLabel call runs at the same time.
type PointSet interface {
	// Dim returns the dimension D of every point.
	Dim() int
	// Len returns the number of points N.
	Len() int
	// Point returns the coordinates of point i. Callers must not modify it.
	Point(i int) []float64
	// Weight returns the non-negative weight of point i.
	Weight(i int) float64
	// Label returns the cluster label of point i.
	Label(i int) int
	// SetLabel changes the cluster label of point i.
	SetLabel(i, label int)
	// Groups returns the distinct non-zero labels in order of first appearance.
	Groups() []int
	// GroupMoments returns the moments of every group, in Groups order.
	GroupMoments() ([]GroupMoments, error)
	// IndicesOfGroup returns the ascending indices of the points labelled label.
	IndicesOfGroup(label int) []int
}

// GroupMoments pairs a label with the moments of the points carrying it.
type GroupMoments struct {
	Label   int
	Summary Summary
}

// Dataset is an in-memory PointSet. Points are stored flat in row-major order
// and the members of every label are indexed by a roaring bitmap, so group
// queries cost time proportional to the group, not to N.
type Dataset struct {
	dim     int
	data    []float64
	weights []float64
	labels  []int
	members map[int]*roaring.Bitmap
}

// NewDataset copies points into a Dataset with all labels 0. A nil weights
// slice gives every point weight 1. All points must have the same, non-zero
// dimension; weights must be finite and non-negative.
func NewDataset(points [][]float64, weights []float64) (*Dataset, error) {
	n := len(points)
	if uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d points exceed the supported maximum", ErrInvalidArgument, n)
	}
	if weights != nil {
		if err := checkDim(n, len(weights)); err != nil {
			return nil, err
		}
	}
	ds := &Dataset{
		labels:  make([]int, n),
		weights: make([]float64, n),
		members: make(map[int]*roaring.Bitmap),
	}
	if n == 0 {
		return ds, nil
	}

	ds.dim = len(points[0])
	if ds.dim == 0 {
		return nil, fmt.Errorf("%w: points must have at least one dimension", ErrInvalidArgument)
	}
	ds.data = make([]float64, n*ds.dim)
	for i, p := range points {
		if err := checkDim(ds.dim, len(p)); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		for j, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: point %d has non-finite coordinate %d", ErrInvalidArgument, i, j)
			}
		}
		copy(ds.data[i*ds.dim:], p)

		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: point %d has invalid weight %v", ErrInvalidArgument, i, w)
		}
		ds.weights[i] = w
	}
	return ds, nil
}

func (ds *Dataset) Dim() int { return ds.dim }

func (ds *Dataset) Len() int { return len(ds.labels) }

func (ds *Dataset) Point(i int) []float64 {
	return ds.data[i*ds.dim : (i+1)*ds.dim : (i+1)*ds.dim]
}

func (ds *Dataset) Weight(i int) float64 { return ds.weights[i] }

func (ds *Dataset) Label(i int) int { return ds.labels[i] }

func (ds *Dataset) SetLabel(i, label int) {
	old := ds.labels[i]
	if old == label {
		return
	}
	if bm, ok := ds.members[old]; ok {
		bm.Remove(uint32(i))
		if bm.IsEmpty() {
			delete(ds.members, old)
		}
	}
	if label != 0 {
		bm, ok := ds.members[label]
		if !ok {
			bm = roaring.New()
			ds.members[label] = bm
		}
		bm.Add(uint32(i))
	}
	ds.labels[i] = label
}

// Labels returns a copy of all labels.
func (ds *Dataset) Labels() []int { return slices.Clone(ds.labels) }

// GroupSize returns the number of points labelled label; 0 counts nothing.
func (ds *Dataset) GroupSize(label int) int {
	if bm, ok := ds.members[label]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

func (ds *Dataset) Groups() []int {
	groups := make([]int, 0, len(ds.members))
	for label := range ds.members {
		groups = append(groups, label)
	}
	slices.SortFunc(groups, func(a, b int) int {
		return cmp.Compare(ds.members[a].Minimum(), ds.members[b].Minimum())
	})
	return groups
}

func (ds *Dataset) GroupMoments() ([]GroupMoments, error) {
	groups := ds.Groups()
	out := make([]GroupMoments, 0, len(groups))
	for _, label := range groups {
		acc := NewAccumulator(ds.dim)
		it := ds.members[label].Iterator()
		for it.HasNext() {
			i := int(it.Next())
			if err := acc.Update(ds.Point(i), ds.weights[i]); err != nil {
				return nil, err
			}
		}
		out = append(out, GroupMoments{Label: label, Summary: acc.Finalize()})
	}
	return out, nil
}

func (ds *Dataset) IndicesOfGroup(label int) []int {
	bm, ok := ds.members[label]
	if !ok {
		return nil
	}
	idx := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		idx = append(idx, int(it.Next()))
	}
	return idx
}
