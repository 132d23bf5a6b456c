package clucov

import (
	"slices"
	"strconv"
)

// Cluster is one live Gaussian component of an Engine.
//
// Identifiers come from a per-engine counter and are never reused; a split or
// merge retires its inputs and creates new clusters. The lineage records that
// ancestry: "3" for an initial cluster, "3r"/"3l" for the two halves of a
// split, "(3,5)" for a merge.
type Cluster struct {
	id      int
	lineage string
	summary Summary
	model   *Gaussian

	// plane is the normal of the separating hyperplane found by the last
	// search; nil until the cluster has been through one.
	plane []float64
	// left and right accumulate the members on the negative and non-negative
	// side of plane during an iteration.
	left, right *Accumulator
	// leftMembers and rightMembers count the points on each side, including
	// zero-weight ones, so that split gating agrees with pruning.
	leftMembers, rightMembers int

	members    int
	planeScore float64
	splitScore float64
}

func newCluster(id int, lineage string, s Summary) *Cluster {
	return &Cluster{id: id, lineage: lineage, summary: s, members: s.Count()}
}

func initialLineage(id int) string { return strconv.Itoa(id) }

func mergedLineage(a, b *Cluster) string { return "(" + a.lineage + "," + b.lineage + ")" }

// ID returns the cluster identifier.
func (c *Cluster) ID() int { return c.id }

// Lineage returns the split/merge ancestry string.
func (c *Cluster) Lineage() string { return c.lineage }

// Members returns the current number of member points.
func (c *Cluster) Members() int { return c.members }

// Summary returns the cluster moments.
func (c *Cluster) Summary() Summary { return c.summary }

// Model returns the Gaussian built from the moments at the last refresh.
func (c *Cluster) Model() *Gaussian { return c.model }

// Plane returns a copy of the current separating hyperplane normal, or nil.
func (c *Cluster) Plane() []float64 { return slices.Clone(c.plane) }

// weight is the total weight the cluster competes with during assignment.
func (c *Cluster) weight() float64 { return c.summary.Weight() }
