package clucov

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
)

// Engine refines a partition of a PointSet into Gaussian clusters.
//
// An Engine owns its point set's labels and its cluster collection for the
// duration of a run and is not safe for concurrent use; independent engines
// share no state. Given the same seed and input a run is fully reproducible,
// whatever Config.Workers is.
type Engine struct {
	cfg    Config
	points PointSet
	rng    *rand.Rand
	log    *Logger

	alive     map[int]*Cluster
	nextID    int
	iteration int
	ready     bool

	// normals are the candidate hyperplane normals of the current iteration.
	normals [][]float64
	// left[i] records on which side of its cluster's plane point i fell.
	left []bool
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets the progress reporter. The default discards everything.
func WithLogger(l *Logger) Option {
	return func(e *Engine) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidArgument)
		}
		e.log = l
		return nil
	}
}

// WithRand sets the random source used for seeds and hyperplane directions,
// replacing the PCG source seeded from Config.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) error {
		if rng == nil {
			return fmt.Errorf("%w: nil random source", ErrInvalidArgument)
		}
		e.rng = rng
		return nil
	}
}

// New returns an Engine over points. Call Initialize before Run.
func New(points PointSet, cfg Config, opts ...Option) (*Engine, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if points == nil || points.Len() == 0 || points.Dim() == 0 {
		return nil, fmt.Errorf("%w: empty point set", ErrInvalidArgument)
	}

	e := &Engine{
		cfg:    cfg,
		points: points,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		log:    NoopLogger(),
		alive:  make(map[int]*Cluster),
		nextID: 1,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Initialize builds the initial clusters from the groups strategy produces.
// Groups with fewer than Config.MinMembers points are discarded and their
// points reset to 0; the rest become clusters 1..k in order of discovery.
// Any previous state of the engine is dropped.
func (e *Engine) Initialize(ctx context.Context, strategy Strategy) error {
	if strategy == nil {
		return fmt.Errorf("%w: nil strategy", ErrInvalidConfig)
	}
	provisional, err := strategy.provisionalLabels(ctx, e)
	if err != nil {
		return err
	}
	for i, l := range provisional {
		e.points.SetLabel(i, l)
	}

	groups, err := e.points.GroupMoments()
	if err != nil {
		return err
	}
	if len(groups) > e.cfg.MaxClusters {
		return fmt.Errorf("%w: %d initial groups exceed MaxClusters=%d", ErrInvalidConfig, len(groups), e.cfg.MaxClusters)
	}

	e.alive = make(map[int]*Cluster, len(groups))
	e.nextID = 1
	e.iteration = 0
	ids := make(map[int]int, len(groups))
	discarded := 0
	for _, g := range groups {
		size := len(e.points.IndicesOfGroup(g.Label))
		if size < e.cfg.MinMembers {
			discarded++
			continue
		}
		c := e.addCluster("", g.Summary)
		c.lineage = initialLineage(c.id)
		c.members = size
		ids[g.Label] = c.id
	}
	for i, l := range provisional {
		if l != 0 {
			e.points.SetLabel(i, ids[l])
		}
	}

	if err := e.refreshModels(); err != nil {
		return err
	}
	e.ready = true
	e.log.LogInit(ctx, strategy, len(e.alive), discarded)
	return nil
}

// IterationStats describes one refinement iteration.
type IterationStats struct {
	Iteration int
	// Changed is the number of points whose label changed during assignment.
	Changed int
	Pruned  int
	Splits  int
	Merges  int
	// TooFewClusters is set when fewer than two clusters were alive; the
	// iteration then did nothing else.
	TooFewClusters bool
	// Significant reports whether the iteration changed enough to warrant
	// another one.
	Significant bool
}

// Iterate runs one refinement iteration: assignment and hyperplane search,
// pruning, partition accumulation, split and merge evaluation, and model
// refresh.
func (e *Engine) Iterate(ctx context.Context) (IterationStats, error) {
	if !e.ready {
		return IterationStats{}, ErrNotInitialized
	}
	st := IterationStats{Iteration: e.iteration + 1}

	changed, err := e.findPlanes(ctx)
	if err != nil {
		return st, err
	}
	if changed < 0 {
		// Nothing was done, so the iteration does not count.
		st.Iteration = e.iteration
		st.TooFewClusters = true
		return st, nil
	}
	e.iteration = st.Iteration
	st.Changed = changed
	st.Pruned = e.removeSmall(ctx)
	if err := e.calculateMoments(ctx); err != nil {
		return st, err
	}
	if st.Splits, err = e.split(ctx); err != nil {
		return st, err
	}
	if st.Merges, err = e.combine(ctx); err != nil {
		return st, err
	}
	if err := e.refreshModels(); err != nil {
		return st, err
	}

	st.Significant = st.Changed > e.cfg.FewChanges ||
		st.Pruned > 0 || st.Splits > 0 || st.Merges > 0 ||
		st.Iteration == 1
	e.log.LogIteration(ctx, st, e.clusters())
	return st, nil
}

// Run iterates until an iteration makes no significant change, fewer than two
// clusters remain, or Config.MaxIterations is reached. It then reassigns
// every point with the final models, renumbers clusters 1..k by decreasing
// size and computes the overlap matrix.
//
// The final reassignment drops clusters left without members but does not
// prune, so a final cluster may have fewer than Config.MinMembers members.
// Result.Iterations counts only iterations that ran past the assignment
// step; a run that starts with fewer than two clusters reports 0.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.ready {
		return nil, ErrNotInitialized
	}

	stop := StopMaxIterations
	for e.iteration < e.cfg.MaxIterations {
		st, err := e.Iterate(ctx)
		if err != nil {
			return nil, err
		}
		if st.TooFewClusters {
			stop = StopTooFewClusters
			break
		}
		if !st.Significant {
			stop = StopConverged
			break
		}
	}
	e.log.LogStop(ctx, stop, e.iteration)

	if err := e.finalize(ctx); err != nil {
		return nil, err
	}
	e.rename()
	overlap, err := e.overlap(ctx)
	if err != nil {
		return nil, err
	}
	e.log.LogOverlap(ctx, overlap)

	labels := make([]int, e.points.Len())
	for i := range labels {
		labels[i] = e.points.Label(i)
	}
	return &Result{
		Labels:     labels,
		Clusters:   e.clusters(),
		Overlap:    overlap,
		Iterations: e.iteration,
		Stop:       stop,
	}, nil
}

// Clusters returns the live clusters in ascending identifier order.
func (e *Engine) Clusters() []*Cluster { return e.clusters() }

// Iteration returns the number of iterations performed so far.
func (e *Engine) Iteration() int { return e.iteration }

// clusters returns the live clusters in ascending identifier order, which is
// also the order in which they were created.
func (e *Engine) clusters() []*Cluster {
	out := make([]*Cluster, 0, len(e.alive))
	for _, id := range slices.Sorted(maps.Keys(e.alive)) {
		out = append(out, e.alive[id])
	}
	return out
}

// addCluster registers a new live cluster under the next identifier.
func (e *Engine) addCluster(lineage string, s Summary) *Cluster {
	c := newCluster(e.nextID, lineage, s)
	e.nextID++
	e.alive[c.id] = c
	return c
}

// refreshModels rebuilds every live cluster's Gaussian from its moments.
func (e *Engine) refreshModels() error {
	for _, c := range e.clusters() {
		g, err := c.summary.Gaussian()
		if err != nil {
			return fmt.Errorf("cluster %d (%s): %w", c.id, c.lineage, err)
		}
		c.model = g
	}
	return nil
}
