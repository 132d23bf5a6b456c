package clucov

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Logger narrates an Engine run: initialization, per-iteration cluster sizes,
// prune/split/merge decisions, how the loop stopped and the final overlap
// matrix. The output is informational only.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// LogInit logs the clusters created by initialization.
func (l *Logger) LogInit(ctx context.Context, strategy Strategy, clusters, discarded int) {
	l.InfoContext(ctx, "initialized",
		"strategy", strategy.String(),
		"clusters", clusters,
		"discarded", discarded,
	)
}

// LogIteration logs the outcome of one iteration and, at debug level, the
// size of every live cluster.
func (l *Logger) LogIteration(ctx context.Context, st IterationStats, clusters []*Cluster) {
	l.InfoContext(ctx, "iteration",
		"iteration", st.Iteration,
		"clusters", len(clusters),
		"changed", st.Changed,
		"pruned", st.Pruned,
		"splits", st.Splits,
		"merges", st.Merges,
		"significant", st.Significant,
	)
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for _, c := range clusters {
		l.DebugContext(ctx, "cluster",
			"id", c.id,
			"lineage", c.lineage,
			"members", c.members,
			"weight", c.weight(),
		)
	}
}

// LogPrune logs the removal of a cluster with too few members.
func (l *Logger) LogPrune(ctx context.Context, c *Cluster) {
	l.InfoContext(ctx, "cluster pruned",
		"id", c.id,
		"lineage", c.lineage,
		"members", c.members,
	)
}

// LogSplit logs the replacement of parent by right and left.
func (l *Logger) LogSplit(ctx context.Context, parent, right, left *Cluster, score float64) {
	l.InfoContext(ctx, "cluster split",
		"id", parent.id,
		"lineage", parent.lineage,
		"score", score,
		"right", right.id,
		"right_members", right.members,
		"left", left.id,
		"left_members", left.members,
	)
}

// LogMerge logs the replacement of a and b by merged.
func (l *Logger) LogMerge(ctx context.Context, a, b, merged *Cluster, score float64) {
	l.InfoContext(ctx, "clusters merged",
		"a", a.id,
		"b", b.id,
		"score", score,
		"id", merged.id,
		"lineage", merged.lineage,
		"members", merged.members,
	)
}

// LogStop logs why the refinement loop ended. Hitting the iteration cap is
// logged as a warning to tell it apart from convergence.
func (l *Logger) LogStop(ctx context.Context, reason StopReason, iterations int) {
	if reason == StopMaxIterations {
		l.WarnContext(ctx, "iteration limit reached before convergence",
			"iterations", iterations,
		)
		return
	}
	l.InfoContext(ctx, "refinement stopped",
		"reason", reason.String(),
		"iterations", iterations,
	)
}

// LogOverlap logs the overlap matrix one row per message.
func (l *Logger) LogOverlap(ctx context.Context, overlap *mat.Dense) {
	if overlap == nil {
		return
	}
	r, c := overlap.Dims()
	for i := range r {
		var b strings.Builder
		for j := range c {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.4f", overlap.At(i, j))
		}
		l.InfoContext(ctx, "overlap", "cluster", i+1, "row", b.String())
	}
}
