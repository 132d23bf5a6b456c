package clucov

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many points a loop processes between checks of
// its context.
const cancelCheckInterval = 1024

// parallelRange splits [0, n) into contiguous ranges, one per worker, and runs
// fn on every range concurrently. If workers <= 1 it runs fn once over the
// whole range on the calling goroutine.
//
// Each range is handled by exactly one goroutine, so fn may write to
// per-index slots of shared slices without synchronization. The first error
// cancels the context passed to the remaining calls.
func parallelRange(ctx context.Context, n, workers int, fn func(ctx context.Context, start, end int) error) error {
	if workers <= 1 || n <= 1 {
		return fn(ctx, 0, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		if start >= n {
			break
		}
		end := min(start+rowsPerWorker, n)
		g.Go(func() error { return fn(gctx, start, end) })
	}

	return g.Wait()
}

// checkCancel returns ctx.Err() every cancelCheckInterval iterations.
func checkCancel(ctx context.Context, i int) error {
	if i%cancelCheckInterval == 0 {
		return ctx.Err()
	}
	return nil
}
