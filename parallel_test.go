package clucov

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelRange_CoversEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000} {
		for _, workers := range []int{1, 2, 3, 8, 2000} {
			hits := make([]int32, n)
			err := parallelRange(context.Background(), n, workers, func(_ context.Context, start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
				return nil
			})
			require.NoError(t, err)
			for i, h := range hits {
				assert.EqualValues(t, 1, h, "n=%d workers=%d index=%d", n, workers, i)
			}
		}
	}
}

func TestParallelRange_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := parallelRange(context.Background(), 100, 4, func(_ context.Context, start, _ int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallelRange_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := parallelRange(ctx, 5000, 4, func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			if err := checkCancel(ctx, i-start); err != nil {
				return err
			}
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
