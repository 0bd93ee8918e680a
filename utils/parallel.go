package utils

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ItemFunc handles one work item. An error returned from it is that item's failure; it does not
// stop the other items.
type ItemFunc func(ctx context.Context, idx int) error

// ForEachParallel calls fn for every index in [0, n) with at most workers calls in flight.
// workers <= 0 means ParallelFactor, and workers == 1 runs the items in order on the calling
// goroutine. A panic inside fn is recovered and reported as that item's error. Per-item errors are
// collected into the returned slice (nil entries for successes); the returned error is only set
// when ctx is done before every item was started.
func ForEachParallel(ctx context.Context, n, workers int, fn ItemFunc) ([]error, error) {
	errs := make([]error, n)
	if workers <= 0 {
		workers = ParallelFactor
	}

	run := func(ctx context.Context, idx int) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				errs[idx] = fmt.Errorf("got panic running item %d: %v", idx, thePanic)
			}
		}()
		errs[idx] = fn(ctx, idx)
	}

	if workers == 1 {
		for idx := 0; idx < n; idx++ {
			if err := ctx.Err(); err != nil {
				return errs, err
			}
			run(ctx, idx)
		}
		return errs, nil
	}

	var canceled error
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for idx := 0; idx < n; idx++ {
		if err := groupCtx.Err(); err != nil {
			canceled = err
			break
		}
		idx := idx
		group.Go(func() error {
			run(groupCtx, idx)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return errs, err
	}
	return errs, canceled
}
