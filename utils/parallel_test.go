package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"
	gutils "go.viam.com/utils"
)

func TestForEachParallel(t *testing.T) {
	for _, workers := range []int{1, 4} {
		var calls atomic.Int32
		errs, err := ForEachParallel(context.Background(), 6, workers, func(ctx context.Context, idx int) error {
			calls.Add(1)
			switch idx {
			case 2:
				return errors.New("bad item")
			case 4:
				panic("pathological input")
			}
			return nil
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, calls.Load(), test.ShouldEqual, int32(6))
		test.That(t, errs, test.ShouldHaveLength, 6)
		for idx, itemErr := range errs {
			switch idx {
			case 2:
				test.That(t, itemErr, test.ShouldBeError, errors.New("bad item"))
			case 4:
				test.That(t, itemErr, test.ShouldNotBeNil)
				test.That(t, itemErr.Error(), test.ShouldContainSubstring, "panic")
			default:
				test.That(t, itemErr, test.ShouldBeNil)
			}
		}
	}
}

func TestForEachParallelRunsConcurrently(t *testing.T) {
	wait100ms := func(ctx context.Context, idx int) error {
		gutils.SelectContextOrWait(ctx, 100*time.Millisecond)
		return ctx.Err()
	}

	start := time.Now()
	errs, err := ForEachParallel(context.Background(), 4, 4, wait100ms)
	test.That(t, err, test.ShouldBeNil)
	for _, itemErr := range errs {
		test.That(t, itemErr, test.ShouldBeNil)
	}
	test.That(t, time.Since(start), test.ShouldBeLessThan, 350*time.Millisecond)
}

func TestForEachParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := ForEachParallel(ctx, 3, 1, func(ctx context.Context, idx int) error {
		calls.Add(1)
		return nil
	})
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, calls.Load(), test.ShouldEqual, int32(0))

	_, err = ForEachParallel(ctx, 3, 2, func(ctx context.Context, idx int) error {
		calls.Add(1)
		return nil
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, calls.Load(), test.ShouldEqual, int32(0))
}
