package pipeline

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strconv"
	"time"

	"go.viam.com/cadpoints/config"
	"go.viam.com/cadpoints/pointcloud"
)

// Option configures a Converter or a Sampler.
type Option interface {
	apply(*stepOptions)
}

type stepOptions struct {
	timeout    time.Duration
	workers    int
	initFactor int
	seed       *int64
}

func newStepOptions(opts []Option) stepOptions {
	so := stepOptions{
		timeout:    config.DefaultStepTimeout,
		workers:    1,
		initFactor: pointcloud.DefaultInitFactor,
	}
	for _, opt := range opts {
		opt.apply(&so)
	}
	return so
}

type funcOption struct {
	f func(*stepOptions)
}

func (fo *funcOption) apply(so *stepOptions) {
	fo.f(so)
}

func newFuncOption(f func(*stepOptions)) *funcOption {
	return &funcOption{f: f}
}

// WithStepTimeout bounds every single conversion or sampling step. Zero disables the deadline.
func WithStepTimeout(d time.Duration) Option {
	return newFuncOption(func(so *stepOptions) {
		so.timeout = d
	})
}

// WithWorkers sets how many items are processed concurrently. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return newFuncOption(func(so *stepOptions) {
		if n < 1 {
			n = 1
		}
		so.workers = n
	})
}

// WithInitFactor sets the Poisson-disk candidate multiplier. Only the Sampler uses it.
func WithInitFactor(factor int) Option {
	return newFuncOption(func(so *stepOptions) {
		so.initFactor = factor
	})
}

// WithSeed makes sampling deterministic. Only the Sampler uses it.
func WithSeed(seed int64) Option {
	return newFuncOption(func(so *stepOptions) {
		so.seed = &seed
	})
}

func (so stepOptions) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if so.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, so.timeout)
}

// rand returns the random source for one (stem, density) pair. With a seed, every pair gets its
// own stream that does not depend on scheduling order.
func (so stepOptions) rand(stem string, density int) *rand.Rand {
	if so.seed == nil {
		return nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(stem))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.Itoa(density)))
	//nolint:gosec
	return rand.New(rand.NewSource(*so.seed ^ int64(h.Sum64())))
}
