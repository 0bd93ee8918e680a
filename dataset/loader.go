package dataset

import (
	"context"
	"io"
	"math/rand"

	"github.com/pkg/errors"

	"go.viam.com/cadpoints/utils"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithShuffle visits the samples in a fresh random order every epoch.
func WithShuffle(seed int64) LoaderOption {
	return func(l *Loader) {
		//nolint:gosec
		l.rng = rand.New(rand.NewSource(seed))
	}
}

// WithPrefetch reads up to workers samples of a batch concurrently.
func WithPrefetch(workers int) LoaderOption {
	return func(l *Loader) {
		if workers < 1 {
			workers = 1
		}
		l.workers = workers
	}
}

// WithDropLast skips a final batch that would be smaller than the batch size.
func WithDropLast() LoaderOption {
	return func(l *Loader) {
		l.dropLast = true
	}
}

// Loader iterates a dataset in batches. It is not safe for concurrent use.
type Loader struct {
	ds        *IndexedDataset
	batchSize int
	rng       *rand.Rand
	workers   int
	dropLast  bool

	order []int
	pos   int
}

// NewLoader returns a loader positioned at the start of the first epoch.
func NewLoader(ds *IndexedDataset, batchSize int, opts ...LoaderOption) (*Loader, error) {
	if batchSize < 1 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	l := &Loader{ds: ds, batchSize: batchSize, workers: 1}
	for _, opt := range opts {
		opt(l)
	}
	l.Reset()
	return l, nil
}

// NumBatches returns how many batches an epoch yields.
func (l *Loader) NumBatches() int {
	n := l.ds.Len()
	if l.dropLast {
		return n / l.batchSize
	}
	return (n + l.batchSize - 1) / l.batchSize
}

// Reset starts a new epoch.
func (l *Loader) Reset() {
	l.order = make([]int, l.ds.Len())
	for i := range l.order {
		l.order[i] = i
	}
	if l.rng != nil {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.pos = 0
}

// Next loads and collates the next batch. It returns io.EOF once the epoch is exhausted.
func (l *Loader) Next(ctx context.Context) (*Batch, error) {
	remaining := len(l.order) - l.pos
	if remaining <= 0 || (l.dropLast && remaining < l.batchSize) {
		return nil, io.EOF
	}
	n := l.batchSize
	if remaining < n {
		n = remaining
	}
	indices := l.order[l.pos : l.pos+n]

	items := make([]Item, n)
	if _, err := utils.ForEachParallel(ctx, n, l.workers, func(ctx context.Context, i int) error {
		items[i] = l.ds.Get(indices[i])
		return nil
	}); err != nil {
		return nil, err
	}
	l.pos += n
	return Collate(items)
}
