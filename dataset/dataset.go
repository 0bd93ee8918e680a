// Package dataset reads one density bucket of a built dataset as an indexed collection of labeled
// point clouds, and batches them into tensors.
package dataset

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/cadpoints/config"
	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
	"go.viam.com/cadpoints/pointcloud"
)

// Sample is one entry of the index.
type Sample struct {
	Path    string
	Label   string
	Density int
	ID      int64
}

// Item is the result of loading one sample. A failed load has a nil Points and a non-nil Err.
type Item struct {
	Index  int
	Points *pointcloud.PointCloud
	Label  string
	ID     int64
	Err    error
}

// OK reports whether the item loaded.
func (it Item) OK() bool {
	return it.Err == nil && it.Points != nil
}

// Option configures an IndexedDataset.
type Option func(*IndexedDataset)

// WithLabelEncoder replaces the encoder the config selects.
func WithLabelEncoder(enc LabelEncoder) Option {
	return func(ds *IndexedDataset) {
		ds.encoder = enc
	}
}

// IndexedDataset is a read-only index over the point clouds of a single density bucket. Points are
// read from disk on every Get and never cached. It is safe for concurrent use.
type IndexedDataset struct {
	root    string
	bucket  string
	density int
	samples []Sample
	encoder LabelEncoder
	logger  logging.Logger
}

// New scans the bucket cfg names, once, in lexical order. Entries that the naming policy would
// not have written are skipped. Labels are encoded up front so that an unencodable stem fails here
// with a *LabelError instead of during batching.
func New(cfg config.Dataset, logger logging.Logger, opts ...Option) (*IndexedDataset, error) {
	if err := cfg.Validate("dataset"); err != nil {
		return nil, err
	}
	lay := cfg.Layout()
	ds := &IndexedDataset{
		root:    cfg.Root,
		bucket:  lay.BucketDir(cfg.Density),
		density: cfg.Density,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(ds)
	}
	if ds.encoder == nil {
		enc, err := NewLabelEncoder(cfg)
		if err != nil {
			return nil, err
		}
		ds.encoder = enc
	}

	entries, err := os.ReadDir(ds.bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read density bucket %q", ds.bucket)
	}
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(ds.bucket, name)
		if asset, ok := layout.Classify(path); !ok || asset.Kind != layout.KindPointCloud {
			logger.Debugw("skipping entry", "path", path)
			continue
		}
		stem, ok := lay.Naming.ParseFileName(name, cfg.Density)
		if !ok {
			logger.Debugw("skipping entry", "path", path)
			continue
		}
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			logger.Debugw("skipping non-regular entry", "path", path)
			continue
		}
		ds.samples = append(ds.samples, Sample{Path: path, Label: stem, Density: cfg.Density, ID: NoID})
	}

	if err := ds.encoder.Fit(ds.Labels()); err != nil {
		var labelErr *LabelError
		if errors.As(err, &labelErr) {
			return nil, labelErr
		}
		return nil, &LabelError{Labels: lo.Uniq(ds.Labels()), Err: err}
	}
	for i := range ds.samples {
		id, err := ds.encoder.Encode(ds.samples[i].Label)
		if err != nil {
			return nil, &LabelError{Labels: []string{ds.samples[i].Label}, Err: err}
		}
		ds.samples[i].ID = id
	}
	logger.Infow("indexed dataset", "bucket", ds.bucket, "samples", len(ds.samples))
	return ds, nil
}

// Len returns the number of samples.
func (ds *IndexedDataset) Len() int {
	return len(ds.samples)
}

// Density returns the bucket density.
func (ds *IndexedDataset) Density() int {
	return ds.density
}

// Root returns the dataset root the bucket lives under.
func (ds *IndexedDataset) Root() string {
	return ds.root
}

// Encoder returns the label encoder.
func (ds *IndexedDataset) Encoder() LabelEncoder {
	return ds.encoder
}

// Labels returns the label of every sample in index order.
func (ds *IndexedDataset) Labels() []string {
	return lo.Map(ds.samples, func(s Sample, _ int) string { return s.Label })
}

// Sample returns the metadata of sample i.
func (ds *IndexedDataset) Sample(i int) (Sample, error) {
	if i < 0 || i >= len(ds.samples) {
		return Sample{}, errors.Errorf("index %d out of range [0, %d)", i, len(ds.samples))
	}
	return ds.samples[i], nil
}

// Get reads sample i from disk. Failures are returned inside the Item and logged.
func (ds *IndexedDataset) Get(i int) Item {
	s, err := ds.Sample(i)
	if err != nil {
		return Item{Index: i, ID: NoID, Err: &DatasetLoadError{Index: i, Err: err}}
	}
	pc, err := pointcloud.ReadPLYFile(s.Path)
	if err == nil && pc.Size() == 0 {
		err = errors.New("point cloud is empty")
	}
	if err != nil {
		ds.logger.Warnw("cannot load point cloud", "index", i, "path", s.Path, "error", err)
		return Item{Index: i, Label: s.Label, ID: s.ID, Err: &DatasetLoadError{Index: i, Path: s.Path, Err: err}}
	}
	return Item{Index: i, Points: pc, Label: s.Label, ID: s.ID}
}
