// Package pipeline builds point-cloud datasets from CAD exchange files. Sources are meshed into
// <root>/stl, then every mesh is sampled into one <root>/ply/<N> bucket per density N. A bad
// source or a bad (mesh, density) pair is reported and skipped; only directory failures and
// cancellation stop a build.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/cadpoints/config"
	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
)

// Organizer runs the whole build described by a pipeline config.
type Organizer struct {
	cfg       config.Pipeline
	layout    layout.Layout
	densities []int
	converter *Converter
	sampler   *Sampler
	logger    logging.Logger
}

// NewOrganizer validates cfg and returns an organizer for it. A nil mesher means gmsh as
// configured by cfg.Gmsh.
func NewOrganizer(cfg config.Pipeline, mesher Mesher, logger logging.Logger) (*Organizer, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}
	if mesher == nil {
		mesher = NewGmshMesher(&cfg, logger.Sublogger("gmsh"))
	}
	opts := []Option{
		WithStepTimeout(cfg.Timeout()),
		WithWorkers(cfg.WorkerCount()),
		WithInitFactor(cfg.CandidateFactor()),
	}
	if cfg.Seed != nil {
		opts = append(opts, WithSeed(*cfg.Seed))
	}
	return &Organizer{
		cfg:       cfg,
		layout:    cfg.Layout(),
		densities: lo.Uniq(cfg.Densities),
		converter: NewConverter(mesher, logger.Sublogger("convert"), opts...),
		sampler:   NewSampler(logger.Sublogger("sample"), opts...),
		logger:    logger,
	}, nil
}

// Layout returns where the build writes.
func (o *Organizer) Layout() layout.Layout {
	return o.layout
}

// Run converts every source and samples every mesh this run produced at every density. Running
// it again over the same output root overwrites files in place.
func (o *Organizer) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	rr := &RunReport{RunID: uuid.New(), Layout: o.layout, Densities: o.densities}
	logger := o.logger
	logger.Infow("starting build",
		"run_id", rr.RunID.String(),
		"input", o.cfg.InputDir,
		"output", o.layout.Root,
		"densities", o.densities)

	meshDir, err := o.layout.EnsureMeshDir()
	if err != nil {
		return rr, &DirectoryError{Path: meshDir, Err: err}
	}
	rr.Conversion, err = o.converter.ConvertDir(ctx, o.cfg.InputDir, meshDir)
	if err != nil {
		return rr, err
	}

	// Stale meshes left by earlier runs are not sampled.
	rr.Sampling, err = o.sampler.SampleMeshes(ctx, rr.Conversion.Paths(), o.layout, o.densities)
	if err != nil {
		return rr, err
	}

	rr.Elapsed = time.Since(start)
	logger.Infow("build finished",
		"run_id", rr.RunID.String(),
		"meshes", rr.Conversion.SuccessCount(),
		"clouds", rr.Sampling.SuccessCount(),
		"failures", len(rr.Failures()),
		"elapsed", units.HumanDuration(rr.Elapsed))
	logger.Debugf("build summary\n%s", rr)
	return rr, nil
}

// GenerateFromSource builds a dataset from the sources in sourceDir into the parent of
// sourceDir, so the meshes and buckets end up next to the source directory.
func GenerateFromSource(
	ctx context.Context,
	sourceDir string,
	densities []int,
	mesher Mesher,
	logger logging.Logger,
) (*RunReport, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve %q", sourceDir)
	}
	if len(densities) == 0 {
		densities = config.DefaultDensities
	}
	org, err := NewOrganizer(config.Pipeline{
		InputDir:  abs,
		OutputDir: filepath.Dir(abs),
		Densities: densities,
	}, mesher, logger)
	if err != nil {
		return nil, err
	}
	return org.Run(ctx)
}
