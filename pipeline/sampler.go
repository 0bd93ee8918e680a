package pipeline

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
	"go.viam.com/cadpoints/mesh"
	"go.viam.com/cadpoints/pointcloud"
	"go.viam.com/cadpoints/utils"
)

// Sampler turns meshes into Poisson-disk point clouds, one PLY per (mesh, density) pair.
type Sampler struct {
	logger logging.Logger
	opts   stepOptions
}

// NewSampler returns a sampler.
func NewSampler(logger logging.Logger, opts ...Option) *Sampler {
	return &Sampler{logger: logger, opts: newStepOptions(opts)}
}

// SampleFile samples density points from the mesh at meshPath and writes them into bucketDir
// under the name naming gives them. Every error is a *SamplingError.
func (s *Sampler) SampleFile(ctx context.Context, meshPath string, density int, bucketDir string, naming layout.Naming) (string, error) {
	out, err := s.sampleFile(ctx, meshPath, density, bucketDir, naming)
	return out.Path, err
}

func (s *Sampler) sampleFile(
	ctx context.Context,
	meshPath string,
	density int,
	bucketDir string,
	naming layout.Naming,
) (Output, error) {
	stem := layout.Stem(meshPath)
	fail := func(err error) (Output, error) {
		return Output{}, &SamplingError{Path: meshPath, Density: density, Err: err}
	}
	if density <= 0 {
		return fail(errors.Errorf("density must be positive, got %d", density))
	}

	stepCtx, cancel := s.opts.stepContext(ctx)
	defer cancel()

	m, err := mesh.ReadSTLFile(meshPath)
	if err != nil {
		return fail(err)
	}
	pc, err := pointcloud.SamplePoissonDisk(stepCtx, m, density, pointcloud.SampleOptions{
		InitFactor: s.opts.initFactor,
		Rand:       s.opts.rand(stem, density),
	})
	if err != nil {
		return fail(err)
	}
	if pc.Size() == 0 {
		return fail(errors.New("sampler produced no points"))
	}

	dst := filepath.Join(bucketDir, naming.FileName(stem, density))
	if err := pointcloud.WritePLYFile(dst, pc); err != nil {
		return fail(err)
	}
	if s.logger.GetLevel() == logging.DEBUG || logging.IsDebugMode(ctx) {
		spacing, err := pointcloud.NearestNeighborSpacing(pc)
		if err != nil {
			s.logger.CDebugw(ctx, "cannot measure spacing", "cloud", dst, "error", err)
		}
		s.logger.CDebugw(ctx, "sampled", "path", meshPath, "density", density, "cloud", dst,
			"points", pc.Size(), "min_spacing", spacing.Min, "mean_spacing", spacing.Mean)
	}
	return Output{Stem: stem, Path: dst, Density: density, Points: pc.Size()}, nil
}

// SampleDir samples every qualifying mesh in meshDir at every density, writing into the buckets of
// lay.
func (s *Sampler) SampleDir(ctx context.Context, meshDir string, lay layout.Layout, densities []int) (*Report, error) {
	meshes, skipped, err := listQualifying(meshDir, isMesh)
	if err != nil {
		return nil, &DirectoryError{Path: meshDir, Err: err}
	}
	for _, name := range skipped {
		s.logger.Debugw("skipping non-mesh entry", "path", filepath.Join(meshDir, name))
	}
	report, err := s.SampleMeshes(ctx, meshes, lay, densities)
	if report != nil {
		report.Skipped = skipped
	}
	return report, err
}

type samplePair struct {
	mesh    string
	density int
	bucket  string
}

// SampleMeshes samples each of meshPaths once per distinct density. Bucket directories are
// created first; failing to create one aborts with a *DirectoryError. A pair that fails is logged,
// recorded in the report and skipped.
func (s *Sampler) SampleMeshes(ctx context.Context, meshPaths []string, lay layout.Layout, densities []int) (*Report, error) {
	densities = lo.Uniq(densities)
	var pairs []samplePair
	for _, density := range densities {
		if density <= 0 {
			return nil, errors.Errorf("density must be positive, got %d", density)
		}
		bucket, err := lay.EnsureBucket(density)
		if err != nil {
			return nil, &DirectoryError{Path: bucket, Err: err}
		}
		for _, meshPath := range meshPaths {
			pairs = append(pairs, samplePair{mesh: meshPath, density: density, bucket: bucket})
		}
	}

	report := &Report{Stage: StageSample}
	outputs := make([]Output, len(pairs))
	errs, runErr := utils.ForEachParallel(ctx, len(pairs), s.opts.workers, func(ctx context.Context, idx int) error {
		var err error
		p := pairs[idx]
		outputs[idx], err = s.sampleFile(ctx, p.mesh, p.density, p.bucket, lay.Naming)
		return err
	})

	for idx, p := range pairs {
		if err := errs[idx]; err != nil {
			var sampErr *SamplingError
			if !errors.As(err, &sampErr) {
				err = &SamplingError{Path: p.mesh, Density: p.density, Err: err}
			}
			s.logger.Errorw("sampling failed", "path", p.mesh, "density", p.density, "error", err)
			report.Failures = append(report.Failures, Failure{Path: p.mesh, Density: p.density, Err: err})
			continue
		}
		if outputs[idx].Path == "" {
			continue
		}
		report.Succeeded = append(report.Succeeded, outputs[idx])
	}
	s.logger.Infow("sampling finished",
		"meshes", len(meshPaths),
		"densities", densities,
		"sampled", report.SuccessCount(),
		"failed", report.FailureCount())
	return report, runErr
}
