package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
	"go.viam.com/cadpoints/mesh"
	"go.viam.com/cadpoints/utils"
)

// Converter turns source geometry into surface meshes, one STL per source.
type Converter struct {
	mesher Mesher
	logger logging.Logger
	opts   stepOptions
}

// NewConverter returns a converter that meshes with mesher.
func NewConverter(mesher Mesher, logger logging.Logger, opts ...Option) *Converter {
	return &Converter{
		mesher: mesher,
		logger: logger,
		opts:   newStepOptions(opts),
	}
}

// ConvertFile meshes src and writes <meshDir>/<stem>.stl, returning its path. Every error is a
// *ConversionError.
func (c *Converter) ConvertFile(ctx context.Context, src, meshDir string) (string, error) {
	stepCtx, cancel := c.opts.stepContext(ctx)
	defer cancel()

	m, err := c.mesher.Mesh(stepCtx, src)
	if err != nil {
		if ctxErr := stepCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = multierr.Combine(err, ctxErr)
		}
		return "", &ConversionError{Path: src, Err: err}
	}
	if err := stepCtx.Err(); err != nil {
		return "", &ConversionError{Path: src, Err: err}
	}
	if m == nil || m.IsEmpty() {
		return "", &ConversionError{Path: src, Err: errors.New("mesher produced an empty mesh")}
	}

	dst := filepath.Join(meshDir, layout.Stem(src)+layout.MeshExt)
	if err := mesh.WriteSTLFile(dst, m); err != nil {
		return "", &ConversionError{Path: src, Err: err}
	}
	c.logger.CDebugw(ctx, "converted", "path", src, "mesh", dst, "faces", m.FaceCount())
	return dst, nil
}

// ConvertDir converts every qualifying source in inputDir, in lexical order, into meshDir. A
// source that fails is logged, recorded in the report and skipped. When several sources share a
// stem only the first in lexical order is converted and the rest are recorded as failures. The returned error is only set
// when meshDir cannot be created, inputDir cannot be listed, or ctx is done before every source
// was attempted.
func (c *Converter) ConvertDir(ctx context.Context, inputDir, meshDir string) (*Report, error) {
	if err := layout.EnsureDir(meshDir); err != nil {
		return nil, &DirectoryError{Path: meshDir, Err: err}
	}
	listed, skipped, err := listQualifying(inputDir, isSource)
	if err != nil {
		return nil, &DirectoryError{Path: inputDir, Err: err}
	}
	report := &Report{Stage: StageConvert, Skipped: skipped}
	for _, name := range skipped {
		c.logger.Debugw("skipping non-source entry", "path", filepath.Join(inputDir, name))
	}
	sources, duplicates := uniqueStems(listed)

	outputs := make([]string, len(sources))
	errs, runErr := utils.ForEachParallel(ctx, len(sources), c.opts.workers, func(ctx context.Context, idx int) error {
		var err error
		outputs[idx], err = c.ConvertFile(ctx, sources[idx], meshDir)
		return err
	})

	idxOf := make(map[string]int, len(sources))
	for idx, src := range sources {
		idxOf[src] = idx
	}
	for _, src := range listed {
		if dupErr, ok := duplicates[src]; ok {
			c.logger.Errorw("conversion failed", "path", src, "error", dupErr)
			report.Failures = append(report.Failures, Failure{Path: src, Err: dupErr})
			continue
		}
		idx := idxOf[src]
		if err := errs[idx]; err != nil {
			var convErr *ConversionError
			if !errors.As(err, &convErr) {
				err = &ConversionError{Path: src, Err: err}
			}
			c.logger.Errorw("conversion failed", "path", src, "error", err)
			report.Failures = append(report.Failures, Failure{Path: src, Err: err})
			continue
		}
		if outputs[idx] == "" {
			// never started
			continue
		}
		report.Succeeded = append(report.Succeeded, Output{Stem: layout.Stem(src), Path: outputs[idx]})
	}
	c.logger.Infow("conversion finished",
		"input", inputDir,
		"converted", report.SuccessCount(),
		"failed", report.FailureCount(),
		"skipped", len(report.Skipped))
	return report, runErr
}

// uniqueStems keeps the first source of each stem. Every later source sharing that stem would
// overwrite the same mesh, so it is returned as a *ConversionError keyed by its path instead.
func uniqueStems(paths []string) ([]string, map[string]error) {
	owner := make(map[string]string, len(paths))
	kept := make([]string, 0, len(paths))
	var duplicates map[string]error
	for _, path := range paths {
		stem := layout.Stem(path)
		if first, ok := owner[stem]; ok {
			if duplicates == nil {
				duplicates = make(map[string]error)
			}
			duplicates[path] = &ConversionError{
				Path: path,
				Err:  errors.Errorf("stem %q is already converted from %s", stem, filepath.Base(first)),
			}
			continue
		}
		owner[stem] = path
		kept = append(kept, path)
	}
	return kept, duplicates
}

func isSource(name string) bool {
	asset, ok := layout.Classify(name)
	return ok && asset.Kind == layout.KindGeometry
}

func isMesh(name string) bool {
	asset, ok := layout.Classify(name)
	return ok && asset.Kind == layout.KindMesh
}

// listQualifying returns the paths of the regular, non-hidden files in dir that match, sorted by
// name, along with the names of every other entry.
func listQualifying(dir string, match func(name string) bool) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var paths, skipped []string
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		if layout.IsHidden(name) || !match(name) {
			skipped = append(skipped, name)
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			skipped = append(skipped, name)
			continue
		}
		paths = append(paths, path)
	}
	return paths, skipped, nil
}
