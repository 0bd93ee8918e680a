package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cadpoints/config"
	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
	"go.viam.com/cadpoints/mesh"
	"go.viam.com/cadpoints/rexec"
)

// StepMagic opens every ISO 10303-21 exchange file.
const StepMagic = "ISO-10303-21"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// A Mesher triangulates the surface of one source geometry file.
type Mesher interface {
	Mesh(ctx context.Context, src string) (*mesh.Mesh, error)
}

// GmshMesher meshes STEP files with the gmsh command line tool, using 2D Delaunay meshing
// for every surface.
type GmshMesher struct {
	path      string
	extraArgs []string
	logger    logging.Logger
}

// NewGmshMesher returns a mesher running the gmsh binary configured by cfg.
func NewGmshMesher(cfg *config.Pipeline, logger logging.Logger) *GmshMesher {
	return &GmshMesher{path: cfg.GmshPath(), extraArgs: cfg.Gmsh.ExtraArgs, logger: logger}
}

// Args returns the gmsh arguments that mesh src into dst.
func (gm *GmshMesher) Args(src, dst string) []string {
	args := []string{src, "-2", "-algo", "del2d", "-format", "stl", "-o", dst}
	return append(args, gm.extraArgs...)
}

// Mesh runs gmsh on src and reads the resulting surface back.
func (gm *GmshMesher) Mesh(ctx context.Context, src string) (*mesh.Mesh, error) {
	if err := CheckStepHeader(src); err != nil {
		return nil, err
	}
	tmpDir, err := os.MkdirTemp("", "cadpoints-gmsh-")
	if err != nil {
		return nil, errors.Wrap(err, "cannot create scratch directory")
	}
	defer goutils.UncheckedErrorFunc(func() error { return os.RemoveAll(tmpDir) })

	dst := filepath.Join(tmpDir, layout.Stem(src)+layout.MeshExt)
	if _, err := rexec.RunOnce(ctx, rexec.ProcessConfig{
		Name: gm.path,
		Args: gm.Args(src, dst),
		Log:  true,
	}, gm.logger); err != nil {
		return nil, err
	}
	m, err := mesh.ReadSTLFile(dst)
	if err != nil {
		return nil, errors.Wrap(err, "gmsh output unreadable")
	}
	return m, nil
}

// CheckStepHeader returns an error unless the file at path starts with the exchange file magic.
// A UTF-8 byte order mark and leading whitespace are tolerated.
func CheckStepHeader(path string) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	head := make([]byte, 256)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	head = bytes.TrimLeft(bytes.TrimPrefix(head[:n], utf8BOM), " \t\r\n")
	if !bytes.HasPrefix(head, []byte(StepMagic)) {
		return errors.New("not an ISO 10303-21 file")
	}
	return nil
}
