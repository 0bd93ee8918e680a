package testutils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/mesh"
)

// StepMagic is the first token of every ISO 10303-21 exchange file.
const StepMagic = "ISO-10303-21"

const validStepBody = StepMagic + `;
HEADER;
FILE_DESCRIPTION(('fixture'),'2;1');
FILE_NAME('%s.step','2024-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('AUTOMOTIVE_DESIGN'));
ENDSEC;
DATA;
#1=CARTESIAN_POINT('',(0.,0.,0.));
ENDSEC;
END-` + StepMagic + ";\n"

// Box returns a closed axis-aligned box mesh with one corner at the origin.
func Box(name string, size r3.Vector) *mesh.Mesh {
	v := []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: size.X, Y: 0, Z: 0}, {X: size.X, Y: size.Y, Z: 0}, {X: 0, Y: size.Y, Z: 0},
		{X: 0, Y: 0, Z: size.Z}, {X: size.X, Y: 0, Z: size.Z}, {X: size.X, Y: size.Y, Z: size.Z}, {X: 0, Y: size.Y, Z: size.Z},
	}
	f := [][3]int{
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4},
		{1, 2, 6}, {1, 6, 5},
		{2, 3, 7}, {2, 7, 6},
		{3, 0, 4}, {3, 4, 7},
	}
	m, err := mesh.New(name, v, f)
	if err != nil {
		panic(err)
	}
	return m
}

// UnitBox returns a 1x1x1 box.
func UnitBox(name string) *mesh.Mesh {
	return Box(name, r3.Vector{X: 1, Y: 1, Z: 1})
}

// WriteBoxSTL writes a unit box to <dir>/<stem>.stl and returns its path.
func WriteBoxSTL(tb testing.TB, dir, stem string) string {
	tb.Helper()
	path := filepath.Join(dir, stem+layout.MeshExt)
	test.That(tb, mesh.WriteSTLFile(path, UnitBox(stem)), test.ShouldBeNil)
	return path
}

// WriteStep writes a well-formed STEP file named name into dir and returns its path.
func WriteStep(tb testing.TB, dir, name string) string {
	tb.Helper()
	return writeFile(tb, dir, name, []byte(stepBody(layout.Stem(name))))
}

// WriteMalformedStep writes a file with a STEP extension that is not an exchange file.
func WriteMalformedStep(tb testing.TB, dir, name string) string {
	tb.Helper()
	return writeFile(tb, dir, name, []byte("this is not a step file\n"))
}

// WriteFile writes arbitrary contents into dir and returns the path.
func WriteFile(tb testing.TB, dir, name, contents string) string {
	tb.Helper()
	return writeFile(tb, dir, name, []byte(contents))
}

func writeFile(tb testing.TB, dir, name string, contents []byte) string {
	tb.Helper()
	test.That(tb, os.MkdirAll(dir, 0o755), test.ShouldBeNil)
	path := filepath.Join(dir, name)
	test.That(tb, os.WriteFile(path, contents, 0o600), test.ShouldBeNil)
	return path
}

func stepBody(stem string) string {
	return fmt.Sprintf(validStepBody, stem)
}

// FakeMesher stands in for an external mesher. Files beginning with the STEP magic become a unit
// box named after the file. Anything else fails.
type FakeMesher struct {
	// MeshFunc overrides the default behavior when set.
	MeshFunc func(ctx context.Context, src string) (*mesh.Mesh, error)
}

// Mesh satisfies the mesher interface used by the conversion stage.
func (fm *FakeMesher) Mesh(ctx context.Context, src string) (*mesh.Mesh, error) {
	if fm.MeshFunc != nil {
		return fm.MeshFunc(ctx, src)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	//nolint:gosec
	contents, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(contents, []byte(StepMagic)) {
		return nil, errors.Errorf("%q is not a STEP file", src)
	}
	return UnitBox(layout.Stem(src)), nil
}
