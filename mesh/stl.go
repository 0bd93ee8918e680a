package mesh

import (
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"
	goutils "go.viam.com/utils"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/utils"
)

// ReadSTL decodes an ASCII or binary STL stream.
func ReadSTL(r io.Reader, name string) (*Mesh, error) {
	triangles, err := model3d.ReadSTL(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode STL")
	}
	tris := make([]*Triangle, 0, len(triangles))
	for _, t := range triangles {
		tris = append(tris, NewTriangle(fromCoord(t[0]), fromCoord(t[1]), fromCoord(t[2])))
	}
	return FromTriangles(name, tris), nil
}

// ReadSTLFile reads the STL at path. The mesh is named after the file stem.
func ReadSTLFile(path string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	m, err := ReadSTL(f, layout.Stem(path))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return m, nil
}

// WriteSTL encodes m as binary STL.
func WriteSTL(w io.Writer, m *Mesh) error {
	triangles := make([]*model3d.Triangle, 0, len(m.Faces))
	for _, f := range m.Faces {
		triangles = append(triangles, &model3d.Triangle{
			toCoord(m.Vertices[f[0]]),
			toCoord(m.Vertices[f[1]]),
			toCoord(m.Vertices[f[2]]),
		})
	}
	return model3d.WriteSTL(w, triangles)
}

// WriteSTLFile writes m to path, replacing any previous file only once the whole mesh is encoded.
func WriteSTLFile(path string, m *Mesh) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteSTL(w, m)
	})
}

func fromCoord(c model3d.Coord3D) r3.Vector {
	return r3.Vector{X: c.X, Y: c.Y, Z: c.Z}
}

func toCoord(v r3.Vector) model3d.Coord3D {
	return model3d.XYZ(v.X, v.Y, v.Z)
}
