package pointcloud

import (
	"io"
	"os"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cadpoints/utils"
)

// ReadPLY decodes the vertex positions of a PLY stream. Faces, if any, are ignored.
func ReadPLY(r io.Reader) (*PointCloud, error) {
	m, err := ply.ReadMesh(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode PLY")
	}
	if !m.HasFloat3Attribute(modeling.PositionAttribute) {
		return nil, errors.New("PLY has no vertex positions")
	}
	positions := m.Float3Attribute(modeling.PositionAttribute)
	points := make([]r3.Vector, positions.Len())
	for i := range points {
		p := positions.At(i)
		points[i] = r3.Vector{X: p.X(), Y: p.Y(), Z: p.Z()}
	}
	return New(points), nil
}

// ReadPLYFile reads the PLY at path.
func ReadPLYFile(path string) (*PointCloud, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	pc, err := ReadPLY(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return pc, nil
}

// WritePLY encodes pc as a binary PLY with a single vertex element holding x, y and z.
func WritePLY(w io.Writer, pc *PointCloud) error {
	positions := make([]vector3.Vector[float64], pc.Size())
	for i, p := range pc.Points() {
		positions[i] = vector3.New(p.X, p.Y, p.Z)
	}
	cloud := modeling.NewPointCloud(nil, map[string][]vector3.Vector[float64]{
		modeling.PositionAttribute: positions,
	}, nil, nil, nil)
	return ply.Write(w, cloud, ply.BinaryLittleEndian)
}

// WritePLYFile writes pc to path, replacing any previous file only once the whole cloud is encoded.
func WritePLYFile(path string, pc *PointCloud) error {
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return WritePLY(w, pc)
	})
}
