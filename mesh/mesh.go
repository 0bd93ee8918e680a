// Package mesh defines the triangulated surface produced from a CAD exchange file, along with the
// STL codec the pipeline persists meshes with.
package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Mesh is an indexed triangle mesh. Every face holds three indices into Vertices.
// A Mesh is not modified after construction.
type Mesh struct {
	Name     string
	Vertices []r3.Vector
	Faces    [][3]int
}

// New returns a mesh after checking that every face index is in range.
func New(name string, vertices []r3.Vector, faces [][3]int) (*Mesh, error) {
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, errors.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, len(vertices))
			}
		}
	}
	return &Mesh{Name: name, Vertices: vertices, Faces: faces}, nil
}

// FromTriangles builds an indexed mesh from a triangle soup, merging corners that share exact
// coordinates.
func FromTriangles(name string, triangles []*Triangle) *Mesh {
	index := make(map[r3.Vector]int, len(triangles))
	vertices := make([]r3.Vector, 0, len(triangles))
	faces := make([][3]int, 0, len(triangles))
	for _, tri := range triangles {
		var face [3]int
		for j, p := range tri.Points() {
			idx, ok := index[p]
			if !ok {
				idx = len(vertices)
				index[p] = idx
				vertices = append(vertices, p)
			}
			face[j] = idx
		}
		faces = append(faces, face)
	}
	return &Mesh{Name: name, Vertices: vertices, Faces: faces}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return len(m.Faces) == 0
}

// Triangle returns face i as a Triangle.
func (m *Mesh) Triangle(i int) *Triangle {
	f := m.Faces[i]
	return NewTriangle(m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]])
}

// Triangles returns every face as a Triangle.
func (m *Mesh) Triangles() []*Triangle {
	tris := make([]*Triangle, len(m.Faces))
	for i := range m.Faces {
		tris[i] = m.Triangle(i)
	}
	return tris
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var area float64
	for i := range m.Faces {
		area += m.Triangle(i).Area()
	}
	return area
}

// BoundingBox returns the axis-aligned bounds of the vertices. An empty mesh returns two zero
// vectors.
func (m *Mesh) BoundingBox() (min, max r3.Vector) {
	if len(m.Vertices) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	min = r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range m.Vertices {
		min = r3.Vector{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
		max = r3.Vector{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
	}
	return min, max
}
