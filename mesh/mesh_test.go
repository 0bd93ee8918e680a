package mesh

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// unitCube returns the 12-triangle axis-aligned cube spanning [0, 1] on every axis.
func unitCube() *Mesh {
	v := []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	}
	f := [][3]int{
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4},
		{1, 2, 6}, {1, 6, 5},
		{2, 3, 7}, {2, 7, 6},
		{3, 0, 4}, {3, 4, 7},
	}
	m, err := New("cube", v, f)
	if err != nil {
		panic(err)
	}
	return m
}

func TestNew(t *testing.T) {
	_, err := New("bad", []r3.Vector{{}, {X: 1}}, [][3]int{{0, 1, 2}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "vertex 2")

	m := unitCube()
	test.That(t, m.VertexCount(), test.ShouldEqual, 8)
	test.That(t, m.FaceCount(), test.ShouldEqual, 12)
	test.That(t, m.IsEmpty(), test.ShouldBeFalse)
	test.That(t, m.Area(), test.ShouldAlmostEqual, 6.0)

	minPt, maxPt := m.BoundingBox()
	test.That(t, minPt, test.ShouldResemble, r3.Vector{})
	test.That(t, maxPt, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})

	empty := FromTriangles("empty", nil)
	test.That(t, empty.IsEmpty(), test.ShouldBeTrue)
	test.That(t, empty.Area(), test.ShouldEqual, 0.)
}

func TestFromTrianglesMergesCorners(t *testing.T) {
	m := FromTriangles("soup", unitCube().Triangles())
	test.That(t, m.VertexCount(), test.ShouldEqual, 8)
	test.That(t, m.FaceCount(), test.ShouldEqual, 12)
	test.That(t, m.Area(), test.ShouldAlmostEqual, 6.0)
}

func TestTriangle(t *testing.T) {
	tri := NewTriangle(r3.Vector{}, r3.Vector{X: 2}, r3.Vector{Y: 2})
	test.That(t, tri.Area(), test.ShouldAlmostEqual, 2.0)
	test.That(t, tri.Normal(), test.ShouldResemble, r3.Vector{Z: 1})

	for _, r := range [][2]float64{{0, 0}, {0.25, 0.5}, {0.99, 0.01}, {0.5, 0.99}} {
		p := tri.PointAt(r[0], r[1])
		test.That(t, p.X, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, p.Y, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, p.X+p.Y, test.ShouldBeLessThanOrEqualTo, 2+1e-9)
		test.That(t, p.Z, test.ShouldEqual, 0.)
	}

	degenerate := NewTriangle(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2})
	test.That(t, degenerate.Area(), test.ShouldEqual, 0.)
	test.That(t, degenerate.Normal(), test.ShouldResemble, r3.Vector{})
}

func TestSTLRoundTrip(t *testing.T) {
	cube := unitCube()

	var buf bytes.Buffer
	test.That(t, WriteSTL(&buf, cube), test.ShouldBeNil)
	decoded, err := ReadSTL(&buf, "cube")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.FaceCount(), test.ShouldEqual, cube.FaceCount())
	test.That(t, decoded.VertexCount(), test.ShouldEqual, cube.VertexCount())
	test.That(t, decoded.Area(), test.ShouldAlmostEqual, cube.Area(), 1e-5)

	path := filepath.Join(t.TempDir(), "part_a.stl")
	test.That(t, WriteSTLFile(path, cube), test.ShouldBeNil)
	fromFile, err := ReadSTLFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromFile.Name, test.ShouldEqual, "part_a")
	test.That(t, fromFile.FaceCount(), test.ShouldEqual, 12)
}

func TestReadSTLErrors(t *testing.T) {
	_, err := ReadSTLFile(filepath.Join(t.TempDir(), "missing.stl"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	path := filepath.Join(t.TempDir(), "garbage.stl")
	test.That(t, os.WriteFile(path, []byte("truncated"), 0o600), test.ShouldBeNil)
	_, err = ReadSTLFile(path)
	test.That(t, err, test.ShouldNotBeNil)
}
