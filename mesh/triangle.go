package mesh

import (
	"math"

	"github.com/golang/geo/r3"
)

// Triangle is a single face of a mesh.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle returns the triangle (p0, p1, p2). The winding determines the normal.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the three corners.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal, or the zero vector for a degenerate triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the surface area.
func (t *Triangle) Area() float64 {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm() / 2
}

// PointAt maps two independent uniform numbers in [0, 1) to a point uniformly distributed over
// the triangle.
func (t *Triangle) PointAt(r1, r2 float64) r3.Vector {
	s := math.Sqrt(r1)
	a := 1 - s
	b := s * (1 - r2)
	c := s * r2
	return t.p0.Mul(a).Add(t.p1.Mul(b)).Add(t.p2.Mul(c))
}

// PlaneNormal returns the normal to the plane defined by three points.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if n.Norm2() == 0 {
		return r3.Vector{}
	}
	return n.Normalize()
}
