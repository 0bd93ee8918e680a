// Package pointcloud defines an ordered point cloud sampled from a mesh surface, its PLY codec,
// and the Poisson-disk sampler that produces it.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns bounds that any merged point will tighten.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge grows the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// Contains reports whether v lies inside the bounds, allowing tol slack on each axis.
func (meta *MetaData) Contains(v r3.Vector, tol float64) bool {
	return v.X >= meta.MinX-tol && v.X <= meta.MaxX+tol &&
		v.Y >= meta.MinY-tol && v.Y <= meta.MaxY+tol &&
		v.Z >= meta.MinZ-tol && v.Z <= meta.MaxZ+tol
}

// PointCloud is an ordered list of positions. Unlike a spatial index, duplicates are kept and
// order is significant since it is the order the cloud is persisted and batched in.
type PointCloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns a cloud over points. The slice is owned by the cloud afterwards.
func New(points []r3.Vector) *PointCloud {
	meta := NewMetaData()
	for _, p := range points {
		meta.Merge(p)
	}
	return &PointCloud{points: points, meta: meta}
}

// Size returns the number of points in the cloud.
func (pc *PointCloud) Size() int {
	return len(pc.points)
}

// At returns the i-th point.
func (pc *PointCloud) At(i int) r3.Vector {
	return pc.points[i]
}

// Points returns the points in order. Callers must not modify the result.
func (pc *PointCloud) Points() []r3.Vector {
	return pc.points
}

// MetaData returns the bounds of the cloud.
func (pc *PointCloud) MetaData() MetaData {
	return pc.meta
}

// AppendFloat32 appends the cloud's coordinates to dst as consecutive x, y, z values.
func (pc *PointCloud) AppendFloat32(dst []float32) []float32 {
	for _, p := range pc.points {
		dst = append(dst, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return dst
}
