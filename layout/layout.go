// Package layout defines the on-disk contract shared by the dataset writer and the dataset reader:
// where meshes and density buckets live under an output root, and how point-cloud files are named.
package layout

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultMeshDirName is the directory under the output root holding one mesh per source asset.
	DefaultMeshDirName = "stl"
	// DefaultCloudDirName is the directory under the output root holding the density buckets.
	DefaultCloudDirName = "ply"

	// MeshExt is the extension of every mesh asset.
	MeshExt = ".stl"
	// CloudExt is the extension of every point-cloud asset.
	CloudExt = ".ply"

	// dirPerm is used for every directory the pipeline creates.
	dirPerm = 0o755
)

// Kind is the stage an asset belongs to.
type Kind int

const (
	// KindGeometry is a source CAD exchange file.
	KindGeometry Kind = iota
	// KindMesh is a triangulated surface mesh.
	KindMesh
	// KindPointCloud is a sampled point cloud.
	KindPointCloud
)

func (k Kind) String() string {
	switch k {
	case KindGeometry:
		return "geometry"
	case KindMesh:
		return "mesh"
	case KindPointCloud:
		return "point_cloud"
	default:
		return "unknown"
	}
}

// Asset is a file produced or consumed by the pipeline. The stem is carried unchanged from the
// source geometry to every point cloud sampled from it.
type Asset struct {
	Stem string
	Kind Kind
	Path string
}

// Layout resolves paths under an output root.
//
//	<root>/<mesh dir>/<stem>.stl
//	<root>/<cloud dir>/<N>/<naming.FileName(stem, N)>
type Layout struct {
	Root         string
	MeshDirName  string
	CloudDirName string
	Naming       Naming
}

// New returns a Layout rooted at root with the default directory names.
func New(root string, naming Naming) Layout {
	return Layout{
		Root:         root,
		MeshDirName:  DefaultMeshDirName,
		CloudDirName: DefaultCloudDirName,
		Naming:       naming,
	}
}

func (l Layout) meshDirName() string {
	if l.MeshDirName == "" {
		return DefaultMeshDirName
	}
	return l.MeshDirName
}

func (l Layout) cloudDirName() string {
	if l.CloudDirName == "" {
		return DefaultCloudDirName
	}
	return l.CloudDirName
}

// MeshDir is the directory holding meshes.
func (l Layout) MeshDir() string {
	return filepath.Join(l.Root, l.meshDirName())
}

// MeshPath is where the mesh for stem is written.
func (l Layout) MeshPath(stem string) string {
	return filepath.Join(l.MeshDir(), stem+MeshExt)
}

// CloudRoot is the directory holding every density bucket.
func (l Layout) CloudRoot() string {
	return filepath.Join(l.Root, l.cloudDirName())
}

// BucketDir is the density bucket for n points.
func (l Layout) BucketDir(n int) string {
	return filepath.Join(l.CloudRoot(), strconv.Itoa(n))
}

// CloudPath is where the point cloud for (stem, n) is written.
func (l Layout) CloudPath(stem string, n int) string {
	return filepath.Join(l.BucketDir(n), l.Naming.FileName(stem, n))
}

// EnsureMeshDir creates the mesh directory if it does not exist.
func (l Layout) EnsureMeshDir() (string, error) {
	return l.MeshDir(), EnsureDir(l.MeshDir())
}

// EnsureBucket creates the bucket directory for n if it does not exist.
func (l Layout) EnsureBucket(n int) (string, error) {
	return l.BucketDir(n), EnsureDir(l.BucketDir(n))
}

// EnsureDir creates dir and its parents. It is a no-op on an existing directory, so concurrent
// callers may race on it safely.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrapf(err, "cannot create directory %q", dir)
	}
	return nil
}

// GeometryExts are the extensions of source geometry.
var GeometryExts = []string{".step", ".stp"}

// Classify returns the asset at path, matching extensions without regard to case. Hidden files
// and unknown extensions are not assets.
func Classify(path string) (Asset, bool) {
	name := filepath.Base(path)
	if IsHidden(name) {
		return Asset{}, false
	}
	asset := Asset{Stem: Stem(name), Path: path}
	switch {
	case HasExt(name, GeometryExts...):
		asset.Kind = KindGeometry
	case HasExt(name, MeshExt):
		asset.Kind = KindMesh
	case HasExt(name, CloudExt):
		asset.Kind = KindPointCloud
	default:
		return Asset{}, false
	}
	if asset.Stem == "" {
		return Asset{}, false
	}
	return asset, true
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsHidden reports whether name is a hidden file, an OS resource-fork companion ("._foo") or an
// editor backup ("foo~").
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

// HasExt reports whether name ends in one of exts, ignoring case.
func HasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
