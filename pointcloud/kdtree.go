package pointcloud

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// site is a candidate sample stored in the k-d tree, remembering its position in the candidate list.
type site struct {
	pos [3]float64
	idx int
}

func newSite(v r3.Vector, idx int) site {
	return site{pos: [3]float64{v.X, v.Y, v.Z}, idx: idx}
}

// Compare satisfies kdtree.Comparable.
func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.pos[d] - c.(site).pos[d]
}

// Dims satisfies kdtree.Comparable.
func (s site) Dims() int { return 3 }

// Distance returns the squared euclidean distance.
func (s site) Distance(c kdtree.Comparable) float64 {
	o := c.(site)
	dx, dy, dz := s.pos[0]-o.pos[0], s.pos[1]-o.pos[1], s.pos[2]-o.pos[2]
	return dx*dx + dy*dy + dz*dz
}

type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }
func (s sites) Pivot(d kdtree.Dim) int                { return sitePlane{sites: s, dim: d}.Pivot() }

// sitePlane sorts sites along a single dimension.
type sitePlane struct {
	sites
	dim kdtree.Dim
}

func (p sitePlane) Less(i, j int) bool { return p.sites[i].pos[p.dim] < p.sites[j].pos[p.dim] }
func (p sitePlane) Swap(i, j int)      { p.sites[i], p.sites[j] = p.sites[j], p.sites[i] }
func (p sitePlane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p sitePlane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}

type neighbor struct {
	idx  int
	dist float64
}

// neighborhoods returns, for every point, the other points closer than radius along with
// their distances. ctx is polled between queries.
func neighborhoods(ctx context.Context, points []r3.Vector, radius float64) ([][]neighbor, error) {
	all := make(sites, len(points))
	for i, p := range points {
		all[i] = newSite(p, i)
	}
	// kdtree.New reorders its input, so it gets its own copy.
	tree := kdtree.New(append(sites(nil), all...), false)

	out := make([][]neighbor, len(points))
	for i, q := range all {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		keeper := kdtree.NewDistKeeper(radius * radius)
		tree.NearestSet(keeper, q)
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			s := c.Comparable.(site)
			if s.idx == i {
				continue
			}
			out[i] = append(out[i], neighbor{idx: s.idx, dist: math.Sqrt(c.Dist)})
		}
	}
	return out, nil
}
