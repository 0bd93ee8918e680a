package pointcloud

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Spacing summarizes the distance from each point of a cloud to its nearest neighbor. A
// Poisson-disk cloud has a large Min relative to Mean and a small StdDev.
type Spacing struct {
	Min    float64
	Mean   float64
	StdDev float64
}

// NearestNeighborSpacing measures the spacing of pc, which needs at least two points.
func NearestNeighborSpacing(pc *PointCloud) (Spacing, error) {
	if pc.Size() < 2 {
		return Spacing{}, errors.Errorf("need at least two points to measure spacing, got %d", pc.Size())
	}
	all := make(sites, pc.Size())
	for i, p := range pc.points {
		all[i] = newSite(p, i)
	}
	tree := kdtree.New(append(sites(nil), all...), false)

	dists := make(stats.Float64Data, 0, len(all))
	for i, q := range all {
		// The query point is its own nearest neighbor, so keep two.
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, q)
		best := math.Inf(1)
		for _, c := range keeper.Heap {
			if c.Comparable == nil || c.Comparable.(site).idx == i {
				continue
			}
			best = math.Min(best, c.Dist)
		}
		dists = append(dists, math.Sqrt(best))
	}

	var (
		s   Spacing
		err error
	)
	if s.Min, err = stats.Min(dists); err != nil {
		return Spacing{}, err
	}
	if s.Mean, err = stats.Mean(dists); err != nil {
		return Spacing{}, err
	}
	if s.StdDev, err = stats.StandardDeviation(dists); err != nil {
		return Spacing{}, err
	}
	return s, nil
}
