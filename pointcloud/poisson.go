package pointcloud

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/cadpoints/mesh"
)

// DefaultInitFactor is how many uniform candidates are drawn per requested point before
// elimination.
const DefaultInitFactor = 5

// Weighted sample elimination constants.
const (
	eliminationAlpha = 8.0
	eliminationBeta  = 0.65
	eliminationGamma = 1.5

	ctxCheckInterval = 1024
)

// SampleOptions configures surface sampling.
type SampleOptions struct {
	// InitFactor is the candidate multiplier. Values below 1 mean DefaultInitFactor.
	InitFactor int
	// Rand is the random source. nil means a source seeded from the clock.
	Rand *rand.Rand
}

func (opts SampleOptions) rng() *rand.Rand {
	if opts.Rand != nil {
		return opts.Rand
	}
	//nolint:gosec
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// SampleUniform draws n points uniformly distributed over the surface of m, choosing each
// triangle with probability proportional to its area.
func SampleUniform(m *mesh.Mesh, n int, rng *rand.Rand) ([]r3.Vector, error) {
	if n <= 0 {
		return nil, errors.Errorf("sample count must be positive, got %d", n)
	}
	if m.IsEmpty() {
		return nil, errors.New("mesh has no faces")
	}
	tris := m.Triangles()
	areas := make([]float64, len(tris))
	for i, t := range tris {
		areas[i] = t.Area()
	}
	cum := floats.CumSum(make([]float64, len(areas)), areas)
	total := cum[len(cum)-1]
	if total <= 0 {
		return nil, errors.New("mesh has zero surface area")
	}

	points := make([]r3.Vector, n)
	for i := range points {
		// in (0, total] so zero-area faces are never selected
		r := (1 - rng.Float64()) * total
		idx := sort.SearchFloat64s(cum, r)
		if idx >= len(tris) {
			idx = len(tris) - 1
		}
		points[i] = tris[idx].PointAt(rng.Float64(), rng.Float64())
	}
	return points, nil
}

// SamplePoissonDisk returns exactly n points spread evenly over the surface of m. It draws
// InitFactor*n uniform candidates and then removes the most crowded candidate until n remain
// (weighted sample elimination, Yuksel 2015).
func SamplePoissonDisk(ctx context.Context, m *mesh.Mesh, n int, opts SampleOptions) (*PointCloud, error) {
	if n <= 0 {
		return nil, errors.Errorf("sample count must be positive, got %d", n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	factor := opts.InitFactor
	if factor < 1 {
		factor = DefaultInitFactor
	}
	candidates, err := SampleUniform(m, factor*n, opts.rng())
	if err != nil {
		return nil, err
	}
	if factor == 1 {
		return New(candidates), nil
	}

	kept, err := eliminate(ctx, candidates, n, m.Area())
	if err != nil {
		return nil, err
	}
	return New(kept), nil
}

func eliminate(ctx context.Context, candidates []r3.Vector, n int, area float64) ([]r3.Vector, error) {
	total := len(candidates)
	rmax := math.Sqrt(area / (2 * math.Sqrt(3) * float64(n)))
	rmin := rmax * eliminationBeta * (1 - math.Pow(float64(n)/float64(total), eliminationGamma))
	weight := func(d float64) float64 {
		d = math.Max(d, rmin)
		return math.Pow(1-d/(2*rmax), eliminationAlpha)
	}

	neighbors, err := neighborhoods(ctx, candidates, 2*rmax)
	if err != nil {
		return nil, err
	}

	wh := &weightHeap{
		weights: make([]float64, total),
		order:   make([]int, total),
		pos:     make([]int, total),
	}
	for i, ns := range neighbors {
		for _, nb := range ns {
			wh.weights[i] += weight(nb.dist)
		}
		wh.order[i] = i
		wh.pos[i] = i
	}
	heap.Init(wh)

	removed := make([]bool, total)
	for remaining := total; remaining > n; remaining-- {
		if (total-remaining)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i := heap.Pop(wh).(int)
		removed[i] = true
		for _, nb := range neighbors[i] {
			if removed[nb.idx] {
				continue
			}
			wh.weights[nb.idx] -= weight(nb.dist)
			heap.Fix(wh, wh.pos[nb.idx])
		}
	}

	kept := make([]r3.Vector, 0, n)
	for i, p := range candidates {
		if !removed[i] {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// weightHeap is a max-heap of candidate indices keyed by weight that tracks where each
// candidate sits so its weight can be updated in place.
type weightHeap struct {
	weights []float64
	order   []int
	pos     []int
}

func (h *weightHeap) Len() int { return len(h.order) }

func (h *weightHeap) Less(i, j int) bool {
	return h.weights[h.order[i]] > h.weights[h.order[j]]
}

func (h *weightHeap) Swap(i, j int) {
	h.order[i], h.order[j] = h.order[j], h.order[i]
	h.pos[h.order[i]] = i
	h.pos[h.order[j]] = j
}

func (h *weightHeap) Push(x any) {
	idx := x.(int)
	h.pos[idx] = len(h.order)
	h.order = append(h.order, idx)
}

func (h *weightHeap) Pop() any {
	last := len(h.order) - 1
	idx := h.order[last]
	h.order = h.order[:last]
	h.pos[idx] = -1
	return idx
}
