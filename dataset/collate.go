package dataset

import (
	"github.com/samber/lo"
	"gorgonia.org/tensor"
)

// Batch is a stack of equally sized point clouds with their labels.
type Batch struct {
	// Points has shape (B, P, 3) and holds float32 coordinates. It is nil for an empty batch.
	Points *tensor.Dense
	Labels []string
	// IDs has shape (B) and holds the int64 label ids. It is nil for an empty batch.
	IDs *tensor.Dense
	// Dropped counts the items left out because they failed to load.
	Dropped int
}

// Size returns B.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// PointsPerCloud returns P, or 0 for an empty batch.
func (b *Batch) PointsPerCloud() int {
	if b.Points == nil {
		return 0
	}
	return b.Points.Shape()[1]
}

// Collate drops every failed item and stacks the rest. All surviving clouds must have the same
// number of points, otherwise a *ShapeMismatchError lists the counts seen. If nothing survives the
// batch is empty, not an error.
func Collate(items []Item) (*Batch, error) {
	ok := lo.Filter(items, func(it Item, _ int) bool { return it.OK() })
	batch := &Batch{Dropped: len(items) - len(ok)}
	if len(ok) == 0 {
		return batch, nil
	}

	p := ok[0].Points.Size()
	counts := lo.Map(ok, func(it Item, _ int) int { return it.Points.Size() })
	if lo.SomeBy(counts, func(c int) bool { return c != p }) {
		return nil, &ShapeMismatchError{Counts: counts}
	}

	var bad []string
	points := make([]float32, 0, len(ok)*p*3)
	ids := make([]int64, 0, len(ok))
	for _, it := range ok {
		if it.ID == NoID {
			bad = append(bad, it.Label)
		}
		points = it.Points.AppendFloat32(points)
		ids = append(ids, it.ID)
		batch.Labels = append(batch.Labels, it.Label)
	}
	if len(bad) > 0 {
		return nil, &LabelError{Labels: lo.Uniq(bad), Err: errNoID}
	}

	batch.Points = tensor.New(tensor.WithShape(len(ok), p, 3), tensor.WithBacking(points))
	batch.IDs = tensor.New(tensor.WithShape(len(ok)), tensor.WithBacking(ids))
	return batch, nil
}
