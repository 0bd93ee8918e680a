package dataset

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/cadpoints/config"
)

// NoID marks an item whose label has no numeric id.
const NoID int64 = -1

// A LabelEncoder maps string labels to numeric class ids. Fit is called once with every label in
// the dataset before any Encode.
type LabelEncoder interface {
	Fit(labels []string) error
	Encode(label string) (int64, error)
}

// NewLabelEncoder returns the encoder cfg selects.
func NewLabelEncoder(cfg config.Dataset) (LabelEncoder, error) {
	switch cfg.LabelEncoder() {
	case config.LabelsIndex:
		return &IndexLabels{}, nil
	case config.LabelsNumeric:
		return NumericLabels{}, nil
	case config.LabelsMap:
		return NewMapLabels(cfg.LabelMap), nil
	default:
		return nil, errors.Errorf("unknown label encoder %q", cfg.Labels)
	}
}

// IndexLabels numbers the distinct labels 0..K-1 in sorted order.
type IndexLabels struct {
	classes []string
	ids     map[string]int64
}

// Fit assigns ids to labels.
func (il *IndexLabels) Fit(labels []string) error {
	il.classes = lo.Uniq(labels)
	sort.Strings(il.classes)
	il.ids = make(map[string]int64, len(il.classes))
	for i, c := range il.classes {
		il.ids[c] = int64(i)
	}
	return nil
}

// Encode returns the id of label.
func (il *IndexLabels) Encode(label string) (int64, error) {
	id, ok := il.ids[label]
	if !ok {
		return NoID, errors.Errorf("label %q was not seen when fitting", label)
	}
	return id, nil
}

// Classes returns the labels in id order.
func (il *IndexLabels) Classes() []string {
	return il.classes
}

// NumericLabels reads each label as a base 10 integer, for datasets whose files are named by
// class number.
type NumericLabels struct{}

// Fit checks that every label is numeric.
func (nl NumericLabels) Fit(labels []string) error {
	return fitCheck(nl, labels)
}

// Encode parses label.
func (NumericLabels) Encode(label string) (int64, error) {
	id, err := strconv.ParseInt(label, 10, 64)
	if err != nil {
		return NoID, errors.Errorf("label %q is not an integer", label)
	}
	return id, nil
}

// MapLabels uses an explicit table.
type MapLabels struct {
	table map[string]int64
}

// NewMapLabels returns an encoder over table.
func NewMapLabels(table map[string]int64) *MapLabels {
	return &MapLabels{table: table}
}

// Fit checks that every label is in the table.
func (ml *MapLabels) Fit(labels []string) error {
	return fitCheck(ml, labels)
}

// Encode looks label up.
func (ml *MapLabels) Encode(label string) (int64, error) {
	id, ok := ml.table[label]
	if !ok {
		return NoID, errors.Errorf("label %q is not in the label map", label)
	}
	return id, nil
}

// fitCheck encodes every label and reports all of the ones that fail together.
func fitCheck(enc LabelEncoder, labels []string) error {
	var bad []string
	var firstErr error
	for _, l := range lo.Uniq(labels) {
		if _, err := enc.Encode(l); err != nil {
			bad = append(bad, l)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return &LabelError{Labels: bad, Err: firstErr}
}
