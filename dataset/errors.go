package dataset

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var errNoID = errors.New("item has no label id")

// DatasetLoadError describes an item that could not be read. It travels inside an Item rather
// than being returned, so a batch can drop the item and keep going.
type DatasetLoadError struct {
	Index int
	Path  string
	Err   error
}

func (e *DatasetLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot load item %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("cannot load item %d (%q): %v", e.Index, e.Path, e.Err)
}

func (e *DatasetLoadError) Unwrap() error {
	return e.Err
}

// ShapeMismatchError is returned when the clouds of a batch do not all have the same number of
// points.
type ShapeMismatchError struct {
	Counts []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("cannot stack point clouds with differing point counts %v", e.Counts)
}

// LabelError lists labels that the label encoder cannot map to an id.
type LabelError struct {
	Labels []string
	Err    error
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("cannot encode labels [%s]: %v", strings.Join(e.Labels, ", "), e.Err)
}

func (e *LabelError) Unwrap() error {
	return e.Err
}
