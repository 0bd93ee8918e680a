package pipeline

import (
	"fmt"
)

// ConversionError is returned when a single source asset cannot be turned into a mesh. It is
// recorded in the stage report and never stops the stage.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// SamplingError is returned when a single (mesh, density) pair cannot be sampled.
type SamplingError struct {
	Path    string
	Density int
	Err     error
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("cannot sample %q at density %d: %v", e.Path, e.Density, e.Err)
}

func (e *SamplingError) Unwrap() error {
	return e.Err
}

// DirectoryError is returned when an output or input directory cannot be created or read. Unlike
// per-asset errors it aborts the stage.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %q: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}
