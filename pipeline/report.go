package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/cadpoints/layout"
)

// Stage names a step of the dataset build.
type Stage string

// The stages of a build.
const (
	StageConvert Stage = "convert"
	StageSample  Stage = "sample"
)

// Output is one file a stage produced.
type Output struct {
	Stem string
	Path string
	// Density and Points are only set by the sampling stage.
	Density int
	Points  int
}

// Failure is one item a stage could not process.
type Failure struct {
	Path    string
	Density int
	Err     error
}

// Report is the explicit partial-failure result of a stage. Entries are in the order the items
// were scheduled, which does not depend on the worker count.
type Report struct {
	Stage     Stage
	Succeeded []Output
	Failures  []Failure
	// Skipped lists directory entries that did not qualify as input to the stage.
	Skipped []string
}

// SuccessCount returns the number of items processed successfully.
func (r *Report) SuccessCount() int {
	if r == nil {
		return 0
	}
	return len(r.Succeeded)
}

// FailureCount returns the number of items that failed.
func (r *Report) FailureCount() int {
	if r == nil {
		return 0
	}
	return len(r.Failures)
}

// Err combines every failure, or returns nil if there were none.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f.Err)
	}
	return err
}

// Stems returns the sorted distinct stems that produced output.
func (r *Report) Stems() []string {
	if r == nil {
		return nil
	}
	stems := lo.Uniq(lo.Map(r.Succeeded, func(o Output, _ int) string { return o.Stem }))
	sort.Strings(stems)
	return stems
}

// Paths returns the output paths in order.
func (r *Report) Paths() []string {
	if r == nil {
		return nil
	}
	return lo.Map(r.Succeeded, func(o Output, _ int) string { return o.Path })
}

// RunReport describes one end to end build.
type RunReport struct {
	RunID      uuid.UUID
	Layout     layout.Layout
	Densities  []int
	Conversion *Report
	Sampling   *Report
	Elapsed    time.Duration
}

// Failures returns the failures of every stage that ran.
func (rr *RunReport) Failures() []Failure {
	var failures []Failure
	if rr.Conversion != nil {
		failures = append(failures, rr.Conversion.Failures...)
	}
	if rr.Sampling != nil {
		failures = append(failures, rr.Sampling.Failures...)
	}
	return failures
}

// Err combines the failures of every stage, or returns nil if there were none.
func (rr *RunReport) Err() error {
	return multierr.Combine(rr.Conversion.Err(), rr.Sampling.Err())
}

// CompleteStems returns the sorted stems that have a point cloud at every density of the run.
func (rr *RunReport) CompleteStems() []string {
	if rr.Sampling == nil || len(rr.Densities) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, o := range rr.Sampling.Succeeded {
		counts[o.Stem]++
	}
	stems := lo.Keys(lo.PickBy(counts, func(_ string, n int) bool { return n == len(rr.Densities) }))
	sort.Strings(stems)
	return stems
}

// String prints a table with one row per stage followed by one row per failure.
func (rr *RunReport) String() string {
	summary := fmt.Sprintf("run %s (%s)\n", rr.RunID, units.HumanDuration(rr.Elapsed))
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Succeeded", "Failed", "Skipped"})
	for _, r := range []*Report{rr.Conversion, rr.Sampling} {
		if r == nil {
			continue
		}
		t.AppendRow(table.Row{string(r.Stage), r.SuccessCount(), r.FailureCount(), len(r.Skipped)})
	}
	failures := rr.Failures()
	if len(failures) == 0 {
		return summary + t.Render()
	}

	f := table.NewWriter()
	f.AppendHeader(table.Row{"#", "Path", "Density", "Error"})
	for i, failure := range failures {
		density := ""
		if failure.Density > 0 {
			density = strconv.Itoa(failure.Density)
		}
		f.AppendRow(table.Row{i + 1, failure.Path, density, failure.Err.Error()})
	}
	return summary + t.Render() + "\n" + f.Render()
}
