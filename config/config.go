// Package config holds the values that drive a dataset build and a dataset read. Paths are always
// passed in through these values; nothing in the pipeline reads process-wide path state.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
	"go.viam.com/cadpoints/utils"
)

const (
	// DefaultStepTimeout bounds a single conversion or sampling step.
	DefaultStepTimeout = 5 * time.Minute
	// DefaultInitFactor is how many uniform candidates per requested point the Poisson-disk
	// sampler draws before elimination.
	DefaultInitFactor = 5
	// DefaultGmshPath is looked up on PATH when no explicit binary is configured.
	DefaultGmshPath = "gmsh"
)

// DefaultDensities mirrors the densities the dataset has historically been built at.
var DefaultDensities = []int{1000, 5000, 10000}

// Label encoder names accepted by Dataset.Labels.
const (
	LabelsIndex   = "index"
	LabelsNumeric = "numeric"
	LabelsMap     = "map"
)

// Duration is a time.Duration that decodes from a Go duration string such as "30s".
type Duration time.Duration

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", value)
		}
		*d = Duration(parsed)
	default:
		return errors.Errorf("invalid duration %v", v)
	}
	return nil
}

// Gmsh configures the external mesher.
type Gmsh struct {
	Path      string   `json:"path,omitempty"`
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// Pipeline configures a dataset build: STEP sources in, meshes and density buckets out.
type Pipeline struct {
	InputDir    string        `json:"input_dir"`
	OutputDir   string        `json:"output_dir"`
	Densities   []int         `json:"densities"`
	Naming      layout.Naming `json:"naming,omitempty"`
	Workers     int           `json:"workers,omitempty"`
	StepTimeout *Duration     `json:"step_timeout,omitempty"`
	InitFactor  int           `json:"init_factor,omitempty"`
	Seed        *int64        `json:"seed,omitempty"`
	Gmsh        Gmsh          `json:"gmsh,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Pipeline) Validate(path string) error {
	if cfg.InputDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "input_dir")
	}
	if cfg.OutputDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "output_dir")
	}
	if len(cfg.Densities) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "densities")
	}
	for idx, n := range cfg.Densities {
		if n <= 0 {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.densities.%d", path, idx),
				errors.Errorf("density must be positive, got %d", n))
		}
	}
	if !cfg.Naming.Valid() {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown naming policy %v", cfg.Naming))
	}
	if cfg.Workers < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("workers must not be negative, got %d", cfg.Workers))
	}
	if cfg.InitFactor < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("init_factor must not be negative, got %d", cfg.InitFactor))
	}
	if cfg.StepTimeout != nil && *cfg.StepTimeout < 0 {
		return utils.NewConfigValidationError(path, errors.New("step_timeout must not be negative"))
	}
	return nil
}

// Layout returns the output layout described by the config.
func (cfg *Pipeline) Layout() layout.Layout {
	return layout.New(cfg.OutputDir, cfg.Naming)
}

// Timeout returns the per-step deadline. Zero means no deadline.
func (cfg *Pipeline) Timeout() time.Duration {
	if cfg.StepTimeout == nil {
		return DefaultStepTimeout
	}
	return time.Duration(*cfg.StepTimeout)
}

// WorkerCount returns the number of concurrent workers, at least one.
func (cfg *Pipeline) WorkerCount() int {
	if cfg.Workers <= 0 {
		return 1
	}
	return cfg.Workers
}

// CandidateFactor returns the Poisson-disk oversampling factor.
func (cfg *Pipeline) CandidateFactor() int {
	if cfg.InitFactor <= 0 {
		return DefaultInitFactor
	}
	return cfg.InitFactor
}

// GmshPath returns the mesher binary.
func (cfg *Pipeline) GmshPath() string {
	if cfg.Gmsh.Path == "" {
		return DefaultGmshPath
	}
	return cfg.Gmsh.Path
}

// Dataset configures an indexed read of one density bucket.
type Dataset struct {
	Root     string           `json:"root"`
	Density  int              `json:"density"`
	Naming   layout.Naming    `json:"naming,omitempty"`
	Labels   string           `json:"labels,omitempty"`
	LabelMap map[string]int64 `json:"label_map,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Dataset) Validate(path string) error {
	if cfg.Root == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "root")
	}
	if cfg.Density <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("density must be positive, got %d", cfg.Density))
	}
	if !cfg.Naming.Valid() {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown naming policy %v", cfg.Naming))
	}
	switch cfg.LabelEncoder() {
	case LabelsIndex, LabelsNumeric:
	case LabelsMap:
		if len(cfg.LabelMap) == 0 {
			return utils.NewConfigValidationFieldRequiredError(path, "label_map")
		}
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown label encoder %q", cfg.Labels))
	}
	return nil
}

// LabelEncoder returns the configured label encoder name, defaulting to "index".
func (cfg *Dataset) LabelEncoder() string {
	if cfg.Labels == "" {
		return LabelsIndex
	}
	return cfg.Labels
}

// Layout returns the layout the dataset reads from.
func (cfg *Dataset) Layout() layout.Layout {
	return layout.New(cfg.Root, cfg.Naming)
}

// File is the on-disk configuration document.
type File struct {
	LogLevel *logging.Level `json:"log_level,omitempty"`
	// LogFile, if set, receives a copy of every log line. A relative path is relative to the
	// directory of the config file.
	LogFile string `json:"log_file,omitempty"`
	// CompressLogs gzips rotated log files.
	CompressLogs bool      `json:"compress_logs,omitempty"`
	Pipeline     *Pipeline `json:"pipeline,omitempty"`
	Dataset      *Dataset  `json:"dataset,omitempty"`

	// ConfigFilePath is where the document was read from, if anywhere.
	ConfigFilePath string `json:"-"`

	logAppender *logging.FileAppender `json:"-"`
}

// Close closes the log file FromReader opened, if any. The appender stays attached to the
// logger, so a later entry reopens the file.
func (f *File) Close() error {
	if f.logAppender == nil {
		return nil
	}
	return f.logAppender.Close()
}

// LogFilePath returns where LogFile points, or "" if unset.
func (f *File) LogFilePath() string {
	if f.LogFile == "" || filepath.IsAbs(f.LogFile) || f.ConfigFilePath == "" {
		return f.LogFile
	}
	return filepath.Join(filepath.Dir(f.ConfigFilePath), f.LogFile)
}

// Validate validates every present section.
func (f *File) Validate() error {
	if f.Pipeline == nil && f.Dataset == nil {
		return errors.New("config must contain a \"pipeline\" or \"dataset\" section")
	}
	if f.Pipeline != nil {
		if err := f.Pipeline.Validate("pipeline"); err != nil {
			return err
		}
	}
	if f.Dataset != nil {
		if err := f.Dataset.Validate("dataset"); err != nil {
			return err
		}
	}
	return nil
}
