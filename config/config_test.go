package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
)

func TestPipelineValidate(t *testing.T) {
	valid := func() Pipeline {
		return Pipeline{InputDir: "/in", OutputDir: "/out", Densities: []int{1000}}
	}

	cfg := valid()
	test.That(t, cfg.Validate("pipeline"), test.ShouldBeNil)
	test.That(t, cfg.Timeout(), test.ShouldEqual, DefaultStepTimeout)
	test.That(t, cfg.WorkerCount(), test.ShouldEqual, 1)
	test.That(t, cfg.CandidateFactor(), test.ShouldEqual, DefaultInitFactor)
	test.That(t, cfg.GmshPath(), test.ShouldEqual, "gmsh")
	test.That(t, cfg.Layout().BucketDir(1000), test.ShouldEqual, "/out/ply/1000")

	for _, tc := range []struct {
		name    string
		mutate  func(*Pipeline)
		wantErr string
	}{
		{"missing input", func(p *Pipeline) { p.InputDir = "" }, `"input_dir" is required`},
		{"missing output", func(p *Pipeline) { p.OutputDir = "" }, `"output_dir" is required`},
		{"no densities", func(p *Pipeline) { p.Densities = nil }, `"densities" is required`},
		{"zero density", func(p *Pipeline) { p.Densities = []int{1000, 0} }, "pipeline.densities.1"},
		{"bad naming", func(p *Pipeline) { p.Naming = layout.Naming(9) }, "unknown naming policy"},
		{"negative workers", func(p *Pipeline) { p.Workers = -1 }, "workers must not be negative"},
		{"negative timeout", func(p *Pipeline) {
			d := Duration(-time.Second)
			p.StepTimeout = &d
		}, "step_timeout"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate("pipeline")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.wantErr)
		})
	}

	zero := Duration(0)
	cfg.StepTimeout = &zero
	test.That(t, cfg.Timeout(), test.ShouldEqual, time.Duration(0))
}

func TestDatasetValidate(t *testing.T) {
	cfg := Dataset{Root: "/out", Density: 1000}
	test.That(t, cfg.Validate("dataset"), test.ShouldBeNil)
	test.That(t, cfg.LabelEncoder(), test.ShouldEqual, LabelsIndex)

	cfg.Labels = LabelsMap
	err := cfg.Validate("dataset")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "label_map")

	cfg.LabelMap = map[string]int64{"part_a": 0}
	test.That(t, cfg.Validate("dataset"), test.ShouldBeNil)

	cfg.Labels = "onehot"
	test.That(t, cfg.Validate("dataset"), test.ShouldNotBeNil)

	cfg = Dataset{Root: "/out"}
	test.That(t, cfg.Validate("dataset"), test.ShouldNotBeNil)
}

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	t.Setenv("CADPOINTS_TEST_ROOT", dir)

	doc := `{
	"log_level": "warn",
	"pipeline": {
		"input_dir": "${CADPOINTS_TEST_ROOT}/step",
		"output_dir": "${CADPOINTS_TEST_ROOT}",
		"densities": [1000, 5000],
		"naming": "stem_density",
		"workers": 4,
		"step_timeout": "30s",
		"seed": 7,
		"gmsh": {"path": "/opt/gmsh/bin/gmsh"}
	},
	"dataset": {
		"root": "${CADPOINTS_TEST_ROOT}",
		"density": 1000,
		"naming": "stem_density",
		"labels": "numeric"
	}
}`
	path := filepath.Join(dir, "cadpoints.json")
	test.That(t, os.WriteFile(path, []byte(doc), 0o644), test.ShouldBeNil)

	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)

	p := cfg.Pipeline
	test.That(t, p.InputDir, test.ShouldEqual, dir+"/step")
	test.That(t, p.OutputDir, test.ShouldEqual, dir)
	test.That(t, p.Densities, test.ShouldResemble, []int{1000, 5000})
	test.That(t, p.Naming, test.ShouldEqual, layout.NamingStemDensity)
	test.That(t, p.WorkerCount(), test.ShouldEqual, 4)
	test.That(t, p.Timeout(), test.ShouldEqual, 30*time.Second)
	test.That(t, *p.Seed, test.ShouldEqual, int64(7))
	test.That(t, p.GmshPath(), test.ShouldEqual, "/opt/gmsh/bin/gmsh")

	d := cfg.Dataset
	test.That(t, d.Root, test.ShouldEqual, dir)
	test.That(t, d.LabelEncoder(), test.ShouldEqual, LabelsNumeric)
	test.That(t, d.Layout().CloudPath("7", 1000), test.ShouldEqual, filepath.Join(dir, "ply", "1000", "7_1000.ply"))
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader("", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pipeline")

	_, err = FromReader("", strings.NewReader(`{"pipeline": {"input_dir": "a"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "output_dir")

	_, err = FromReader("", strings.NewReader(`{"pipline": {}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode")

	_, err = FromReader("", strings.NewReader(`{"dataset": {"root": "/r", "density": 10, "naming": "nope"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchema(t *testing.T) {
	s := Schema()
	test.That(t, s, test.ShouldNotBeNil)
	test.That(t, s.Definitions, test.ShouldContainKey, "Pipeline")
	test.That(t, s.Definitions["Pipeline"].Required, test.ShouldResemble, []string{"input_dir", "output_dir", "densities"})
	test.That(t, s.Definitions["Dataset"].Required, test.ShouldResemble, []string{"root", "density"})

	out, err := json.Marshal(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, `"stem_density"`)
	test.That(t, string(out), test.ShouldContainSubstring, `"step_timeout"`)
	test.That(t, string(out), test.ShouldContainSubstring, `"compress_logs"`)
	test.That(t, string(out), test.ShouldNotContainSubstring, "logAppender")
	test.That(t, s.Definitions, test.ShouldNotContainKey, "FileAppender")
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadpoints.json")
	doc := `{"log_file": "logs/build.log", "dataset": {"root": "/data", "density": 1000}}`
	test.That(t, os.WriteFile(path, []byte(doc), 0o644), test.ShouldBeNil)

	logger := logging.NewBlankLogger("config")
	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, cfg.Close(), test.ShouldBeNil)
	}()
	test.That(t, cfg.LogFilePath(), test.ShouldEqual, filepath.Join(dir, "logs", "build.log"))
	test.That(t, cfg.CompressLogs, test.ShouldBeFalse)

	logger.Info("written to file")
	contents, err := os.ReadFile(cfg.LogFilePath())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "read config")
	test.That(t, string(contents), test.ShouldContainSubstring, "written to file")

	abs := &File{LogFile: "/var/log/cadpoints.log", ConfigFilePath: path}
	test.That(t, abs.LogFilePath(), test.ShouldEqual, "/var/log/cadpoints.log")
	test.That(t, (&File{}).LogFilePath(), test.ShouldEqual, "")
	test.That(t, (&File{}).Close(), test.ShouldBeNil)
}
