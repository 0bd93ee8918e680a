package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.viam.com/test"

	"go.viam.com/cadpoints/config"
	"go.viam.com/cadpoints/layout"
	"go.viam.com/cadpoints/logging"
	"go.viam.com/cadpoints/pointcloud"
	"go.viam.com/cadpoints/testutils"
)

func TestNewOrganizerValidates(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, cfg := range []config.Pipeline{
		{OutputDir: "out", Densities: []int{10}},
		{InputDir: "in", Densities: []int{10}},
		{InputDir: "in", OutputDir: "out"},
		{InputDir: "in", OutputDir: "out", Densities: []int{10, 0}},
		{InputDir: "in", OutputDir: "out", Densities: []int{10}, Workers: -1},
	} {
		_, err := NewOrganizer(cfg, &testutils.FakeMesher{}, logger)
		test.That(t, err, test.ShouldNotBeNil)
	}

	org, err := NewOrganizer(config.Pipeline{InputDir: "in", OutputDir: "out", Densities: []int{20, 10, 20}}, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, org.densities, test.ShouldResemble, []int{20, 10})
	test.That(t, org.Layout().MeshDir(), test.ShouldEqual, filepath.Join("out", layout.DefaultMeshDirName))
	_, isGmsh := org.converter.mesher.(*GmshMesher)
	test.That(t, isGmsh, test.ShouldBeTrue)
}

func TestOrganizerEndToEnd(t *testing.T) {
	for _, naming := range []layout.Naming{layout.NamingStem, layout.NamingStemDensity} {
		root := t.TempDir()
		inputDir := filepath.Join(root, "step")
		testutils.WriteStep(t, inputDir, "part_a.step")
		testutils.WriteMalformedStep(t, inputDir, "part_b.step")

		logger, logs := logging.NewObservedTestLogger(t)
		seed := int64(3)
		org, err := NewOrganizer(config.Pipeline{
			InputDir:  inputDir,
			OutputDir: root,
			Densities: []int{1000, 5000},
			Naming:    naming,
			Seed:      &seed,
		}, &testutils.FakeMesher{}, logger)
		test.That(t, err, test.ShouldBeNil)

		rr, err := org.Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rr.RunID, test.ShouldNotEqual, uuid.Nil)
		test.That(t, rr.Conversion.Stems(), test.ShouldResemble, []string{"part_a"})
		test.That(t, rr.Sampling.Stems(), test.ShouldResemble, []string{"part_a"})
		test.That(t, rr.CompleteStems(), test.ShouldResemble, []string{"part_a"})

		lay := org.Layout()
		_, err = os.Stat(filepath.Join(root, "stl", "part_a.stl"))
		test.That(t, err, test.ShouldBeNil)
		for _, density := range []int{1000, 5000} {
			pc, err := pointcloud.ReadPLYFile(lay.CloudPath("part_a", density))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, pc.Size(), test.ShouldEqual, density)

			matches, err := filepath.Glob(filepath.Join(lay.BucketDir(density), "part_b*"))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, matches, test.ShouldBeEmpty)
		}
		_, err = os.Stat(filepath.Join(root, "stl", "part_b.stl"))
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

		// part_b is reported and logged; it never produced a mesh so it never reached sampling.
		failures := rr.Failures()
		test.That(t, failures, test.ShouldHaveLength, 1)
		test.That(t, failures[0].Path, test.ShouldEqual, filepath.Join(inputDir, "part_b.step"))
		test.That(t, rr.Err(), test.ShouldNotBeNil)
		test.That(t, rr.Sampling.FailureCount(), test.ShouldEqual, 0)
		test.That(t, logs.FilterMessage("conversion failed").Len(), test.ShouldEqual, 1)
		test.That(t, logs.FilterMessage("sampling failed").Len(), test.ShouldEqual, 0)

		errorLogs := logs.FilterLevelExact(logging.ERROR.AsZap()).All()
		test.That(t, errorLogs, test.ShouldNotBeEmpty)
		for _, entry := range errorLogs {
			path, _ := entry.ContextMap()["path"].(string)
			test.That(t, strings.Contains(path, "part_b"), test.ShouldBeTrue)
		}
	}
}

func TestOrganizerRerunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "step")
	testutils.WriteStep(t, inputDir, "part_a.step")
	testutils.WriteStep(t, inputDir, "part_c.stp")
	testutils.WriteMalformedStep(t, inputDir, "part_b.step")

	org, err := NewOrganizer(config.Pipeline{
		InputDir:  inputDir,
		OutputDir: filepath.Join(root, "out"),
		Densities: []int{100, 300},
		Workers:   2,
	}, &testutils.FakeMesher{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	first, err := org.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	second, err := org.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, second.RunID, test.ShouldNotEqual, first.RunID)
	test.That(t, second.CompleteStems(), test.ShouldResemble, first.CompleteStems())
	test.That(t, second.CompleteStems(), test.ShouldResemble, []string{"part_a", "part_c"})
	test.That(t, second.Sampling.Paths(), test.ShouldResemble, first.Sampling.Paths())

	for _, density := range []int{100, 300} {
		entries, err := os.ReadDir(org.Layout().BucketDir(density))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, entries, test.ShouldHaveLength, 2)
	}
}

func TestOrganizerDoesNotSampleStaleMeshes(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "step")
	testutils.WriteStep(t, inputDir, "part_a.step")
	testutils.WriteMalformedStep(t, inputDir, "part_b.step")

	// Left behind by an earlier run in which part_b was still valid.
	meshDir := filepath.Join(root, layout.DefaultMeshDirName)
	test.That(t, layout.EnsureDir(meshDir), test.ShouldBeNil)
	testutils.WriteBoxSTL(t, meshDir, "part_b")

	org, err := NewOrganizer(config.Pipeline{
		InputDir:  inputDir,
		OutputDir: root,
		Densities: []int{100},
	}, &testutils.FakeMesher{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	rr, err := org.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rr.Sampling.Stems(), test.ShouldResemble, []string{"part_a"})
	_, err = os.Stat(org.Layout().CloudPath("part_b", 100))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestOrganizerDirectoryError(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "step")
	testutils.WriteStep(t, inputDir, "part_a.step")
	testutils.WriteFile(t, root, "out", "a file where the output root should be")

	org, err := NewOrganizer(config.Pipeline{
		InputDir:  inputDir,
		OutputDir: filepath.Join(root, "out"),
		Densities: []int{100},
	}, &testutils.FakeMesher{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	rr, err := org.Run(context.Background())
	var dirErr *DirectoryError
	test.That(t, errors.As(err, &dirErr), test.ShouldBeTrue)
	test.That(t, rr.Conversion, test.ShouldBeNil)
}

func TestOrganizerCanceled(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "step")
	testutils.WriteStep(t, inputDir, "part_a.step")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	org, err := NewOrganizer(config.Pipeline{
		InputDir:  inputDir,
		OutputDir: root,
		Densities: []int{100},
	}, &testutils.FakeMesher{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	rr, err := org.Run(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, rr.Sampling, test.ShouldBeNil)
}

func TestGenerateFromSource(t *testing.T) {
	root := t.TempDir()
	sourceDir := filepath.Join(root, "step")
	testutils.WriteStep(t, sourceDir, "part_a.step")

	rr, err := GenerateFromSource(context.Background(), sourceDir, []int{100}, &testutils.FakeMesher{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rr.Layout.Root, test.ShouldEqual, root)
	_, err = os.Stat(filepath.Join(root, "stl", "part_a.stl"))
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(filepath.Join(root, "ply", "100", "part_a.ply"))
	test.That(t, err, test.ShouldBeNil)
}
