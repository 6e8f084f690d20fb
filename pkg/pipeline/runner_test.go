package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"cortexgeom/internal/meshtest"
	"cortexgeom/pkg/bridge"
	"cortexgeom/pkg/geodesic"
	"cortexgeom/pkg/stl"
)

func testJob() *Job {
	inner := meshtest.Grid(4, 0)
	return &Job{
		Meshes: map[string]MeshSpec{
			"square": NewMeshSpec(meshtest.Square()),
			"grid":   NewMeshSpec(meshtest.Grid(3, 0)),
			"inner":  NewMeshSpec(inner),
			"outer":  NewMeshSpec(meshtest.Grid(4, 1)),
			"patch":  NewMeshSpec(meshtest.SubMesh(inner, []int{5, 6, 9, 10})),
		},
		Paths: []PathTask{
			{Name: "diagonal", Mesh: "square", Start: 0, End: 3},
			{Name: "missing", Mesh: "nope", Start: 0, End: 1},
			{Name: "out-of-range", Mesh: "grid", Start: 0, End: 99},
		},
		Curves: []CurveTask{
			{Name: "corner", Mesh: "grid", Waypoints: []int{0, 2, 8}},
		},
		Sequences: []SequenceTask{
			{Name: "line", Points: [][3]float64{{3, 0, 0}, {0, 0, 0}, {2, 0, 0}, {1, 0, 0}}},
			{Name: "single", Points: [][3]float64{{1, 1, 1}}},
		},
		Bridges: []BridgeTask{
			{Name: "box", Patch: "patch", Inner: "inner", Outer: "outer"},
			{Name: "no patch", Patch: "absent", Inner: "inner", Outer: "outer"},
		},
	}
}

func testParams(output string) *Params {
	return &Params{
		OutputFile:    output,
		StlDir:        "meshes",
		NumCores:      3,
		Weights:       geodesic.DistanceOnly(),
		SearchOptions: []geodesic.Option{geodesic.WithStopWhenEndReached(true)},
		BridgeOptions: []bridge.Option{bridge.WithWeldTolerance(1e-6)},
	}
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(testParams(filepath.Join(dir, "results.yaml")))

	results, err := r.Run(testJob())
	require.NoError(t, err)
	require.Same(t, results, r.Results())

	require.Len(t, results.Paths, 3)
	diag := results.Paths[0]
	require.Equal(t, "diagonal", diag.Name)
	require.True(t, diag.Found)
	require.Equal(t, []int{0, 3}, diag.Vertices)
	require.InDelta(t, math.Sqrt2, diag.Cost, 1e-12)
	require.InDelta(t, math.Sqrt2, diag.Length, 1e-12)
	require.InDelta(t, math.Sqrt2, diag.MeanEdgeCost, 1e-12)

	require.Contains(t, results.Paths[1].Error, "unknown mesh")
	require.Contains(t, results.Paths[2].Error, "out of range")

	require.Len(t, results.Curves, 1)
	require.Equal(t, []int{0, 1, 2, 5, 8}, results.Curves[0].Vertices)
	require.InDelta(t, 4.0, results.Curves[0].Cost, 1e-12)
	require.InDelta(t, 1.0, results.Curves[0].MeanEdgeCost, 1e-12)

	line := results.Sequences[0]
	require.Empty(t, line.Error)
	require.Equal(t, [][3]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}, line.Points)
	require.InDeltaSlice(t, []float64{0, 1.0 / 3, 2.0 / 3, 1}, line.Parameters, 1e-12)
	require.InDelta(t, 3.0, line.Length, 1e-12)
	require.InDelta(t, 1.0, line.MeanSpacing, 1e-12)
	require.InDelta(t, 0.0, line.SpacingStdDev, 1e-12)
	require.Contains(t, results.Sequences[1].Error, "at least two points")

	box := results.Bridges[0]
	require.Empty(t, box.Error)
	require.Equal(t, 8, box.Vertices)
	require.Equal(t, 12, box.Faces)
	require.Equal(t, 0, box.BoundaryEdges)
	require.Equal(t, filepath.Join("meshes", "000_box.stl"), box.File)

	file, err := os.Open(filepath.Join(dir, box.File))
	require.NoError(t, err)
	defer file.Close()
	triangles, err := stl.Read(file)
	require.NoError(t, err)
	require.Len(t, triangles, 12)

	require.True(t, results.Bridges[1].Skipped)
	require.Empty(t, results.Bridges[1].Error)

	require.Equal(t, 3, results.Failed())
}

func TestRunner_NoOutputFile(t *testing.T) {
	r := NewRunner(testParams(""))
	results, err := r.Run(&Job{
		Meshes: testJob().Meshes,
		Bridges: []BridgeTask{
			{Name: "box", Patch: "patch", Inner: "inner", Outer: "outer"},
		},
	})
	require.NoError(t, err)
	require.Empty(t, results.Bridges[0].File)
	require.Equal(t, 12, results.Bridges[0].Faces)
}

func TestRunner_StrictBridge(t *testing.T) {
	params := testParams("")
	params.BridgeOptions = append(params.BridgeOptions, bridge.WithStrictInputs())

	results, err := NewRunner(params).Run(&Job{
		Meshes:  testJob().Meshes,
		Bridges: []BridgeTask{{Name: "no patch", Patch: "absent", Inner: "inner", Outer: "outer"}},
	})
	require.NoError(t, err)
	require.False(t, results.Bridges[0].Skipped)
	require.Contains(t, results.Bridges[0].Error, "missing input")
}

func TestRunner_InvalidMesh(t *testing.T) {
	job := &Job{
		Meshes: map[string]MeshSpec{
			"bad": {
				Points:  [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Faces:   [][3]int{{0, 1, 2}},
				Scalars: map[string][]float64{"curv": {1, 2}},
			},
		},
		Paths:   []PathTask{{Name: "p", Mesh: "bad", Start: 0, End: 1}},
		Bridges: []BridgeTask{{Name: "b", Patch: "bad", Inner: "bad", Outer: "bad"}},
	}

	results, err := NewRunner(testParams("")).Run(job)
	require.NoError(t, err)
	require.Contains(t, results.Paths[0].Error, "invalid mesh")
	require.Contains(t, results.Bridges[0].Error, "invalid mesh")

	_, err = NewRunner(testParams("")).Run(nil)
	require.ErrorIs(t, err, ErrNilJob)
}

func TestRunner_Progress(t *testing.T) {
	r := NewRunner(testParams(""))

	var calls int32
	var last int32
	r.SetProgressCallback(func(completed, total int, message string) {
		atomic.AddInt32(&calls, 1)
		atomic.StoreInt32(&last, int32(completed))
		require.Equal(t, 8, total)
	})

	job := testJob()
	_, err := r.Run(job)
	require.NoError(t, err)
	require.Equal(t, int32(8), atomic.LoadInt32(&calls))
	require.Equal(t, int32(8), atomic.LoadInt32(&last))
}

func TestRunner_Process(t *testing.T) {
	dir := t.TempDir()
	jobFile := filepath.Join(dir, "job.yaml")

	data, err := yaml.Marshal(testJob())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jobFile, data, 0644))

	params := testParams(filepath.Join(dir, "out", "results.yaml"))
	params.JobFile = jobFile
	require.NoError(t, NewRunner(params).Process())

	results, err := LoadResults(params.OutputFile)
	require.NoError(t, err)
	require.Len(t, results.Paths, 3)
	require.Equal(t, []int{0, 3}, results.Paths[0].Vertices)
	require.Equal(t, 12, results.Bridges[0].Faces)

	_, err = os.Stat(filepath.Join(dir, "out", results.Bridges[0].File))
	require.NoError(t, err)

	params.JobFile = filepath.Join(dir, "missing.yaml")
	require.Error(t, NewRunner(params).Process())
}

func TestMeshFileName(t *testing.T) {
	require.Equal(t, "000_box.stl", meshFileName("box", 0))
	require.Equal(t, "012____etc_lh_pial.stl", meshFileName("../etc/lh pial", 12))
}

func TestWorkers(t *testing.T) {
	r := NewRunner(&Params{NumCores: 0})
	require.Equal(t, 1, r.workers(10))

	r = NewRunner(&Params{NumCores: 8})
	require.Equal(t, 3, r.workers(3))
	require.Equal(t, 8, r.workers(20))
}
