package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cortexgeom/internal/models"
	"cortexgeom/pkg/bridge"
	"cortexgeom/pkg/geodesic"
	"cortexgeom/pkg/meshgraph"
	"cortexgeom/pkg/sequencer"
	"cortexgeom/pkg/stl"
)

// ErrNilJob indicates that Run was called without a job
var ErrNilJob = errors.New("pipeline: job is nil")

// Params holds the runner configuration
type Params struct {
	// JobFile is the YAML job document read by Process
	JobFile string

	// OutputFile is where Process writes the YAML results document.
	// Bridge meshes are written next to it, under StlDir.
	OutputFile string

	// StlDir is the directory for bridge meshes, relative to OutputFile's directory
	StlDir string

	// NumCores specifies how many tasks run in parallel
	NumCores int

	// Weights configures the surface cost used by path and curve tasks
	Weights geodesic.Weights

	// SearchOptions are passed to every path search
	SearchOptions []geodesic.Option

	// BridgeOptions configure the bridge builder
	BridgeOptions []bridge.Option

	// Verbose prints progress to stdout
	Verbose bool
}

// ProgressCallback is a function that reports task progress
type ProgressCallback func(completed, total int, message string)

// Runner executes the tasks of a job on a pool of goroutines.
//
// Meshes, graphs and cost functions are prepared once before the tasks fan
// out and are only read afterwards; every task builds its own search state.
type Runner struct {
	// params stores the runner configuration
	params *Params

	// builder is shared by all bridge tasks
	builder *bridge.Builder

	// meshes and meshErrs hold the converted job meshes by name
	meshes   map[string]*models.Mesh
	meshErrs map[string]error

	// surfaces holds the graph and cost of each mesh used by a path or curve task
	surfaces map[string]surface

	// results stores the outcome of the last run
	results *Results

	progressCallback ProgressCallback
}

// surface is a mesh prepared for path searches
type surface struct {
	graph *meshgraph.Graph
	cost  *geodesic.SurfaceCost
	err   error
}

// NewRunner creates a runner with the provided parameters
func NewRunner(params *Params) *Runner {
	return &Runner{
		params:  params,
		builder: bridge.NewBuilder(params.BridgeOptions...),
	}
}

// SetProgressCallback sets a function to receive progress updates instead
// of the default stdout progress line
func (r *Runner) SetProgressCallback(callback ProgressCallback) {
	r.progressCallback = callback
}

// Results returns the outcome of the last run
func (r *Runner) Results() *Results {
	return r.results
}

// Process loads the job file, runs every task and writes the results file
func (r *Runner) Process() error {
	r.logf("Step 1: Loading job %s...\n", r.params.JobFile)
	job, err := LoadJob(r.params.JobFile)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	r.logf("Step 2: Running %d tasks on %d cores...\n", taskCount(job), r.workers(taskCount(job)))
	results, err := r.Run(job)
	if err != nil {
		return fmt.Errorf("failed to run job: %w", err)
	}

	r.logf("Step 3: Writing results to %s...\n", r.params.OutputFile)
	if err := SaveResults(results, r.params.OutputFile); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if failed := results.Failed(); failed > 0 {
		r.logf("%d of %d tasks failed\n", failed, taskCount(job))
	}
	return nil
}

// Run executes every task of job and returns the results in job order.
// Task failures are recorded in the results and do not stop the run.
func (r *Runner) Run(job *Job) (*Results, error) {
	if job == nil {
		return nil, ErrNilJob
	}

	r.prepare(job)

	if len(job.Bridges) > 0 && r.params.OutputFile != "" {
		if err := os.MkdirAll(r.stlDir(), 0755); err != nil {
			return nil, fmt.Errorf("failed to create mesh directory: %w", err)
		}
	}

	results := &Results{
		Paths:     make([]PathResult, len(job.Paths)),
		Curves:    make([]PathResult, len(job.Curves)),
		Sequences: make([]SequenceResult, len(job.Sequences)),
		Bridges:   make([]BridgeResult, len(job.Bridges)),
	}

	var tasks []task
	for i, t := range job.Paths {
		i, t := i, t
		tasks = append(tasks, task{run: func() { results.Paths[i] = r.runPath(t) }})
	}
	for i, t := range job.Curves {
		i, t := i, t
		tasks = append(tasks, task{run: func() { results.Curves[i] = r.runCurve(t) }})
	}
	for i, t := range job.Sequences {
		i, t := i, t
		tasks = append(tasks, task{run: func() { results.Sequences[i] = r.runSequence(t) }})
	}
	for i, t := range job.Bridges {
		i, t := i, t
		tasks = append(tasks, task{run: func() { results.Bridges[i] = r.runBridge(i, t) }})
	}

	r.execute(tasks)

	r.results = results
	return results, nil
}

// prepare converts the job meshes and builds a graph and cost function for
// every mesh a path or curve task refers to
func (r *Runner) prepare(job *Job) {
	r.meshes = make(map[string]*models.Mesh, len(job.Meshes))
	r.meshErrs = make(map[string]error)
	for name, spec := range job.Meshes {
		m, err := spec.Mesh()
		if err != nil {
			r.meshErrs[name] = err
			continue
		}
		r.meshes[name] = m
	}

	r.surfaces = make(map[string]surface)
	for _, t := range job.Paths {
		r.prepareSurface(t.Mesh)
	}
	for _, t := range job.Curves {
		r.prepareSurface(t.Mesh)
	}
}

func (r *Runner) prepareSurface(name string) {
	if _, ok := r.surfaces[name]; ok {
		return
	}

	m, err := r.mesh(name)
	if err != nil {
		r.surfaces[name] = surface{err: err}
		return
	}
	g, err := meshgraph.New(m)
	if err != nil {
		r.surfaces[name] = surface{err: fmt.Errorf("mesh %q: %w", name, err)}
		return
	}
	cost, err := geodesic.NewSurfaceCost(g, r.params.Weights)
	if err != nil {
		r.surfaces[name] = surface{err: fmt.Errorf("mesh %q: %w", name, err)}
		return
	}
	r.surfaces[name] = surface{graph: g, cost: cost}
}

// mesh returns the named job mesh
func (r *Runner) mesh(name string) (*models.Mesh, error) {
	if err, ok := r.meshErrs[name]; ok {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	m, ok := r.meshes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMesh, name)
	}
	return m, nil
}

func (r *Runner) runPath(t PathTask) PathResult {
	res := PathResult{Name: t.Name}

	s := r.surfaces[t.Mesh]
	if s.err != nil {
		res.Error = s.err.Error()
		return res
	}

	path, err := geodesic.FindPath(s.graph, s.cost, t.Start, t.End, r.params.SearchOptions...)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Found = path.Found()
	res.Vertices = path.Vertices
	res.Cost = path.Cost
	summarizePath(&res, s.graph.Mesh().Points)
	return res
}

func (r *Runner) runCurve(t CurveTask) PathResult {
	res := PathResult{Name: t.Name}

	s := r.surfaces[t.Mesh]
	if s.err != nil {
		res.Error = s.err.Error()
		return res
	}

	path, err := geodesic.FindCurve(s.graph, s.cost, t.Waypoints, r.params.SearchOptions...)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Found = path.Found()
	res.Vertices = path.Vertices
	res.Cost = path.Cost
	summarizePath(&res, s.graph.Mesh().Points)
	return res
}

func (r *Runner) runSequence(t SequenceTask) SequenceResult {
	res := SequenceResult{Name: t.Name}

	curve, err := sequencer.Sequence(toVecs(t.Points))
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Points = fromVecs(curve.Points)
	res.Parameters = curve.Parameters
	summarizeSequence(&res, curve.Points)
	return res
}

// runBridge builds one bridge mesh. A mesh name the job does not define is
// passed on as a missing input.
func (r *Runner) runBridge(index int, t BridgeTask) BridgeResult {
	res := BridgeResult{Name: t.Name}

	var inputs [3]*models.Mesh
	for i, name := range []string{t.Patch, t.Inner, t.Outer} {
		if err, ok := r.meshErrs[name]; ok {
			res.Error = fmt.Sprintf("mesh %q: %v", name, err)
			return res
		}
		inputs[i] = r.meshes[name]
	}

	out, err := r.builder.Bridge(inputs[0], inputs[1], inputs[2])
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if out == nil {
		res.Skipped = true
		return res
	}

	res.Vertices = len(out.Points)
	res.Faces = len(out.Faces)
	res.BoundaryEdges = out.BoundaryEdgeCount()

	if r.params.OutputFile == "" {
		return res
	}
	file := filepath.Join(r.params.StlDir, meshFileName(t.Name, index))
	if err := stl.SaveMesh(filepath.Join(filepath.Dir(r.params.OutputFile), file), out); err != nil {
		res.Error = err.Error()
		return res
	}
	res.File = file
	return res
}

// task is one unit of work; run stores its own result
type task struct {
	run func()
}

// execute runs tasks on the worker pool and waits for all of them
func (r *Runner) execute(tasks []task) {
	total := len(tasks)
	if total == 0 {
		return
	}

	taskChan := make(chan task)
	doneChan := make(chan struct{})

	var wg sync.WaitGroup
	for w := 0; w < r.workers(total); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskChan {
				t.run()
				doneChan <- struct{}{}
			}
		}()
	}

	go func() {
		for _, t := range tasks {
			taskChan <- t
		}
		close(taskChan)
	}()

	go func() {
		wg.Wait()
		close(doneChan)
	}()

	completed := 0
	for range doneChan {
		completed++
		r.reportProgress(completed, total, "Running tasks")
	}
	if r.progressCallback == nil && r.params.Verbose {
		fmt.Println() // New line after progress
	}
}

// workers returns the pool size for n tasks
func (r *Runner) workers(n int) int {
	w := r.params.NumCores
	if w < 1 {
		w = 1
	}
	if n > 0 && w > n {
		w = n
	}
	return w
}

func (r *Runner) stlDir() string {
	return filepath.Join(filepath.Dir(r.params.OutputFile), r.params.StlDir)
}

// reportProgress calls the progress callback if set, otherwise prints to stdout
func (r *Runner) reportProgress(completed, total int, message string) {
	if r.progressCallback != nil {
		r.progressCallback(completed, total, message)
		return
	}
	if r.params.Verbose {
		progress := float64(completed) / float64(total) * 100
		fmt.Printf("\r%s: %.1f%% complete", message, progress)
	}
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.params.Verbose {
		fmt.Printf(format, args...)
	}
}

func taskCount(job *Job) int {
	return len(job.Paths) + len(job.Curves) + len(job.Sequences) + len(job.Bridges)
}

// meshFileName returns a file name for a bridge mesh that cannot escape the mesh directory
func meshFileName(name string, index int) string {
	clean := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		default:
			return '_'
		}
	}, name)
	return fmt.Sprintf("%03d_%s.stl", index, clean)
}
