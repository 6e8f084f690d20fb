// Package bridge closes a surface patch into a shell that spans the
// cortical ribbon.
//
// The patch boundary is anchored to the inner shell, a ruled wall joins the
// inner and outer shell along the anchored loop, the part of the outer shell
// enclosed by the loop caps the far side and the patch itself, flipped, caps
// the near side. The pieces are welded into one mesh.
package bridge

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/models"
	"cortexgeom/pkg/geodesic"
	"cortexgeom/pkg/locator"
	"cortexgeom/pkg/meshgraph"
)

var (
	// ErrMissingInput indicates a nil or empty input mesh; only returned in strict mode
	ErrMissingInput = errors.New("bridge: missing input mesh")

	// ErrShellMismatch indicates inner and outer shells without a one-to-one vertex correspondence
	ErrShellMismatch = errors.New("bridge: inner and outer shells have different vertex counts")

	// ErrNoBoundary indicates a patch without any boundary loop
	ErrNoBoundary = errors.New("bridge: patch has no boundary")

	// ErrDegenerateLoop indicates a boundary loop that anchors to fewer than three shell vertices
	ErrDegenerateLoop = errors.New("bridge: boundary loop collapses on the inner shell")

	// ErrDisconnectedShell indicates two loop anchors that cannot be joined on the outer shell
	ErrDisconnectedShell = errors.New("bridge: loop anchors are not connected on the outer shell")

	// ErrLoopNotSeparating indicates a loop that does not cut a cap out of the outer shell
	ErrLoopNotSeparating = errors.New("bridge: loop does not enclose a region of the outer shell")
)

// Progress stages reported through WithProgress
const (
	StageBoundary = "boundary"
	StageAnchors  = "anchors"
	StageWall     = "wall"
	StageCap      = "cap"
	StageMerge    = "merge"
)

// DefaultWeldTolerance is the distance below which output vertices are merged
const DefaultWeldTolerance = 1e-6

// Builder builds bridge meshes. A Builder holds only configuration and is
// safe for concurrent use.
type Builder struct {
	weldTolerance float64
	strict        bool
	progress      func(stage string)
}

// Option configures a Builder
type Option func(*Builder)

// WithWeldTolerance sets the welding distance for coincident vertices
func WithWeldTolerance(tol float64) Option {
	return func(b *Builder) { b.weldTolerance = tol }
}

// WithStrictInputs makes a missing input mesh an error instead of a no-op
func WithStrictInputs() Option {
	return func(b *Builder) { b.strict = true }
}

// WithProgress registers a callback invoked as each stage starts
func WithProgress(fn func(stage string)) Option {
	return func(b *Builder) { b.progress = fn }
}

// NewBuilder returns a Builder with the given options applied
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{weldTolerance: DefaultWeldTolerance}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bridge builds the closed shell bounded by patch on the inner side and by
// the matching region of outer on the other. inner and outer must share
// vertex ids: vertex i of inner corresponds to vertex i of outer.
//
// A nil or empty input returns (nil, nil), leaving the caller's output
// unchanged, unless the builder was created WithStrictInputs.
func (b *Builder) Bridge(patch, inner, outer *models.Mesh) (*models.Mesh, error) {
	if patch.Empty() || inner.Empty() || outer.Empty() {
		if b.strict {
			return nil, ErrMissingInput
		}
		return nil, nil
	}
	if len(inner.Points) != len(outer.Points) {
		return nil, fmt.Errorf("%w: inner %d, outer %d", ErrShellMismatch, len(inner.Points), len(outer.Points))
	}

	b.report(StageBoundary)
	loops, err := meshgraph.BoundaryLoops(patch)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	if len(loops) == 0 {
		return nil, ErrNoBoundary
	}

	b.report(StageAnchors)
	anchors := anchorLoop(patch, loops[0], inner)
	if len(anchors) < 3 {
		return nil, fmt.Errorf("%w: %d anchors", ErrDegenerateLoop, len(anchors))
	}

	outerGraph, err := meshgraph.New(outer)
	if err != nil {
		return nil, fmt.Errorf("outer shell: %w", err)
	}
	if _, err := meshgraph.New(inner); err != nil {
		return nil, fmt.Errorf("inner shell: %w", err)
	}
	ring, err := closeRing(outerGraph, anchors)
	if err != nil {
		return nil, err
	}

	welder := locator.NewWelder(b.weldTolerance)
	var faces [][3]int

	b.report(StageWall)
	faces = append(faces, wall(welder, ring, inner, outer)...)

	b.report(StageCap)
	capIDs, err := capFaces(outer, ring)
	if err != nil {
		return nil, err
	}
	for _, fi := range capIDs {
		faces = append(faces, weldFace(welder, outer.Points, outer.Faces[fi]))
	}

	b.report(StageMerge)
	for _, f := range patch.Flipped().Faces {
		faces = append(faces, weldFace(welder, patch.Points, f))
	}

	return &models.Mesh{
		Points: welder.Points(),
		Faces:  cleanFaces(faces),
	}, nil
}

func (b *Builder) report(stage string) {
	if b.progress != nil {
		b.progress(stage)
	}
}

// anchorLoop maps each loop vertex of patch to its nearest inner shell
// vertex. Consecutive repeats, including the wrap from last to first, are
// collapsed.
func anchorLoop(patch *models.Mesh, loop []int, inner *models.Mesh) []int {
	loc := locator.New(inner.Points)

	anchors := make([]int, 0, len(loop))
	for _, v := range loop {
		id, _ := loc.Nearest(patch.Points[v])
		if len(anchors) > 0 && anchors[len(anchors)-1] == id {
			continue
		}
		anchors = append(anchors, id)
	}
	for len(anchors) > 1 && anchors[len(anchors)-1] == anchors[0] {
		anchors = anchors[:len(anchors)-1]
	}
	return anchors
}

// closeRing joins consecutive anchors that are not adjacent on the outer
// shell with a shortest path, giving a closed ring of shell vertices in
// which consecutive entries share an edge. The ring closes implicitly from
// its last entry back to the first.
func closeRing(g *meshgraph.Graph, anchors []int) ([]int, error) {
	cost := geodesic.DistanceCost{Graph: g}

	ring := make([]int, 0, len(anchors))
	for i, a := range anchors {
		ring = append(ring, a)

		next := anchors[(i+1)%len(anchors)]
		if g.Adjacent(a, next) {
			continue
		}
		path, err := geodesic.FindPath(g, cost, a, next)
		if err != nil {
			return nil, err
		}
		if !path.Found() {
			return nil, fmt.Errorf("%w: %d to %d", ErrDisconnectedShell, a, next)
		}
		ring = append(ring, path.Vertices[1:len(path.Vertices)-1]...)
	}
	return ring, nil
}

// wall emits the ruled strip between the inner and outer shell along ring,
// two triangles per consecutive pair
func wall(w *locator.Welder, ring []int, inner, outer *models.Mesh) [][3]int {
	faces := make([][3]int, 0, 2*len(ring))
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]

		innerA := w.Add(inner.Points[a])
		innerB := w.Add(inner.Points[b])
		outerA := w.Add(outer.Points[a])
		outerB := w.Add(outer.Points[b])

		faces = append(faces,
			[3]int{innerA, innerB, outerA},
			[3]int{outerA, innerB, outerB},
		)
	}
	return faces
}

// weldFace maps a face over points to welded indices
func weldFace(w *locator.Welder, points []r3.Vec, f [3]int) [3]int {
	return [3]int{w.Add(points[f[0]]), w.Add(points[f[1]]), w.Add(points[f[2]])}
}

// cleanFaces drops faces with fewer than three distinct vertices and every
// repeat of a face already seen, in either winding
func cleanFaces(faces [][3]int) [][3]int {
	seen := make(map[[3]int]bool, len(faces))
	out := make([][3]int, 0, len(faces))
	for _, f := range faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		key := sortedFace(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func sortedFace(f [3]int) [3]int {
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	if f[1] > f[2] {
		f[1], f[2] = f[2], f[1]
	}
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	return f
}
