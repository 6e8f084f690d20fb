// Package geodesic finds least-cost vertex paths along a surface mesh.
//
// The search is Dijkstra's algorithm over the mesh's vertex-adjacency graph,
// with edge costs supplied by an EdgeCost. SurfaceCost implements the
// FreeSurfer cost function, which steers paths along sulcal fundi using the
// curvature and sulcal height fields; DistanceCost gives plain shortest paths.
//
// Edge costs may be asymmetric: the direction term depends on which endpoint
// of an edge is closer to the target.
package geodesic

import "errors"

var (
	// ErrNilGraph indicates that no mesh graph was supplied
	ErrNilGraph = errors.New("geodesic: graph is nil")

	// ErrNilCost indicates that no cost function was supplied
	ErrNilCost = errors.New("geodesic: cost function is nil")

	// ErrVertexOutOfRange indicates a start, end, or waypoint vertex that is not in the graph
	ErrVertexOutOfRange = errors.New("geodesic: vertex out of range")

	// ErrNegativeWeight indicates a negative weight or penalty in Weights
	ErrNegativeWeight = errors.New("geodesic: negative weight or penalty")

	// ErrNegativeCost indicates that a cost function produced a negative edge cost
	ErrNegativeCost = errors.New("geodesic: negative edge cost")

	// ErrFieldLength indicates a scalar field whose length differs from the vertex count
	ErrFieldLength = errors.New("geodesic: scalar field length does not match vertex count")

	// ErrTooFewWaypoints indicates a curve request with fewer than two waypoints
	ErrTooFewWaypoints = errors.New("geodesic: curve needs at least two waypoints")
)

// Path is an ordered vertex path and its accumulated cost.
// An empty Vertices slice means the end vertex is not reachable.
type Path struct {
	Vertices []int
	Cost     float64
}

// Found reports whether the search reached its end vertex
func (p Path) Found() bool {
	return len(p.Vertices) > 0
}

// Options configures a path search
type Options struct {
	// StopWhenEndReached ends the search as soon as the end vertex is settled
	// instead of building the full shortest-path tree
	StopWhenEndReached bool
}

// Option modifies Options
type Option func(*Options)

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{StopWhenEndReached: true}
}

// WithStopWhenEndReached toggles early termination at the end vertex
func WithStopWhenEndReached(stop bool) Option {
	return func(o *Options) { o.StopWhenEndReached = stop }
}
