// Package sequencer orders an unordered set of 3D points into a single
// branch-free curve and parameterizes it by normalized arc length.
//
// The ordering is a spanning tree grown from point 0 with at most two growth
// fronts. Every step attaches the unvisited point closest to either front,
// so the tree never branches and its two chains form the curve.
package sequencer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/models"
)

var (
	// ErrInsufficientPoints indicates fewer than two input points
	ErrInsufficientPoints = errors.New("sequencer: at least two points are required")

	// ErrDegenerateInput indicates a curve of zero total length or non-finite coordinates
	ErrDegenerateInput = errors.New("sequencer: degenerate input")
)

// Sequence orders points into a curve and assigns each point its normalized
// arc-length parameter. Parameters start at 0, end at 1 and never decrease.
//
// The curve starts at whichever end of the trunk is lexicographically smaller
// (x, then y, then z), so sequencing an already ordered curve reproduces it.
//
// Complexity: O(N^2) time and space.
func Sequence(points []r3.Vec) (models.Curve, error) {
	n := len(points)
	if n < 2 {
		return models.Curve{}, fmt.Errorf("%w: got %d", ErrInsufficientPoints, n)
	}
	for i, p := range points {
		if !finite(p) {
			return models.Curve{}, fmt.Errorf("%w: point %d is not finite", ErrDegenerateInput, i)
		}
	}

	dist := distanceMatrix(points)
	t := grow(dist)

	trunk := t.trunk()
	if lexLess(points[trunk[len(trunk)-1]], points[trunk[0]]) {
		reverse(trunk)
	}

	trunkPoints := make([]r3.Vec, len(trunk))
	for i, idx := range trunk {
		trunkPoints[i] = points[idx]
	}
	trunkParams, err := ArcLengthParameters(trunkPoints)
	if err != nil {
		return models.Curve{}, err
	}

	params := make([]float64, n)
	onTrunk := make([]bool, n)
	for i, idx := range trunk {
		params[idx] = trunkParams[i]
		onTrunk[idx] = true
	}

	// Points off the trunk take the parameter of their first trunk ancestor
	order := append([]int(nil), trunk...)
	for idx := 0; idx < n; idx++ {
		if onTrunk[idx] {
			continue
		}
		a := t.parent[idx]
		for a >= 0 && !onTrunk[a] {
			a = t.parent[a]
		}
		if a >= 0 {
			params[idx] = params[a]
		}
		order = append(order, idx)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return params[order[i]] < params[order[j]]
	})

	curve := models.Curve{
		Points:     make([]r3.Vec, n),
		Parameters: make([]float64, n),
	}
	for i, idx := range order {
		curve.Points[i] = points[idx]
		curve.Parameters[i] = params[idx]
	}
	return curve, nil
}

// ArcLengthParameters returns the cumulative length along points divided by
// the total length, so the first value is 0 and the last is 1.
func ArcLengthParameters(points []r3.Vec) ([]float64, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientPoints, len(points))
	}

	params := make([]float64, len(points))
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += r3.Norm(r3.Sub(points[i], points[i-1]))
		params[i] = total
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: all points coincide", ErrDegenerateInput)
	}

	for i := range params {
		params[i] /= total
	}
	params[len(params)-1] = 1
	return params, nil
}

// distanceMatrix computes all pairwise Euclidean distances
func distanceMatrix(points []r3.Vec) *mat.SymDense {
	n := len(points)
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, r3.Norm(r3.Sub(points[i], points[j])))
		}
	}
	return dist
}

// tree is a spanning tree rooted at point 0 with two growth fronts
type tree struct {
	parent []int // parent point index, -1 for the root
	lead   int   // first growth front
	tail   int   // second growth front
}

// grow builds the two-front spanning tree over the distance matrix.
//
// Unvisited points are scanned in index order and the fronts in the order
// lead, tail; only a strictly smaller distance replaces the current best,
// which makes ties resolve to the lowest index and to the lead front.
func grow(dist *mat.SymDense) *tree {
	n, _ := dist.Dims()
	t := &tree{parent: make([]int, n)}
	for i := range t.parent {
		t.parent[i] = -1
	}
	visited := make([]bool, n)
	visited[0] = true

	for step := 1; step < n; step++ {
		best := math.Inf(1)
		bestPoint, bestFront := -1, 0

		for p := 0; p < n; p++ {
			if visited[p] {
				continue
			}
			if d := dist.At(t.lead, p); d < best {
				best, bestPoint, bestFront = d, p, 0
			}
			// The tail only becomes a separate front once the fronts split
			if t.tail == t.lead {
				continue
			}
			if d := dist.At(t.tail, p); d < best {
				best, bestPoint, bestFront = d, p, 1
			}
		}

		if bestFront == 0 {
			t.parent[bestPoint] = t.lead
			t.lead = bestPoint
		} else {
			t.parent[bestPoint] = t.tail
			t.tail = bestPoint
		}
		visited[bestPoint] = true
	}
	return t
}

// chain returns the parent chain from v up to and including the root
func (t *tree) chain(v int) []int {
	var c []int
	for ; v >= 0; v = t.parent[v] {
		c = append(c, v)
	}
	return c
}

// trunk returns the path from the lead front through the root to the tail front
func (t *tree) trunk() []int {
	trunk := t.chain(t.lead)
	down := t.chain(t.tail)
	reverse(down)
	return append(trunk, down[1:]...)
}

// lexLess orders points by x, then y, then z
func lexLess(a, b r3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func finite(p r3.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
