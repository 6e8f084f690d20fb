package locator

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Welder merges points that lie within a tolerance of an earlier point.
// Points are added one at a time; each is either matched to an existing
// welded point or appended as a new one.
type Welder struct {
	tolerance float64
	tree      *kdtree.Tree
	points    []r3.Vec
}

// NewWelder returns an empty welder. A negative tolerance is treated as 0,
// which welds exactly coincident points only.
func NewWelder(tolerance float64) *Welder {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Welder{
		tolerance: tolerance,
		tree:      kdtree.New(vertices(nil), false),
	}
}

// Add returns the welded index for p, appending p as a new point when no
// earlier point lies within the tolerance
func (w *Welder) Add(p r3.Vec) int {
	if id, d := nearest(w.tree, p); id >= 0 && d <= w.tolerance {
		return id
	}

	id := len(w.points)
	w.points = append(w.points, p)
	w.tree.Insert(vertex{Vec: p, id: id}, false)
	return id
}

// Len returns the number of distinct welded points
func (w *Welder) Len() int {
	return len(w.points)
}

// Points returns the welded points in insertion order
func (w *Welder) Points() []r3.Vec {
	return w.points
}
