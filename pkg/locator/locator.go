// Package locator answers exact nearest-vertex queries over a point set
// and welds coincident points, using a gonum k-d tree.
package locator

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// vertex is a point tagged with its index in the source point list
type vertex struct {
	r3.Vec
	id int
}

// Compare implements the kdtree.Comparable interface
func (p vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertex)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the k-d tree
func (p vertex) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p vertex) Distance(c kdtree.Comparable) float64 {
	q := c.(vertex)
	return r3.Norm2(r3.Sub(p.Vec, q.Vec))
}

// vertices is a collection of vertex that satisfies kdtree.Interface
type vertices []vertex

func (p vertices) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertices) Len() int                              { return len(p) }
func (p vertices) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p vertices) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{vertices: p, Dim: d}, kdtree.MedianOfRandoms(plane{vertices: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for vertices
type plane struct {
	vertices
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.vertices[i].X < p.vertices[j].X
	case 1:
		return p.vertices[i].Y < p.vertices[j].Y
	case 2:
		return p.vertices[i].Z < p.vertices[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{vertices: p.vertices[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
}

// Locator finds the point of a fixed set closest to a query
type Locator struct {
	tree *kdtree.Tree
}

// New builds a locator over points. Indices returned by Nearest refer to
// positions in points.
func New(points []r3.Vec) *Locator {
	vs := make(vertices, len(points))
	for i, p := range points {
		vs[i] = vertex{Vec: p, id: i}
	}
	return &Locator{tree: kdtree.New(vs, false)}
}

// Len returns the number of indexed points
func (l *Locator) Len() int {
	return l.tree.Len()
}

// Nearest returns the index of the point closest to q and its Euclidean
// distance. Equidistant points resolve to the lowest index. An empty
// locator returns -1 and +Inf.
func (l *Locator) Nearest(q r3.Vec) (int, float64) {
	return nearest(l.tree, q)
}

func nearest(tree *kdtree.Tree, q r3.Vec) (int, float64) {
	if tree.Len() == 0 {
		return -1, math.Inf(1)
	}
	query := vertex{Vec: q}

	c, d2 := tree.Nearest(query)
	if c == nil {
		return -1, math.Inf(1)
	}

	// Collect every point at the same distance so ties do not depend on
	// the tree layout
	keeper := kdtree.NewDistKeeper(d2)
	tree.NearestSet(keeper, query)

	best := c.(vertex).id
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		if id := item.Comparable.(vertex).id; id < best {
			best = id
		}
	}
	return best, math.Sqrt(d2)
}
