// Package meshgraph exposes a triangulated surface as an undirected
// vertex-adjacency graph. Two vertices are neighbors when they share a
// triangle edge. The graph is a read-only view built once from a mesh.
package meshgraph

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/models"
)

var (
	// ErrNilMesh indicates that no mesh was supplied
	ErrNilMesh = errors.New("meshgraph: mesh is nil")

	// ErrFaceIndexOutOfRange indicates a face referencing a vertex id that does not exist
	ErrFaceIndexOutOfRange = errors.New("meshgraph: face references out-of-range vertex")
)

// Graph is the vertex-adjacency graph of a mesh
type Graph struct {
	mesh *models.Mesh

	// neighbors[v] holds the sorted, distinct neighbors of v
	neighbors [][]int
}

// New builds the adjacency graph of mesh. It fails if any face references a
// vertex id outside the mesh's point list.
func New(mesh *models.Mesh) (*Graph, error) {
	if mesh == nil {
		return nil, ErrNilMesh
	}

	n := len(mesh.Points)
	sets := make([]map[int]struct{}, n)

	for i, f := range mesh.Faces {
		for _, id := range f {
			if id < 0 || id >= n {
				return nil, fmt.Errorf("%w: face %d vertex %d (mesh has %d points)", ErrFaceIndexOutOfRange, i, id, n)
			}
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a == b {
				continue
			}
			if sets[a] == nil {
				sets[a] = make(map[int]struct{}, 6)
			}
			if sets[b] == nil {
				sets[b] = make(map[int]struct{}, 6)
			}
			sets[a][b] = struct{}{}
			sets[b][a] = struct{}{}
		}
	}

	g := &Graph{
		mesh:      mesh,
		neighbors: make([][]int, n),
	}
	for v, set := range sets {
		if len(set) == 0 {
			continue
		}
		list := make([]int, 0, len(set))
		for u := range set {
			list = append(list, u)
		}
		sort.Ints(list)
		g.neighbors[v] = list
	}

	return g, nil
}

// Mesh returns the mesh the graph was built from
func (g *Graph) Mesh() *models.Mesh {
	return g.mesh
}

// NumVertices returns the number of vertices in the graph
func (g *Graph) NumVertices() int {
	return len(g.neighbors)
}

// Contains reports whether v is a valid vertex id
func (g *Graph) Contains(v int) bool {
	return v >= 0 && v < len(g.neighbors)
}

// Neighbors returns the vertices sharing an edge with v in ascending order.
// The returned slice must not be modified.
func (g *Graph) Neighbors(v int) []int {
	if !g.Contains(v) {
		return nil
	}
	return g.neighbors[v]
}

// Adjacent reports whether u and v share an edge
func (g *Graph) Adjacent(u, v int) bool {
	list := g.Neighbors(u)
	i := sort.SearchInts(list, v)
	return i < len(list) && list[i] == v
}

// Position returns the coordinates of vertex v
func (g *Graph) Position(v int) r3.Vec {
	return g.mesh.Points[v]
}
