// Package meshtest builds small synthetic meshes for tests
package meshtest

import (
	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/models"
)

// Grid returns a flat (n x n)-vertex grid at height z with unit spacing.
// Vertex id = j*n + i sits at (i, j, z); each quad is split along its
// (i,j)-(i+1,j+1) diagonal and faces are wound counter-clockwise seen from +Z.
func Grid(n int, z float64) *models.Mesh {
	m := &models.Mesh{}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			m.Points = append(m.Points, r3.Vec{X: float64(i), Y: float64(j), Z: z})
		}
	}
	for j := 0; j < n-1; j++ {
		for i := 0; i < n-1; i++ {
			a := j*n + i
			b := a + 1
			c := a + n + 1
			d := a + n
			m.Faces = append(m.Faces, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	return m
}

// Square is the unit square split into two triangles along (0,0)-(1,1)
func Square() *models.Mesh {
	return Grid(2, 0)
}

// Tetrahedron returns a closed, outward-wound tetrahedron
func Tetrahedron() *models.Mesh {
	return &models.Mesh{
		Points: []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Faces:  [][3]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}},
	}
}

// SubMesh returns the faces of m whose vertices all lie in keep, re-indexed
// over the kept vertices in ascending id order.
func SubMesh(m *models.Mesh, keep []int) *models.Mesh {
	index := make(map[int]int, len(keep))
	out := &models.Mesh{}
	for v := range m.Points {
		for _, k := range keep {
			if k == v {
				index[v] = len(out.Points)
				out.Points = append(out.Points, m.Points[v])
				break
			}
		}
	}
	for _, f := range m.Faces {
		a, okA := index[f[0]]
		b, okB := index[f[1]]
		c, okC := index[f[2]]
		if okA && okB && okC {
			out.Faces = append(out.Faces, [3]int{a, b, c})
		}
	}
	return out
}
