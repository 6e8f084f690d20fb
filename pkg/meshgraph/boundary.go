package meshgraph

import (
	"fmt"
	"sort"

	"cortexgeom/internal/models"
)

// BoundaryLoops returns the open edges of mesh (edges used by exactly one
// face) chained into ordered vertex loops. Each loop follows the winding of
// the faces it borders and is closed implicitly: its last vertex connects
// back to its first. Loops meeting at a non-manifold vertex are split there.
// Loops are returned longest first.
func BoundaryLoops(mesh *models.Mesh) ([][]int, error) {
	if mesh == nil {
		return nil, ErrNilMesh
	}
	n := len(mesh.Points)
	for i, f := range mesh.Faces {
		for _, id := range f {
			if id < 0 || id >= n {
				return nil, fmt.Errorf("%w: face %d vertex %d (mesh has %d points)", ErrFaceIndexOutOfRange, i, id, n)
			}
		}
	}

	use := mesh.EdgeUse()

	// Directed boundary edges in face order, keyed by their tail vertex
	type halfEdge struct{ from, to int }
	var edges []halfEdge
	outgoing := make(map[int][]int)
	for _, f := range mesh.Faces {
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a == b || use[models.NewEdge(a, b)] != 1 {
				continue
			}
			edges = append(edges, halfEdge{a, b})
			outgoing[a] = append(outgoing[a], len(edges)-1)
		}
	}

	used := make([]bool, len(edges))
	var loops [][]int

	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		first := edges[start].from
		loop := []int{first}
		pos := map[int]int{first: 0}
		cur := edges[start].to

		for cur != first {
			if k, seen := pos[cur]; seen {
				// Pinch vertex: the walk closed a sub-loop through cur
				loops = append(loops, append([]int(nil), loop[k:]...))
				for _, v := range loop[k+1:] {
					delete(pos, v)
				}
				loop = loop[:k+1]
			} else {
				pos[cur] = len(loop)
				loop = append(loop, cur)
			}

			next := -1
			for _, e := range outgoing[cur] {
				if !used[e] {
					next = e
					break
				}
			}
			if next < 0 {
				// Open chain; only possible on inconsistently wound input
				break
			}
			used[next] = true
			cur = edges[next].to
		}
		loops = append(loops, loop)
	}

	sort.SliceStable(loops, func(i, j int) bool {
		return len(loops[i]) > len(loops[j])
	})
	return loops, nil
}
