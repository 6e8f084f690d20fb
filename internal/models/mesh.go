package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Well-known per-vertex scalar field names, matching the FreeSurfer overlay names
const (
	ScalarCurvature    = "curv"
	ScalarSulcalHeight = "sulc"
)

// Mesh represents a triangulated surface with optional per-vertex scalar fields
type Mesh struct {
	// Points holds vertex positions; a vertex id is its index in this slice
	Points []r3.Vec

	// Faces holds triangles as triples of vertex ids
	Faces [][3]int

	// Scalars maps a field name to one value per vertex
	Scalars map[string][]float64
}

// Curve represents an ordered polyline with one parameter per point in [0, 1]
type Curve struct {
	// Points is the ordered sequence of positions
	Points []r3.Vec

	// Parameters is the normalized arc length at each point
	Parameters []float64
}

// Empty reports whether the mesh is nil or has no points or no faces
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Points) == 0 || len(m.Faces) == 0
}

// Scalar returns the named field, or nil if the mesh does not carry it
func (m *Mesh) Scalar(name string) []float64 {
	if m == nil || m.Scalars == nil {
		return nil
	}
	return m.Scalars[name]
}

// Clone returns a deep copy of the mesh
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}

	out := &Mesh{
		Points: append([]r3.Vec(nil), m.Points...),
		Faces:  append([][3]int(nil), m.Faces...),
	}
	if m.Scalars != nil {
		out.Scalars = make(map[string][]float64, len(m.Scalars))
		for name, values := range m.Scalars {
			out.Scalars[name] = append([]float64(nil), values...)
		}
	}
	return out
}

// Flipped returns a copy of the mesh with every face wound the other way,
// which reverses all face normals
func (m *Mesh) Flipped() *Mesh {
	out := m.Clone()
	if out == nil {
		return nil
	}
	for i, f := range out.Faces {
		out.Faces[i] = [3]int{f[0], f[2], f[1]}
	}
	return out
}

// Edge is an undirected mesh edge with A < B
type Edge struct {
	A, B int
}

// NewEdge returns the canonical edge between two vertices
func NewEdge(u, v int) Edge {
	if u > v {
		u, v = v, u
	}
	return Edge{A: u, B: v}
}

// EdgeUse counts how many faces use each undirected edge
func (m *Mesh) EdgeUse() map[Edge]int {
	use := make(map[Edge]int, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a == b {
				continue
			}
			use[NewEdge(a, b)]++
		}
	}
	return use
}

// BoundaryEdgeCount returns the number of edges used by exactly one face
func (m *Mesh) BoundaryEdgeCount() int {
	n := 0
	for _, c := range m.EdgeUse() {
		if c == 1 {
			n++
		}
	}
	return n
}

// NonManifoldEdgeCount returns the number of edges shared by more than two faces
func (m *Mesh) NonManifoldEdgeCount() int {
	n := 0
	for _, c := range m.EdgeUse() {
		if c > 2 {
			n++
		}
	}
	return n
}
