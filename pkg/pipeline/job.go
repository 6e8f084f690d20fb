// Package pipeline runs batches of geodesic, sequencing and bridging tasks
// described in a YAML job document and collects their results.
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"cortexgeom/internal/models"
)

var (
	// ErrUnknownMesh indicates a task referencing a mesh the job does not define
	ErrUnknownMesh = errors.New("pipeline: unknown mesh")

	// ErrInvalidMesh indicates a mesh whose scalar fields do not match its points
	ErrInvalidMesh = errors.New("pipeline: invalid mesh")
)

// MeshSpec is a mesh written inline in a job document
type MeshSpec struct {
	// Points holds x, y, z per vertex
	Points [][3]float64 `yaml:"points"`

	// Faces holds three vertex ids per triangle
	Faces [][3]int `yaml:"faces"`

	// Scalars holds named per-vertex fields such as curv and sulc
	Scalars map[string][]float64 `yaml:"scalars,omitempty"`
}

// PathTask asks for the geodesic between two vertices of a mesh
type PathTask struct {
	Name  string `yaml:"name"`
	Mesh  string `yaml:"mesh"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// CurveTask asks for the geodesic through an ordered list of vertices
type CurveTask struct {
	Name      string `yaml:"name"`
	Mesh      string `yaml:"mesh"`
	Waypoints []int  `yaml:"waypoints"`
}

// SequenceTask asks for an unordered point set to be ordered into a curve
type SequenceTask struct {
	Name   string       `yaml:"name"`
	Points [][3]float64 `yaml:"points"`
}

// BridgeTask asks for a patch to be bridged between an inner and outer shell
type BridgeTask struct {
	Name  string `yaml:"name"`
	Patch string `yaml:"patch"`
	Inner string `yaml:"inner"`
	Outer string `yaml:"outer"`
}

// Job is a batch of tasks over a set of named meshes
type Job struct {
	Meshes    map[string]MeshSpec `yaml:"meshes"`
	Paths     []PathTask          `yaml:"paths,omitempty"`
	Curves    []CurveTask         `yaml:"curves,omitempty"`
	Sequences []SequenceTask      `yaml:"sequences,omitempty"`
	Bridges   []BridgeTask        `yaml:"bridges,omitempty"`
}

// LoadJob reads a job document from a YAML file
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading job file: %w", err)
	}

	job := &Job{}
	if err := yaml.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("error parsing job file: %w", err)
	}
	return job, nil
}

// Mesh converts the document form into a mesh. Face indices are checked later, when
// a task builds its graph.
func (s MeshSpec) Mesh() (*models.Mesh, error) {
	m := &models.Mesh{
		Points: toVecs(s.Points),
		Faces:  append([][3]int(nil), s.Faces...),
	}
	if len(s.Scalars) > 0 {
		m.Scalars = make(map[string][]float64, len(s.Scalars))
		for name, values := range s.Scalars {
			if len(values) != len(m.Points) {
				return nil, fmt.Errorf("%w: scalar %q has %d values for %d points", ErrInvalidMesh, name, len(values), len(m.Points))
			}
			m.Scalars[name] = append([]float64(nil), values...)
		}
	}
	return m, nil
}

// NewMeshSpec converts a mesh into its document form
func NewMeshSpec(m *models.Mesh) MeshSpec {
	return MeshSpec{
		Points:  fromVecs(m.Points),
		Faces:   m.Faces,
		Scalars: m.Scalars,
	}
}

func toVecs(points [][3]float64) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	return out
}

func fromVecs(points []r3.Vec) [][3]float64 {
	out := make([][3]float64, len(points))
	for i, p := range points {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}
