package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// PathResult is the outcome of a path or curve task
type PathResult struct {
	Name string `yaml:"name"`

	// Found is false when the endpoints are not connected
	Found    bool  `yaml:"found"`
	Vertices []int `yaml:"vertices,omitempty"`

	// Cost is the total cost under the configured weights
	Cost float64 `yaml:"cost"`

	// Length is the Euclidean length of the path
	Length float64 `yaml:"length"`

	// MeanEdgeCost is the average cost per traversed edge
	MeanEdgeCost float64 `yaml:"meanEdgeCost"`

	Error string `yaml:"error,omitempty"`
}

// SequenceResult is the outcome of a sequence task
type SequenceResult struct {
	Name       string       `yaml:"name"`
	Points     [][3]float64 `yaml:"points,omitempty"`
	Parameters []float64    `yaml:"parameters,omitempty"`

	// Length is the total arc length of the ordered curve
	Length float64 `yaml:"length"`

	// MeanSpacing and SpacingStdDev describe the distance between consecutive points
	MeanSpacing   float64 `yaml:"meanSpacing"`
	SpacingStdDev float64 `yaml:"spacingStdDev"`

	Error string `yaml:"error,omitempty"`
}

// BridgeResult is the outcome of a bridge task
type BridgeResult struct {
	Name string `yaml:"name"`

	// Skipped is set when an input mesh was missing and nothing was built
	Skipped bool `yaml:"skipped,omitempty"`

	// File is the STL file the bridge mesh was written to
	File string `yaml:"file,omitempty"`

	Vertices      int `yaml:"vertices"`
	Faces         int `yaml:"faces"`
	BoundaryEdges int `yaml:"boundaryEdges"`

	Error string `yaml:"error,omitempty"`
}

// Results collects every task outcome in job order
type Results struct {
	Paths     []PathResult     `yaml:"paths,omitempty"`
	Curves    []PathResult     `yaml:"curves,omitempty"`
	Sequences []SequenceResult `yaml:"sequences,omitempty"`
	Bridges   []BridgeResult   `yaml:"bridges,omitempty"`
}

// Failed returns the number of tasks that reported an error
func (r *Results) Failed() int {
	n := 0
	for _, p := range r.Paths {
		if p.Error != "" {
			n++
		}
	}
	for _, c := range r.Curves {
		if c.Error != "" {
			n++
		}
	}
	for _, s := range r.Sequences {
		if s.Error != "" {
			n++
		}
	}
	for _, b := range r.Bridges {
		if b.Error != "" {
			n++
		}
	}
	return n
}

// SaveResults writes results to a YAML file
func SaveResults(results *Results, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("error marshaling results: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing results file: %w", err)
	}
	return nil
}

// LoadResults reads a results document written by SaveResults
func LoadResults(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading results file: %w", err)
	}

	results := &Results{}
	if err := yaml.Unmarshal(data, results); err != nil {
		return nil, fmt.Errorf("error parsing results file: %w", err)
	}
	return results, nil
}

// summarizePath fills in the length and mean edge cost of a found path
func summarizePath(res *PathResult, points []r3.Vec) {
	if len(res.Vertices) < 2 {
		return
	}

	for i := 1; i < len(res.Vertices); i++ {
		res.Length += r3.Norm(r3.Sub(points[res.Vertices[i]], points[res.Vertices[i-1]]))
	}
	res.MeanEdgeCost = res.Cost / float64(len(res.Vertices)-1)
}

// summarizeSequence fills in the spacing statistics of an ordered curve
func summarizeSequence(res *SequenceResult, points []r3.Vec) {
	if len(points) < 2 {
		return
	}

	spacing := make([]float64, len(points)-1)
	for i := 1; i < len(points); i++ {
		spacing[i-1] = r3.Norm(r3.Sub(points[i], points[i-1]))
		res.Length += spacing[i-1]
	}

	res.MeanSpacing = stat.Mean(spacing, nil)
	if len(spacing) > 1 {
		res.SpacingStdDev = stat.StdDev(spacing, nil)
	}
}
