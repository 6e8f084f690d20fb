package geodesic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/models"
	"cortexgeom/pkg/meshgraph"
)

// EdgeCost computes the cost of traversing the edge u -> v.
// The total edge cost is StaticCost + DynamicCost; both must be non-negative.
type EdgeCost interface {
	StaticCost(u, v int) float64
	DynamicCost(u, v int) float64
}

// Targeter is implemented by costs that depend on the search's end vertex.
// FindPath re-aims such a cost at its end vertex before searching.
type Targeter interface {
	Towards(end int) EdgeCost
}

// Weights holds every weight and penalty of the surface cost function.
// A penalty multiplies its weight only when the scalar the term depends on
// is negative at the vertex being entered.
type Weights struct {
	DistanceWeight                      float64 `yaml:"distanceWeight"`
	CurvatureWeight                     float64 `yaml:"curvatureWeight"`
	SulcalHeightWeight                  float64 `yaml:"sulcalHeightWeight"`
	DistanceCurvatureWeight             float64 `yaml:"distanceCurvatureWeight"`
	DistanceSulcalHeightWeight          float64 `yaml:"distanceSulcalHeightWeight"`
	CurvatureSulcalHeightWeight         float64 `yaml:"curvatureSulcalHeightWeight"`
	DistanceCurvatureSulcalHeightWeight float64 `yaml:"distanceCurvatureSulcalHeightWeight"`
	DirectionWeight                     float64 `yaml:"directionWeight"`

	CurvaturePenalty                     float64 `yaml:"curvaturePenalty"`
	SulcalHeightPenalty                  float64 `yaml:"sulcalHeightPenalty"`
	DistanceCurvaturePenalty             float64 `yaml:"distanceCurvaturePenalty"`
	DistanceSulcalHeightPenalty          float64 `yaml:"distanceSulcalHeightPenalty"`
	CurvatureSulcalHeightPenalty         float64 `yaml:"curvatureSulcalHeightPenalty"`
	DistanceCurvatureSulcalHeightPenalty float64 `yaml:"distanceCurvatureSulcalHeightPenalty"`

	// InvertScalars negates both scalar fields before use, so the path
	// prefers gyral crowns instead of sulcal fundi
	InvertScalars bool `yaml:"invertScalars"`
}

// DefaultWeights returns the weights of the FreeSurfer mris_pmake cost function
func DefaultWeights() Weights {
	return Weights{
		DistanceWeight:                      1.0,
		CurvatureWeight:                     1.0,
		SulcalHeightWeight:                  1.0,
		DistanceCurvatureWeight:             1.0,
		DistanceSulcalHeightWeight:          1.0,
		CurvatureSulcalHeightWeight:         1.0,
		DistanceCurvatureSulcalHeightWeight: 1.0,
		DirectionWeight:                     1.0,

		CurvaturePenalty:                     10.0,
		SulcalHeightPenalty:                  10.0,
		DistanceCurvaturePenalty:             10.0,
		DistanceSulcalHeightPenalty:          10.0,
		CurvatureSulcalHeightPenalty:         10.0,
		DistanceCurvatureSulcalHeightPenalty: 1.0,
	}
}

// DistanceOnly returns weights that reduce the cost to the edge length
func DistanceOnly() Weights {
	return Weights{DistanceWeight: 1.0}
}

// Validate checks that no weight or penalty is negative
func (w Weights) Validate() error {
	values := []struct {
		name  string
		value float64
	}{
		{"distanceWeight", w.DistanceWeight},
		{"curvatureWeight", w.CurvatureWeight},
		{"sulcalHeightWeight", w.SulcalHeightWeight},
		{"distanceCurvatureWeight", w.DistanceCurvatureWeight},
		{"distanceSulcalHeightWeight", w.DistanceSulcalHeightWeight},
		{"curvatureSulcalHeightWeight", w.CurvatureSulcalHeightWeight},
		{"distanceCurvatureSulcalHeightWeight", w.DistanceCurvatureSulcalHeightWeight},
		{"directionWeight", w.DirectionWeight},
		{"curvaturePenalty", w.CurvaturePenalty},
		{"sulcalHeightPenalty", w.SulcalHeightPenalty},
		{"distanceCurvaturePenalty", w.DistanceCurvaturePenalty},
		{"distanceSulcalHeightPenalty", w.DistanceSulcalHeightPenalty},
		{"curvatureSulcalHeightPenalty", w.CurvatureSulcalHeightPenalty},
		{"distanceCurvatureSulcalHeightPenalty", w.DistanceCurvatureSulcalHeightPenalty},
	}
	for _, v := range values {
		if v.value < 0 || math.IsNaN(v.value) {
			return fmt.Errorf("%w: %s=%g", ErrNegativeWeight, v.name, v.value)
		}
	}
	return nil
}

// scalarField is a per-vertex field together with its value range
type scalarField struct {
	values   []float64
	min, max float64
}

// at returns the field value at v, or 0 when the field is absent
func (f scalarField) at(v int) float64 {
	if f.values == nil {
		return 0
	}
	return f.values[v]
}

func newScalarField(name string, values []float64, n int, invert bool) (scalarField, error) {
	if values == nil {
		return scalarField{}, nil
	}
	if len(values) != n {
		return scalarField{}, fmt.Errorf("%w: %q has %d values for %d vertices", ErrFieldLength, name, len(values), n)
	}
	if len(values) == 0 {
		return scalarField{}, nil
	}

	if invert {
		neg := make([]float64, len(values))
		floats.ScaleTo(neg, -1, values)
		values = neg
	}
	return scalarField{
		values: values,
		min:    floats.Min(values),
		max:    floats.Max(values),
	}, nil
}

// SurfaceCost is the curvature and sulcal-height aware cost used to trace
// curves along cortical folds. It is immutable; Towards returns a copy
// aimed at a different end vertex.
type SurfaceCost struct {
	graph        *meshgraph.Graph
	weights      Weights
	curvature    scalarField
	sulcalHeight scalarField
	end          int
}

// NewSurfaceCost builds the cost function for the mesh behind g. The
// curvature ("curv") and sulcal height ("sulc") fields are read from the
// mesh scalars; a missing field zeroes every term that depends on it.
func NewSurfaceCost(g *meshgraph.Graph, w Weights) (*SurfaceCost, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	mesh := g.Mesh()
	n := g.NumVertices()

	curv, err := newScalarField(models.ScalarCurvature, mesh.Scalar(models.ScalarCurvature), n, w.InvertScalars)
	if err != nil {
		return nil, err
	}
	sulc, err := newScalarField(models.ScalarSulcalHeight, mesh.Scalar(models.ScalarSulcalHeight), n, w.InvertScalars)
	if err != nil {
		return nil, err
	}

	return &SurfaceCost{
		graph:        g,
		weights:      w,
		curvature:    curv,
		sulcalHeight: sulc,
	}, nil
}

// Weights returns the weights the cost was built with
func (c *SurfaceCost) Weights() Weights {
	return c.weights
}

// End returns the vertex the direction term currently aims at
func (c *SurfaceCost) End() int {
	return c.end
}

// Towards returns a copy of the cost whose direction term aims at end
func (c *SurfaceCost) Towards(end int) EdgeCost {
	cp := *c
	cp.end = end
	return &cp
}

// StaticCost is zero for the surface cost; every term depends on the target
func (c *SurfaceCost) StaticCost(u, v int) float64 {
	return 0
}

// DynamicCost computes the weighted sum of distance, curvature, sulcal
// height, their products, and the direction bias for the step u -> v.
func (c *SurfaceCost) DynamicCost(u, v int) float64 {
	current := c.graph.Position(u)
	neighbour := c.graph.Position(v)

	distance := r3.Norm(r3.Sub(neighbour, current))
	curvature := c.curvature.at(v)
	sulcalHeight := c.sulcalHeight.at(v)

	edgeDirection := normalize(r3.Sub(neighbour, current))
	directionToEnd := normalize(r3.Sub(c.graph.Position(c.end), current))
	// Rounding can push the dot product of two unit vectors past 1
	direction := math.Max(0, 1.0-r3.Dot(edgeDirection, directionToEnd))

	w := c.weights
	distanceWeight := w.DistanceWeight
	curvatureWeight := w.CurvatureWeight
	sulcalHeightWeight := w.SulcalHeightWeight
	distanceCurvatureWeight := w.DistanceCurvatureWeight
	distanceSulcalHeightWeight := w.DistanceSulcalHeightWeight
	curvatureSulcalHeightWeight := w.CurvatureSulcalHeightWeight
	distanceCurvatureSulcalHeightWeight := w.DistanceCurvatureSulcalHeightWeight
	directionWeight := w.DirectionWeight

	if curvature < 0 {
		curvatureWeight *= w.CurvaturePenalty
		distanceCurvatureWeight *= w.DistanceCurvaturePenalty
		curvatureSulcalHeightWeight *= w.CurvatureSulcalHeightPenalty
		distanceCurvatureSulcalHeightWeight *= w.DistanceCurvatureSulcalHeightPenalty
	}
	if sulcalHeight < 0 {
		sulcalHeightWeight *= w.SulcalHeightPenalty
		distanceSulcalHeightWeight *= w.DistanceSulcalHeightPenalty
		curvatureSulcalHeightWeight *= w.CurvatureSulcalHeightPenalty
		distanceCurvatureSulcalHeightWeight *= w.DistanceCurvatureSulcalHeightPenalty
	}

	// Shift both fields to non-negative values; the most negative regions
	// end up with the largest contribution
	curvature = c.curvature.max - curvature
	sulcalHeight = c.sulcalHeight.max - sulcalHeight

	cost := 0.0
	cost += distanceWeight * distance
	cost += curvatureWeight * curvature
	cost += sulcalHeightWeight * sulcalHeight
	cost += distanceSulcalHeightWeight * distance * sulcalHeight
	cost += distanceCurvatureWeight * distance * curvature
	cost += curvatureSulcalHeightWeight * curvature * sulcalHeight
	cost += distanceCurvatureSulcalHeightWeight * distance * curvature * sulcalHeight
	cost += directionWeight * direction

	return cost
}

// DistanceCost charges the Euclidean length of each edge
type DistanceCost struct {
	Graph *meshgraph.Graph
}

// StaticCost is zero
func (c DistanceCost) StaticCost(u, v int) float64 {
	return 0
}

// DynamicCost returns the length of the edge u -> v
func (c DistanceCost) DynamicCost(u, v int) float64 {
	return r3.Norm(r3.Sub(c.Graph.Position(v), c.Graph.Position(u)))
}

// normalize returns the unit vector along p, or the zero vector if p has no length
func normalize(p r3.Vec) r3.Vec {
	n := r3.Norm(p)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, p)
}
