package geodesic

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/meshtest"
	"cortexgeom/internal/models"
	"cortexgeom/pkg/meshgraph"
)

// triangle returns a single right triangle with the given curvature field
func triangle(curv []float64) *models.Mesh {
	m := &models.Mesh{
		Points: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Faces:  [][3]int{{0, 1, 2}},
	}
	if curv != nil {
		m.Scalars = map[string][]float64{models.ScalarCurvature: curv}
	}
	return m
}

func mustGraph(t testing.TB, m *models.Mesh) *meshgraph.Graph {
	t.Helper()
	g, err := meshgraph.New(m)
	require.NoError(t, err)
	return g
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	require.Equal(t, 1.0, w.DistanceWeight)
	require.Equal(t, 1.0, w.DirectionWeight)
	require.Equal(t, 10.0, w.CurvaturePenalty)
	require.Equal(t, 10.0, w.CurvatureSulcalHeightPenalty)
	require.Equal(t, 1.0, w.DistanceCurvatureSulcalHeightPenalty)
	require.False(t, w.InvertScalars)
	require.NoError(t, w.Validate())
}

func TestWeights_Validate(t *testing.T) {
	w := DefaultWeights()
	w.SulcalHeightPenalty = -1
	require.ErrorIs(t, w.Validate(), ErrNegativeWeight)

	w = DistanceOnly()
	w.DirectionWeight = math.NaN()
	require.ErrorIs(t, w.Validate(), ErrNegativeWeight)

	_, err := NewSurfaceCost(mustGraph(t, triangle(nil)), Weights{CurvatureWeight: -2})
	require.ErrorIs(t, err, ErrNegativeWeight)
}

func TestSurfaceCost_DistanceOnly(t *testing.T) {
	g := mustGraph(t, meshtest.Square())
	c, err := NewSurfaceCost(g, DistanceOnly())
	require.NoError(t, err)

	require.Equal(t, 0.0, c.StaticCost(0, 3))
	require.InDelta(t, math.Sqrt2, c.DynamicCost(0, 3), 1e-12)
	require.InDelta(t, 1.0, c.DynamicCost(0, 1), 1e-12)
}

func TestSurfaceCost_CurvaturePenalty(t *testing.T) {
	// curvature -1 at the entered vertex, weight 2, penalty 10:
	// contribution is 2*10 times the rescaled value max - (-1)
	curv := []float64{0.5, -1, 0.3}
	c, err := NewSurfaceCost(mustGraph(t, triangle(curv)), Weights{
		CurvatureWeight:  2,
		CurvaturePenalty: 10,
	})
	require.NoError(t, err)

	require.InDelta(t, 20*(0.5+1), c.DynamicCost(0, 1), 1e-12)

	// Non-negative curvature is not penalized
	require.InDelta(t, 2*(0.5-0.3), c.DynamicCost(1, 2), 1e-12)
}

func TestSurfaceCost_PenaltiesCompose(t *testing.T) {
	m := triangle([]float64{0, -1, 0})
	m.Scalars[models.ScalarSulcalHeight] = []float64{0, -2, 0}

	c, err := NewSurfaceCost(mustGraph(t, m), Weights{
		CurvatureSulcalHeightWeight:  1,
		CurvatureSulcalHeightPenalty: 3,
	})
	require.NoError(t, err)

	// Both scalars are negative at vertex 1, so the product term is
	// penalized twice: 1 * 3 * 3 * (0+1) * (0+2)
	require.InDelta(t, 18.0, c.DynamicCost(0, 1), 1e-12)
}

func TestSurfaceCost_Direction(t *testing.T) {
	c, err := NewSurfaceCost(mustGraph(t, triangle(nil)), Weights{DirectionWeight: 1})
	require.NoError(t, err)

	aimed := c.Towards(1)
	require.Equal(t, 0, c.End(), "Towards must not modify the receiver")
	require.Equal(t, 1, aimed.(*SurfaceCost).End())

	require.InDelta(t, 0.0, aimed.DynamicCost(0, 1), 1e-12)
	require.InDelta(t, 1.0, aimed.DynamicCost(0, 2), 1e-12)

	// Perpendicular to the target
	away := c.Towards(2)
	require.InDelta(t, 1.0, away.DynamicCost(0, 1), 1e-12)

	// At the target itself the direction vector has no length
	require.InDelta(t, 1.0, aimed.DynamicCost(1, 0), 1e-12)
}

func TestSurfaceCost_InvertScalars(t *testing.T) {
	w := Weights{CurvatureWeight: 1, CurvaturePenalty: 10, InvertScalars: true}
	c, err := NewSurfaceCost(mustGraph(t, triangle([]float64{1, -2, 0.5})), w)
	require.NoError(t, err)

	// Inverted field is {-1, 2, -0.5} with maximum 2
	require.InDelta(t, 0.0, c.DynamicCost(0, 1), 1e-12)
	require.InDelta(t, 10*(2+1), c.DynamicCost(1, 0), 1e-12)
}

func TestSurfaceCost_FieldLength(t *testing.T) {
	_, err := NewSurfaceCost(mustGraph(t, triangle([]float64{1, 2})), DefaultWeights())
	require.ErrorIs(t, err, ErrFieldLength)

	_, err = NewSurfaceCost(nil, DefaultWeights())
	require.ErrorIs(t, err, ErrNilGraph)
}

func TestSurfaceCost_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := meshtest.Grid(5, 0)
	n := len(m.Points)
	for i := range m.Points {
		m.Points[i].Z = rng.NormFloat64()
	}
	curv := make([]float64, n)
	sulc := make([]float64, n)
	for i := 0; i < n; i++ {
		curv[i] = rng.NormFloat64()
		sulc[i] = rng.NormFloat64() * 3
	}
	m.Scalars = map[string][]float64{
		models.ScalarCurvature:    curv,
		models.ScalarSulcalHeight: sulc,
	}
	g := mustGraph(t, m)

	for trial := 0; trial < 20; trial++ {
		w := Weights{
			DistanceWeight:                       rng.Float64() * 5,
			CurvatureWeight:                      rng.Float64() * 5,
			SulcalHeightWeight:                   rng.Float64() * 5,
			DistanceCurvatureWeight:              rng.Float64() * 5,
			DistanceSulcalHeightWeight:           rng.Float64() * 5,
			CurvatureSulcalHeightWeight:          rng.Float64() * 5,
			DistanceCurvatureSulcalHeightWeight:  rng.Float64() * 5,
			DirectionWeight:                      rng.Float64() * 5,
			CurvaturePenalty:                     rng.Float64() * 20,
			SulcalHeightPenalty:                  rng.Float64() * 20,
			DistanceCurvaturePenalty:             rng.Float64() * 20,
			DistanceSulcalHeightPenalty:          rng.Float64() * 20,
			CurvatureSulcalHeightPenalty:         rng.Float64() * 20,
			DistanceCurvatureSulcalHeightPenalty: rng.Float64() * 20,
			InvertScalars:                        trial%2 == 1,
		}
		c, err := NewSurfaceCost(g, w)
		require.NoError(t, err)
		cost := c.Towards(rng.Intn(n))

		for u := 0; u < n; u++ {
			for _, v := range g.Neighbors(u) {
				total := cost.StaticCost(u, v) + cost.DynamicCost(u, v)
				require.GreaterOrEqual(t, total, 0.0, "edge %d->%d", u, v)
			}
		}
	}
}

func TestDistanceCost(t *testing.T) {
	g := mustGraph(t, meshtest.Grid(3, 0))
	c := DistanceCost{Graph: g}
	require.Equal(t, 0.0, c.StaticCost(0, 4))
	require.InDelta(t, math.Sqrt2, c.DynamicCost(0, 4), 1e-12)
	require.InDelta(t, 1.0, c.DynamicCost(4, 5), 1e-12)
}
