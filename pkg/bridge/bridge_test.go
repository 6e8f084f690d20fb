package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/meshtest"
	"cortexgeom/internal/models"
	"cortexgeom/pkg/meshgraph"
)

// requireClosedOriented checks that every edge is shared by exactly two
// faces that traverse it in opposite directions
func requireClosedOriented(t *testing.T, m *models.Mesh) {
	t.Helper()
	require.Zero(t, m.BoundaryEdgeCount(), "boundary edges")
	require.Zero(t, m.NonManifoldEdgeCount(), "non-manifold edges")

	directed := make(map[[2]int]int)
	for _, f := range m.Faces {
		for j := 0; j < 3; j++ {
			directed[[2]int{f[j], f[(j+1)%3]}]++
		}
	}
	for e, n := range directed {
		require.Equal(t, 1, n, "edge %v used twice in the same direction", e)
		require.Equal(t, 1, directed[[2]int{e[1], e[0]}], "edge %v has no opposite", e)
	}
}

func TestBridge_Box(t *testing.T) {
	inner := meshtest.Grid(4, 0)
	outer := meshtest.Grid(4, 1)
	patch := meshtest.SubMesh(inner, []int{5, 6, 9, 10})

	out, err := NewBuilder().Bridge(patch, inner, outer)
	require.NoError(t, err)
	require.NotNil(t, out)

	// 8 wall triangles, 2 cap triangles and the 2 patch triangles
	require.Len(t, out.Faces, 12)
	require.Len(t, out.Points, 8)
	requireClosedOriented(t, out)
}

func TestBridge_LargerPatch(t *testing.T) {
	inner := meshtest.Grid(5, 0)
	outer := meshtest.Grid(5, 2)
	patch := meshtest.SubMesh(inner, []int{6, 7, 8, 11, 12, 13, 16, 17, 18})

	out, err := NewBuilder().Bridge(patch, inner, outer)
	require.NoError(t, err)

	// Loop of 8 vertices: 16 wall faces, 8 cap faces, 8 patch faces
	require.Len(t, out.Faces, 32)
	require.Len(t, out.Points, 18)
	requireClosedOriented(t, out)
}

func TestBridge_Progress(t *testing.T) {
	inner := meshtest.Grid(4, 0)
	var stages []string
	b := NewBuilder(WithProgress(func(stage string) { stages = append(stages, stage) }))

	_, err := b.Bridge(meshtest.SubMesh(inner, []int{5, 6, 9, 10}), inner, meshtest.Grid(4, 1))
	require.NoError(t, err)
	require.Equal(t, []string{StageBoundary, StageAnchors, StageWall, StageCap, StageMerge}, stages)
}

func TestBridge_MissingInput(t *testing.T) {
	grid := meshtest.Grid(3, 0)

	out, err := NewBuilder().Bridge(nil, grid, grid)
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = NewBuilder().Bridge(grid, &models.Mesh{}, grid)
	require.NoError(t, err)
	require.Nil(t, out)

	_, err = NewBuilder(WithStrictInputs()).Bridge(grid, grid, nil)
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestBridge_Errors(t *testing.T) {
	inner := meshtest.Grid(4, 0)
	patch := meshtest.SubMesh(inner, []int{5, 6, 9, 10})

	_, err := NewBuilder().Bridge(patch, inner, meshtest.Grid(3, 1))
	require.ErrorIs(t, err, ErrShellMismatch)

	_, err = NewBuilder().Bridge(meshtest.Tetrahedron(), inner, meshtest.Grid(4, 1))
	require.ErrorIs(t, err, ErrNoBoundary)

	// A patch far smaller than the shell spacing anchors to a single vertex
	tiny := &models.Mesh{
		Points: []r3.Vec{{X: 1}, {X: 1.01}, {X: 1, Y: 0.01}},
		Faces:  [][3]int{{0, 1, 2}},
	}
	_, err = NewBuilder().Bridge(tiny, inner, meshtest.Grid(4, 1))
	require.ErrorIs(t, err, ErrDegenerateLoop)

	bad := meshtest.Grid(4, 1)
	bad.Faces[0][0] = 99
	_, err = NewBuilder().Bridge(patch, inner, bad)
	require.ErrorIs(t, err, meshgraph.ErrFaceIndexOutOfRange)
}

func TestCloseRing_JoinsAnchors(t *testing.T) {
	g, err := meshgraph.New(meshtest.Grid(5, 0))
	require.NoError(t, err)

	ring, err := closeRing(g, []int{6, 8, 18, 16})
	require.NoError(t, err)
	require.Equal(t, []int{6, 7, 8, 13, 18, 17, 16, 11}, ring)

	for i, v := range ring {
		require.True(t, g.Adjacent(v, ring[(i+1)%len(ring)]))
	}
}

func TestCloseRing_Disconnected(t *testing.T) {
	m := meshtest.Grid(3, 0)
	m.Points = append(m.Points, r3.Vec{X: 9}, r3.Vec{X: 10}, r3.Vec{X: 9, Y: 1})
	m.Faces = append(m.Faces, [3]int{9, 10, 11})
	g, err := meshgraph.New(m)
	require.NoError(t, err)

	_, err = closeRing(g, []int{0, 4, 10})
	require.ErrorIs(t, err, ErrDisconnectedShell)
}

func TestCapFaces(t *testing.T) {
	outer := meshtest.Grid(4, 1)

	faces, err := capFaces(outer, []int{5, 6, 10, 9})
	require.NoError(t, err)
	require.ElementsMatch(t, []int{8, 9}, faces)

	// The outer rim of the grid bounds everything on one side only
	rim := []int{0, 1, 2, 3, 7, 11, 15, 14, 13, 12, 8, 4}
	_, err = capFaces(outer, rim)
	require.ErrorIs(t, err, ErrLoopNotSeparating)
}

func TestCleanFaces(t *testing.T) {
	faces := [][3]int{
		{0, 1, 2},
		{1, 1, 2},
		{2, 0, 1},
		{0, 2, 1},
		{2, 3, 0},
	}
	require.Equal(t, [][3]int{{0, 1, 2}, {2, 3, 0}}, cleanFaces(faces))
}

func TestNewBuilder_Defaults(t *testing.T) {
	b := NewBuilder()
	require.Equal(t, DefaultWeldTolerance, b.weldTolerance)
	require.False(t, b.strict)

	b = NewBuilder(WithWeldTolerance(0.5), WithStrictInputs())
	require.Equal(t, 0.5, b.weldTolerance)
	require.True(t, b.strict)
}
