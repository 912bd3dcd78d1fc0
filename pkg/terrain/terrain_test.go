package terrain

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Faultbox/terratiler/pkg/elevation"
	"github.com/Faultbox/terratiler/pkg/halfedge"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

var geodetic = tiling.Scheme{Profile: tiling.Geodetic, Origin: tiling.TopLeft}

func flatGrid(t *testing.T, bounds tiling.Extent) *elevation.Grid {
	t.Helper()
	g, err := elevation.Synthetic(11, 11, bounds, func(lon, lat float64) float64 { return 0 })
	require.NoError(t, err)
	return g
}

func countTypes(m *Mesh) map[BoundaryType]int {
	counts := make(map[BoundaryType]int)
	for e := range m.HalfEdges {
		if !m.HalfEdges[e].Deleted {
			counts[m.Types[e]]++
		}
	}
	return counts
}

func TestBoundaryTypeString(t *testing.T) {
	require.Equal(t, "UNKNOWN", Unknown.String())
	require.Equal(t, "INTERIOR", Interior.String())
	require.Equal(t, "DOWN", Down.String())
	require.Equal(t, Left, Right.Opposite())
	require.Equal(t, Up, Down.Opposite())
	require.Equal(t, Interior, Interior.Opposite())

	for _, side := range []BoundaryType{Left, Right, Up, Down} {
		require.True(t, side.Side(), side.String())
	}
	require.False(t, Interior.Side())
	require.False(t, Unknown.Side())
}

func TestBuildGrid(t *testing.T) {
	root := tiling.Index{L: 0, X: 0, Y: 0}
	m, err := BuildGrid(geodetic, root, flatGrid(t, tiling.Extent{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10}), 4)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	v, he, f := m.Counts()
	require.Equal(t, 25, v)
	require.Equal(t, 96, he)
	require.Equal(t, 32, f)

	counts := countTypes(m)
	require.Equal(t, 4, counts[Left])
	require.Equal(t, 4, counts[Right])
	require.Equal(t, 4, counts[Up])
	require.Equal(t, 4, counts[Down])
	require.Zero(t, counts[Unknown])
	require.Equal(t, 80, counts[Interior])

	down := m.BoundaryVertices(Down)
	require.Len(t, down, 5)
	for _, v := range down {
		require.Equal(t, -90.0, m.Position(v).Y())
	}

	_, err = BuildGrid(geodetic, root, flatGrid(t, tiling.Extent{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}), 6)
	require.ErrorIs(t, err, ErrInvalidCells)
}

func TestGridWeldOptions(t *testing.T) {
	const cells = 8
	tile := tiling.Index{L: 9, X: 100, Y: 100}
	ext, err := geodetic.Extent(tile)
	require.NoError(t, err)
	dLon := ext.LonRange() / cells
	dLat := ext.LatRange() / cells

	opts := weldOptions(dLon, dLat)
	require.InDelta(t, 1/111319.49, opts.Octree.MinBoxSize, 1e-9)

	// The lattice of one tile well under a degree wide, every corner twice.
	view := &halfedge.Mesh{}
	for j := range cells + 1 {
		for i := range cells + 1 {
			p := mgl64.Vec3{ext.MinLon + float64(i)*dLon, ext.MinLat + float64(j)*dLat, 0}
			view.Vertices = append(view.Vertices, halfedge.Vertex{Position: p}, halfedge.Vertex{Position: p})
		}
	}
	all := make([]int, len(view.Vertices))
	for i := range all {
		all[i] = i
	}
	require.Nil(t, halfedge.NewOctree(view, all, halfedge.DefaultOctreeOptions).Children)
	require.NotNil(t, halfedge.NewOctree(view, all, opts.Octree).Children)

	m, err := BuildGrid(geodetic, tile, flatGrid(t, ext), cells)
	require.NoError(t, err)
	v, _, f := m.Counts()
	require.Equal(t, (cells+1)*(cells+1), v)
	require.Equal(t, 2*cells*cells, f)
}

func TestSplitRoot(t *testing.T) {
	root := tiling.Index{L: 0, X: 0, Y: 0}
	m, err := BuildGrid(geodetic, root, flatGrid(t, tiling.Extent{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10}), 4)
	require.NoError(t, err)

	children, report, err := Split(m, geodetic, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, children, 4)
	require.False(t, report.Imbalanced())
	require.Equal(t, 32, report.Triangles)
	require.Equal(t, 8, report.Cut)

	want := []tiling.Index{{L: 1, X: 0, Y: 0}, {L: 1, X: 1, Y: 0}, {L: 1, X: 0, Y: 1}, {L: 1, X: 1, Y: 1}}
	total := 0
	for i, child := range children {
		require.Equal(t, want[i], child.Tile)
		require.NoError(t, child.Validate())

		_, _, faces := child.Counts()
		total += faces
		for _, owner := range child.Owners {
			require.Equal(t, want[i], owner)
		}

		// Twin symmetry, and no twin on any boundary edge.
		for e, he := range child.HalfEdges {
			if he.Twin != halfedge.None {
				require.Equal(t, e, child.HalfEdges[he.Twin].Twin)
				require.Equal(t, Interior, child.Types[e])
			} else {
				require.NotEqual(t, Interior, child.Types[e])
			}
		}

		ext, err := geodetic.Extent(child.Tile)
		require.NoError(t, err)
		require.Zero(t, child.DetermineBoundaryTypes(ext))
		counts := countTypes(child)
		for _, side := range Sides {
			require.Equal(t, 2, counts[side], "%s %s", child.Tile, side)
		}
	}
	require.Equal(t, 32, total)

	ext, err := geodetic.Extent(tiling.Index{L: 1, X: 0, Y: 0})
	require.NoError(t, err)
	require.Equal(t, tiling.Extent{MinLon: -180, MinLat: 0, MaxLon: -90, MaxLat: 90}, ext)
}

func TestSplitSparse(t *testing.T) {
	m := NewMesh(tiling.Index{L: 0, X: 0, Y: 0}, 3, 1)
	a := m.AddVertex(-170, 10, 0)
	b := m.AddVertex(-160, 10, 0)
	c := m.AddVertex(-160, 20, 0)
	m.AddTriangle(a, b, c)

	children, report, err := Split(m, geodetic, nil)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.True(t, report.Imbalanced())
	require.Equal(t, tiling.Index{L: 1, X: 0, Y: 0}, children[0].Tile)
}

func TestSplitPartitionAfterRefine(t *testing.T) {
	tile, err := geodetic.Containing(12, 10.51, 45.52)
	require.NoError(t, err)
	ext, err := geodetic.Extent(tile)
	require.NoError(t, err)

	span := ext.LonRange()
	grid, err := elevation.Synthetic(101, 101, ext, func(lon, lat float64) float64 {
		u := (lon - ext.MinLon) / span
		v := (lat - ext.MinLat) / span
		return 800 + 500*math.Sin(u*2*math.Pi)*math.Cos(v*3*math.Pi)
	})
	require.NoError(t, err)

	m, err := BuildGrid(geodetic, tile, grid, 4)
	require.NoError(t, err)
	_, _, before := m.Counts()

	th, err := tiling.NewPolicy(4).Thresholds(tile.L)
	require.NoError(t, err)
	th.Iterations = 6

	stats, err := Refine(m, geodetic, grid, th, true)
	require.NoError(t, err)
	require.Positive(t, stats.Bisected)
	require.Greater(t, stats.Triangles, before)
	require.NoError(t, m.Validate())

	// Bisection keeps the mesh conforming: every twinless edge is on the
	// tile border.
	require.Zero(t, m.DetermineBoundaryTypes(ext))

	_, _, live := m.Counts()
	children, report, err := Split(m, geodetic, nil)
	require.NoError(t, err)
	require.Len(t, children, 4)
	require.Zero(t, report.Unknown)

	total := 0
	for _, child := range children {
		require.NoError(t, child.Validate())
		_, _, faces := child.Counts()
		total += faces

		cext, err := geodetic.Extent(child.Tile)
		require.NoError(t, err)
		for _, v := range child.Vertices {
			p := v.Position
			require.GreaterOrEqual(t, p.X(), cext.MinLon-1e-9)
			require.LessOrEqual(t, p.X(), cext.MaxLon+1e-9)
			require.GreaterOrEqual(t, p.Y(), cext.MinLat-1e-9)
			require.LessOrEqual(t, p.Y(), cext.MaxLat+1e-9)
		}
	}
	require.Equal(t, live, total)
}

func TestComputeNormals(t *testing.T) {
	tile := tiling.Index{L: 3, X: 8, Y: 3}
	m, err := BuildGrid(geodetic, tile, flatGrid(t, tiling.Extent{MinLon: 10, MinLat: 10, MaxLon: 20, MaxLat: 20}), 8)
	require.NoError(t, err)

	degenerate, err := m.ComputeNormals()
	require.NoError(t, err)
	require.Zero(t, degenerate)

	for _, v := range m.Vertices {
		require.True(t, v.Has(halfedge.ChannelNormal))
		require.InDelta(t, 1.0, float64(v.Normal.Len()), 1e-5)
	}

	// On the equator the normal points away from the earth center.
	found := false
	for _, v := range m.Vertices {
		p := v.Position
		if p.X() == 11.25 && p.Y() == 0 {
			found = true
			require.Greater(t, v.Normal.X(), float32(0.9))
			require.InDelta(t, 0, float64(v.Normal.Z()), 0.1)
		}
	}
	require.True(t, found)
}

func TestSurfaceRoundTrip(t *testing.T) {
	root := tiling.Index{L: 0, X: 0, Y: 0}
	m, err := BuildGrid(geodetic, root, flatGrid(t, tiling.Extent{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10}), 2)
	require.NoError(t, err)

	s, err := m.ToSurface()
	require.NoError(t, err)
	require.Len(t, s.Vertices, 9)
	require.Len(t, s.Faces, 8)

	ext, err := geodetic.Extent(root)
	require.NoError(t, err)
	back := FromSurface(root, ext, s)
	require.NoError(t, back.Validate())
	require.Equal(t, countTypes(m), countTypes(back))
}
