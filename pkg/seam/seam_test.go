package seam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/terratiler/pkg/elevation"
	"github.com/Faultbox/terratiler/pkg/terrain"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// drifted builds two triangles over ext whose corners are off the border by
// a rounding error and types their edges.
func drifted(ext tiling.Extent) *terrain.Mesh {
	const eps = 1e-9
	m := terrain.NewMesh(tiling.Index{L: 1, X: 0, Y: 0}, 4, 2)
	ld := m.AddVertex(ext.MinLon+eps, ext.MinLat-eps, 10)
	rd := m.AddVertex(ext.MaxLon, ext.MinLat+eps, 20)
	ru := m.AddVertex(ext.MaxLon-eps, ext.MaxLat, 30)
	lu := m.AddVertex(ext.MinLon, ext.MaxLat+eps, 40)
	m.AddTriangle(ld, rd, ru)
	m.AddTriangle(ld, ru, lu)
	m.SetTwins()

	// ld->rd, rd->ru, ru->ld | ld->ru, ru->lu, lu->ld
	copy(m.Types, []terrain.BoundaryType{
		terrain.Down, terrain.Right, terrain.Interior,
		terrain.Interior, terrain.Up, terrain.Left,
	})
	return m
}

func TestClamp(t *testing.T) {
	ext := tiling.Extent{MinLon: -180, MinLat: 0, MaxLon: -90, MaxLat: 90}
	m := drifted(ext)

	moved := Clamp(m, ext)
	require.Equal(t, 5, moved)

	for _, v := range m.BoundaryVertices(terrain.Down) {
		require.Equal(t, ext.MinLat, m.Position(v).Y())
	}
	for _, v := range m.BoundaryVertices(terrain.Up) {
		require.Equal(t, ext.MaxLat, m.Position(v).Y())
	}
	for _, v := range m.BoundaryVertices(terrain.Left) {
		require.Equal(t, ext.MinLon, m.Position(v).X())
	}
	for _, v := range m.BoundaryVertices(terrain.Right) {
		require.Equal(t, ext.MaxLon, m.Position(v).X())
	}

	// Heights are untouched.
	require.Equal(t, 10.0, m.Position(0).Z())
	require.Equal(t, 40.0, m.Position(3).Z())
}

func TestClampIdempotent(t *testing.T) {
	ext := tiling.Extent{MinLon: 0, MinLat: -45, MaxLon: 45, MaxLat: 0}
	m := drifted(ext)

	Clamp(m, ext)
	once := make([][3]float64, len(m.Vertices))
	for i, v := range m.Vertices {
		once[i] = v.Position
	}

	require.Zero(t, Clamp(m, ext))
	for i, v := range m.Vertices {
		require.Equal(t, once[i], [3]float64(v.Position))
	}
}

func TestSorted(t *testing.T) {
	ext := tiling.Extent{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}
	m := drifted(ext)

	require.Equal(t, []int{0, 1}, Sorted(m, terrain.Down))
	require.Equal(t, []int{2, 3}, Sorted(m, terrain.Up))
	require.Equal(t, []int{3, 0}, Sorted(m, terrain.Left))
	require.Equal(t, []int{1, 2}, Sorted(m, terrain.Right))
}

// refined builds, refines and clamps tile the way the pyramid does.
func refined(t *testing.T, s tiling.Scheme, tile tiling.Index, grid *elevation.Grid) *terrain.Mesh {
	t.Helper()
	th, err := tiling.NewPolicy(4).Thresholds(tile.L)
	require.NoError(t, err)
	ext, err := s.Extent(tile)
	require.NoError(t, err)

	m, err := terrain.BuildGrid(s, tile, grid, 8)
	require.NoError(t, err)
	_, err = terrain.Refine(m, s, grid, th, true)
	require.NoError(t, err)
	Clamp(m, ext)
	return m
}

func TestNeighborsShareSide(t *testing.T) {
	s := tiling.Scheme{Profile: tiling.Geodetic, Origin: tiling.BottomLeft}
	bounds := tiling.Extent{MinLon: 9.5, MinLat: 44.5, MaxLon: 13, MaxLat: 47}
	// Rough west of 11.25, the border between the two tiles, flat east of it.
	grid, err := elevation.Synthetic(257, 193, bounds, func(lon, lat float64) float64 {
		if lon < 11.25 {
			return 800 + 400*math.Sin(lon*25)*math.Cos(lat*25)
		}
		return 800
	})
	require.NoError(t, err)

	west := refined(t, s, tiling.Index{L: 7, X: 135, Y: 96}, grid)
	east := refined(t, s, tiling.Index{L: 7, X: 136, Y: 96}, grid)

	right := Sorted(west, terrain.Right)
	left := Sorted(east, terrain.Left)
	require.Greater(t, len(right), 9, "side not refined past the initial lattice")
	require.Len(t, left, len(right))

	// Right runs bottom to top, left top to bottom.
	for i, v := range right {
		require.Equal(t, west.Position(v), east.Position(left[len(left)-1-i]), "vertex %d", i)
	}
}

func TestStackedNeighborsShareSide(t *testing.T) {
	s := tiling.Scheme{Profile: tiling.Geodetic, Origin: tiling.BottomLeft}
	bounds := tiling.Extent{MinLon: 9.5, MinLat: 44.5, MaxLon: 11.5, MaxLat: 48.5}
	grid, err := elevation.Synthetic(129, 257, bounds, func(lon, lat float64) float64 {
		return 800 + 400*math.Sin(lon*25)*math.Cos(lat*25)
	})
	require.NoError(t, err)

	south := refined(t, s, tiling.Index{L: 7, X: 135, Y: 96}, grid)
	north := refined(t, s, tiling.Index{L: 7, X: 135, Y: 97}, grid)

	up := Sorted(south, terrain.Up)
	down := Sorted(north, terrain.Down)
	require.Len(t, down, len(up))

	// Up runs right to left, down left to right.
	for i, v := range up {
		require.Equal(t, south.Position(v), north.Position(down[len(down)-1-i]), "vertex %d", i)
	}
}
