package tiling

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAngularSpan(t *testing.T) {
	span, err := AngularSpan(0)
	require.NoError(t, err)
	require.Equal(t, 180.0, span)

	span, err = AngularSpan(1)
	require.NoError(t, err)
	require.Equal(t, 90.0, span)

	span, err = AngularSpan(MaxDepth)
	require.NoError(t, err)
	require.InDelta(t, 180.0/math.Pow(2, MaxDepth), span, 0)

	for _, depth := range []int{-1, MaxDepth + 1, 100} {
		_, err := AngularSpan(depth)
		require.ErrorIs(t, err, ErrInvalidDepth)

		var de *DepthError
		require.True(t, errors.As(err, &de))
		require.Equal(t, depth, de.Depth)
	}
}

func TestIndexChildren(t *testing.T) {
	root := Index{L: 0, X: 0, Y: 0}

	q := root.Children(TopLeft)
	require.Equal(t, Index{1, 0, 0}, q.LeftUp)
	require.Equal(t, Index{1, 1, 0}, q.RightUp)
	require.Equal(t, Index{1, 0, 1}, q.LeftDown)
	require.Equal(t, Index{1, 1, 1}, q.RightDown)

	q = root.Children(BottomLeft)
	require.Equal(t, Index{1, 0, 1}, q.LeftUp)
	require.Equal(t, Index{1, 1, 1}, q.RightUp)
	require.Equal(t, Index{1, 0, 0}, q.LeftDown)
	require.Equal(t, Index{1, 1, 0}, q.RightDown)

	for _, child := range q.All() {
		require.Equal(t, root, child.Parent())
	}
}

func TestIndexNeighbors(t *testing.T) {
	idx := Index{L: 3, X: 4, Y: 2}

	require.Equal(t, Index{3, 3, 2}, idx.Left())
	require.Equal(t, Index{3, 5, 2}, idx.Right())
	require.Equal(t, Index{3, 4, 1}, idx.Up(TopLeft))
	require.Equal(t, Index{3, 4, 3}, idx.Down(TopLeft))
	require.Equal(t, Index{3, 4, 3}, idx.Up(BottomLeft))
	require.Equal(t, Index{3, 4, 1}, idx.Down(BottomLeft))
}

func TestIndexValid(t *testing.T) {
	require.True(t, Index{0, 1, 0}.Valid(Geodetic))
	require.False(t, Index{0, 1, 0}.Valid(WebMercator))
	require.False(t, Index{0, 0, 1}.Valid(Geodetic))
	require.True(t, Index{2, 7, 3}.Valid(Geodetic))
	require.False(t, Index{2, 8, 3}.Valid(Geodetic))
	require.False(t, Index{-1, 0, 0}.Valid(Geodetic))
}

func TestGeodeticExtent(t *testing.T) {
	s := Scheme{Profile: Geodetic, Origin: TopLeft}

	tests := []struct {
		idx  Index
		want Extent
	}{
		{Index{0, 0, 0}, Extent{MinLon: -180, MinLat: -90, MaxLon: 0, MaxLat: 90}},
		{Index{0, 1, 0}, Extent{MinLon: 0, MinLat: -90, MaxLon: 180, MaxLat: 90}},
		{Index{1, 0, 0}, Extent{MinLon: -180, MinLat: 0, MaxLon: -90, MaxLat: 90}},
		{Index{1, 1, 1}, Extent{MinLon: -90, MinLat: -90, MaxLon: 0, MaxLat: 0}},
		{Index{2, 5, 1}, Extent{MinLon: 45, MinLat: 0, MaxLon: 90, MaxLat: 45}},
	}

	for _, tt := range tests {
		t.Run(tt.idx.String(), func(t *testing.T) {
			got, err := s.Extent(tt.idx)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	bl := Scheme{Profile: Geodetic, Origin: BottomLeft}
	got, err := bl.Extent(Index{1, 0, 0})
	require.NoError(t, err)
	require.Equal(t, Extent{MinLon: -180, MinLat: -90, MaxLon: -90, MaxLat: 0}, got)

	_, err = s.Extent(Index{L: 29})
	require.ErrorIs(t, err, ErrInvalidDepth)
}

func TestChildrenPartitionParentExtent(t *testing.T) {
	for _, origin := range []Origin{TopLeft, BottomLeft} {
		s := Scheme{Profile: Geodetic, Origin: origin}
		parent := Index{L: 0, X: 0, Y: 0}
		pe, err := s.Extent(parent)
		require.NoError(t, err)

		q := s.Children(parent)
		lu, _ := s.Extent(q.LeftUp)
		rd, _ := s.Extent(q.RightDown)

		require.Equal(t, pe.MinLon, lu.MinLon)
		require.Equal(t, pe.MaxLat, lu.MaxLat)
		require.Equal(t, pe.MaxLon, rd.MaxLon)
		require.Equal(t, pe.MinLat, rd.MinLat)
		require.Equal(t, pe.MidLon(), lu.MaxLon)
		require.Equal(t, pe.MidLat(), lu.MinLat)
	}
}

func TestWebMercatorExtent(t *testing.T) {
	maxLat := webMercatorMaxLatRad * 180 / math.Pi
	s := Scheme{Profile: WebMercator, Origin: TopLeft}

	root, err := s.Extent(Index{0, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, -180, root.MinLon, 1e-12)
	require.InDelta(t, 180, root.MaxLon, 1e-12)
	require.InDelta(t, -maxLat, root.MinLat, 1e-12)
	require.InDelta(t, maxLat, root.MaxLat, 1e-12)

	north, err := s.Extent(Index{1, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, 0, north.MinLat, 1e-12)
	require.InDelta(t, maxLat, north.MaxLat, 1e-12)
	require.InDelta(t, 0, north.MaxLon, 1e-12)

	south, err := Scheme{Profile: WebMercator, Origin: BottomLeft}.Extent(Index{1, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, -maxLat, south.MinLat, 1e-12)
	require.InDelta(t, 0, south.MaxLat, 1e-12)

	// Rows shrink in latitude toward the poles.
	r0, _ := s.Extent(Index{3, 0, 0})
	r3, _ := s.Extent(Index{3, 0, 3})
	require.Less(t, r0.LatRange(), r3.LatRange())

	_, err = s.Extent(Index{L: 23})
	require.ErrorIs(t, err, ErrInvalidDepth)
}

func TestContaining(t *testing.T) {
	tests := []struct {
		name     string
		scheme   Scheme
		depth    int
		lon, lat float64
		want     Index
	}{
		{"geodetic top-left", Scheme{Geodetic, TopLeft}, 1, -170, 80, Index{1, 0, 0}},
		{"geodetic bottom-left", Scheme{Geodetic, BottomLeft}, 1, -170, 80, Index{1, 0, 1}},
		{"geodetic east", Scheme{Geodetic, TopLeft}, 2, 100, -10, Index{2, 6, 2}},
		{"mercator top-left", Scheme{WebMercator, TopLeft}, 1, -10, 10, Index{1, 0, 0}},
		{"mercator bottom-left", Scheme{WebMercator, BottomLeft}, 1, -10, 10, Index{1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.scheme.Containing(tt.depth, tt.lon, tt.lat)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			e, err := tt.scheme.Extent(got)
			require.NoError(t, err)
			require.True(t, e.Contains(tt.lon, tt.lat), "extent %s does not hold point", e)
		})
	}

	_, err := Scheme{Geodetic, TopLeft}.Containing(-2, 0, 0)
	require.ErrorIs(t, err, ErrInvalidDepth)
}

func TestCovering(t *testing.T) {
	bbox := Extent{MinLon: 10, MinLat: 30, MaxLon: 20, MaxLat: 40}

	bl := Scheme{Geodetic, BottomLeft}
	r, err := bl.Covering(3, bbox)
	require.NoError(t, err)
	require.Equal(t, Range{L: 3, MinX: 8, MaxX: 9, MinY: 5, MaxY: 6}, r)

	// Whatever the origin, the corner tiles must be covered and the range must
	// stay inside the tiling.
	for _, s := range []Scheme{{Geodetic, TopLeft}, {Geodetic, BottomLeft}, {WebMercator, TopLeft}} {
		for depth := 1; depth <= 8; depth++ {
			r, err := s.Covering(depth, bbox)
			require.NoError(t, err)

			for _, corner := range [][2]float64{{10, 30}, {20, 30}, {10, 40}, {20, 40}} {
				idx, err := s.Containing(depth, corner[0], corner[1])
				require.NoError(t, err)
				require.True(t, r.Contains(idx), "%v: %s misses %s", s, r, idx)
			}

			cols, rows := s.Profile.Grid(depth)
			require.GreaterOrEqual(t, r.MinX, 0)
			require.GreaterOrEqual(t, r.MinY, 0)
			require.Less(t, r.MaxX, cols)
			require.Less(t, r.MaxY, rows)
		}
	}

	r, err = Scheme{Geodetic, TopLeft}.Covering(0, bbox)
	require.NoError(t, err)
	require.Equal(t, Range{L: 0, MinX: 0, MaxX: 1, MinY: 0, MaxY: 0}, r)
}

func TestRangeSubdivide(t *testing.T) {
	r := Range{L: 5, MinX: 0, MaxX: 9, MinY: 0, MaxY: 4}

	blocks := r.Subdivide(4, 4)
	require.Len(t, blocks, 6)
	require.Equal(t, Range{L: 5, MinX: 0, MaxX: 2, MinY: 0, MaxY: 1}, blocks[0])
	require.Equal(t, Range{L: 5, MinX: 0, MaxX: 2, MinY: 2, MaxY: 4}, blocks[1])
	require.Equal(t, Range{L: 5, MinX: 6, MaxX: 9, MinY: 2, MaxY: 4}, blocks[5])

	seen := make(map[Index]int)
	for _, b := range blocks {
		require.LessOrEqual(t, b.Cols(), 4)
		require.LessOrEqual(t, b.Rows(), 4)
		_ = b.Each(func(idx Index) error {
			seen[idx]++
			return nil
		})
	}
	require.Len(t, seen, r.Count())
	for idx, n := range seen {
		require.Equal(t, 1, n, "tile %s in %d blocks", idx, n)
	}

	small := Range{L: 2, MinX: 1, MaxX: 2, MinY: 0, MaxY: 1}
	require.Equal(t, []Range{small}, small.Subdivide(16, 16))
}

func TestRangeExpand1(t *testing.T) {
	r := Range{L: 4, MinX: 0, MaxX: 3, MinY: 2, MaxY: 2}
	require.Equal(t, Range{L: 4, MinX: 0, MaxX: 4, MinY: 1, MaxY: 3}, r.Expand1())
}

func TestPolicy(t *testing.T) {
	p := NewPolicy(4)

	dev, err := p.MaxAllowedDeviation(0)
	require.NoError(t, err)
	require.InDelta(t, math.Pi*6378137.0*0.01/4, dev, 1e-6)

	dev9, err := p.MaxAllowedDeviation(9)
	require.NoError(t, err)
	size9, _ := TileSizeInMeters(9)
	require.InDelta(t, size9*0.02/4, dev9, 1e-9)

	// Higher intensity means a tighter tolerance.
	tight, err := NewPolicy(16).MaxAllowedDeviation(9)
	require.NoError(t, err)
	require.Less(t, tight, dev9)

	_, err = p.MaxAllowedDeviation(29)
	require.ErrorIs(t, err, ErrInvalidDepth)

	require.Equal(t, 15, p.RefinementIterations(0))
	require.Equal(t, 15, p.RefinementIterations(28))
	require.Equal(t, 5, p.RefinementIterations(-1))
	require.Equal(t, 5, p.RefinementIterations(29))

	require.Equal(t, DefaultIntensity, NewPolicy(0.5).Intensity)
	require.Equal(t, DefaultIntensity, NewPolicy(17).Intensity)
	require.Equal(t, 8.0, NewPolicy(8).Intensity)

	th, err := p.Thresholds(12)
	require.NoError(t, err)
	require.Less(t, th.MinTriangleSize, th.MaxTriangleSize)
	require.Equal(t, 15, th.Iterations)
}

func TestPath(t *testing.T) {
	require.Equal(t, filepath.Join("3", "5", "2.terrain"), Path(Index{L: 3, X: 5, Y: 2}))
}

func TestTempPath(t *testing.T) {
	require.Equal(t, filepath.Join("3", "5", "2.terrain.tmp"), TempPath(Index{L: 3, X: 5, Y: 2}))
}

func TestExtentClip(t *testing.T) {
	world := WebMercator.Bounds()
	require.InDelta(t, 85.0511287798, world.MaxLat, 1e-9)

	c, ok := Extent{MinLon: 170, MinLat: 80, MaxLon: 190, MaxLat: 90}.Clip(world)
	require.True(t, ok)
	require.Equal(t, 180.0, c.MaxLon)
	require.Equal(t, world.MaxLat, c.MaxLat)
	require.Equal(t, 80.0, c.MinLat)

	_, ok = Extent{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}.Clip(Extent{MinLon: 2, MinLat: 2, MaxLon: 3, MaxLat: 3})
	require.False(t, ok)

	require.Equal(t, Extent{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}, Geodetic.Bounds())
}
