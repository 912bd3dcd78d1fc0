package pyramid

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/terratiler/pkg/elevation"
	"github.com/Faultbox/terratiler/pkg/quantizedmesh"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

var tms = tiling.Scheme{Profile: tiling.Geodetic, Origin: tiling.BottomLeft}

func hills(t *testing.T) *elevation.Grid {
	t.Helper()
	bounds := tiling.Extent{MinLon: 10, MinLat: 45, MaxLon: 12, MaxLat: 47}
	g, err := elevation.Synthetic(33, 33, bounds, func(lon, lat float64) float64 {
		return 800 + 600*math.Sin((lon-10)*math.Pi)*math.Cos((lat-45)*math.Pi)
	})
	require.NoError(t, err)
	return g
}

func testOptions(t *testing.T) Options {
	return Options{
		Scheme:    tms,
		Policy:    tiling.NewPolicy(4),
		MinDepth:  0,
		MaxDepth:  4,
		Output:    t.TempDir(),
		Name:      "hills",
		Normals:   true,
		Workers:   2,
		GridCells: 8,
	}
}

func TestRun(t *testing.T) {
	opts := testOptions(t)
	grid := hills(t)

	b, err := New(opts, grid, nil)
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Failed())
	require.Len(t, report.Depths, 5)
	require.Equal(t, 2, report.Depths[0].Written)
	require.Positive(t, report.Bytes)

	written := 0
	for _, d := range report.Depths {
		written += d.Written
		require.LessOrEqual(t, d.Written, d.Tiles)
		if d.Depth < opts.MaxDepth {
			require.Equal(t, d.Tiles, d.Splits)
		}
	}
	require.Equal(t, report.Written, written)

	layer, err := quantizedmesh.ReadLayer(opts.Output)
	require.NoError(t, err)
	require.Equal(t, "hills", layer.Name)
	require.Equal(t, "tms", layer.Scheme)
	require.Equal(t, []string{quantizedmesh.ExtensionOctVertexNormals}, layer.Extensions)
	require.Len(t, layer.Available, 5)

	// Every deepest tile lies over the data and decodes.
	cover, err := tms.Covering(4, grid.Extent())
	require.NoError(t, err)
	require.NotEmpty(t, layer.Available[4])
	for _, r := range layer.Available[4] {
		for x := r.StartX; x <= r.EndX; x++ {
			for y := r.StartY; y <= r.EndY; y++ {
				idx := tiling.Index{L: 4, X: x, Y: y}
				require.True(t, cover.Contains(idx), "tile %s outside %s", idx, cover)

				tile, err := quantizedmesh.ReadFile(filepath.Join(opts.Output, tiling.Path(idx)))
				require.NoError(t, err)
				require.Positive(t, tile.TriangleCount())
				require.Len(t, tile.Normals, 2*tile.VertexCount())

				_, err = os.Stat(filepath.Join(opts.Output, tiling.TempPath(idx)))
				require.True(t, os.IsNotExist(err))
			}
		}
	}
}

func TestRunMinDepth(t *testing.T) {
	opts := testOptions(t)
	opts.MinDepth = 2
	opts.MaxDepth = 3
	opts.Normals = false
	opts.Gzip = true

	b, err := New(opts, hills(t), nil)
	require.NoError(t, err)
	report, err := b.Run(context.Background())
	require.NoError(t, err)

	require.Zero(t, report.Depths[0].Written)
	require.Zero(t, report.Depths[1].Written)
	require.Positive(t, report.Depths[2].Written)

	for _, dir := range []string{"0", "1"} {
		_, err := os.Stat(filepath.Join(opts.Output, dir))
		require.True(t, os.IsNotExist(err), "depth %s written", dir)
	}

	layer, err := quantizedmesh.ReadLayer(opts.Output)
	require.NoError(t, err)
	require.Empty(t, layer.Available[0])
	require.NotEmpty(t, layer.Available[2])
	require.Empty(t, layer.Extensions)

	r := layer.Available[3][0]
	data, err := os.ReadFile(filepath.Join(opts.Output, tiling.Path(tiling.Index{L: 3, X: r.StartX, Y: r.StartY})))
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0x8b}, data[:2])
}

func TestRunCanceled(t *testing.T) {
	b, err := New(testOptions(t), hills(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsOptions(t *testing.T) {
	grid := hills(t)

	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"no output", func(o *Options) { o.Output = "" }},
		{"min above max", func(o *Options) { o.MinDepth, o.MaxDepth = 5, 3 }},
		{"negative depth", func(o *Options) { o.MinDepth = -1 }},
		{"too deep", func(o *Options) { o.MaxDepth = 29 }},
		{"mercator too deep", func(o *Options) {
			o.Scheme.Profile = tiling.WebMercator
			o.MaxDepth = 23
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions(t)
			tc.modify(&opts)
			_, err := New(opts, grid, nil)
			require.ErrorIs(t, err, ErrInvalidOptions)
		})
	}

	polar, err := elevation.Synthetic(3, 3, tiling.Extent{MinLon: 0, MinLat: 86, MaxLon: 1, MaxLat: 89}, func(lon, lat float64) float64 { return 0 })
	require.NoError(t, err)
	opts := testOptions(t)
	opts.Scheme.Profile = tiling.WebMercator
	_, err = New(opts, polar, nil)
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestDefaults(t *testing.T) {
	opts := Options{Scheme: tms, MaxDepth: 2, Output: t.TempDir()}
	b, err := New(opts, hills(t), nil)
	require.NoError(t, err)

	require.Equal(t, DefaultMosaicSize, b.opts.MosaicSize)
	require.Equal(t, DefaultGridCells, b.opts.GridCells)
	require.Equal(t, DefaultName, b.opts.Name)
	require.Equal(t, 1, b.opts.Workers)
	require.Equal(t, tiling.DefaultIntensity, b.opts.Policy.Intensity)
}

func TestWriteMetrics(t *testing.T) {
	opts := testOptions(t)
	opts.MaxDepth = 2

	b, err := New(opts, hills(t), nil)
	require.NoError(t, err)
	report, err := b.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "build.prom")
	require.NoError(t, b.WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, `terratiler_tiles_written_total{depth="0"} 2`)
	require.Contains(t, text, "terratiler_depths_completed 3")
	require.Contains(t, text, "terratiler_split_duration_seconds_count")

	splits := 0
	for _, d := range report.Depths {
		splits += d.Splits
	}
	require.True(t, strings.Contains(text, "terratiler_splits_total "+strconv.Itoa(splits)))
}

// sideHeights returns the v or u values and heights in meters of the
// vertices listed in side, in list order.
func sideHeights(tile *quantizedmesh.Tile, side []uint32, coord []uint16) ([]uint16, []float64) {
	pos := make([]uint16, len(side))
	heights := make([]float64, len(side))
	span := float64(tile.MaxHeight) - float64(tile.MinHeight)
	for i, v := range side {
		pos[i] = coord[v]
		heights[i] = float64(tile.MinHeight) + span*float64(tile.Height[v])/quantizedmesh.MaxCoord
	}
	return pos, heights
}

func TestRunNeighborSeams(t *testing.T) {
	opts := testOptions(t)
	opts.MinDepth = 7
	opts.MaxDepth = 7
	opts.Normals = false

	b, err := New(opts, hills(t), nil)
	require.NoError(t, err)
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Failed())

	layer, err := quantizedmesh.ReadLayer(opts.Output)
	require.NoError(t, err)
	tiles := make(map[tiling.Index]*quantizedmesh.Tile)
	for _, r := range layer.Available[7] {
		for x := r.StartX; x <= r.EndX; x++ {
			for y := r.StartY; y <= r.EndY; y++ {
				idx := tiling.Index{L: 7, X: x, Y: y}
				tile, err := quantizedmesh.ReadFile(filepath.Join(opts.Output, tiling.Path(idx)))
				require.NoError(t, err)
				tiles[idx] = tile
			}
		}
	}
	require.Len(t, tiles, 4)

	compare := func(a, b tiling.Index, aPos, bPos []uint16, aH, bH []float64) {
		require.Len(t, bPos, len(aPos), "%s / %s", a, b)
		for i := range aPos {
			j := len(bPos) - 1 - i
			require.Equal(t, aPos[i], bPos[j], "%s / %s vertex %d", a, b, i)
			require.InDelta(t, aH[i], bH[j], 0.1, "%s / %s vertex %d", a, b, i)
		}
	}

	pairs := 0
	for idx, a := range tiles {
		// East runs bottom to top and west top to bottom.
		if b, ok := tiles[tiling.Index{L: 7, X: idx.X + 1, Y: idx.Y}]; ok {
			aPos, aH := sideHeights(a, a.East, a.V)
			bPos, bH := sideHeights(b, b.West, b.V)
			compare(idx, tiling.Index{L: 7, X: idx.X + 1, Y: idx.Y}, aPos, bPos, aH, bH)
			pairs++
		}
		// North runs right to left and south left to right; rows count
		// from the bottom.
		if b, ok := tiles[tiling.Index{L: 7, X: idx.X, Y: idx.Y + 1}]; ok {
			aPos, aH := sideHeights(a, a.North, a.U)
			bPos, bH := sideHeights(b, b.South, b.U)
			compare(idx, tiling.Index{L: 7, X: idx.X, Y: idx.Y + 1}, aPos, bPos, aH, bH)
			pairs++
		}
	}
	require.Equal(t, 4, pairs)
}
