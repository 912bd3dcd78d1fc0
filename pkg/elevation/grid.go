// Package elevation holds regular elevation grids and the EGRD file format.
package elevation

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/terratiler/pkg/tiling"
)

// DefaultNoData is the nodata marker used when a grid does not set one.
const DefaultNoData = -9999

// ErrInvalidDimensions is returned for grids with fewer than two samples per
// axis or a sample count that does not match the dimensions.
var ErrInvalidDimensions = errors.New("invalid grid dimensions")

// Grid is a north-up lattice of elevation samples. Sample (c, r) sits at
// lon = MinLon + c*dLon and lat = MaxLat - r*dLat, so row 0 is the northern
// edge and the outermost samples lie on Bounds.
type Grid struct {
	Cols    int
	Rows    int
	Bounds  tiling.Extent
	NoData  float32
	Samples []float32 // row-major, Cols*Rows
}

// NewGrid allocates a zero grid.
func NewGrid(cols, rows int, bounds tiling.Extent) (*Grid, error) {
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cols, rows)
	}
	if bounds.LonRange() <= 0 || bounds.LatRange() <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %s", ErrInvalidDimensions, bounds)
	}
	return &Grid{
		Cols:    cols,
		Rows:    rows,
		Bounds:  bounds,
		NoData:  DefaultNoData,
		Samples: make([]float32, cols*rows),
	}, nil
}

// Synthetic builds a grid whose samples are fn evaluated at every node.
func Synthetic(cols, rows int, bounds tiling.Extent, fn func(lon, lat float64) float64) (*Grid, error) {
	g, err := NewGrid(cols, rows, bounds)
	if err != nil {
		return nil, err
	}
	for r := range rows {
		for c := range cols {
			lon, lat := g.Position(c, r)
			g.Samples[r*cols+c] = float32(fn(lon, lat))
		}
	}
	return g, nil
}

// Extent returns the geographic bounds of the grid.
func (g *Grid) Extent() tiling.Extent { return g.Bounds }

// Resolution returns the node spacing in degrees.
func (g *Grid) Resolution() (dLon, dLat float64) {
	return g.Bounds.LonRange() / float64(g.Cols-1), g.Bounds.LatRange() / float64(g.Rows-1)
}

// Position returns the geographic position of node (c, r).
func (g *Grid) Position(c, r int) (lon, lat float64) {
	dLon, dLat := g.Resolution()
	return g.Bounds.MinLon + float64(c)*dLon, g.Bounds.MaxLat - float64(r)*dLat
}

// At returns the raw sample at node (c, r) and whether it holds data.
func (g *Grid) At(c, r int) (float32, bool) {
	if c < 0 || r < 0 || c >= g.Cols || r >= g.Rows {
		return 0, false
	}
	v := g.Samples[r*g.Cols+c]
	if v == g.NoData || math.IsNaN(float64(v)) {
		return 0, false
	}
	return v, true
}

// Sample returns the bilinearly interpolated height at (lon, lat). Positions
// outside Bounds and nodata nodes read as 0.
func (g *Grid) Sample(lon, lat float64) float64 {
	if !g.Bounds.Contains(lon, lat) {
		return 0
	}

	dLon, dLat := g.Resolution()
	fx := (lon - g.Bounds.MinLon) / dLon
	fy := (g.Bounds.MaxLat - lat) / dLat

	c := min(int(fx), g.Cols-2)
	r := min(int(fy), g.Rows-2)
	tx := clamp01(fx - float64(c))
	ty := clamp01(fy - float64(r))

	nw, _ := g.At(c, r)
	ne, _ := g.At(c+1, r)
	sw, _ := g.At(c, r+1)
	se, _ := g.At(c+1, r+1)

	north := float64(nw)*(1-tx) + float64(ne)*tx
	south := float64(sw)*(1-tx) + float64(se)*tx
	return north*(1-ty) + south*ty
}

// MinMax returns the lowest and highest valid sample. ok is false when the
// grid holds no data at all.
func (g *Grid) MinMax() (lo, hi float32, ok bool) {
	for r := range g.Rows {
		for c := range g.Cols {
			v, valid := g.At(c, r)
			if !valid {
				continue
			}
			if !ok {
				lo, hi, ok = v, v, true
				continue
			}
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return lo, hi, ok
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
