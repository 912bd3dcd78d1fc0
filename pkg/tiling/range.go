package tiling

import (
	"fmt"
	"math"
)

// Range is an inclusive rectangle of tiles at one depth.
type Range struct {
	L    int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

func (r Range) String() string {
	return fmt.Sprintf("L%d X[%d..%d] Y[%d..%d]", r.L, r.MinX, r.MaxX, r.MinY, r.MaxY)
}

// Cols returns the number of columns in r.
func (r Range) Cols() int { return r.MaxX - r.MinX + 1 }

// Rows returns the number of rows in r.
func (r Range) Rows() int { return r.MaxY - r.MinY + 1 }

// Count returns the number of tiles in r, zero when r is empty.
func (r Range) Count() int {
	if r.Cols() <= 0 || r.Rows() <= 0 {
		return 0
	}
	return r.Cols() * r.Rows()
}

// Contains reports whether idx lies in r.
func (r Range) Contains(idx Index) bool {
	return idx.L == r.L &&
		idx.X >= r.MinX && idx.X <= r.MaxX &&
		idx.Y >= r.MinY && idx.Y <= r.MaxY
}

// Expand1 grows r by one tile on every side, clamping the minimum at zero.
func (r Range) Expand1() Range {
	return Range{
		L:    r.L,
		MinX: max(r.MinX-1, 0),
		MaxX: r.MaxX + 1,
		MinY: max(r.MinY-1, 0),
		MaxY: r.MaxY + 1,
	}
}

// Clamp restricts r to the tiles that exist at its depth in profile p.
func (r Range) Clamp(p Profile) Range {
	cols, rows := p.Grid(r.L)
	return Range{
		L:    r.L,
		MinX: min(max(r.MinX, 0), cols-1),
		MaxX: min(max(r.MaxX, 0), cols-1),
		MinY: min(max(r.MinY, 0), rows-1),
		MaxY: min(max(r.MaxY, 0), rows-1),
	}
}

// Each calls fn for every tile of r, column-major. It stops at the first
// error.
func (r Range) Each(fn func(Index) error) error {
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			if err := fn(Index{L: r.L, X: x, Y: y}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Subdivide splits r into near-equal blocks of at most maxCols x maxRows
// tiles. A range that already fits is returned as the only block.
func (r Range) Subdivide(maxCols, maxRows int) []Range {
	cols := r.Cols()
	rows := r.Rows()
	if (maxCols <= 0 || cols <= maxCols) && (maxRows <= 0 || rows <= maxRows) {
		return []Range{r}
	}

	colsDiv := 1
	rowsDiv := 1
	if maxCols > 0 && cols > maxCols {
		colsDiv = int(math.Ceil(float64(cols) / float64(maxCols)))
	}
	if maxRows > 0 && rows > maxRows {
		rowsDiv = int(math.Ceil(float64(rows) / float64(maxRows)))
	}

	colSize := float64(cols) / float64(colsDiv)
	rowSize := float64(rows) / float64(rowsDiv)

	blocks := make([]Range, 0, colsDiv*rowsDiv)
	for i := range colsDiv {
		for j := range rowsDiv {
			blocks = append(blocks, Range{
				L:    r.L,
				MinX: r.MinX + int(float64(i)*colSize),
				MaxX: r.MinX + int(float64(i+1)*colSize) - 1,
				MinY: r.MinY + int(float64(j)*rowSize),
				MaxY: r.MinY + int(float64(j+1)*rowSize) - 1,
			})
		}
	}
	return blocks
}

// Covering returns the tiles at depth that cover bbox.
//
// For the geodetic profile the corner tiles are widened by the edge indices
// rounded from the south-west world corner, then clamped to the tiling. The
// widening can add one extra row or column; missing edge tiles would be
// worse. Depth 0 always covers both root tiles.
func (s Scheme) Covering(depth int, bbox Extent) (Range, error) {
	if err := CheckDepth(depth); err != nil {
		return Range{}, err
	}
	if depth == 0 {
		cols, rows := s.Profile.Grid(0)
		return Range{L: 0, MinX: 0, MaxX: cols - 1, MinY: 0, MaxY: rows - 1}, nil
	}

	leftDown, err := s.Containing(depth, bbox.MinLon, bbox.MinLat)
	if err != nil {
		return Range{}, err
	}
	rightDown, err := s.Containing(depth, bbox.MaxLon, bbox.MinLat)
	if err != nil {
		return Range{}, err
	}
	rightUp, err := s.Containing(depth, bbox.MaxLon, bbox.MaxLat)
	if err != nil {
		return Range{}, err
	}

	r := Range{L: depth, MinX: leftDown.X, MaxX: rightDown.X}
	if s.Origin == TopLeft {
		r.MinY = rightUp.Y
		r.MaxY = leftDown.Y
	} else {
		r.MinY = leftDown.Y
		r.MaxY = rightUp.Y
	}

	if s.Profile == Geodetic {
		span := mustSpan(depth)
		xIndexMax := roundHalfUp((bbox.MaxLon + 180.0) / span)
		yIndexMax := roundHalfUp((bbox.MaxLat + 90.0) / span)
		xIndexMin := roundHalfUp((bbox.MinLon + 180.0) / span)
		yIndexMin := roundHalfUp((bbox.MinLat + 90.0) / span)

		r.MaxX = max(r.MaxX, xIndexMax)
		r.MaxY = max(r.MaxY, yIndexMax)
		r.MinX = min(r.MinX, xIndexMin)
		r.MinY = min(r.MinY, yIndexMin)
	}

	return r.Clamp(s.Profile), nil
}

// roundHalfUp rounds half up, unlike math.Round which rounds half away from zero.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
