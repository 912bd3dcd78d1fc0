package tiling

import "fmt"

// Index addresses one tile: depth L, column X and row Y.
type Index struct {
	L int
	X int
	Y int
}

// Quad holds the four children of a tile.
type Quad struct {
	LeftUp    Index
	RightUp   Index
	LeftDown  Index
	RightDown Index
}

// All returns the children in LeftUp, RightUp, LeftDown, RightDown order.
func (q Quad) All() [4]Index {
	return [4]Index{q.LeftUp, q.RightUp, q.LeftDown, q.RightDown}
}

func (i Index) String() string {
	return fmt.Sprintf("L%d/X%d/Y%d", i.L, i.X, i.Y)
}

// Left returns the western neighbor.
func (i Index) Left() Index { return Index{L: i.L, X: i.X - 1, Y: i.Y} }

// Right returns the eastern neighbor.
func (i Index) Right() Index { return Index{L: i.L, X: i.X + 1, Y: i.Y} }

// Up returns the northern neighbor. Rows grow southward for a top-left origin.
func (i Index) Up(o Origin) Index {
	if o == TopLeft {
		return Index{L: i.L, X: i.X, Y: i.Y - 1}
	}
	return Index{L: i.L, X: i.X, Y: i.Y + 1}
}

// Down returns the southern neighbor.
func (i Index) Down(o Origin) Index {
	if o == TopLeft {
		return Index{L: i.L, X: i.X, Y: i.Y + 1}
	}
	return Index{L: i.L, X: i.X, Y: i.Y - 1}
}

// Children returns the four tiles at depth L+1 covering i.
func (i Index) Children(o Origin) Quad {
	l := i.L + 1
	x := i.X * 2
	y := i.Y * 2
	if o == TopLeft {
		return Quad{
			LeftUp:    Index{L: l, X: x, Y: y},
			RightUp:   Index{L: l, X: x + 1, Y: y},
			LeftDown:  Index{L: l, X: x, Y: y + 1},
			RightDown: Index{L: l, X: x + 1, Y: y + 1},
		}
	}
	return Quad{
		LeftUp:    Index{L: l, X: x, Y: y + 1},
		RightUp:   Index{L: l, X: x + 1, Y: y + 1},
		LeftDown:  Index{L: l, X: x, Y: y},
		RightDown: Index{L: l, X: x + 1, Y: y},
	}
}

// Parent returns the tile at depth L-1 containing i. The row arithmetic is the
// same for both origins.
func (i Index) Parent() Index {
	if i.L == 0 {
		return i
	}
	return Index{L: i.L - 1, X: i.X / 2, Y: i.Y / 2}
}

// Valid reports whether i exists in the tiling of profile p.
func (i Index) Valid(p Profile) bool {
	if CheckDepth(i.L) != nil {
		return false
	}
	cols, rows := p.Grid(i.L)
	return i.X >= 0 && i.X < cols && i.Y >= 0 && i.Y < rows
}
