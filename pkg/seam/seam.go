// Package seam snaps the boundary vertices of a finished tile onto the exact
// tile borders so neighboring tiles share bit-identical edges.
package seam

import (
	"cmp"
	"slices"

	"github.com/Faultbox/terratiler/pkg/terrain"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// Clamp moves the vertices on each side of m onto ext: Down vertices to
// MinLat, Up to MaxLat, Left to MinLon and Right to MaxLon. Sides are
// visited in terrain.Sides order and each side's vertices in a fixed order
// along the border. It returns the number of coordinates changed; a second
// call returns 0.
func Clamp(m *terrain.Mesh, ext tiling.Extent) int {
	moved := 0
	for _, side := range terrain.Sides {
		for _, v := range Sorted(m, side) {
			p := &m.Vertices[v].Position
			switch side {
			case terrain.Down:
				moved += snap(&p[1], ext.MinLat)
			case terrain.Up:
				moved += snap(&p[1], ext.MaxLat)
			case terrain.Left:
				moved += snap(&p[0], ext.MinLon)
			case terrain.Right:
				moved += snap(&p[0], ext.MaxLon)
			}
		}
	}
	return moved
}

func snap(c *float64, border float64) int {
	if *c == border {
		return 0
	}
	*c = border
	return 1
}

// Sorted returns the vertices on one side of m: Down left to right, Up right
// to left, Left top to bottom and Right bottom to top.
func Sorted(m *terrain.Mesh, side terrain.BoundaryType) []int {
	vertices := m.BoundaryVertices(side)

	var key func(v int) float64
	desc := false
	switch side {
	case terrain.Down:
		key = func(v int) float64 { return m.Position(v).X() }
	case terrain.Up:
		key, desc = func(v int) float64 { return m.Position(v).X() }, true
	case terrain.Left:
		key, desc = func(v int) float64 { return m.Position(v).Y() }, true
	case terrain.Right:
		key = func(v int) float64 { return m.Position(v).Y() }
	default:
		return vertices
	}

	slices.SortStableFunc(vertices, func(a, b int) int {
		if desc {
			return cmp.Compare(key(b), key(a))
		}
		return cmp.Compare(key(a), key(b))
	})
	return vertices
}
