// Package terrain implements tile-aware terrain meshes: the root grid
// builder, refinement by longest-edge bisection and the quadtree split.
//
// Vertex positions are geographic: X is longitude and Y latitude in
// degrees, Z is the ellipsoidal height in meters.
package terrain

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terratiler/pkg/halfedge"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// BoundaryType tells which side of its tile a half-edge lies on.
type BoundaryType int8

// Boundary types.
const (
	Unknown BoundaryType = iota - 1
	Interior
	Left
	Right
	Up
	Down
)

// String returns the boundary type name.
func (t BoundaryType) String() string {
	switch t {
	case Unknown:
		return "UNKNOWN"
	case Interior:
		return "INTERIOR"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return fmt.Sprintf("BoundaryType(%d)", int8(t))
	}
}

// Opposite returns the type the twin side of a cut edge gets.
func (t BoundaryType) Opposite() BoundaryType {
	switch t {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	default:
		return t
	}
}

// Side reports whether t names one of the four tile sides.
func (t BoundaryType) Side() bool {
	switch t {
	case Left, Right, Up, Down:
		return true
	default:
		return false
	}
}

// Sides lists the four tile sides in seam clamp order.
var Sides = [4]BoundaryType{Down, Up, Left, Right}

// Mesh is a half-edge mesh whose faces belong to tiles. Types runs parallel
// to HalfEdges and Owners to Faces; use the Mesh methods to add elements so
// the slices stay in step.
type Mesh struct {
	*halfedge.Mesh

	Tile   tiling.Index
	Types  []BoundaryType
	Owners []tiling.Index

	checked []bool
}

// NewMesh returns an empty mesh for tile.
func NewMesh(tile tiling.Index, vertices, triangles int) *Mesh {
	return &Mesh{
		Mesh:    halfedge.New(vertices, triangles),
		Tile:    tile,
		Types:   make([]BoundaryType, 0, triangles*3),
		Owners:  make([]tiling.Index, 0, triangles),
		checked: make([]bool, 0, triangles),
	}
}

// AddVertex appends a vertex at (lon, lat, height).
func (m *Mesh) AddVertex(lon, lat, height float64) int {
	return m.Mesh.AddVertex(mgl64.Vec3{lon, lat, height})
}

// AddTriangle appends the face a->b->c owned by the mesh tile. Its
// half-edges are typed Unknown.
func (m *Mesh) AddTriangle(a, b, c int) int {
	return m.addTriangle(a, b, c, m.Tile, [3]BoundaryType{Unknown, Unknown, Unknown})
}

func (m *Mesh) addTriangle(a, b, c int, owner tiling.Index, types [3]BoundaryType) int {
	f := m.Mesh.AddTriangle(a, b, c)
	m.Types = append(m.Types, types[:]...)
	m.Owners = append(m.Owners, owner)
	m.checked = append(m.checked, false)
	return f
}

// Compact drops deleted elements and keeps the parallel slices in step.
func (m *Mesh) Compact() halfedge.Remap {
	r := m.Mesh.Compact()

	types := make([]BoundaryType, len(m.HalfEdges))
	for old, n := range r.HalfEdges {
		if n != halfedge.None {
			types[n] = m.Types[old]
		}
	}
	owners := make([]tiling.Index, len(m.Faces))
	checked := make([]bool, len(m.Faces))
	for old, n := range r.Faces {
		if n != halfedge.None {
			owners[n] = m.Owners[old]
			checked[n] = m.checked[old]
		}
	}

	m.Types, m.Owners, m.checked = types, owners, checked
	return r
}

// Position returns the (lon, lat, height) of vertex v.
func (m *Mesh) Position(v int) mgl64.Vec3 {
	return m.Vertices[v].Position
}

// Barycenter returns the mean position of the vertices of face f.
func (m *Mesh) Barycenter(f int) (mgl64.Vec3, error) {
	vs, err := m.TriangleVertices(f)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return m.Position(vs[0]).Add(m.Position(vs[1])).Add(m.Position(vs[2])).Mul(1.0 / 3), nil
}

// Bounds returns the lon/lat extent of the live vertices and their height
// range. ok is false for an empty mesh.
func (m *Mesh) Bounds() (ext tiling.Extent, minHeight, maxHeight float64, ok bool) {
	for i := range m.Vertices {
		v := &m.Vertices[i]
		if v.Deleted {
			continue
		}
		p := v.Position
		if !ok {
			ext = tiling.Extent{MinLon: p[0], MinLat: p[1], MaxLon: p[0], MaxLat: p[1]}
			minHeight, maxHeight, ok = p[2], p[2], true
			continue
		}
		ext = ext.Union(tiling.Extent{MinLon: p[0], MinLat: p[1], MaxLon: p[0], MaxLat: p[1]})
		minHeight = min(minHeight, p[2])
		maxHeight = max(maxHeight, p[2])
	}
	return ext, minHeight, maxHeight, ok
}

// BoundaryVertices returns the vertices of the live half-edges typed t,
// each once, in ascending index order.
func (m *Mesh) BoundaryVertices(t BoundaryType) []int {
	seen := make(map[int]bool)
	for e := range m.HalfEdges {
		if m.HalfEdges[e].Deleted || m.Types[e] != t {
			continue
		}
		seen[m.HalfEdges[e].Vertex] = true
		seen[m.End(e)] = true
	}

	vertices := make([]int, 0, len(seen))
	for v := range seen {
		vertices = append(vertices, v)
	}
	slices.Sort(vertices)
	return vertices
}

// boundaryTolerance is how far in degrees a vertex may sit from a tile
// border and still be on it.
const boundaryTolerance = 1e-13

// DetermineBoundaryTypes types every live half-edge: Interior when it has a
// twin, otherwise the tile side both its vertices lie on, otherwise Unknown.
// It returns the number of Unknown half-edges.
func (m *Mesh) DetermineBoundaryTypes(ext tiling.Extent) int {
	unknown := 0
	for e := range m.HalfEdges {
		he := &m.HalfEdges[e]
		if he.Deleted {
			continue
		}
		if he.Twin != halfedge.None {
			m.Types[e] = Interior
			continue
		}

		a, b := m.Position(he.Vertex), m.Position(m.End(e))
		switch {
		case near(a[1], ext.MinLat) && near(b[1], ext.MinLat):
			m.Types[e] = Down
		case near(a[1], ext.MaxLat) && near(b[1], ext.MaxLat):
			m.Types[e] = Up
		case near(a[0], ext.MinLon) && near(b[0], ext.MinLon):
			m.Types[e] = Left
		case near(a[0], ext.MaxLon) && near(b[0], ext.MaxLon):
			m.Types[e] = Right
		default:
			m.Types[e] = Unknown
			unknown++
		}
	}
	return unknown
}

func near(a, b float64) bool {
	d := a - b
	return d < boundaryTolerance && d > -boundaryTolerance
}

// FromSurface wraps an indexed surface into a terrain mesh for tile, pairs
// twins and types its boundary against ext.
func FromSurface(tile tiling.Index, ext tiling.Extent, s *halfedge.Surface) *Mesh {
	m := NewMesh(tile, len(s.Vertices), len(s.Faces))
	m.Vertices = append(m.Vertices, s.Vertices...)
	for _, f := range s.Faces {
		m.AddTriangle(f[0], f[1], f[2])
	}
	m.SetTwins()
	m.DetermineBoundaryTypes(ext)
	return m
}

// ToSurface exports the live triangles as an indexed surface.
func (m *Mesh) ToSurface() (*halfedge.Surface, error) {
	return m.Surface()
}
