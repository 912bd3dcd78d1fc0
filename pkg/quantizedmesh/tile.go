package quantizedmesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terratiler/pkg/halfedge"
	"github.com/Faultbox/terratiler/pkg/octnormal"
	"github.com/Faultbox/terratiler/pkg/seam"
	"github.com/Faultbox/terratiler/pkg/terrain"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// MaxCoord is the largest quantized u, v or height.
const MaxCoord = 32767

// Tile errors.
var (
	ErrEmptyTile     = errors.New("tile has no triangles")
	ErrInvalidTile   = errors.New("invalid tile")
	ErrMissingNormal = errors.New("vertex has no normal")
)

// Tile is a decoded quantized-mesh tile. U runs west to east, V south to
// north and Height from MinHeight to MaxHeight, all over [0, MaxCoord].
// Normals holds two oct-encoded bytes per vertex or nothing.
type Tile struct {
	Header

	U, V, Height []uint16
	Indices      []uint32

	West, South, East, North []uint32

	Normals []byte
}

// VertexCount returns the number of vertices.
func (t *Tile) VertexCount() int { return len(t.U) }

// TriangleCount returns the number of triangles.
func (t *Tile) TriangleCount() int { return len(t.Indices) / 3 }

// Wide reports whether indices are stored on 32 bits.
func (t *Tile) Wide() bool { return len(t.U) > 1<<16 }

// FromMesh quantizes the live triangles of m over the tile extent ext.
// Vertices are numbered in order of first use by the triangles, which the
// index coding needs. Edge lists run west top to bottom, south left to
// right, east bottom to top and north right to left. With normals set every
// used vertex must carry a normal.
func FromMesh(m *terrain.Mesh, ext tiling.Extent, normals bool) (*Tile, error) {
	faces := m.LiveFaces()
	if len(faces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTile, m.Tile)
	}

	remap := make([]int, len(m.Vertices))
	for i := range remap {
		remap[i] = halfedge.None
	}
	order := make([]int, 0, len(m.Vertices))
	indices := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		vs, err := m.TriangleVertices(f)
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			if remap[v] == halfedge.None {
				remap[v] = len(order)
				order = append(order, v)
			}
			indices = append(indices, uint32(remap[v]))
		}
	}

	points := make([]mgl64.Vec3, len(order))
	for i, v := range order {
		points[i] = m.Position(v)
	}

	t := &Tile{
		Header:  NewHeader(ext, points),
		U:       make([]uint16, len(order)),
		V:       make([]uint16, len(order)),
		Height:  make([]uint16, len(order)),
		Indices: indices,
	}

	minH := float64(t.MinHeight)
	heightRange := float64(t.MaxHeight) - minH
	if heightRange == 0 {
		heightRange = 1
	}
	for i, p := range points {
		t.U[i] = quantize(p[0]-ext.MinLon, ext.LonRange())
		t.V[i] = quantize(p[1]-ext.MinLat, ext.LatRange())
		t.Height[i] = quantize(p[2]-minH, heightRange)
	}

	edge := func(side terrain.BoundaryType) []uint32 {
		sorted := seam.Sorted(m, side)
		out := make([]uint32, 0, len(sorted))
		for _, v := range sorted {
			if remap[v] != halfedge.None {
				out = append(out, uint32(remap[v]))
			}
		}
		return out
	}
	t.West = edge(terrain.Left)
	t.South = edge(terrain.Down)
	t.East = edge(terrain.Right)
	t.North = edge(terrain.Up)

	if normals {
		t.Normals = make([]byte, 0, len(order)*2)
		for _, v := range order {
			vert := &m.Vertices[v]
			if !vert.Has(halfedge.ChannelNormal) {
				return nil, fmt.Errorf("%w: vertex %d of %s", ErrMissingNormal, v, m.Tile)
			}
			e := octnormal.Encode(vert.Normal)
			t.Normals = append(t.Normals, e[0], e[1])
		}
	}
	return t, nil
}

func quantize(offset, span float64) uint16 {
	q := math.Round(offset / span * MaxCoord)
	return uint16(max(0, min(MaxCoord, q)))
}

// ToMesh rebuilds a terrain mesh for tile idx covering ext. Coordinates at
// 0 and MaxCoord land exactly on the extent borders so boundary typing sees
// them.
func (t *Tile) ToMesh(idx tiling.Index, ext tiling.Extent) (*terrain.Mesh, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	minH := float64(t.MinHeight)
	heightRange := float64(t.MaxHeight) - minH

	s := &halfedge.Surface{
		Vertices: make([]halfedge.Vertex, t.VertexCount()),
		Faces:    make([][3]int, 0, t.TriangleCount()),
	}
	for i := range s.Vertices {
		v := &s.Vertices[i]
		v.Position = mgl64.Vec3{
			dequantize(t.U[i], ext.MinLon, ext.MaxLon),
			dequantize(t.V[i], ext.MinLat, ext.MaxLat),
			minH + float64(t.Height[i])/MaxCoord*heightRange,
		}
		if len(t.Normals) > 0 {
			v.SetNormal(octnormal.Decode([2]byte{t.Normals[2*i], t.Normals[2*i+1]}))
		}
	}
	for i := 0; i < len(t.Indices); i += 3 {
		s.Faces = append(s.Faces, [3]int{int(t.Indices[i]), int(t.Indices[i+1]), int(t.Indices[i+2])})
	}

	return terrain.FromSurface(idx, ext, s), nil
}

func dequantize(q uint16, lo, hi float64) float64 {
	switch q {
	case 0:
		return lo
	case MaxCoord:
		return hi
	default:
		return lo + float64(q)/MaxCoord*(hi-lo)
	}
}

// validate checks the array lengths and that every index names a vertex.
func (t *Tile) validate() error {
	n := len(t.U)
	if len(t.V) != n || len(t.Height) != n {
		return fmt.Errorf("%w: %d u, %d v, %d height values", ErrInvalidTile, n, len(t.V), len(t.Height))
	}
	if len(t.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidTile, len(t.Indices))
	}
	if len(t.Normals) != 0 && len(t.Normals) != 2*n {
		return fmt.Errorf("%w: %d normal bytes for %d vertices", ErrInvalidTile, len(t.Normals), n)
	}
	for _, list := range [][]uint32{t.Indices, t.West, t.South, t.East, t.North} {
		for _, i := range list {
			if int(i) >= n {
				return fmt.Errorf("%w: index %d out of %d vertices", ErrInvalidTile, i, n)
			}
		}
	}
	return nil
}
