// Package halfedge provides an arena based half-edge mesh.
//
// Vertices, half-edges and faces live in slices owned by a Mesh and refer to
// each other by index. A missing twin is None. Removal marks elements as
// deleted; Compact rebuilds the arenas and returns the index remapping.
package halfedge

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// None marks an absent index reference.
const None = -1

// Channel is a bit set of optional vertex attributes.
type Channel uint8

// Optional vertex attribute channels.
const (
	ChannelTexCoord Channel = 1 << iota
	ChannelNormal
	ChannelColor
	ChannelBatchID
)

// Vertex is a mesh vertex. Optional attributes are only meaningful when the
// matching bit is set in Channels.
type Vertex struct {
	Position mgl64.Vec3
	TexCoord mgl64.Vec2
	Normal   mgl32.Vec3
	Color    [4]uint8
	BatchID  int32
	Channels Channel
	Deleted  bool
}

// Has reports whether the vertex carries attribute channel c.
func (v *Vertex) Has(c Channel) bool { return v.Channels&c != 0 }

// SetNormal stores n and marks the normal channel present.
func (v *Vertex) SetNormal(n mgl32.Vec3) {
	v.Normal = n
	v.Channels |= ChannelNormal
}

// SetTexCoord stores uv and marks the texcoord channel present.
func (v *Vertex) SetTexCoord(uv mgl64.Vec2) {
	v.TexCoord = uv
	v.Channels |= ChannelTexCoord
}

// SetColor stores c and marks the color channel present.
func (v *Vertex) SetColor(c [4]uint8) {
	v.Color = c
	v.Channels |= ChannelColor
}

// SetBatchID stores id and marks the batch id channel present.
func (v *Vertex) SetBatchID(id int32) {
	v.BatchID = id
	v.Channels |= ChannelBatchID
}

// HalfEdge is one directed side of a face.
type HalfEdge struct {
	Vertex  int // start vertex
	Face    int
	Next    int
	Twin    int
	Deleted bool
}

// Face references one of its half-edges; the others follow by Next.
type Face struct {
	Edge    int
	Deleted bool
}

// Mesh owns the vertex, half-edge and face arenas.
type Mesh struct {
	Vertices  []Vertex
	HalfEdges []HalfEdge
	Faces     []Face
}

// New returns an empty mesh with room for the given number of vertices and
// triangles.
func New(vertices, triangles int) *Mesh {
	return &Mesh{
		Vertices:  make([]Vertex, 0, vertices),
		HalfEdges: make([]HalfEdge, 0, triangles*3),
		Faces:     make([]Face, 0, triangles),
	}
}

// AddVertex appends a vertex at p and returns its index.
func (m *Mesh) AddVertex(p mgl64.Vec3) int {
	m.Vertices = append(m.Vertices, Vertex{Position: p})
	return len(m.Vertices) - 1
}

// AddTriangle appends the face a->b->c and returns its index. Twins are left
// unset.
func (m *Mesh) AddTriangle(a, b, c int) int {
	return m.AddFace(a, b, c)
}

// AddFace appends a face whose boundary visits the given vertices in order.
func (m *Mesh) AddFace(vertices ...int) int {
	f := len(m.Faces)
	first := len(m.HalfEdges)
	n := len(vertices)
	for i, v := range vertices {
		m.HalfEdges = append(m.HalfEdges, HalfEdge{
			Vertex: v,
			Face:   f,
			Next:   first + (i+1)%n,
			Twin:   None,
		})
	}
	m.Faces = append(m.Faces, Face{Edge: first})
	return f
}

// Link makes a and b twins of each other.
func (m *Mesh) Link(a, b int) {
	if a != None {
		m.HalfEdges[a].Twin = b
	}
	if b != None {
		m.HalfEdges[b].Twin = a
	}
}

// Cut removes the twin relation of e on both sides.
func (m *Mesh) Cut(e int) {
	t := m.HalfEdges[e].Twin
	if t != None && m.HalfEdges[t].Twin == e {
		m.HalfEdges[t].Twin = None
	}
	m.HalfEdges[e].Twin = None
}

// DeleteFace marks face f and its half-edges deleted. Twin references held by
// neighbors are left for the caller to relink or cut.
func (m *Mesh) DeleteFace(f int) {
	face := &m.Faces[f]
	if face.Deleted {
		return
	}
	face.Deleted = true

	e := face.Edge
	for range MaxFaceEdges {
		he := &m.HalfEdges[e]
		he.Deleted = true
		e = he.Next
		if e == face.Edge {
			break
		}
	}
}

// LiveFaces returns the indices of faces not marked deleted.
func (m *Mesh) LiveFaces() []int {
	faces := make([]int, 0, len(m.Faces))
	for i := range m.Faces {
		if !m.Faces[i].Deleted {
			faces = append(faces, i)
		}
	}
	return faces
}

// Counts returns the number of live vertices, half-edges and faces.
func (m *Mesh) Counts() (vertices, halfEdges, faces int) {
	for i := range m.Vertices {
		if !m.Vertices[i].Deleted {
			vertices++
		}
	}
	for i := range m.HalfEdges {
		if !m.HalfEdges[i].Deleted {
			halfEdges++
		}
	}
	for i := range m.Faces {
		if !m.Faces[i].Deleted {
			faces++
		}
	}
	return vertices, halfEdges, faces
}
