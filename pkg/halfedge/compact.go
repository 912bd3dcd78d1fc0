package halfedge

// Remap maps old arena indices to new ones after Compact. Removed elements
// map to None.
type Remap struct {
	Vertices  []int
	HalfEdges []int
	Faces     []int
}

// DropUnreferencedVertices marks every vertex not used by a live half-edge as
// deleted and returns how many were dropped.
func (m *Mesh) DropUnreferencedVertices() int {
	used := make([]bool, len(m.Vertices))
	for i := range m.HalfEdges {
		if !m.HalfEdges[i].Deleted {
			used[m.HalfEdges[i].Vertex] = true
		}
	}
	dropped := 0
	for i := range m.Vertices {
		if !used[i] && !m.Vertices[i].Deleted {
			m.Vertices[i].Deleted = true
			dropped++
		}
	}
	return dropped
}

// Compact removes deleted elements and rewrites every index. Twins pointing
// at removed half-edges become None.
func (m *Mesh) Compact() Remap {
	r := Remap{
		Vertices:  make([]int, len(m.Vertices)),
		HalfEdges: make([]int, len(m.HalfEdges)),
		Faces:     make([]int, len(m.Faces)),
	}

	vertices := make([]Vertex, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		if v.Deleted {
			r.Vertices[i] = None
			continue
		}
		r.Vertices[i] = len(vertices)
		vertices = append(vertices, v)
	}

	faces := make([]Face, 0, len(m.Faces))
	for i, f := range m.Faces {
		if f.Deleted {
			r.Faces[i] = None
			continue
		}
		r.Faces[i] = len(faces)
		faces = append(faces, f)
	}

	n := 0
	for i, he := range m.HalfEdges {
		if he.Deleted {
			r.HalfEdges[i] = None
			continue
		}
		r.HalfEdges[i] = n
		n++
	}

	halfEdges := make([]HalfEdge, 0, n)
	for i, he := range m.HalfEdges {
		if r.HalfEdges[i] == None {
			continue
		}
		he.Vertex = r.Vertices[he.Vertex]
		he.Face = r.Faces[he.Face]
		he.Next = r.HalfEdges[he.Next]
		if he.Twin != None {
			he.Twin = r.HalfEdges[he.Twin]
		}
		halfEdges = append(halfEdges, he)
	}

	for i := range faces {
		faces[i].Edge = r.HalfEdges[faces[i].Edge]
	}

	m.Vertices = vertices
	m.HalfEdges = halfEdges
	m.Faces = faces
	return r
}
