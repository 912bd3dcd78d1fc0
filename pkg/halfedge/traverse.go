package halfedge

// MaxFaceEdges bounds every walk along a face loop.
const MaxFaceEdges = 64

// FaceHalfEdges returns the half-edges of face f starting at its
// representative edge. A loop that does not return to the start within
// MaxFaceEdges steps is a *TopologyError.
func (m *Mesh) FaceHalfEdges(f int) ([]int, error) {
	if f < 0 || f >= len(m.Faces) {
		return nil, &TopologyError{Face: f, HalfEdge: None, Reason: "face index out of range"}
	}
	start := m.Faces[f].Edge
	if start < 0 || start >= len(m.HalfEdges) {
		return nil, &TopologyError{Face: f, HalfEdge: start, Reason: "face has no half-edge"}
	}

	edges := make([]int, 0, 3)
	e := start
	for range MaxFaceEdges {
		edges = append(edges, e)
		e = m.HalfEdges[e].Next
		if e == start {
			return edges, nil
		}
		if e < 0 || e >= len(m.HalfEdges) {
			return nil, &TopologyError{Face: f, HalfEdge: e, Reason: "next index out of range"}
		}
	}
	return nil, &TopologyError{Face: f, HalfEdge: start, Reason: "face loop does not close"}
}

// FaceVertices returns the vertices of face f in loop order.
func (m *Mesh) FaceVertices(f int) ([]int, error) {
	edges, err := m.FaceHalfEdges(f)
	if err != nil {
		return nil, err
	}
	vertices := make([]int, len(edges))
	for i, e := range edges {
		vertices[i] = m.HalfEdges[e].Vertex
	}
	return vertices, nil
}

// TriangleVertices is FaceVertices for faces that must be triangles.
func (m *Mesh) TriangleVertices(f int) ([3]int, error) {
	vs, err := m.FaceVertices(f)
	if err != nil {
		return [3]int{}, err
	}
	if len(vs) != 3 {
		return [3]int{}, &TopologyError{Face: f, HalfEdge: m.Faces[f].Edge, Reason: "face is not a triangle"}
	}
	return [3]int{vs[0], vs[1], vs[2]}, nil
}

// End returns the end vertex of half-edge e.
func (m *Mesh) End(e int) int {
	return m.HalfEdges[m.HalfEdges[e].Next].Vertex
}

// Prev returns the half-edge whose Next is e, or None if the loop is broken.
func (m *Mesh) Prev(e int) int {
	p := e
	for range MaxFaceEdges {
		n := m.HalfEdges[p].Next
		if n == e {
			return p
		}
		p = n
	}
	return None
}

// TwinFace returns the face on the other side of e, or None.
func (m *Mesh) TwinFace(e int) int {
	t := m.HalfEdges[e].Twin
	if t == None {
		return None
	}
	return m.HalfEdges[t].Face
}

// Outgoing returns, for every vertex, the live half-edges starting at it.
func (m *Mesh) Outgoing() [][]int {
	out := make([][]int, len(m.Vertices))
	for i := range m.HalfEdges {
		he := &m.HalfEdges[i]
		if he.Deleted {
			continue
		}
		out[he.Vertex] = append(out[he.Vertex], i)
	}
	return out
}

type edgeKey struct{ from, to int }

// SetTwins pairs every untwinned live half-edge with the live half-edge that
// runs between the same vertices in the opposite direction. Existing twins
// are kept.
func (m *Mesh) SetTwins() {
	open := make(map[edgeKey]int)
	for i := range m.HalfEdges {
		he := &m.HalfEdges[i]
		if he.Deleted || he.Twin != None {
			continue
		}
		key := edgeKey{from: he.Vertex, to: m.End(i)}
		if _, dup := open[key]; !dup {
			open[key] = i
		}
	}

	for i := range m.HalfEdges {
		he := &m.HalfEdges[i]
		if he.Deleted || he.Twin != None {
			continue
		}
		from, to := he.Vertex, m.End(i)
		if open[edgeKey{from, to}] != i {
			continue
		}
		other, ok := open[edgeKey{from: to, to: from}]
		if !ok || other == i || m.HalfEdges[other].Twin != None {
			continue
		}
		m.Link(i, other)
	}
}

// Validate checks loop closure, twin symmetry and that live elements only
// reference live elements.
func (m *Mesh) Validate() error {
	for f := range m.Faces {
		if m.Faces[f].Deleted {
			continue
		}
		edges, err := m.FaceHalfEdges(f)
		if err != nil {
			return err
		}
		for _, e := range edges {
			he := &m.HalfEdges[e]
			switch {
			case he.Deleted:
				return &TopologyError{Face: f, HalfEdge: e, Reason: "live face uses deleted half-edge"}
			case he.Face != f:
				return &TopologyError{Face: f, HalfEdge: e, Reason: "half-edge owned by another face"}
			case he.Vertex < 0 || he.Vertex >= len(m.Vertices) || m.Vertices[he.Vertex].Deleted:
				return &TopologyError{Face: f, HalfEdge: e, Reason: "half-edge references removed vertex"}
			}
			if he.Twin != None {
				if he.Twin >= len(m.HalfEdges) || m.HalfEdges[he.Twin].Twin != e {
					return &TopologyError{Face: f, HalfEdge: e, Reason: "twin is not symmetric"}
				}
				if m.HalfEdges[he.Twin].Deleted {
					return &TopologyError{Face: f, HalfEdge: e, Reason: "twin is deleted"}
				}
			}
		}
	}
	return nil
}
