package halfedge

// Surface is an indexed triangle list, the interchange form for welding and
// for formats without topology.
type Surface struct {
	Vertices []Vertex
	Faces    [][3]int
}

// WeldOptions selects what makes two vertices the same.
type WeldOptions struct {
	PositionError float64
	MatchTexCoord bool
	MatchNormal   bool
	MatchColor    bool
	MatchBatchID  bool
	Octree        OctreeOptions
}

// DefaultWeldOptions welds coincident positions only.
func DefaultWeldOptions(positionError float64) WeldOptions {
	return WeldOptions{PositionError: positionError, Octree: DefaultOctreeOptions}
}

// WeldStats summarizes one weld pass.
type WeldStats struct {
	Welded        int // vertices merged into a master
	DroppedFaces  int // faces degenerate after remapping
	DroppedUnused int // vertices no face references
}

// WeldVertices merges vertices of s that are within opts.PositionError of
// each other and agree on every requested attribute channel. Candidates are
// only compared inside the same octree leaf. The first vertex met in a leaf
// is the master of its group; faces are rewritten to masters, faces that
// collapse are removed and unreferenced vertices are dropped.
func WeldVertices(s *Surface, opts WeldOptions) WeldStats {
	var stats WeldStats
	n := len(s.Vertices)
	if n == 0 {
		return stats
	}
	if opts.Octree.MaxDepth == 0 && opts.Octree.MinBoxSize == 0 && opts.Octree.MinVertices == 0 {
		opts.Octree = DefaultOctreeOptions
	}

	// The octree reads positions through a mesh view of the vertex slice.
	view := &Mesh{Vertices: s.Vertices}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	tree := NewOctree(view, all, opts.Octree)

	master := make([]int, n)
	for i := range master {
		master[i] = i
	}
	visited := make([]bool, n)
	for _, leaf := range tree.Leaves() {
		vs := leaf.Vertices
		for i, a := range vs {
			if visited[a] {
				continue
			}
			visited[a] = true
			for _, b := range vs[i+1:] {
				if visited[b] {
					continue
				}
				if weldable(&s.Vertices[a], &s.Vertices[b], opts) {
					master[b] = a
					visited[b] = true
					stats.Welded++
				}
			}
		}
	}

	faces := s.Faces[:0]
	for _, f := range s.Faces {
		f = [3]int{master[f[0]], master[f[1]], master[f[2]]}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			stats.DroppedFaces++
			continue
		}
		faces = append(faces, f)
	}

	used := make([]bool, n)
	for _, f := range faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}

	remap := make([]int, n)
	vertices := make([]Vertex, 0, n-stats.Welded)
	for i := range s.Vertices {
		if !used[i] {
			remap[i] = None
			if master[i] == i {
				stats.DroppedUnused++
			}
			continue
		}
		remap[i] = len(vertices)
		vertices = append(vertices, s.Vertices[i])
	}
	for i := range faces {
		faces[i] = [3]int{remap[faces[i][0]], remap[faces[i][1]], remap[faces[i][2]]}
	}

	s.Vertices = vertices
	s.Faces = faces
	return stats
}

func weldable(a, b *Vertex, opts WeldOptions) bool {
	if a.Position.Sub(b.Position).Len() > opts.PositionError {
		return false
	}
	if opts.MatchTexCoord && !sameChannel(a, b, ChannelTexCoord, a.TexCoord == b.TexCoord) {
		return false
	}
	if opts.MatchNormal && !sameChannel(a, b, ChannelNormal, a.Normal == b.Normal) {
		return false
	}
	if opts.MatchColor && !sameChannel(a, b, ChannelColor, a.Color == b.Color) {
		return false
	}
	if opts.MatchBatchID && !sameChannel(a, b, ChannelBatchID, a.BatchID == b.BatchID) {
		return false
	}
	return true
}

// sameChannel is true when both vertices lack c, or both have it and equal
// holds.
func sameChannel(a, b *Vertex, c Channel, equal bool) bool {
	ha, hb := a.Has(c), b.Has(c)
	if ha != hb {
		return false
	}
	return !ha || equal
}

// FromSurface builds a mesh from an indexed surface and pairs twins.
func FromSurface(s *Surface) *Mesh {
	m := New(len(s.Vertices), len(s.Faces))
	m.Vertices = append(m.Vertices, s.Vertices...)
	for _, f := range s.Faces {
		m.AddTriangle(f[0], f[1], f[2])
	}
	m.SetTwins()
	return m
}

// Surface exports the live triangles of m as an indexed surface with only
// the referenced vertices.
func (m *Mesh) Surface() (*Surface, error) {
	remap := make([]int, len(m.Vertices))
	for i := range remap {
		remap[i] = None
	}

	s := &Surface{}
	for f := range m.Faces {
		if m.Faces[f].Deleted {
			continue
		}
		vs, err := m.TriangleVertices(f)
		if err != nil {
			return nil, err
		}
		var tri [3]int
		for i, v := range vs {
			if m.Vertices[v].Deleted {
				return nil, &TopologyError{Face: f, HalfEdge: m.Faces[f].Edge, Reason: "triangle references removed vertex"}
			}
			if remap[v] == None {
				remap[v] = len(s.Vertices)
				s.Vertices = append(s.Vertices, m.Vertices[v])
			}
			tri[i] = remap[v]
		}
		s.Faces = append(s.Faces, tri)
	}
	return s, nil
}
