package halfedge

// WeldedGroups partitions faces into connected components. Two faces are
// connected when one holds a half-edge whose twin belongs to the other, or
// when they share a vertex. Deleted faces and faces outside the input are
// ignored.
//
// Components come out in the input order of their first face. Within a
// component faces are listed breadth first: twin neighbors of a face are
// queued before faces that only share one of its vertices.
func (m *Mesh) WeldedGroups(faces []int) [][]int {
	member := make(map[int]bool, len(faces))
	for _, f := range faces {
		if f >= 0 && f < len(m.Faces) && !m.Faces[f].Deleted {
			member[f] = true
		}
	}

	incident := make(map[int][]int)
	for _, f := range faces {
		if !member[f] {
			continue
		}
		edges, err := m.FaceHalfEdges(f)
		if err != nil {
			continue
		}
		for _, e := range edges {
			v := m.HalfEdges[e].Vertex
			incident[v] = append(incident[v], f)
		}
	}

	visited := make(map[int]bool, len(member))
	var groups [][]int
	for _, seed := range faces {
		if !member[seed] || visited[seed] {
			continue
		}

		visited[seed] = true
		group := []int{seed}
		visit := func(f int) {
			if f == None || !member[f] || visited[f] {
				return
			}
			visited[f] = true
			group = append(group, f)
		}
		for head := 0; head < len(group); head++ {
			edges, err := m.FaceHalfEdges(group[head])
			if err != nil {
				continue
			}
			for _, e := range edges {
				visit(m.TwinFace(e))
			}
			for _, e := range edges {
				for _, f := range incident[m.HalfEdges[e].Vertex] {
					visit(f)
				}
			}
		}
		groups = append(groups, group)
	}
	return groups
}
