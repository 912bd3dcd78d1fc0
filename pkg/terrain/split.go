package terrain

import (
	"go.uber.org/zap"

	"github.com/Faultbox/terratiler/pkg/halfedge"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// SplitReport describes one split.
type SplitReport struct {
	Tile      tiling.Index
	Triangles int // live triangles of the parent
	Children  int // non-empty children
	Cut       int // twin pairs cut along child borders
	Unknown   int // cut half-edges whose neighbor is not a sibling
}

// Imbalanced reports whether the split deserves a warning: fewer than four
// children or Unknown boundary types.
func (r SplitReport) Imbalanced() bool {
	return r.Children < 4 || r.Unknown > 0
}

// Split divides m into the meshes of the children of m.Tile. Each live
// triangle goes to the child quadrant holding its barycenter. Twins across
// children are cut on both sides and typed by the sibling on the other side.
// Children come back in left-up, right-up, left-down, right-down order,
// empty ones omitted, each in a fresh arena of its own.
//
// m is consumed: its owners and types are rewritten.
func Split(m *Mesh, s tiling.Scheme, log *zap.Logger) ([]*Mesh, SplitReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	report := SplitReport{Tile: m.Tile}

	if err := tiling.CheckDepth(m.Tile.L + 1); err != nil {
		return nil, report, err
	}
	quad := s.Children(m.Tile)
	midLon, midLat, err := childBorders(s, quad)
	if err != nil {
		return nil, report, err
	}

	children := quad.All()
	groups := make([][]int, len(children))
	for f := range m.Faces {
		if m.Faces[f].Deleted {
			continue
		}
		c, err := m.Barycenter(f)
		if err != nil {
			return nil, report, err
		}

		var q int
		switch {
		case c[0] < midLon && c[1] >= midLat:
			q = 0
		case c[0] >= midLon && c[1] >= midLat:
			q = 1
		case c[0] < midLon:
			q = 2
		default:
			q = 3
		}
		m.Owners[f] = children[q]
		groups[q] = append(groups[q], f)
		report.Triangles++
	}

	for _, group := range groups {
		for _, f := range group {
			owner := m.Owners[f]
			edges, err := m.FaceHalfEdges(f)
			if err != nil {
				return nil, report, err
			}
			for _, e := range edges {
				t := m.HalfEdges[e].Twin
				if t == halfedge.None {
					continue
				}
				other := m.Owners[m.HalfEdges[t].Face]
				if other == owner {
					continue
				}

				m.Cut(e)
				report.Cut++
				typ := sideOf(owner, other, s.Origin)
				m.Types[e] = typ
				m.Types[t] = typ.Opposite()
				if typ == Unknown {
					report.Unknown += 2
				}
			}
		}
	}

	var meshes []*Mesh
	for q, group := range groups {
		if len(group) == 0 {
			continue
		}
		child, err := m.extract(children[q], group)
		if err != nil {
			return nil, report, err
		}
		meshes = append(meshes, child)
	}
	report.Children = len(meshes)

	if report.Imbalanced() {
		log.Warn("split imbalance",
			zap.Stringer("tile", m.Tile),
			zap.Int("children", report.Children),
			zap.Int("unknown", report.Unknown),
		)
	}
	return meshes, report, nil
}

// childBorders returns the longitude and latitude where the children of a
// quad meet.
func childBorders(s tiling.Scheme, quad tiling.Quad) (midLon, midLat float64, err error) {
	lu, err := s.Extent(quad.LeftUp)
	if err != nil {
		return 0, 0, err
	}
	return lu.MaxLon, lu.MinLat, nil
}

// sideOf returns on which side of owner the tile other lies.
func sideOf(owner, other tiling.Index, o tiling.Origin) BoundaryType {
	switch other {
	case owner.Left():
		return Left
	case owner.Right():
		return Right
	case owner.Up(o):
		return Up
	case owner.Down(o):
		return Down
	default:
		return Unknown
	}
}

// extract copies the faces of one group into a new mesh owned by tile.
// Twins inside the group survive; the group is expected to have no twins
// leaving it. Refinement checks start over in the child.
func (m *Mesh) extract(tile tiling.Index, faces []int) (*Mesh, error) {
	child := NewMesh(tile, len(faces)+2, len(faces))
	vertexMap := make(map[int]int)
	edgeMap := make(map[int]int, len(faces)*3)

	for _, f := range faces {
		edges, err := m.FaceHalfEdges(f)
		if err != nil {
			return nil, err
		}
		if len(edges) != 3 {
			return nil, &halfedge.TopologyError{Face: f, HalfEdge: edges[0], Reason: "face is not a triangle"}
		}

		var vs [3]int
		var types [3]BoundaryType
		for i, e := range edges {
			v := m.HalfEdges[e].Vertex
			if m.Vertices[v].Deleted {
				return nil, &halfedge.TopologyError{Face: f, HalfEdge: e, Reason: "triangle references removed vertex"}
			}
			nv, ok := vertexMap[v]
			if !ok {
				child.Vertices = append(child.Vertices, m.Vertices[v])
				nv = len(child.Vertices) - 1
				vertexMap[v] = nv
			}
			vs[i] = nv
			types[i] = m.Types[e]
		}

		nf := child.addTriangle(vs[0], vs[1], vs[2], tile, types)
		first := child.Faces[nf].Edge
		for i, e := range edges {
			edgeMap[e] = first + i
		}
	}

	for old, n := range edgeMap {
		t := m.HalfEdges[old].Twin
		if t == halfedge.None {
			continue
		}
		nt, ok := edgeMap[t]
		if !ok {
			return nil, &halfedge.TopologyError{Face: m.HalfEdges[old].Face, HalfEdge: old, Reason: "twin leaves the tile"}
		}
		child.HalfEdges[n].Twin = nt
	}
	return child, nil
}
