package halfedge

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Octree partitions vertex indices by position. Children are ordered
// (x, y, z) low/high as: 0 lll, 1 hll, 2 hhl, 3 lhl, 4 llh, 5 hlh, 6 hhh, 7 lhh.
type Octree struct {
	Min      mgl64.Vec3
	Max      mgl64.Vec3
	Depth    int
	Children []*Octree
	Vertices []int
}

// OctreeOptions bounds the subdivision of an Octree.
type OctreeOptions struct {
	MaxDepth    int     // deepest level created
	MinBoxSize  float64 // boxes with a side shorter than this, in position units, are not split
	MinVertices int     // boxes holding fewer vertices are not split
}

// DefaultOctreeOptions is the partitioning used for vertex welding of
// positions in meters. Meshes in degrees need a MinBoxSize to match.
var DefaultOctreeOptions = OctreeOptions{
	MaxDepth:    10,
	MinBoxSize:  1.0,
	MinVertices: 50,
}

// NewOctree builds a cubic octree over the given vertices of m.
func NewOctree(m *Mesh, vertices []int, opts OctreeOptions) *Octree {
	root := &Octree{Vertices: vertices}
	if len(vertices) == 0 {
		return root
	}

	lo := mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	hi := mgl64.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	for _, v := range vertices {
		p := m.Vertices[v].Position
		for i := range 3 {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}

	size := math.Max(hi[0]-lo[0], math.Max(hi[1]-lo[1], hi[2]-lo[2]))
	root.Min = lo
	root.Max = lo.Add(mgl64.Vec3{size, size, size})
	root.split(m, opts)
	return root
}

func (o *Octree) split(m *Mesh, opts OctreeOptions) {
	if o.Depth >= opts.MaxDepth || len(o.Vertices) == 0 || len(o.Vertices) < opts.MinVertices {
		return
	}
	if o.Max[0]-o.Min[0] < opts.MinBoxSize {
		return
	}

	mid := o.Min.Add(o.Max).Mul(0.5)
	lo, hi := o.Min, o.Max
	boxes := [8][2]mgl64.Vec3{
		{{lo[0], lo[1], lo[2]}, {mid[0], mid[1], mid[2]}},
		{{mid[0], lo[1], lo[2]}, {hi[0], mid[1], mid[2]}},
		{{mid[0], mid[1], lo[2]}, {hi[0], hi[1], mid[2]}},
		{{lo[0], mid[1], lo[2]}, {mid[0], hi[1], mid[2]}},
		{{lo[0], lo[1], mid[2]}, {mid[0], mid[1], hi[2]}},
		{{mid[0], lo[1], mid[2]}, {hi[0], mid[1], hi[2]}},
		{{mid[0], mid[1], mid[2]}, {hi[0], hi[1], hi[2]}},
		{{lo[0], mid[1], mid[2]}, {mid[0], hi[1], hi[2]}},
	}

	o.Children = make([]*Octree, 8)
	for i, b := range boxes {
		o.Children[i] = &Octree{Min: b[0], Max: b[1], Depth: o.Depth + 1}
	}

	for _, v := range o.Vertices {
		p := m.Vertices[v].Position
		o.Children[octant(p, mid)].Vertices = append(o.Children[octant(p, mid)].Vertices, v)
	}
	o.Vertices = nil

	for _, c := range o.Children {
		c.split(m, opts)
	}
}

func octant(p, mid mgl64.Vec3) int {
	xHigh := p[0] >= mid[0]
	yHigh := p[1] >= mid[1]
	zHigh := p[2] >= mid[2]

	var i int
	switch {
	case !xHigh && !yHigh:
		i = 0
	case xHigh && !yHigh:
		i = 1
	case xHigh && yHigh:
		i = 2
	default:
		i = 3
	}
	if zHigh {
		i += 4
	}
	return i
}

// Leaves returns the non-empty leaves in depth-first child order.
func (o *Octree) Leaves() []*Octree {
	var leaves []*Octree
	var walk func(n *Octree)
	walk = func(n *Octree) {
		if n.Children == nil {
			if len(n.Vertices) > 0 {
				leaves = append(leaves, n)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(o)
	return leaves
}
