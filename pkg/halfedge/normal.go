package halfedge

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ComputeFaceNormal returns the unit normal (p2-p1)x(p3-p1). The second
// result is false for degenerate triangles, whose normal is undefined.
func ComputeFaceNormal(p1, p2, p3 mgl64.Vec3) (mgl64.Vec3, bool) {
	n := p2.Sub(p1).Cross(p3.Sub(p1))
	l := n.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}, false
	}
	return n.Mul(1 / l), true
}

// FaceNormal computes the normal of triangle f from its vertex positions.
func (m *Mesh) FaceNormal(f int) (mgl64.Vec3, bool, error) {
	vs, err := m.TriangleVertices(f)
	if err != nil {
		return mgl64.Vec3{}, false, err
	}
	n, ok := ComputeFaceNormal(m.Vertices[vs[0]].Position, m.Vertices[vs[1]].Position, m.Vertices[vs[2]].Position)
	return n, ok, nil
}
