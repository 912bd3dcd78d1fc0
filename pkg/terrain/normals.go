package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terratiler/pkg/geodesy"
	"github.com/Faultbox/terratiler/pkg/halfedge"
)

// ComputeNormals sets a unit normal on every live vertex: the normalized sum
// of the earth-centered normals of its non-degenerate triangles. Vertices
// without such a triangle get the ellipsoid normal below them. It returns
// the number of degenerate triangles skipped.
func (m *Mesh) ComputeNormals() (int, error) {
	ecef := make([]mgl64.Vec3, len(m.Vertices))
	for i := range m.Vertices {
		p := m.Vertices[i].Position
		ecef[i] = geodesy.GeographicToCartesian(p[0], p[1], p[2])
	}

	sums := make([]mgl64.Vec3, len(m.Vertices))
	degenerate := 0
	for f := range m.Faces {
		if m.Faces[f].Deleted {
			continue
		}
		vs, err := m.TriangleVertices(f)
		if err != nil {
			return degenerate, err
		}
		n, ok := halfedge.ComputeFaceNormal(ecef[vs[0]], ecef[vs[1]], ecef[vs[2]])
		if !ok {
			degenerate++
			continue
		}
		for _, v := range vs {
			sums[v] = sums[v].Add(n)
		}
	}

	for i := range m.Vertices {
		v := &m.Vertices[i]
		if v.Deleted {
			continue
		}
		n := sums[i]
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		} else {
			p := ecef[i]
			n = geodesy.NormalAtCartesianPoint(p[0], p[1], p[2])
		}
		v.SetNormal(mgl32.Vec3{float32(n[0]), float32(n[1]), float32(n[2])})
	}
	return degenerate, nil
}
