package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terratiler/pkg/geodesy"
	"github.com/Faultbox/terratiler/pkg/halfedge"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

const (
	// maxBisectDepth bounds the chain of neighbor splits a bisection may
	// trigger.
	maxBisectDepth = 32
	// conformPasses bounds the extra passes that only bisect triangles
	// straddling the child borders.
	conformPasses = 16
	// maxProbes bounds the elevation samples read per triangle axis.
	maxProbes = 64
	// minProbeSpan is the smallest sample window, per axis, worth scanning.
	minProbeSpan = 6
	// borderTolerance is how far in degrees a vertex may cross a child
	// border before its triangle straddles it.
	borderTolerance = 1e-12
	// normalWeightDepth is the first depth whose error is weighted by the
	// triangle slope.
	normalWeightDepth = 11
)

// RefineStats summarizes one Refine call.
type RefineStats struct {
	Passes    int
	Bisected  int // bisection steps, a pair split counts once
	Triangles int // live triangles afterwards
}

// Refine bisects triangles of m until they follow sampler within the
// deviation of th, running at most th.Iterations passes. New vertices take
// their height from sampler.
//
// The edges on the tile sides are refined first, each on its own: an edge
// is halved while it is longer than th allows, strays from sampler or
// crosses a child border. The decision depends only on the edge end points,
// so the neighbor tile at the same depth cuts its copy of the edge at the
// same vertices and the seam between them stays closed.
//
// Inside the tile a triangle is bisected along its longest edge that has a
// twin, together with the neighbor across it, splitting that neighbor first
// when the edge is not the neighbor's longest too, so the mesh stays
// conforming. Side edges are never split there.
//
// With conform set, triangles straddling the borders of the children of
// m.Tile are bisected as well, so a following Split cuts along edges.
func Refine(m *Mesh, s tiling.Scheme, sampler Sampler, th tiling.Thresholds, conform bool) (RefineStats, error) {
	var stats RefineStats

	tileSize, err := tiling.TileSizeInMeters(m.Tile.L)
	if err != nil {
		return stats, err
	}
	ext, err := s.Extent(m.Tile)
	if err != nil {
		return stats, err
	}

	r := &refiner{
		m:        m,
		sampler:  sampler,
		th:       th,
		tileSize: tileSize,
		data:     sampler.Extent(),
	}
	r.dLon, r.dLat = sampler.Resolution()
	center := geodesy.GeographicToCartesian(ext.MidLon(), ext.MidLat(), 0)
	r.up = geodesy.NormalAtCartesianPoint(center[0], center[1], center[2])

	if conform && m.Tile.L < s.Profile.MaxDepth() {
		r.midLon, r.midLat, err = childBorders(s, s.Children(m.Tile))
		if err != nil {
			return stats, err
		}
		r.conform = true
	}

	if r.refineSides() {
		stats.Passes++
	}

	for range th.Iterations {
		refined, err := r.pass(r.mustRefine)
		if err != nil {
			return stats, err
		}
		stats.Passes++
		if !refined {
			break
		}
	}

	if r.conform {
		for range conformPasses {
			refined, err := r.pass(r.straddles)
			if err != nil {
				return stats, err
			}
			stats.Passes++
			if !refined {
				break
			}
		}
	}

	stats.Bisected = r.bisected
	stats.Triangles = len(m.Faces)
	return stats, nil
}

type refiner struct {
	m        *Mesh
	sampler  Sampler
	th       tiling.Thresholds
	tileSize float64

	data       tiling.Extent
	dLon, dLat float64
	up         mgl64.Vec3

	conform        bool
	midLon, midLat float64

	bisected int
}

// pass bisects every live triangle, present when the pass starts, that
// should refine, then compacts the mesh.
func (r *refiner) pass(should func(f int) (bool, error)) (bool, error) {
	refined := false
	n := len(r.m.Faces)
	for f := range n {
		if r.m.Faces[f].Deleted {
			continue
		}
		ok, err := should(f)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		done, err := r.bisect(f, 0)
		if err != nil {
			return false, err
		}
		refined = refined || done
	}
	if refined {
		r.m.Compact()
	}
	return refined, nil
}

func (r *refiner) corners(f int) ([3]mgl64.Vec3, error) {
	vs, err := r.m.TriangleVertices(f)
	if err != nil {
		return [3]mgl64.Vec3{}, err
	}
	return [3]mgl64.Vec3{r.m.Position(vs[0]), r.m.Position(vs[1]), r.m.Position(vs[2])}, nil
}

// mustRefine decides whether triangle f is too coarse. Triangles found fine
// are marked checked and not looked at again.
func (r *refiner) mustRefine(f int) (bool, error) {
	p, err := r.corners(f)
	if err != nil {
		return false, err
	}
	if r.conform && r.straddlesCorners(p) && maxEdgeMeters(p) >= r.th.MinTriangleSize {
		return true, nil
	}
	if r.m.checked[f] {
		return false, nil
	}

	bbox := cornersExtent(p)
	scale := geodesy.ArcLength(math.Max(bbox.LonRange(), bbox.LatRange())) / r.tileSize
	maxDiff := r.th.MaxDeviation * (0.8*scale + 0.2)

	size := maxEdgeMeters(p)
	if size < r.th.MinTriangleSize {
		r.m.checked[f] = true
		return false, nil
	}
	if size > r.th.MaxTriangleSize {
		return true, nil
	}

	// Without data below the triangle only its own heights can be wrong.
	if !r.data.Intersects(bbox) {
		for _, c := range p {
			if c[2] > maxDiff {
				return true, nil
			}
		}
		return false, nil
	}

	plane, ok := newPlane(p)
	if !ok {
		r.m.checked[f] = true
		return false, nil
	}

	cosAng := 1.0
	if r.m.Owners[f].L >= normalWeightDepth {
		a := geodesy.GeographicToCartesian(p[0][0], p[0][1], p[0][2])
		b := geodesy.GeographicToCartesian(p[1][0], p[1][1], p[1][2])
		c := geodesy.GeographicToCartesian(p[2][0], p[2][1], p[2][2])
		if n, ok := halfedge.ComputeFaceNormal(a, b, c); ok {
			cosAng = n.Dot(r.up)
		}
	}

	bary := p[0].Add(p[1]).Add(p[2]).Mul(1.0 / 3)
	if math.Abs(r.sampler.Sample(bary[0], bary[1])-plane.z(bary[0], bary[1]))*cosAng > maxDiff {
		return true, nil
	}

	c0 := int(math.Ceil((math.Max(bbox.MinLon, r.data.MinLon) - r.data.MinLon) / r.dLon))
	c1 := int(math.Floor((math.Min(bbox.MaxLon, r.data.MaxLon) - r.data.MinLon) / r.dLon))
	r0 := int(math.Ceil((math.Max(bbox.MinLat, r.data.MinLat) - r.data.MinLat) / r.dLat))
	r1 := int(math.Floor((math.Min(bbox.MaxLat, r.data.MaxLat) - r.data.MinLat) / r.dLat))
	if c1-c0+1 < minProbeSpan || r1-r0+1 < minProbeSpan {
		r.m.checked[f] = true
		return false, nil
	}

	colStep := max(1, (c1-c0+1)/maxProbes)
	rowStep := max(1, (r1-r0+1)/maxProbes)
	for col := c0; col <= c1; col += colStep {
		lon := r.data.MinLon + float64(col)*r.dLon
		for row := r0; row <= r1; row += rowStep {
			lat := r.data.MinLat + float64(row)*r.dLat
			if !plane.contains(lon, lat) {
				continue
			}
			if math.Abs(r.sampler.Sample(lon, lat)-plane.z(lon, lat))*cosAng > maxDiff {
				return true, nil
			}
		}
	}

	r.m.checked[f] = true
	return false, nil
}

// straddles reports whether triangle f crosses a child border and is still
// large enough to bisect.
func (r *refiner) straddles(f int) (bool, error) {
	p, err := r.corners(f)
	if err != nil {
		return false, err
	}
	return r.straddlesCorners(p) && maxEdgeMeters(p) >= r.th.MinTriangleSize, nil
}

func (r *refiner) straddlesCorners(p [3]mgl64.Vec3) bool {
	crosses := func(axis int, border float64) bool {
		below, above := false, false
		for _, c := range p {
			if c[axis] < border-borderTolerance {
				below = true
			}
			if c[axis] > border+borderTolerance {
				above = true
			}
		}
		return below && above
	}
	return crosses(0, r.midLon) || crosses(1, r.midLat)
}

// refineSides halves the twinless side edges of the mesh until splitsSide
// accepts every one. Halves are appended to the arena and visited by the
// same loop.
func (r *refiner) refineSides() bool {
	m := r.m
	refined := false
	for e := 0; e < len(m.HalfEdges); e++ {
		he := m.HalfEdges[e]
		if he.Deleted || he.Twin != halfedge.None || !m.Types[e].Side() {
			continue
		}
		if !r.splitsSide(m.Position(he.Vertex), m.Position(m.End(e))) {
			continue
		}
		r.splitFace(he.Face, e, r.midVertex(e))
		r.bisected++
		refined = true
	}
	if refined {
		m.Compact()
	}
	return refined
}

// splitsSide decides whether the side edge a-b is halved. The end points
// are put in a fixed order first so both copies of a shared edge, which run
// in opposite directions, are judged on the same numbers.
func (r *refiner) splitsSide(a, b mgl64.Vec3) bool {
	if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
		a, b = b, a
	}

	span := math.Hypot(b[0]-a[0], b[1]-a[1])
	size := geodesy.ArcLength(span)
	if size < r.th.MinTriangleSize {
		return false
	}
	if size > r.th.MaxTriangleSize {
		return true
	}
	if r.conform && (crosses(a[0], b[0], r.midLon) || crosses(a[1], b[1], r.midLat)) {
		return true
	}

	maxDiff := r.th.MaxDeviation * (0.8*size/r.tileSize + 0.2)
	n := min(int(span/math.Min(r.dLon, r.dLat)), maxProbes)
	d := b.Sub(a)
	for i := 1; i < n; i++ {
		p := a.Add(d.Mul(float64(i) / float64(n)))
		if !r.data.Contains(p[0], p[1]) {
			continue
		}
		if math.Abs(r.sampler.Sample(p[0], p[1])-p[2]) > maxDiff {
			return true
		}
	}
	return false
}

// crosses reports whether the values u and v lie on both sides of line.
func crosses(u, v, line float64) bool {
	lo, hi := math.Min(u, v), math.Max(u, v)
	return lo < line-borderTolerance && hi > line+borderTolerance
}

// bisect splits triangle f along its longest twinned edge. It reports false
// when f has no such edge or the neighbor chain got too deep and nothing
// was split.
func (r *refiner) bisect(f, depth int) (bool, error) {
	if depth > maxBisectDepth {
		return false, nil
	}

	e, err := r.longestEdge(f)
	if err != nil || e == halfedge.None {
		return false, err
	}
	t := r.m.HalfEdges[e].Twin

	g := r.m.HalfEdges[t].Face
	te, err := r.longestEdge(g)
	if err != nil {
		return false, err
	}
	if te == t {
		mid := r.midVertex(e)
		a, b := r.splitFace(f, e, mid)
		c, d := r.splitFace(g, t, mid)
		r.m.Link(a, d)
		r.m.Link(b, c)
		r.bisected++
		return true, nil
	}

	done, err := r.bisect(g, depth+1)
	if err != nil || !done || r.m.Faces[f].Deleted {
		return done, err
	}
	return r.bisect(f, depth+1)
}

// longestEdge returns the twinned half-edge of f spanning the most degrees;
// ties go to the first in loop order. It returns halfedge.None when no edge
// of f has a twin.
func (r *refiner) longestEdge(f int) (int, error) {
	edges, err := r.m.FaceHalfEdges(f)
	if err != nil {
		return halfedge.None, err
	}
	best, bestLen := halfedge.None, -1.0
	for _, e := range edges {
		if r.m.HalfEdges[e].Twin == halfedge.None {
			continue
		}
		a := r.m.Position(r.m.HalfEdges[e].Vertex)
		b := r.m.Position(r.m.End(e))
		l := math.Hypot(b[0]-a[0], b[1]-a[1])
		if l > bestLen {
			best, bestLen = e, l
		}
	}
	return best, nil
}

func (r *refiner) midVertex(e int) int {
	a := r.m.Position(r.m.HalfEdges[e].Vertex)
	b := r.m.Position(r.m.End(e))
	lon := (a[0] + b[0]) / 2
	lat := (a[1] + b[1]) / 2
	return r.m.AddVertex(lon, lat, r.sampler.Sample(lon, lat))
}

// splitFace replaces triangle f = (a, b, c), with e = a->b, by (a, mid, c)
// and (mid, b, c). It returns the half-edges a->mid and mid->b, which are
// left without twins. The halves along e keep the type of e; the outer
// edges keep theirs and their twins.
func (r *refiner) splitFace(f, e, mid int) (aMid, midB int) {
	m := r.m
	n := m.HalfEdges[e].Next
	p := m.HalfEdges[n].Next
	a, b, c := m.HalfEdges[e].Vertex, m.HalfEdges[n].Vertex, m.HalfEdges[p].Vertex
	te, tn, tp := m.Types[e], m.Types[n], m.Types[p]
	twinN, twinP := m.HalfEdges[n].Twin, m.HalfEdges[p].Twin
	owner := m.Owners[f]

	m.DeleteFace(f)
	m.HalfEdges[n].Twin = halfedge.None
	m.HalfEdges[p].Twin = halfedge.None
	m.Cut(e)

	first := m.addTriangle(a, mid, c, owner, [3]BoundaryType{te, Interior, tp})
	second := m.addTriangle(mid, b, c, owner, [3]BoundaryType{te, tn, Interior})
	a0 := m.Faces[first].Edge  // a->mid, mid->c, c->a
	b0 := m.Faces[second].Edge // mid->b, b->c, c->mid

	m.Link(a0+1, b0+2)
	m.Link(a0+2, twinP)
	m.Link(b0+1, twinN)
	return a0, b0
}

// plane is the affine height function of a triangle over lon/lat.
type plane struct {
	p   [3]mgl64.Vec3
	n   mgl64.Vec3
	det float64
}

func newPlane(p [3]mgl64.Vec3) (plane, bool) {
	n := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
	det := (p[1][0]-p[0][0])*(p[2][1]-p[0][1]) - (p[2][0]-p[0][0])*(p[1][1]-p[0][1])
	if n[2] == 0 || det == 0 {
		return plane{}, false
	}
	return plane{p: p, n: n, det: det}, true
}

func (pl plane) z(lon, lat float64) float64 {
	p0 := pl.p[0]
	return p0[2] - (pl.n[0]*(lon-p0[0])+pl.n[1]*(lat-p0[1]))/pl.n[2]
}

// contains reports whether (lon, lat) lies inside the triangle, borders
// included.
func (pl plane) contains(lon, lat float64) bool {
	p := pl.p
	u := ((lon-p[0][0])*(p[2][1]-p[0][1]) - (p[2][0]-p[0][0])*(lat-p[0][1])) / pl.det
	v := ((p[1][0]-p[0][0])*(lat-p[0][1]) - (lon-p[0][0])*(p[1][1]-p[0][1])) / pl.det
	return u >= 0 && v >= 0 && u+v <= 1
}

func cornersExtent(p [3]mgl64.Vec3) tiling.Extent {
	return tiling.Extent{
		MinLon: math.Min(p[0][0], math.Min(p[1][0], p[2][0])),
		MinLat: math.Min(p[0][1], math.Min(p[1][1], p[2][1])),
		MaxLon: math.Max(p[0][0], math.Max(p[1][0], p[2][0])),
		MaxLat: math.Max(p[0][1], math.Max(p[1][1], p[2][1])),
	}
}

// maxEdgeMeters returns the longest edge of a triangle, its angular length
// taken along the equator.
func maxEdgeMeters(p [3]mgl64.Vec3) float64 {
	longest := 0.0
	for i := range 3 {
		a, b := p[i], p[(i+1)%3]
		longest = math.Max(longest, math.Hypot(b[0]-a[0], b[1]-a[1]))
	}
	return geodesy.ArcLength(longest)
}
