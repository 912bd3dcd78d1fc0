package terrain

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terratiler/pkg/geodesy"
	"github.com/Faultbox/terratiler/pkg/halfedge"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// Sampler provides elevations for mesh vertices.
type Sampler interface {
	// Sample returns the height in meters at (lon, lat).
	Sample(lon, lat float64) float64
	// Extent returns where the sampler holds data.
	Extent() tiling.Extent
	// Resolution returns the sample spacing in degrees.
	Resolution() (dLon, dLat float64)
}

// ErrInvalidCells is returned for a grid cell count that is not a power of two.
var ErrInvalidCells = errors.New("grid cells must be a positive power of two")

// BuildGrid builds the initial mesh of tile: a cells x cells lattice of
// quads, each split along its lower-left to upper-right diagonal. Lattice
// lines run along the borders of the descendant tiles so every level of the
// quadtree down to log2(cells) cuts along existing edges.
//
// Cells are built with their own corner vertices and welded afterwards.
func BuildGrid(s tiling.Scheme, tile tiling.Index, sampler Sampler, cells int) (*Mesh, error) {
	if cells <= 0 || cells&(cells-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCells, cells)
	}

	ext, err := s.Extent(tile)
	if err != nil {
		return nil, err
	}

	limit := s.Profile.MaxDepth()
	k := bits.TrailingZeros(uint(cells))
	if tile.L+k > limit {
		k = max(limit-tile.L, 0)
		cells = 1 << k
	}

	lons, lats, err := latticeLines(s, tile, ext, k)
	if err != nil {
		return nil, err
	}

	surface := &halfedge.Surface{
		Vertices: make([]halfedge.Vertex, 0, cells*cells*4),
		Faces:    make([][3]int, 0, cells*cells*2),
	}
	vertex := func(i, j int) int {
		lon, lat := lons[i], lats[j]
		surface.Vertices = append(surface.Vertices, halfedge.Vertex{
			Position: mgl64.Vec3{lon, lat, sampler.Sample(lon, lat)},
		})
		return len(surface.Vertices) - 1
	}

	for j := range cells {
		for i := range cells {
			ld := vertex(i, j)
			rd := vertex(i+1, j)
			ru := vertex(i+1, j+1)
			lu := vertex(i, j+1)
			surface.Faces = append(surface.Faces, [3]int{ld, rd, ru}, [3]int{ld, ru, lu})
		}
	}

	dLon := ext.LonRange() / float64(cells)
	dLat := ext.LatRange() / float64(cells)
	halfedge.WeldVertices(surface, weldOptions(dLon, dLat))

	return FromSurface(tile, ext, surface), nil
}

// weldOptions welds lattice corners of cells dLon x dLat degrees. Octree
// boxes are measured in degrees like the positions and stop splitting at
// one meter.
func weldOptions(dLon, dLat float64) halfedge.WeldOptions {
	opts := halfedge.DefaultWeldOptions(min(dLon, dLat) * 1e-6)
	opts.Octree.MinBoxSize = 1 / geodesy.ArcLength(1)
	return opts
}

// latticeLines returns the ascending longitudes and latitudes of the
// descendant tile borders k levels below tile.
func latticeLines(s tiling.Scheme, tile tiling.Index, ext tiling.Extent, k int) (lons, lats []float64, err error) {
	n := 1 << k
	lons = make([]float64, 0, n+1)
	lats = make([]float64, 0, n+1)
	lons = append(lons, ext.MinLon)
	lats = append(lats, ext.MinLat)

	for i := 1; i < n; i++ {
		sub := tiling.Index{L: tile.L + k, X: tile.X*n + i, Y: tile.Y*n + i}
		e, err := s.Extent(sub)
		if err != nil {
			return nil, nil, err
		}
		lons = append(lons, e.MinLon)
		// Rows count from the top or the bottom depending on the origin;
		// either way one of the borders of row i is a new lattice line.
		if s.Origin == tiling.TopLeft {
			lats = append(lats, e.MaxLat)
		} else {
			lats = append(lats, e.MinLat)
		}
	}

	lons = append(lons, ext.MaxLon)
	lats = append(lats, ext.MaxLat)
	slices.Sort(lats)
	return lons, lats, nil
}
