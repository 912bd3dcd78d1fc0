package tiling

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// webMercatorMaxLatRad is 2*atan(e^pi) - pi/2.
const webMercatorMaxLatRad = 1.4844222297453324

// webMercatorMaxDepth bounds the latitude binary search.
const webMercatorMaxDepth = 22

// Extent is an axis-aligned lon/lat rectangle in degrees.
type Extent struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

func (e Extent) String() string {
	return fmt.Sprintf("[%.9f, %.9f] x [%.9f, %.9f]", e.MinLon, e.MaxLon, e.MinLat, e.MaxLat)
}

// MidLon returns the central longitude.
func (e Extent) MidLon() float64 { return (e.MinLon + e.MaxLon) / 2 }

// MidLat returns the central latitude.
func (e Extent) MidLat() float64 { return (e.MinLat + e.MaxLat) / 2 }

// LonRange returns the longitude width in degrees.
func (e Extent) LonRange() float64 { return e.MaxLon - e.MinLon }

// LatRange returns the latitude height in degrees.
func (e Extent) LatRange() float64 { return e.MaxLat - e.MinLat }

// Contains reports whether (lon, lat) lies inside e, borders included.
func (e Extent) Contains(lon, lat float64) bool {
	return lon >= e.MinLon && lon <= e.MaxLon && lat >= e.MinLat && lat <= e.MaxLat
}

// Intersects reports whether e and o overlap, touching borders included.
func (e Extent) Intersects(o Extent) bool {
	return e.MinLon <= o.MaxLon && e.MaxLon >= o.MinLon && e.MinLat <= o.MaxLat && e.MaxLat >= o.MinLat
}

// Clip returns the part of e inside o. ok is false when they do not
// overlap.
func (e Extent) Clip(o Extent) (Extent, bool) {
	c := Extent{
		MinLon: math.Max(e.MinLon, o.MinLon),
		MinLat: math.Max(e.MinLat, o.MinLat),
		MaxLon: math.Min(e.MaxLon, o.MaxLon),
		MaxLat: math.Min(e.MaxLat, o.MaxLat),
	}
	return c, c.MinLon <= c.MaxLon && c.MinLat <= c.MaxLat
}

// Union returns the smallest extent covering e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		MinLon: math.Min(e.MinLon, o.MinLon),
		MinLat: math.Min(e.MinLat, o.MinLat),
		MaxLon: math.Max(e.MaxLon, o.MaxLon),
		MaxLat: math.Max(e.MaxLat, o.MaxLat),
	}
}

// Extent returns the geographic extent of idx.
func (s Scheme) Extent(idx Index) (Extent, error) {
	if err := CheckDepth(idx.L); err != nil {
		return Extent{}, err
	}

	switch s.Profile {
	case Geodetic:
		return geodeticExtent(idx, s.Origin), nil
	case WebMercator:
		return webMercatorExtent(idx, s.Origin)
	default:
		return Extent{}, fmt.Errorf("extent of %s: unsupported profile %s", idx, s.Profile)
	}
}

func geodeticExtent(idx Index, o Origin) Extent {
	span := mustSpan(idx.L)
	x := float64(idx.X)
	y := float64(idx.Y)

	e := Extent{
		MinLon: span*x - 180.0,
		MaxLon: span*(x+1) - 180.0,
	}
	if o == TopLeft {
		e.MinLat = 90.0 - span*(y+1)
		e.MaxLat = 90.0 - span*y
	} else {
		e.MinLat = -90.0 + span*y
		e.MaxLat = -90.0 + span*(y+1)
	}
	return e
}

// webMercatorExtent narrows the mercator Y interval [-pi, pi] one level per
// iteration until depth L, choosing the half that holds row Y. Row 0 is north.
func webMercatorExtent(idx Index, o Origin) (Extent, error) {
	if idx.L > webMercatorMaxDepth {
		return Extent{}, &DepthError{Depth: idx.L, Max: webMercatorMaxDepth}
	}

	numCols := math.Pow(2, float64(idx.L))
	numRows := numCols
	row := idx.Y
	if o == BottomLeft {
		row = int(numRows) - 1 - idx.Y
	}

	lonRange := 360.0 / numCols
	maxMercY := math.Pi
	minMercY := -math.Pi
	maxLatRad := webMercatorMaxLatRad
	minLatRad := -webMercatorMaxLatRad
	yRatio := (float64(row) + 0.0005) / numRows

	for l := 0; l < idx.L; l++ {
		mid := (maxMercY + minMercY) / 2.0
		midLatRad := 2.0*math.Atan(math.Exp(mid)) - math.Pi/2.0
		midLatRatio := (math.Pi - mid) / (2 * math.Pi)

		if midLatRatio > yRatio {
			minLatRad = midLatRad
			minMercY = mid
		} else {
			maxLatRad = midLatRad
			maxMercY = mid
		}
	}

	minLon := lonRange*float64(idx.X) - 180.0
	return Extent{
		MinLon: minLon,
		MaxLon: minLon + lonRange,
		MinLat: minLatRad * 180.0 / math.Pi,
		MaxLat: maxLatRad * 180.0 / math.Pi,
	}, nil
}

// Containing returns the tile at depth holding (lon, lat). The result is not
// clamped to the tiling; points on the east or south border of the world map
// to the first index past the last tile.
func (s Scheme) Containing(depth int, lon, lat float64) (Index, error) {
	if err := CheckDepth(depth); err != nil {
		return Index{}, err
	}

	switch s.Profile {
	case Geodetic:
		return geodeticContaining(depth, lon, lat, s.Origin), nil
	case WebMercator:
		if depth > webMercatorMaxDepth {
			return Index{}, &DepthError{Depth: depth, Max: webMercatorMaxDepth}
		}
		t := maptile.At(orb.Point{lon, lat}, maptile.Zoom(depth))
		idx := Index{L: depth, X: int(t.X), Y: int(t.Y)}
		if s.Origin == BottomLeft {
			idx.Y = (1 << depth) - 1 - idx.Y
		}
		return idx, nil
	default:
		return Index{}, fmt.Errorf("containing tile: unsupported profile %s", s.Profile)
	}
}

func geodeticContaining(depth int, lon, lat float64, o Origin) Index {
	span := mustSpan(depth)
	x := int(math.Floor((lon + 180.0) / span))
	var y int
	if o == TopLeft {
		y = int(math.Floor((90.0 - lat) / span))
	} else {
		y = int(math.Floor((lat + 90.0) / span))
	}
	return Index{L: depth, X: x, Y: y}
}
