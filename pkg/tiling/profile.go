package tiling

import (
	"fmt"
	"math"
	"strings"
)

// Profile selects how tile rows map to latitude.
type Profile int

const (
	// Geodetic is the CRS84 profile: two root tiles, linear in latitude.
	Geodetic Profile = iota
	// WebMercator is the spherical mercator profile: one root tile.
	WebMercator
)

func (p Profile) String() string {
	switch p {
	case Geodetic:
		return "geodetic"
	case WebMercator:
		return "web_mercator"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// Projection returns the EPSG code advertised for the profile.
func (p Profile) Projection() string {
	switch p {
	case WebMercator:
		return "EPSG:3857"
	default:
		return "EPSG:4326"
	}
}

// MaxDepth returns the deepest level whose extents the profile resolves.
func (p Profile) MaxDepth() int {
	if p == WebMercator {
		return webMercatorMaxDepth
	}
	return MaxDepth
}

// Bounds returns the part of the world the profile tiles.
func (p Profile) Bounds() Extent {
	if p == WebMercator {
		lat := webMercatorMaxLatRad * 180.0 / math.Pi
		return Extent{MinLon: -180, MinLat: -lat, MaxLon: 180, MaxLat: lat}
	}
	return Extent{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
}

// Grid returns the number of columns and rows at depth.
func (p Profile) Grid(depth int) (cols, rows int) {
	switch p {
	case WebMercator:
		n := 1 << depth
		return n, n
	default:
		rows = 1 << depth
		return rows * 2, rows
	}
}

// ParseProfile accepts "geodetic"/"crs84" and "web_mercator"/"webmercator".
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geodetic", "crs84", "epsg:4326":
		return Geodetic, nil
	case "web_mercator", "webmercator", "mercator", "epsg:3857":
		return WebMercator, nil
	default:
		return 0, fmt.Errorf("unknown tiling profile %q", s)
	}
}

// Origin is the row-0 convention.
type Origin int

const (
	// TopLeft puts row 0 at the north edge.
	TopLeft Origin = iota
	// BottomLeft puts row 0 at the south edge (TMS).
	BottomLeft
)

func (o Origin) String() string {
	switch o {
	case TopLeft:
		return "top_left"
	case BottomLeft:
		return "bottom_left"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Scheme returns the TileJSON scheme name for the origin.
func (o Origin) Scheme() string {
	if o == TopLeft {
		return "slippyMap"
	}
	return "tms"
}

// ParseOrigin accepts "top_left"/"topleft" and "bottom_left"/"bottomleft"/"tms".
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top_left", "topleft", "left_up", "xyz":
		return TopLeft, nil
	case "bottom_left", "bottomleft", "left_down", "tms":
		return BottomLeft, nil
	default:
		return 0, fmt.Errorf("unknown tile origin %q", s)
	}
}

// Scheme pairs a profile with an origin convention. It is the explicit tiling
// configuration threaded through every index computation.
type Scheme struct {
	Profile Profile
	Origin  Origin
}

// Roots returns the depth-0 tiles of the scheme.
func (s Scheme) Roots() []Index {
	cols, rows := s.Profile.Grid(0)
	roots := make([]Index, 0, cols*rows)
	for y := range rows {
		for x := range cols {
			roots = append(roots, Index{L: 0, X: x, Y: y})
		}
	}
	return roots
}

// Children returns the children of idx under the scheme's origin.
func (s Scheme) Children(idx Index) Quad {
	return idx.Children(s.Origin)
}
