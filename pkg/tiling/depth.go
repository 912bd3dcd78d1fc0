// Package tiling implements the quadtree tile addressing used by the terrain
// pyramid: tile indices, geographic extents for the geodetic and web-mercator
// profiles, tile ranges and the per-depth refinement policy.
package tiling

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/terratiler/pkg/geodesy"
)

// MaxDepth is the deepest supported tile level.
const MaxDepth = 28

// ErrInvalidDepth is returned for depths outside [0, MaxDepth].
var ErrInvalidDepth = errors.New("invalid tile depth")

// DepthError reports the offending depth. It unwraps to ErrInvalidDepth.
type DepthError struct {
	Depth int
	Max   int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("%v: %d (valid range 0..%d)", ErrInvalidDepth, e.Depth, e.Max)
}

func (e *DepthError) Unwrap() error { return ErrInvalidDepth }

// CheckDepth returns a *DepthError when depth is out of range.
func CheckDepth(depth int) error {
	if depth < 0 || depth > MaxDepth {
		return &DepthError{Depth: depth, Max: MaxDepth}
	}
	return nil
}

// AngularSpan returns the latitude span in degrees of one tile at depth,
// 180 / 2^depth.
func AngularSpan(depth int) (float64, error) {
	if err := CheckDepth(depth); err != nil {
		return 0, err
	}
	return 180.0 / math.Pow(2, float64(depth)), nil
}

// TileSizeInMeters converts the angular span of a tile at depth to meters
// along the equator.
func TileSizeInMeters(depth int) (float64, error) {
	span, err := AngularSpan(depth)
	if err != nil {
		return 0, err
	}
	return geodesy.ArcLength(span), nil
}

func mustSpan(depth int) float64 {
	span, err := AngularSpan(depth)
	if err != nil {
		panic(err)
	}
	return span
}
