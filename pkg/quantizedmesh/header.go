// Package quantizedmesh encodes terrain tiles in the Cesium quantized-mesh-1.0
// format and writes the layer.json that describes a tile set.
//
// A tile is a fixed 88 byte header followed by zig-zag delta coded vertex
// coordinates, high-water-mark coded triangle indices, the four edge vertex
// lists and optional extensions. Everything is little endian.
package quantizedmesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terratiler/pkg/geodesy"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// HeaderSize is the encoded size of Header.
const HeaderSize = 88

// Header is the fixed part of a tile. Positions are earth-centered
// earth-fixed meters except HorizonOcclusionPoint, which is in the
// ellipsoid-scaled frame.
type Header struct {
	Center                mgl64.Vec3
	MinHeight             float32
	MaxHeight             float32
	BoundingSphereCenter  mgl64.Vec3
	BoundingSphereRadius  float64
	HorizonOcclusionPoint mgl64.Vec3
}

// NewHeader computes the header of a tile covering ext whose vertices are
// points (lon, lat, height).
//
// The center sits on the middle of the extent at mid height. The bounding
// sphere surrounds the ECEF box of the points; its radius is half the box
// diagonal.
func NewHeader(ext tiling.Extent, points []mgl64.Vec3) Header {
	var h Header
	if len(points) == 0 {
		h.Center = geodesy.GeographicToCartesian(ext.MidLon(), ext.MidLat(), 0)
		h.BoundingSphereCenter = h.Center
		h.HorizonOcclusionPoint = scaledSpace(h.Center)
		return h
	}

	minH, maxH := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minH = min(minH, p[2])
		maxH = max(maxH, p[2])
	}
	h.MinHeight = float32(minH)
	h.MaxHeight = float32(maxH)
	h.Center = geodesy.GeographicToCartesian(ext.MidLon(), ext.MidLat(), (minH+maxH)/2)

	ecef := make([]mgl64.Vec3, len(points))
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, p := range points {
		c := geodesy.GeographicToCartesian(p[0], p[1], p[2])
		ecef[i] = c
		for k := range 3 {
			lo[k] = min(lo[k], c[k])
			hi[k] = max(hi[k], c[k])
		}
	}
	h.BoundingSphereCenter = lo.Add(hi).Mul(0.5)
	h.BoundingSphereRadius = hi.Sub(lo).Len() / 2
	h.HorizonOcclusionPoint = horizonOcclusionPoint(h.BoundingSphereCenter, ecef)
	return h
}

var radii = mgl64.Vec3{geodesy.EquatorialRadius, geodesy.EquatorialRadius, geodesy.PolarRadius}

func scaledSpace(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{p[0] / radii[0], p[1] / radii[1], p[2] / radii[2]}
}

// horizonOcclusionPoint finds the point along the direction to center, in
// the ellipsoid-scaled frame, from which every position is below the
// horizon. It falls back to the scaled center when no such point exists.
func horizonOcclusionPoint(center mgl64.Vec3, positions []mgl64.Vec3) mgl64.Vec3 {
	dir := scaledSpace(center)
	if dir.Len() == 0 {
		return dir
	}
	dir = dir.Normalize()

	magnitude := 0.0
	for _, p := range positions {
		scaled := scaledSpace(p)
		magSq := scaled.LenSqr()
		mag := math.Sqrt(magSq)
		if mag == 0 {
			continue
		}
		pointDir := scaled.Mul(1 / mag)

		magSq = max(1, magSq)
		mag = max(1, mag)

		cosAlpha := pointDir.Dot(dir)
		sinAlpha := pointDir.Cross(dir).Len()
		cosBeta := 1 / mag
		sinBeta := math.Sqrt(magSq-1) * cosBeta

		denom := cosAlpha*cosBeta - sinAlpha*sinBeta
		if denom <= 0 {
			return scaledSpace(center)
		}
		magnitude = max(magnitude, 1/denom)
	}
	if magnitude <= 0 || math.IsInf(magnitude, 0) || math.IsNaN(magnitude) {
		return scaledSpace(center)
	}
	return dir.Mul(magnitude)
}
