// Package geodesy implements WGS84 ellipsoid math used by the tiler.
package geodesy

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// WGS84 ellipsoid parameters.
const (
	EquatorialRadius         = 6378137.0
	PolarRadius              = 6356752.3142
	FirstEccentricitySquared = 6.69437999014e-3

	equatorialRadiusSquared = 40680631590769.0
	polarRadiusSquared      = 40408299984087.05552164
)

// GeographicToCartesian converts a WGS84 position in degrees (lon, lat) and meters
// (alt) to earth-centered earth-fixed coordinates.
func GeographicToCartesian(lonDeg, latDeg, alt float64) mgl64.Vec3 {
	lonRad := lonDeg * math.Pi / 180.0
	latRad := latDeg * math.Pi / 180.0
	cosLon := math.Cos(lonRad)
	cosLat := math.Cos(latRad)
	sinLon := math.Sin(lonRad)
	sinLat := math.Sin(latRad)

	v := EquatorialRadius / math.Sqrt(1.0-FirstEccentricitySquared*sinLat*sinLat)

	return mgl64.Vec3{
		(v + alt) * cosLat * cosLon,
		(v + alt) * cosLat * sinLon,
		(v*(1.0-FirstEccentricitySquared) + alt) * sinLat,
	}
}

// CartesianToGeographic is the inverse of GeographicToCartesian. It returns
// (lon, lat) in degrees and the ellipsoidal height in meters.
//
// The solution is closed form: the cubic discriminant picks between the
// regular and the near-evolute branch, and points on the polar axis inside the
// evolute take their own branch. Keep the operation order as is; round trip
// tests depend on it.
func CartesianToGeographic(x, y, z float64) (lonDeg, latDeg, alt float64) {
	const e2 = FirstEccentricitySquared

	xxpyy := x*x + y*y
	sqrtXXpYY := math.Sqrt(xxpyy)
	ra2 := 1.0 / (EquatorialRadius * EquatorialRadius)
	e4 := e2 * e2
	p := xxpyy * ra2
	q := z * z * (1.0 - e2) * ra2
	r := (p + q - e4) / 6.0
	evoluteBorderTest := 8*r*r*r + e4*p*q

	var h, phi float64
	if evoluteBorderTest > 0 || q != 0 {
		var u float64
		if evoluteBorderTest > 0 {
			rad1 := math.Sqrt(evoluteBorderTest)
			rad2 := math.Sqrt(e4 * p * q)
			// Close to the evolute cusps the second cube root loses precision.
			if evoluteBorderTest > 10*e2 {
				rad3 := math.Cbrt((rad1 + rad2) * (rad1 + rad2))
				u = r + 0.5*rad3 + 2*r*r/rad3
			} else {
				u = r + 0.5*math.Cbrt((rad1+rad2)*(rad1+rad2)) + 0.5*math.Cbrt((rad1-rad2)*(rad1-rad2))
			}
		} else {
			rad1 := math.Sqrt(-evoluteBorderTest)
			rad2 := math.Sqrt(-8 * r * r * r)
			rad3 := math.Sqrt(e4 * p * q)
			atan := 2 * math.Atan2(rad3, rad1+rad2) / 3
			u = -4 * r * math.Sin(atan) * math.Cos(math.Pi/6+atan)
		}

		v := math.Sqrt(u*u + e4*q)
		w := e2 * (u + v - q) / (2 * v)
		k := (u + v) / (math.Sqrt(w*w+u+v) + w)
		d := k * sqrtXXpYY / (k + e2)
		sqrtDDpZZ := math.Sqrt(d*d + z*z)

		h = (k + e2 - 1) * sqrtDDpZZ / k
		phi = 2 * math.Atan2(z, sqrtDDpZZ+d)
	} else {
		rad1 := math.Sqrt(1 - e2)
		rad2 := math.Sqrt(e2 - p)
		e := math.Sqrt(e2)

		h = -EquatorialRadius * rad1 * rad2 / e
		phi = rad2 / (e*rad2 + rad1*math.Sqrt(p))
	}

	var lambda float64
	s2 := math.Sqrt2
	if (s2-1)*y < sqrtXXpYY+x {
		lambda = 2 * math.Atan2(y, sqrtXXpYY+x)
	} else if sqrtXXpYY+y < (s2+1)*x {
		lambda = -math.Pi*0.5 + 2*math.Atan2(x, sqrtXXpYY-y)
	} else {
		lambda = math.Pi*0.5 - 2*math.Atan2(x, sqrtXXpYY+y)
	}

	return lambda * 180.0 / math.Pi, phi * 180.0 / math.Pi, h
}

// RadiusAtLatitude returns the prime vertical radius of curvature at latDeg.
func RadiusAtLatitude(latDeg float64) float64 {
	sinLat := math.Sin(latDeg * math.Pi / 180.0)
	return EquatorialRadius / math.Sqrt(1.0-FirstEccentricitySquared*sinLat*sinLat)
}

// NormalAtCartesianPoint returns the ellipsoid surface normal at (x, y, z),
// the normalized gradient of the implicit ellipsoid equation.
func NormalAtCartesianPoint(x, y, z float64) mgl64.Vec3 {
	n := mgl64.Vec3{
		x / equatorialRadiusSquared,
		y / equatorialRadiusSquared,
		z / polarRadiusSquared,
	}
	return n.Normalize()
}

// SurfaceDirection returns the geodetic "up" direction (cosLat*cosLon,
// cosLat*sinLon, sinLat) for a position in degrees.
func SurfaceDirection(lonDeg, latDeg float64) mgl64.Vec3 {
	lonRad := lonDeg * math.Pi / 180.0
	latRad := latDeg * math.Pi / 180.0
	cosLat := math.Cos(latRad)
	return mgl64.Vec3{cosLat * math.Cos(lonRad), cosLat * math.Sin(lonRad), math.Sin(latRad)}
}

// ArcLength converts an angular span in degrees to meters on the equator.
func ArcLength(deg float64) float64 {
	return deg * math.Pi / 180.0 * EquatorialRadius
}
