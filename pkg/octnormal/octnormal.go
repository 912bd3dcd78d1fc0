// Package octnormal oct-encodes unit normals into two bytes.
//
// The normal is projected onto the octahedron |x|+|y|+|z| = 1, the lower
// hemisphere is folded over the diagonals and both coordinates are quantized
// from [-1, 1] to [0, 255]. All arithmetic is float32 so encoders agree byte
// for byte.
package octnormal

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Encode returns the oct-encoding of the unit normal n.
func Encode(n mgl32.Vec3) [2]byte {
	l1 := abs(n[0]) + abs(n[1]) + abs(n[2])
	if l1 == 0 {
		return [2]byte{quantize(0), quantize(0)}
	}

	u := n[0] / l1
	v := n[1] / l1
	if n[2] <= 0 {
		u, v = (1-abs(v))*signNotZero(u), (1-abs(u))*signNotZero(v)
	}
	return [2]byte{quantize(u), quantize(v)}
}

// EncodeAll encodes normals into dst, two bytes each, and returns it.
// dst is grown as needed.
func EncodeAll(dst []byte, normals []mgl32.Vec3) []byte {
	for _, n := range normals {
		e := Encode(n)
		dst = append(dst, e[0], e[1])
	}
	return dst
}

// Decode returns the unit normal an encoding stands for.
func Decode(e [2]byte) mgl32.Vec3 {
	u := dequantize(e[0])
	v := dequantize(e[1])
	z := 1 - abs(u) - abs(v)
	if z < 0 {
		u, v = (1-abs(v))*signNotZero(u), (1-abs(u))*signNotZero(v)
	}
	return mgl32.Vec3{u, v, z}.Normalize()
}

// quantize maps c from [-1, 1] to [0, 255], rounding half up.
func quantize(c float32) byte {
	c = mgl32.Clamp(c, -1, 1)
	return byte(float32(math.Floor(float64((c*0.5+0.5)*255 + 0.5))))
}

func dequantize(b byte) float32 {
	return mgl32.Clamp(float32(b)/255*2-1, -1, 1)
}

// signNotZero is the sign of c with sign(0) = +1.
func signNotZero(c float32) float32 {
	if c < 0 {
		return -1
	}
	return 1
}

func abs(c float32) float32 {
	if c < 0 {
		return -c
	}
	return c
}
