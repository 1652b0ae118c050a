package common

import "math"

// Vec3 is a three-component float32 vector.
type Vec3 [3]float32

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns v scaled to unit length, or the zero vector if v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Smoothstep returns the Hermite interpolation of x between edge0 and edge1, clamped to [0, 1].
//
// Parameters:
//   - edge0: the lower edge
//   - edge1: the upper edge
//   - x: the value to interpolate
//
// Returns:
//   - float32: 0 at or below edge0, 1 at or above edge1
func Smoothstep(edge0, edge1, x float32) float32 {
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// TanHalfFOV returns the tangent of half a field of view given in degrees.
//
// Parameters:
//   - degrees: the full field of view
//
// Returns:
//   - float32: tan(degrees / 2)
func TanHalfFOV(degrees float32) float32 {
	return float32(math.Tan(float64(degrees) * math.Pi / 360))
}

// SpiralKernel fills dst with len(dst) points inside the unit hemisphere around +Z, laid out on a
// golden-angle spiral with lengths growing quadratically so samples cluster near the origin.
// The result depends only on len(dst).
//
// Parameters:
//   - dst: the slice to fill
func SpiralKernel(dst []Vec3) {
	n := len(dst)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range dst {
		z := 1 - (float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		scale := (float64(i) + 1) / float64(n)
		scale = 0.1 + 0.9*scale*scale
		dst[i] = Vec3{
			float32(r * math.Cos(phi) * scale),
			float32(r * math.Sin(phi) * scale),
			float32(z * scale),
		}
	}
}
