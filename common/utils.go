package common

import "cmp"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp limits v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - T: lo if v < lo, hi if v > hi, v otherwise
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// HalveDimension returns the working size of one axis when downsampling by two.
// Sizes below two are kept at one so a surface never collapses to zero.
//
// Parameters:
//   - size: the full-resolution size in pixels
//
// Returns:
//   - int: size / 2 with a floor of 1
func HalveDimension(size int) int {
	return max(size/2, 1)
}
