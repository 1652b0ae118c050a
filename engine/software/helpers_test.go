package software

import (
	"image"

	"github.com/mrjoshuak/go-openexr/exr"
)

// Test helper functions shared across software host tests.

// filledImage creates a colour image filled with one value.
func filledImage(w, h int, r, g, b, a float32) *exr.RGBAImage {
	img := exr.NewRGBAImage(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, r, g, b, a)
		}
	}
	return img
}

// gradientImage creates a colour image whose pixels all differ.
func gradientImage(w, h int) *exr.RGBAImage {
	img := exr.NewRGBAImage(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, float32(x)/float32(w), float32(y)/float32(h), 0.25, 1)
		}
	}
	return img
}

// flatGeometry creates a camera-facing plane at a constant depth.
func flatGeometry(w, h int, depth float32) *exr.RGBAImage {
	return filledImage(w, h, 0, 0, -1, depth)
}

// stepGeometry creates two camera-facing planes: the left half at near, the right half at far.
func stepGeometry(w, h int, near, far float32) *exr.RGBAImage {
	img := flatGeometry(w, h, far)
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.SetRGBA(x, y, 0, 0, -1, near)
		}
	}
	return img
}

// sameImage reports whether two colour images hold bit-identical pixels.
func sameImage(a, b *exr.RGBAImage) bool {
	if a.Rect != b.Rect || len(a.Pix) != len(b.Pix) {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}

// cloneImage returns a deep copy of a colour image.
func cloneImage(img *exr.RGBAImage) *exr.RGBAImage {
	out := exr.NewRGBAImage(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
