package renderer

import (
	"fmt"
	"image"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/half"
)

// encodeColor packs an image into RGBA16Float texels.
func encodeColor(img *exr.RGBAImage) []byte {
	data := make([]byte, len(img.Pix)*2)
	half.ConvertFloat32ToBytes(data, img.Pix)
	return data
}

// decodeColor unpacks RGBA16Float texels into a new image.
func decodeColor(data []byte, width, height int) (*exr.RGBAImage, error) {
	if len(data) != width*height*colorBytesPerPixel {
		return nil, fmt.Errorf("colour readback of %d bytes for %dx%d", len(data), width, height)
	}
	img := exr.NewRGBAImage(image.Rect(0, 0, width, height))
	half.ConvertBytesToFloat32(img.Pix, data)
	return img, nil
}

// decodeMask wraps R8Unorm texels in a gray image.
func decodeMask(data []byte, width, height int) (*image.Gray, error) {
	if len(data) != width*height*maskBytesPerPixel {
		return nil, fmt.Errorf("mask readback of %d bytes for %dx%d", len(data), width, height)
	}
	return &image.Gray{Pix: data, Stride: width, Rect: image.Rect(0, 0, width, height)}, nil
}
