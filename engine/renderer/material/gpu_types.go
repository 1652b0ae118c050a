package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUObscuranceParamsSource is the canonical WGSL definition of the ObscuranceParams struct.
// Matches GPUObscuranceParams layout exactly (64 bytes, std140 compatible).
//
//go:embed assets/obscurance_params.wgsl
var GPUObscuranceParamsSource string

// GPUObscuranceParams is the uniform block read by every pass of the occlusion program.
// Size: 64 bytes.
type GPUObscuranceParams struct {
	Intensity   float32    // offset 0
	Radius      float32    // offset 4
	Contrast    float32    // offset 8
	FallOff     float32    // offset 12
	Estimator   uint32     // offset 16: 0 angle based, 1 distance based
	SampleCount uint32     // offset 20
	Downsample  uint32     // offset 24: 1 when the mask is half resolution
	AmbientOnly uint32     // offset 28: 1 when compositing into the deferred targets
	BlurVector  [2]float32 // offset 32: tap direction and spacing in mask texels
	TanHalfFOV  float32    // offset 40
	Aspect      float32    // offset 44
	TargetSize  [2]float32 // offset 48: render size of the pass outputs in pixels
	Padding     [2]float32 // offset 56
}

// Size returns the size of the GPUObscuranceParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUObscuranceParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUObscuranceParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUObscuranceParams) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Contrast))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.FallOff))
	binary.LittleEndian.PutUint32(buf[16:20], g.Estimator)
	binary.LittleEndian.PutUint32(buf[20:24], g.SampleCount)
	binary.LittleEndian.PutUint32(buf[24:28], g.Downsample)
	binary.LittleEndian.PutUint32(buf[28:32], g.AmbientOnly)
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.BlurVector[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.BlurVector[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.TanHalfFOV))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.Aspect))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.TargetSize[0]))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.TargetSize[1]))
	binary.LittleEndian.PutUint32(buf[56:60], math.Float32bits(g.Padding[0]))
	binary.LittleEndian.PutUint32(buf[60:64], math.Float32bits(g.Padding[1]))
	return buf
}
