package software

import (
	"fmt"
	"image"
	"math"

	"github.com/Carmen-Shannon/oxy-ao/common"
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/mrjoshuak/go-openexr/exr"
	xdraw "golang.org/x/image/draw"
)

const (
	// angleBias suppresses self-occlusion on flat surfaces, scaled by depth.
	angleBias float32 = 0.002

	// distanceBias is the depth gap below which a distance-based sample does not count as occluded.
	distanceBias float32 = 1e-3

	// geometryCoefficient is the normal similarity below which blur taps stop contributing.
	geometryCoefficient float32 = 0.8
)

// blurWeights is a 9-tap Gaussian, centre first.
var blurWeights = [5]float32{0.2270270270, 0.1945945946, 0.1216216216, 0.0540540541, 0.0162162162}

// resolve returns the parameters a draw runs with: structural values come from the pass,
// cosmetic values from the last push to the program.
func (h *host) resolve(p obscurance.Program, pass obscurance.Pass) (obscurance.ProgramParameters, error) {
	if _, ok := h.programs[p.ID]; !ok {
		return obscurance.ProgramParameters{}, fmt.Errorf("software: draw with unknown program %d", p.ID)
	}
	params := pass.Parameters
	if pushed, ok := h.parameters[p.ID]; ok {
		params.Intensity = pushed.Intensity
		params.Radius = pushed.Radius
		params.Estimator = pushed.Estimator
		params.SampleCount = pushed.SampleCount
		params.Contrast = pushed.Contrast
		params.FallOff = pushed.FallOff
	}
	return params, nil
}

func (h *host) draw(p obscurance.Program, pass obscurance.Pass, b obscurance.Bindings) error {
	params, err := h.resolve(p, pass)
	if err != nil {
		return err
	}

	switch pass.Kind {
	case obscurance.PassEstimate:
		geo, err := h.colorAt(b[obscurance.SlotGeometry], obscurance.SlotGeometry)
		if err != nil {
			return err
		}
		mask, err := h.maskAt(b[obscurance.SlotMask], obscurance.SlotMask)
		if err != nil {
			return err
		}
		h.estimate(h.geometryView(geo), mask, params)

	case obscurance.PassBlurHorizontal, obscurance.PassBlurVertical:
		geo, err := h.colorAt(b[obscurance.SlotGeometry], obscurance.SlotGeometry)
		if err != nil {
			return err
		}
		src, err := h.maskAt(b[pass.Inputs[0]], pass.Inputs[0])
		if err != nil {
			return err
		}
		dst, err := h.maskAt(b[pass.Outputs[0]], pass.Outputs[0])
		if err != nil {
			return err
		}
		h.blur(h.geometryView(geo), src, dst, pass.BlurVector)

	case obscurance.PassCombine:
		mask, err := h.maskAt(b[obscurance.SlotMask], obscurance.SlotMask)
		if err != nil {
			return err
		}
		if params.AmbientOnly {
			albedo, err := h.colorAt(b[obscurance.SlotAlbedoTarget], obscurance.SlotAlbedoTarget)
			if err != nil {
				return err
			}
			ambient, err := h.colorAt(b[obscurance.SlotAmbientTarget], obscurance.SlotAmbientTarget)
			if err != nil {
				return err
			}
			h.combineAmbient(h.upsample(mask, albedo.Rect.Dx(), albedo.Rect.Dy()), albedo, ambient)
			return nil
		}
		src, err := h.colorAt(b[obscurance.SlotSource], obscurance.SlotSource)
		if err != nil {
			return err
		}
		dst, err := h.colorAt(b[obscurance.SlotDestination], obscurance.SlotDestination)
		if err != nil {
			return err
		}
		if src.Rect.Size() != dst.Rect.Size() {
			return fmt.Errorf("software: combine %v into %v", src.Rect.Size(), dst.Rect.Size())
		}
		h.combine(h.upsample(mask, src.Rect.Dx(), src.Rect.Dy()), src, dst)

	case obscurance.PassEstimateCombine:
		geo, err := h.colorAt(b[obscurance.SlotGeometry], obscurance.SlotGeometry)
		if err != nil {
			return err
		}
		src, err := h.colorAt(b[obscurance.SlotSource], obscurance.SlotSource)
		if err != nil {
			return err
		}
		dst, err := h.colorAt(b[obscurance.SlotDestination], obscurance.SlotDestination)
		if err != nil {
			return err
		}
		if src.Rect.Size() != dst.Rect.Size() {
			return fmt.Errorf("software: combine %v into %v", src.Rect.Size(), dst.Rect.Size())
		}
		mask := scratchGray(&h.fusedMask, src.Rect.Dx(), src.Rect.Dy())
		h.estimate(h.geometryView(geo), mask, params)
		h.combine(mask, src, dst)

	case obscurance.PassCopy:
		return h.copySurface(b[pass.Inputs[0]], b[pass.Outputs[0]])

	default:
		return fmt.Errorf("software: unknown pass kind %s", pass.Kind)
	}
	return nil
}

// geometryView reads normals and linear depth from a geometry image and maps between
// normalized screen coordinates and view space.
type geometryView struct {
	img     *exr.RGBAImage
	width   int
	height  int
	tanHalf float32
	aspect  float32
}

func (h *host) geometryView(img *exr.RGBAImage) geometryView {
	w, ht := img.Rect.Dx(), img.Rect.Dy()
	return geometryView{
		img:     img,
		width:   w,
		height:  ht,
		tanHalf: common.TanHalfFOV(h.fieldOfView),
		aspect:  float32(w) / float32(ht),
	}
}

// sample returns the normal and depth nearest to (u, v). ok is false outside the image.
func (g geometryView) sample(u, v float32) (n common.Vec3, depth float32, ok bool) {
	if u < 0 || u >= 1 || v < 0 || v >= 1 {
		return n, 0, false
	}
	x := g.img.Rect.Min.X + int(u*float32(g.width))
	y := g.img.Rect.Min.Y + int(v*float32(g.height))
	r, gr, b, a := g.img.RGBA(x, y)
	return common.Vec3{r, gr, b}, a, true
}

// position reconstructs the view-space position of a screen coordinate at a linear depth.
// The camera looks down +Z with +Y up.
func (g geometryView) position(u, v, depth float32) common.Vec3 {
	return common.Vec3{
		(2*u - 1) * depth * g.tanHalf * g.aspect,
		(1 - 2*v) * depth * g.tanHalf,
		depth,
	}
}

// project maps a view-space position back to normalized screen coordinates.
func (g geometryView) project(p common.Vec3) (u, v float32, ok bool) {
	if p[2] <= 1e-6 {
		return 0, 0, false
	}
	u = (p[0]/(p[2]*g.tanHalf*g.aspect) + 1) / 2
	v = (1 - p[1]/(p[2]*g.tanHalf)) / 2
	return u, v, true
}

// estimate writes the raw occlusion of every mask pixel. The mask may be smaller than the
// geometry image; samples are taken in normalized coordinates.
func (h *host) estimate(geo geometryView, mask *image.Gray, params obscurance.ProgramParameters) {
	w, ht := mask.Rect.Dx(), mask.Rect.Dy()
	kernel := h.sampleKernel(max(params.SampleCount, 1))

	h.parallelRows(ht, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := mask.Pix[y*mask.Stride:]
			for x := 0; x < w; x++ {
				u := (float32(x) + 0.5) / float32(w)
				v := (float32(y) + 0.5) / float32(ht)
				row[x] = quantize(occlusionAt(geo, u, v, kernel, params))
			}
		}
	})
}

// sampleKernel returns the spiral kernel of n samples, regenerating it only when n changes.
func (h *host) sampleKernel(n int) []common.Vec3 {
	if len(h.kernel) != n {
		h.kernel = make([]common.Vec3, n)
		common.SpiralKernel(h.kernel)
	}
	return h.kernel
}

// scratchGray returns *buf when it is w x ht, replacing it with a new mask otherwise.
// The contents are stale; callers overwrite every pixel.
func scratchGray(buf **image.Gray, w, ht int) *image.Gray {
	if *buf == nil || (*buf).Rect.Dx() != w || (*buf).Rect.Dy() != ht {
		*buf = image.NewGray(image.Rect(0, 0, w, ht))
	}
	return *buf
}

// occlusionAt evaluates the estimator at one screen coordinate and applies intensity and contrast.
func occlusionAt(geo geometryView, u, v float32, kernel []common.Vec3, params obscurance.ProgramParameters) float32 {
	n, depth, ok := geo.sample(u, v)
	if !ok || depth <= 0 {
		return 0
	}
	n = n.Normalize()
	origin := geo.position(u, v, depth)
	radius := params.Radius

	var ao float32
	for _, k := range kernel {
		if k.Dot(n) < 0 {
			k = k.Scale(-1)
		}
		target := origin.Add(k.Scale(radius))
		su, sv, ok := geo.project(target)
		if !ok {
			continue
		}
		_, sd, ok := geo.sample(su, sv)
		if !ok || sd <= 0 {
			continue
		}

		switch params.Estimator {
		case obscurance.EstimatorDistanceBased:
			if sd < target[2]-distanceBias {
				ao += common.Smoothstep(0, 1, radius/float32(math.Abs(float64(depth-sd))))
			}
		default:
			occluder := geo.position(su, sv, sd)
			d := occluder.Sub(origin)
			ao += max(d.Dot(n)-angleBias*depth, 0) / (d.Dot(d) + params.FallOff)
		}
	}

	ao /= float32(len(kernel))
	if params.Estimator != obscurance.EstimatorDistanceBased {
		ao *= radius
	}
	ao = common.Clamp(ao*params.Intensity, 0, 1)
	return float32(math.Pow(float64(ao), float64(params.Contrast)))
}

func quantize(v float32) uint8 {
	return uint8(common.Clamp(v, 0, 1)*255 + 0.5)
}

// blur runs one direction of the geometry-aware blur. Taps are spaced by vector in mask pixels
// and clamped to the image edge; taps across a normal discontinuity are dropped.
func (h *host) blur(geo geometryView, src, dst *image.Gray, vector [2]float32) {
	w, ht := src.Rect.Dx(), src.Rect.Dy()
	dx, dy := vector[0], vector[1]

	h.parallelRows(ht, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				n0 := normalAt(geo, x, y, w, ht)

				sum := float32(src.Pix[y*src.Stride+x]) * blurWeights[0]
				total := blurWeights[0]
				for i := 1; i < len(blurWeights); i++ {
					for _, sign := range [2]float32{-1, 1} {
						tx := common.Clamp(x+int(sign*float32(i)*dx), 0, w-1)
						ty := common.Clamp(y+int(sign*float32(i)*dy), 0, ht-1)
						weight := blurWeights[i] * common.Smoothstep(geometryCoefficient, 1, n0.Dot(normalAt(geo, tx, ty, w, ht)))
						sum += float32(src.Pix[ty*src.Stride+tx]) * weight
						total += weight
					}
				}
				dst.Pix[y*dst.Stride+x] = uint8(common.Clamp(sum/total+0.5, 0, 255))
			}
		}
	})
}

// normalAt reads the normal under a mask pixel of a w x ht mask.
func normalAt(geo geometryView, x, y, w, ht int) common.Vec3 {
	n, _, ok := geo.sample((float32(x)+0.5)/float32(w), (float32(y)+0.5)/float32(ht))
	if !ok {
		return common.Vec3{}
	}
	return n.Normalize()
}

// upsample returns mask scaled bilinearly to w x ht, or mask itself when it already has that size.
func (h *host) upsample(mask *image.Gray, w, ht int) *image.Gray {
	if mask.Rect.Dx() == w && mask.Rect.Dy() == ht {
		return mask
	}
	out := scratchGray(&h.scaled, w, ht)
	xdraw.BiLinear.Scale(out, out.Rect, mask, mask.Rect, xdraw.Src, nil)
	return out
}

// combine writes src darkened by the occlusion mask into dst. Alpha passes through.
func (h *host) combine(mask *image.Gray, src, dst *exr.RGBAImage) {
	w, ht := src.Rect.Dx(), src.Rect.Dy()
	h.parallelRows(ht, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				visibility := 1 - float32(mask.Pix[y*mask.Stride+x])/255
				si := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)
				di := dst.PixOffset(dst.Rect.Min.X+x, dst.Rect.Min.Y+y)
				dst.Pix[di+0] = src.Pix[si+0] * visibility
				dst.Pix[di+1] = src.Pix[si+1] * visibility
				dst.Pix[di+2] = src.Pix[si+2] * visibility
				dst.Pix[di+3] = src.Pix[si+3]
			}
		}
	})
}

// combineAmbient folds the occlusion into the deferred targets: the albedo alpha holds the
// occlusion term and the ambient colour is darkened in place.
func (h *host) combineAmbient(mask *image.Gray, albedo, ambient *exr.RGBAImage) {
	w := min(albedo.Rect.Dx(), ambient.Rect.Dx())
	ht := min(albedo.Rect.Dy(), ambient.Rect.Dy())
	h.parallelRows(ht, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				visibility := 1 - float32(mask.Pix[y*mask.Stride+x])/255
				ai := albedo.PixOffset(albedo.Rect.Min.X+x, albedo.Rect.Min.Y+y)
				albedo.Pix[ai+3] *= visibility
				bi := ambient.PixOffset(ambient.Rect.Min.X+x, ambient.Rect.Min.Y+y)
				ambient.Pix[bi+0] *= visibility
				ambient.Pix[bi+1] *= visibility
				ambient.Pix[bi+2] *= visibility
			}
		}
	})
}
