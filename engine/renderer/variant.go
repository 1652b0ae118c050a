package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Program variants, one WGSL fragment file each.
const (
	variantEstimate        = "estimate"
	variantBlur            = "blur"
	variantCombine         = "combine"
	variantCombineAmbient  = "combine_ambient"
	variantEstimateCombine = "estimate_combine"
)

// programVariants lists every variant a program must provide.
var programVariants = []string{
	variantEstimate,
	variantBlur,
	variantCombine,
	variantCombineAmbient,
	variantEstimateCombine,
}

const (
	colorFormat = wgpu.TextureFormatRGBA16Float
	maskFormat  = wgpu.TextureFormatR8Unorm

	colorBytesPerPixel = 8
	maskBytesPerPixel  = 1
)

// variantFor returns the fragment variant that draws a pass. Copy passes have no variant.
func variantFor(pass obscurance.Pass) (string, error) {
	switch pass.Kind {
	case obscurance.PassEstimate:
		return variantEstimate, nil
	case obscurance.PassBlurHorizontal, obscurance.PassBlurVertical:
		return variantBlur, nil
	case obscurance.PassCombine:
		if pass.Parameters.AmbientOnly {
			return variantCombineAmbient, nil
		}
		return variantCombine, nil
	case obscurance.PassEstimateCombine:
		return variantEstimateCombine, nil
	default:
		return "", fmt.Errorf("no program variant for %s", pass.Kind)
	}
}

// variantTargets returns the colour target options of a variant's pipeline.
func variantTargets(variant string) []pipeline.PipelineBuilderOption {
	switch variant {
	case variantEstimate, variantBlur:
		return []pipeline.PipelineBuilderOption{pipeline.WithColorTarget(maskFormat)}
	case variantCombineAmbient:
		return []pipeline.PipelineBuilderOption{
			pipeline.WithBlendedColorTarget(colorFormat, wgpu.ColorWriteMaskAlpha, pipeline.MultiplyBlend),
			pipeline.WithBlendedColorTarget(colorFormat, wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskGreen|wgpu.ColorWriteMaskBlue, pipeline.MultiplyBlend),
		}
	default:
		return []pipeline.PipelineBuilderOption{pipeline.WithColorTarget(colorFormat)}
	}
}

// pipelineKey names the cached pipeline of a program variant.
func pipelineKey(program, variant string) string {
	return program + "/" + variant
}

// textureFormat maps a surface format to its texture format.
func textureFormat(f obscurance.SurfaceFormat) (wgpu.TextureFormat, int, error) {
	switch f {
	case obscurance.SurfaceFormatColor:
		return colorFormat, colorBytesPerPixel, nil
	case obscurance.SurfaceFormatR8Linear:
		return maskFormat, maskBytesPerPixel, nil
	default:
		return wgpu.TextureFormatUndefined, 0, fmt.Errorf("unknown surface format %d", f)
	}
}

// inputSlot resolves the slot bound to a surface declaration of a pass. Occlusion reads the
// scratch surface the pass takes as input, so one blur variant serves both directions.
func inputSlot(role shader.AnnotationArg, pass obscurance.Pass) (obscurance.Slot, error) {
	switch role {
	case shader.AnnotationArgColor:
		return obscurance.SlotSource, nil
	case shader.AnnotationArgGeometry:
		return obscurance.SlotGeometry, nil
	case shader.AnnotationArgOcclusion:
		for _, slot := range pass.Inputs {
			if slot.Scratch() {
				return slot, nil
			}
		}
		return 0, fmt.Errorf("%s has no occlusion input", pass.Kind)
	default:
		return 0, fmt.Errorf("%s: unknown surface role %q", pass.Kind, role)
	}
}
