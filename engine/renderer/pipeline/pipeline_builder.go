package pipeline

import (
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithColorTarget appends a colour target that overwrites every channel.
//
// Parameters:
//   - format: the texture format of the attachment
//
// Returns:
//   - PipelineBuilderOption: a function that appends the colour target to this pipeline
func WithColorTarget(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.targets = append(p.targets, ColorTarget{Format: format, WriteMask: wgpu.ColorWriteMaskAll})
	}
}

// WithBlendedColorTarget appends a colour target with a write mask and blend state.
//
// Parameters:
//   - format: the texture format of the attachment
//   - writeMask: the channels written (e.g. wgpu.ColorWriteMaskAlpha)
//   - blend: the blend state (e.g. MultiplyBlend)
//
// Returns:
//   - PipelineBuilderOption: a function that appends the colour target to this pipeline
func WithBlendedColorTarget(format wgpu.TextureFormat, writeMask wgpu.ColorWriteMask, blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.targets = append(p.targets, ColorTarget{Format: format, WriteMask: writeMask, Blend: blend})
	}
}
