package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ColorTarget describes one colour attachment written by a pipeline.
type ColorTarget struct {
	// Format is the texture format of the attachment.
	Format wgpu.TextureFormat
	// WriteMask selects the channels the pipeline writes.
	WriteMask wgpu.ColorWriteMask
	// Blend is the blend state of the attachment, or nil to overwrite.
	Blend *wgpu.BlendState
}

// MultiplyBlend scales the attachment by the fragment output in both colour and alpha.
var MultiplyBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorZero,
		DstFactor: wgpu.BlendFactorSrc,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorZero,
		DstFactor: wgpu.BlendFactorSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// pipeline is the implementation of the Pipeline interface.
// It holds the shaders and attachment state of one fullscreen pass and, once registered, the
// WebGPU objects created from them.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// vertexShader and fragmentShader are required before a pipeline can be registered.
	vertexShader, fragmentShader shader.Shader

	targets []ColorTarget

	// The following fields are GPU objects set by the renderer on registration.

	renderPipeline   *wgpu.RenderPipeline
	pipelineLayout   *wgpu.PipelineLayout
	bindGroupLayouts []*wgpu.BindGroupLayout
}

// Pipeline defines the interface for a fullscreen render pipeline: a shared vertex stage that
// covers the viewport with one triangle and a fragment stage writing one or more colour targets.
// There is no depth attachment and no vertex buffer.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex or fragment)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Targets returns the colour targets in attachment order.
	//
	// Returns:
	//   - []ColorTarget: the colour targets
	Targets() []ColorTarget

	// Descriptor builds the WebGPU render pipeline descriptor from the pipeline's configuration.
	//
	// Parameters:
	//   - layout: the pipeline layout created from the shaders' bind group layouts
	//   - vertexModule: the compiled vertex shader module
	//   - fragmentModule: the compiled fragment shader module
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor ready for Device.CreateRenderPipeline
	Descriptor(layout *wgpu.PipelineLayout, vertexModule, fragmentModule *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor

	// RenderPipeline returns the registered WebGPU render pipeline, or nil before registration.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// BindGroupLayout returns the registered bind group layout of a group, or nil.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetRenderPipeline stores the GPU objects created for this pipeline.
	//
	// Parameters:
	//   - rp: the WebGPU render pipeline
	//   - layout: the pipeline layout it was created with
	//   - bindGroupLayouts: the bind group layouts indexed by group
	SetRenderPipeline(rp *wgpu.RenderPipeline, layout *wgpu.PipelineLayout, bindGroupLayouts []*wgpu.BindGroupLayout)

	// Release releases the GPU objects of the pipeline. The shaders are kept so it can be registered again.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline. Both shaders must be set, and the
// number of colour targets must match the targets written by the fragment shader.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.vertexShader == nil || p.fragmentShader == nil {
		panic(fmt.Sprintf("pipeline: %s requires both a vertex and a fragment shader", pipelineKey))
	}
	if n := p.fragmentShader.FragmentTargets(); n != len(p.targets) {
		panic(fmt.Sprintf("pipeline: %s configures %d colour targets, fragment shader %s writes %d", pipelineKey, len(p.targets), p.fragmentShader.Key(), n))
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) Targets() []ColorTarget {
	return p.targets
}

func (p *pipeline) Descriptor(layout *wgpu.PipelineLayout, vertexModule, fragmentModule *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor {
	targets := make([]wgpu.ColorTargetState, len(p.targets))
	for i, t := range p.targets {
		targets[i] = wgpu.ColorTargetState{
			Format:    t.Format,
			WriteMask: t.WriteMask,
			Blend:     t.Blend,
		}
	}
	return &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vertexModule,
			EntryPoint: p.vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragmentModule,
			EntryPoint: p.fragmentShader.EntryPoint(),
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline, layout *wgpu.PipelineLayout, bindGroupLayouts []*wgpu.BindGroupLayout) {
	p.renderPipeline = rp
	p.pipelineLayout = layout
	p.bindGroupLayouts = bindGroupLayouts
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for i, bgl := range p.bindGroupLayouts {
		if bgl != nil {
			bgl.Release()
		}
		p.bindGroupLayouts[i] = nil
	}
	p.bindGroupLayouts = nil
}
