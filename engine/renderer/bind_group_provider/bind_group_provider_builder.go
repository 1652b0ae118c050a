package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption configures a provider before the renderer fills in per-draw resources.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout sets the pipeline layout the bind group is created against.
//
// Parameters:
//   - bgl: the layout of the group, owned by the pipeline
//
// Returns:
//   - BindGroupProviderOption: a function that sets the layout
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithUniformBuffer binds a parameter block buffer.
//
// Parameters:
//   - binding: the binding index of the uniform
//   - buf: a buffer from the renderer's uniform ring
//
// Returns:
//   - BindGroupProviderOption: a function that binds the buffer
func WithUniformBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithSampler binds one sampler at every listed binding.
//
// Parameters:
//   - s: the shared sampler
//   - bindings: the sampler binding indices
//
// Returns:
//   - BindGroupProviderOption: a function that binds the sampler
func WithSampler(s *wgpu.Sampler, bindings ...int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for _, b := range bindings {
			p.samplers[b] = s
		}
	}
}

// WithSurfaceView binds the view of a surface, such as the geometry or the occlusion mask.
//
// Parameters:
//   - binding: the texture binding index
//   - tv: the surface view
//
// Returns:
//   - BindGroupProviderOption: a function that binds the view
func WithSurfaceView(binding int, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = tv
	}
}
