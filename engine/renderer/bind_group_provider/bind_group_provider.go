package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// bindGroupLayout is the layout the bind group is created against. It belongs to the pipeline.
	bindGroupLayout *wgpu.BindGroupLayout

	// The following resources are borrowed from the renderer for one draw and are never released here.

	// buffers holds the uniform buffers to bind, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the surface views to bind, keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the samplers to bind, keyed by binding index.
	samplers map[int]*wgpu.Sampler

	// bindGroup is the GPU bind group created by the renderer, or nil before initialization.
	bindGroup *wgpu.BindGroup
}

// BindGroupProvider collects the resources bound to one bind group of one draw.
//
// Usage pattern:
//  1. The renderer resolves every declared binding of the pass's fragment shader to a surface
//     view, a sampler, or a uniform buffer and stores it on a new provider
//  2. The renderer calls InitBindGroup to create the bind group against the pipeline's layout
//  3. The draw sets BindGroup() on the render pass
//  4. Release drops the bind group once the frame's commands are submitted
type BindGroupProvider interface {
	// Release releases the bind group. Borrowed buffers, views, and samplers are left alone.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group is created against.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the GPU texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the GPU sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Entries builds the bind group entries for a layout descriptor from the stored resources.
	//
	// Parameters:
	//   - descriptor: the layout descriptor of the group
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: one entry per layout entry
	//   - []int: the bindings of layout entries with no matching resource
	Entries(descriptor wgpu.BindGroupLayoutDescriptor) ([]wgpu.BindGroupEntry, []int)

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBuffer stores a buffer for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to bind
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a GPU texture view for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to store
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a GPU sampler for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label of the provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Entries(descriptor wgpu.BindGroupLayoutDescriptor) ([]wgpu.BindGroupEntry, []int) {
	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	var missing []int
	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			tv := p.textureViews[binding]
			if tv == nil {
				missing = append(missing, binding)
				continue
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv})
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			s := p.samplers[binding]
			if s == nil {
				missing = append(missing, binding)
				continue
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: s})
		default:
			buf := p.buffers[binding]
			if buf == nil {
				missing = append(missing, binding)
				continue
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			})
		}
	}
	return entries, missing
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}
