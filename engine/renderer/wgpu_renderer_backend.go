package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// copyRowAlignment is the WebGPU alignment of BytesPerRow in texture-to-buffer copies.
const copyRowAlignment = 256

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// pending collects draws and copies until Flush.
	pending *wgpu.CommandEncoder

	// Frame state for the acquired swapchain image
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend requests an adapter and device. A nil surface descriptor creates a
// headless backend that renders only to offscreen targets.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Obscurance Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuRendererBackendImpl) Headless() bool {
	return b.surface == nil
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return fmt.Errorf("vertex module %q: %w", vertexShader.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("fragment module %q: %w", fragmentShader.Key(), err)
	}
	defer fs.Release()

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	maxGroup := -1
	for g := range merged {
		maxGroup = max(maxGroup, g)
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range bindGroupLayouts {
		desc := merged[g]
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(p.Descriptor(pipelineLayout, vs, fs))
	if err != nil {
		pipelineLayout.Release()
		return err
	}

	p.SetRenderPipeline(created, pipelineLayout, bindGroupLayouts)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateTarget(label string, width, height int, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     targetUsage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex *wgpu.Texture, data []byte, width, height, bytesPerPixel int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * bytesPerPixel),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuRendererBackendImpl) ReadTexture(tex *wgpu.Texture, width, height, bytesPerPixel int) ([]byte, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rowBytes := width * bytesPerPixel
	paddedRow := (rowBytes + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
	size := uint64(paddedRow * height)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  uint32(paddedRow),
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	status := wgpu.BufferMapAsyncStatusUnknown
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map readback buffer: status %v", status)
	}

	mapped := staging.GetMappedRange(0, uint(size))
	out := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], mapped[y*paddedRow:])
	}
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) CreateLinearSampler() (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Clamp Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}
	layout := provider.BindGroupLayout()
	if layout == nil {
		return fmt.Errorf("bind group %q has no layout", provider.Label())
	}

	entries, missing := provider.Entries(descriptor)
	if len(missing) > 0 {
		return fmt.Errorf("bind group %q: no resource for bindings %v", provider.Label(), missing)
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

// encoder returns the pending encoder, creating it on first use. The caller holds b.mu.
func (b *wgpuRendererBackendImpl) encoder() (*wgpu.CommandEncoder, error) {
	if b.pending != nil {
		return b.pending, nil
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	b.pending = encoder
	return encoder, nil
}

func (b *wgpuRendererBackendImpl) EncodeDraw(p pipeline.Pipeline, targets []*wgpu.TextureView, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.encoder()
	if err != nil {
		return err
	}

	attachments := make([]wgpu.RenderPassColorAttachment, len(targets))
	states := p.Targets()
	for i, view := range targets {
		loadOp := wgpu.LoadOpClear
		if i < len(states) && states[i].Blend != nil {
			loadOp = wgpu.LoadOpLoad
		}
		attachments[i] = wgpu.RenderPassColorAttachment{
			View:       view,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            p.PipelineKey(),
		ColorAttachments: attachments,
	})
	pass.SetPipeline(p.RenderPipeline())
	for i, bg := range bindGroups {
		if bg.BindGroup() == nil {
			continue
		}
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) EncodeCopy(src, dst *wgpu.Texture, width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.encoder()
	if err != nil {
		return err
	}
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: src, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: dst, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return nil
	}
	encoder := b.pending
	b.pending = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) AcquireFrame() (*wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil, errors.New("headless renderer has no surface to present")
	}
	if b.frameSurface != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	b.frameSurface = surfaceTexture
	b.frameView = view
	return view, nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		b.pending.Release()
		b.pending = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// mergeBindGroupLayouts combines bind group layout descriptors from the vertex and fragment
// shaders into a single set. When both shaders declare entries in the same group, their entries
// are merged by binding number with visibility flags OR'd together.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
