package renderer

import (
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// targetUsage is the usage of every offscreen surface: drawn into, sampled, copied both ways.
const targetUsage = wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
	wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// wgpuRendererBackend is the device-level API the renderer drives. Draws and copies are recorded
// into a pending command encoder that Flush submits in one batch.
type wgpuRendererBackend interface {
	// Headless reports whether the backend was created without a presentation surface.
	//
	// Returns:
	//   - bool: true when there is nothing to present to
	Headless() bool

	// SurfaceFormat returns the texture format of the configured presentation surface.
	//
	// Returns:
	//   - wgpu.TextureFormat: the swapchain format, or undefined when headless
	SurfaceFormat() wgpu.TextureFormat

	// ConfigureSurface is a wrapper for boilerplate logic required when calling Configure on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	// It is a no-op for headless backends.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the shader modules, bind group layouts, pipeline layout and
	// render pipeline for a fullscreen pipeline and stores them on it.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// CreateTarget creates a 2D texture usable as render target, sampled input and copy endpoint.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - format: the texture format
	//
	// Returns:
	//   - *wgpu.Texture: the texture
	//   - *wgpu.TextureView: a view over the whole texture
	//   - error: an error if creation fails
	CreateTarget(label string, width, height int, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error)

	// WriteTexture uploads tightly packed rows into a texture.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - data: the pixel data
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - bytesPerPixel: the size of one pixel in data
	WriteTexture(tex *wgpu.Texture, data []byte, width, height, bytesPerPixel int)

	// ReadTexture submits pending work and copies a texture back to tightly packed rows.
	//
	// Parameters:
	//   - tex: the source texture
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - bytesPerPixel: the size of one pixel in the texture
	//
	// Returns:
	//   - []byte: the pixel data
	//   - error: an error if the readback fails
	ReadTexture(tex *wgpu.Texture, width, height, bytesPerPixel int) ([]byte, error)

	// CreateLinearSampler creates the clamp-to-edge bilinear sampler shared by every pass.
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	//   - error: an error if creation fails
	CreateLinearSampler() (*wgpu.Sampler, error)

	// CreateUniformBuffer creates a uniform buffer writable from the queue.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: an error if creation fails
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// InitBindGroup creates the bind group of a provider from the resources stored on it.
	//
	// Parameters:
	//   - provider: the provider holding the layout and the borrowed resources
	//   - descriptor: the layout descriptor of the group
	//
	// Returns:
	//   - error: an error if a binding has no resource or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// EncodeDraw records one fullscreen draw into the pending encoder.
	//
	// Parameters:
	//   - p: the registered pipeline
	//   - targets: the colour attachment views, in pipeline target order
	//   - bindGroups: the providers whose bind groups are set, by group index
	//
	// Returns:
	//   - error: an error if the encoder cannot be created
	EncodeDraw(p pipeline.Pipeline, targets []*wgpu.TextureView, bindGroups []bind_group_provider.BindGroupProvider) error

	// EncodeCopy records a full texture copy into the pending encoder.
	//
	// Parameters:
	//   - src: the source texture
	//   - dst: the destination texture, same size and format as src
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - error: an error if the encoder cannot be created
	EncodeCopy(src, dst *wgpu.Texture, width, height int) error

	// Flush finishes the pending encoder and submits it to the queue. It is a no-op when nothing
	// was recorded.
	//
	// Returns:
	//   - error: an error if the encoder cannot be finished
	Flush() error

	// AcquireFrame acquires the next swapchain texture and returns a view over it.
	//
	// Returns:
	//   - *wgpu.TextureView: the swapchain view
	//   - error: an error if the texture could not be acquired or the backend is headless
	AcquireFrame() (*wgpu.TextureView, error)

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Release releases the device and every object the backend owns.
	Release()
}
