package renderer

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ao/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/mrjoshuak/go-openexr/exr"
)

// presentKey is the pipeline cache key of the swapchain blit.
const presentKey = "present"

// uniformSize is the size of the parameter block bound to every pass.
const uniformSize = 64

// gpuSurface is one renderer-owned texture behind a surface handle.
type gpuSurface struct {
	handle  obscurance.Surface
	label   string
	texture *wgpu.Texture
	view    *wgpu.TextureView
	pooled  bool
}

func (s *gpuSurface) release() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	library     shader.Library

	pipelineCache map[string]pipeline.Pipeline

	caps        obscurance.Capabilities
	fieldOfView float32

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode

	nextID   uint64
	surfaces map[obscurance.SurfaceID]*gpuSurface
	free     map[obscurance.SurfaceDescriptor][]*gpuSurface

	programs map[obscurance.ProgramID]material.Material

	sampler     *wgpu.Sampler
	uniforms    []*wgpu.Buffer
	uniformNext int
	inFlight    []bind_group_provider.BindGroupProvider

	geometry obscurance.Surface
	gbuffer  obscurance.Surface
	albedo   obscurance.Surface
	ambient  obscurance.Surface

	stages map[obscurance.Stage][]*obscurance.Recording
}

// Renderer is the WebGPU implementation of obscurance.Host. Colour and geometry surfaces are
// RGBA16Float textures, occlusion masks are R8Unorm textures, and every pass is a fullscreen
// draw of one variant from the shader library.
//
// Draws and copies are batched into one command encoder that is submitted by Flush, by
// ExecuteStage, by a readback, or by Present.
type Renderer interface {
	obscurance.Host

	// NewColorSurface creates an empty colour surface owned by the renderer.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - obscurance.Surface: the surface handle
	//   - error: an error if the texture cannot be created
	NewColorSurface(width, height int) (obscurance.Surface, error)

	// UploadColor writes an image into a colour surface of the same size.
	//
	// Parameters:
	//   - s: the destination surface
	//   - img: the image to upload
	//
	// Returns:
	//   - error: an error if s is not a live colour surface of the image's size
	UploadColor(s obscurance.Surface, img *exr.RGBAImage) error

	// ReadColor submits pending work and reads a colour surface back.
	//
	// Parameters:
	//   - s: the surface to read
	//
	// Returns:
	//   - *exr.RGBAImage: the surface contents
	//   - error: an error if s is not a live colour surface or the readback fails
	ReadColor(s obscurance.Surface) (*exr.RGBAImage, error)

	// ReadMask submits pending work and reads an occlusion mask surface back.
	//
	// Parameters:
	//   - s: the surface to read
	//
	// Returns:
	//   - *image.Gray: the mask contents
	//   - error: an error if s is not a live mask surface or the readback fails
	ReadMask(s obscurance.Surface) (*image.Gray, error)

	// SetGeometry uploads the depth/normal surface sampled by the Estimate pass. RGB holds the
	// view-space normal, A holds the linear view depth; a depth of 0 marks background.
	//
	// Parameters:
	//   - img: the geometry image
	//
	// Returns:
	//   - obscurance.Surface: the handle of the uploaded surface
	//   - error: an error if the texture cannot be created
	SetGeometry(img *exr.RGBAImage) (obscurance.Surface, error)

	// SetGBuffer uploads the deferred G-buffer geometry, in the same encoding as SetGeometry.
	//
	// Parameters:
	//   - img: the G-buffer geometry image
	//
	// Returns:
	//   - obscurance.Surface: the handle of the uploaded surface
	//   - error: an error if the texture cannot be created
	SetGBuffer(img *exr.RGBAImage) (obscurance.Surface, error)

	// SetAmbientTargets sets the deferred albedo and ambient surfaces written by ambient-only passes.
	//
	// Parameters:
	//   - albedo: the albedo target, its alpha channel receives the occlusion
	//   - ambient: the ambient target, its colour channels are darkened
	SetAmbientTargets(albedo, ambient obscurance.Surface)

	// SetCapabilities changes the render path and HDR state the renderer reports.
	//
	// Parameters:
	//   - caps: the new capabilities
	SetCapabilities(caps obscurance.Capabilities)

	// ExecuteStage replays every command list attached at a stage and submits the result.
	//
	// Parameters:
	//   - stage: the stage to replay
	//   - source: the surface bound to SlotSource
	//   - destination: the surface bound to SlotDestination
	//
	// Returns:
	//   - error: the joined replay errors
	ExecuteStage(stage obscurance.Stage, source, destination obscurance.Surface) error

	// LiveSurfaces returns the number of pool surfaces currently borrowed.
	//
	// Returns:
	//   - int: the borrowed surface count
	LiveSurfaces() int

	// Flush submits all recorded draws and copies.
	//
	// Returns:
	//   - error: an error if the command buffer cannot be finished
	Flush() error

	// Present blits a colour surface to the window and presents it.
	//
	// Parameters:
	//   - s: the surface to show
	//
	// Returns:
	//   - error: an error if the renderer is headless or the frame cannot be acquired
	Present(s obscurance.Surface) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release releases every surface, pipeline and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type. A nil window creates a
// headless renderer that draws to offscreen surfaces only. Panics if no GPU device is available.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window to present to, or nil for headless use
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		backendType:   backendType,
		pipelineCache: make(map[string]pipeline.Pipeline),
		caps:          obscurance.Capabilities{Path: obscurance.RenderPathForward, HDR: true},
		fieldOfView:   60,
		surfaces:      make(map[obscurance.SurfaceID]*gpuSurface),
		free:          make(map[obscurance.SurfaceDescriptor][]*gpuSurface),
		programs:      make(map[obscurance.ProgramID]material.Material),
		stages:        make(map[obscurance.Stage][]*obscurance.Recording),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.library == nil {
		r.library = shader.NewLibrary()
	}

	var surfaceDescriptor *wgpu.SurfaceDescriptor
	if win != nil {
		surfaceDescriptor = win.SurfaceDescriptor()
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		b, err := newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter)
		if err != nil {
			panic(fmt.Sprintf("renderer: %v", err))
		}
		r.backend = b
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if win != nil {
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}

	sampler, err := r.backend.CreateLinearSampler()
	if err != nil {
		panic(fmt.Sprintf("renderer: linear sampler: %v", err))
	}
	r.sampler = sampler
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Capabilities() obscurance.Capabilities {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caps
}

func (r *renderer) SetCapabilities(caps obscurance.Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = caps
}

func (r *renderer) LoadProgram(name string) (obscurance.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.library.Has(name) {
		return obscurance.Program{}, fmt.Errorf("renderer: program %q: %w", name, shader.ErrNotFound)
	}
	for _, variant := range programVariants {
		if _, err := r.pipelineFor(name, variant); err != nil {
			return obscurance.Program{}, err
		}
	}

	r.nextID++
	p := obscurance.Program{ID: obscurance.ProgramID(r.nextID), Name: name}
	r.programs[p.ID] = material.NewMaterial(material.WithProgram(p), material.WithFieldOfView(r.fieldOfView))
	obscurance.Logger().Debug("renderer: program loaded", "program", name, "id", p.ID)
	return p, nil
}

func (r *renderer) DestroyProgram(p obscurance.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.programs, p.ID)
}

func (r *renderer) PushParameters(p obscurance.Program, params obscurance.ProgramParameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.programs[p.ID]
	if !ok {
		return fmt.Errorf("renderer: push to unknown program %d", p.ID)
	}
	m.SetParameters(params)
	return nil
}

func (r *renderer) AcquireSurface(desc obscurance.SurfaceDescriptor) (obscurance.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquire(desc)
}

func (r *renderer) ReleaseSurface(s obscurance.Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release(s)
}

func (r *renderer) LiveSurfaces() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.surfaces {
		if s.pooled {
			n++
		}
	}
	return n
}

func (r *renderer) NewColorSurface(width, height int) (obscurance.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create("color", width, height, obscurance.SurfaceFormatColor, false)
}

func (r *renderer) UploadColor(s obscurance.Surface, img *exr.RGBAImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sf, err := r.live(s, obscurance.SlotSource)
	if err != nil {
		return err
	}
	if sf.handle.Format != obscurance.SurfaceFormatColor {
		return fmt.Errorf("renderer: upload to non-colour surface %d", s.ID)
	}
	if img.Rect.Dx() != s.Width || img.Rect.Dy() != s.Height {
		return fmt.Errorf("renderer: upload %v into %dx%d", img.Rect.Size(), s.Width, s.Height)
	}
	r.backend.WriteTexture(sf.texture, encodeColor(img), s.Width, s.Height, colorBytesPerPixel)
	return nil
}

func (r *renderer) ReadColor(s obscurance.Surface) (*exr.RGBAImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sf, err := r.live(s, obscurance.SlotDestination)
	if err != nil {
		return nil, err
	}
	if sf.handle.Format != obscurance.SurfaceFormatColor {
		return nil, fmt.Errorf("renderer: surface %d is not a colour surface", s.ID)
	}
	if err := r.flush(); err != nil {
		return nil, err
	}
	data, err := r.backend.ReadTexture(sf.texture, s.Width, s.Height, colorBytesPerPixel)
	if err != nil {
		return nil, err
	}
	return decodeColor(data, s.Width, s.Height)
}

func (r *renderer) ReadMask(s obscurance.Surface) (*image.Gray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sf, err := r.live(s, obscurance.SlotMask)
	if err != nil {
		return nil, err
	}
	if sf.handle.Format != obscurance.SurfaceFormatR8Linear {
		return nil, fmt.Errorf("renderer: surface %d is not a mask surface", s.ID)
	}
	if err := r.flush(); err != nil {
		return nil, err
	}
	data, err := r.backend.ReadTexture(sf.texture, s.Width, s.Height, maskBytesPerPixel)
	if err != nil {
		return nil, err
	}
	return decodeMask(data, s.Width, s.Height)
}

func (r *renderer) SetGeometry(img *exr.RGBAImage) (obscurance.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.uploadGeometry("geometry", img)
	if err != nil {
		return obscurance.Surface{}, err
	}
	r.destroy(r.geometry)
	r.geometry = s
	return s, nil
}

func (r *renderer) SetGBuffer(img *exr.RGBAImage) (obscurance.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.uploadGeometry("gbuffer", img)
	if err != nil {
		return obscurance.Surface{}, err
	}
	r.destroy(r.gbuffer)
	r.gbuffer = s
	return s, nil
}

func (r *renderer) SetAmbientTargets(albedo, ambient obscurance.Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.albedo = albedo
	r.ambient = ambient
}

func (r *renderer) GeometrySurface(kind obscurance.SourceKind) (obscurance.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geometryFor(kind)
}

func (r *renderer) Draw(p obscurance.Program, pass obscurance.Pass, b obscurance.Bindings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draw(p, pass, b)
}

func (r *renderer) Copy(src, dst obscurance.Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copySurface(src, dst)
}

func (r *renderer) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flush()
}

func (r *renderer) Present(s obscurance.Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend.Headless() {
		return errors.New("renderer: headless renderer cannot present")
	}
	sf, err := r.live(s, obscurance.SlotDestination)
	if err != nil {
		return err
	}
	p, err := r.presentPipeline()
	if err != nil {
		return err
	}

	frame, err := r.backend.AcquireFrame()
	if err != nil {
		return err
	}
	var b obscurance.Bindings
	b[obscurance.SlotSource] = sf.handle
	if err := r.encode(p, obscurance.Pass{Kind: obscurance.PassCopy, Width: s.Width, Height: s.Height}, b, []*wgpu.TextureView{frame}, nil); err != nil {
		return err
	}
	if err := r.flush(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.flush()
	for _, s := range r.surfaces {
		s.release()
	}
	for _, list := range r.free {
		for _, s := range list {
			s.release()
		}
	}
	r.surfaces = make(map[obscurance.SurfaceID]*gpuSurface)
	r.free = make(map[obscurance.SurfaceDescriptor][]*gpuSurface)
	for _, p := range r.pipelineCache {
		p.Release()
	}
	r.pipelineCache = make(map[string]pipeline.Pipeline)
	for _, buf := range r.uniforms {
		buf.Release()
	}
	r.uniforms = nil
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}
	r.backend.Release()
}

// pipelineFor returns the cached pipeline of a program variant, registering it on first use.
func (r *renderer) pipelineFor(program, variant string) (pipeline.Pipeline, error) {
	key := pipelineKey(program, variant)
	if p, ok := r.pipelineCache[key]; ok {
		return p, nil
	}
	vs, fs, err := r.library.Variant(program, variant)
	if err != nil {
		return nil, fmt.Errorf("renderer: %s: %w", key, err)
	}
	opts := append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	}, variantTargets(variant)...)
	return r.register(key, opts)
}

// presentPipeline returns the swapchain blit pipeline for the configured surface format.
func (r *renderer) presentPipeline() (pipeline.Pipeline, error) {
	if p, ok := r.pipelineCache[presentKey]; ok {
		return p, nil
	}
	vs, fs, err := r.library.Present()
	if err != nil {
		return nil, fmt.Errorf("renderer: %s: %w", presentKey, err)
	}
	return r.register(presentKey, []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithColorTarget(r.backend.SurfaceFormat()),
	})
}

func (r *renderer) register(key string, opts []pipeline.PipelineBuilderOption) (p pipeline.Pipeline, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("renderer: %s: %v", key, rec)
		}
	}()
	p = pipeline.NewPipeline(key, opts...)
	if err := r.backend.RegisterRenderPipeline(p); err != nil {
		return nil, fmt.Errorf("renderer: register %s: %w", key, err)
	}
	r.pipelineCache[key] = p
	obscurance.Logger().Debug("renderer: pipeline registered", "key", key)
	return p, nil
}

// create allocates a texture-backed surface and registers it under a fresh ID.
func (r *renderer) create(label string, width, height int, format obscurance.SurfaceFormat, pooled bool) (obscurance.Surface, error) {
	if width <= 0 || height <= 0 {
		return obscurance.Surface{}, fmt.Errorf("renderer: invalid surface size %dx%d", width, height)
	}
	texFormat, _, err := textureFormat(format)
	if err != nil {
		return obscurance.Surface{}, fmt.Errorf("renderer: %w", err)
	}
	tex, view, err := r.backend.CreateTarget(label, width, height, texFormat)
	if err != nil {
		return obscurance.Surface{}, fmt.Errorf("renderer: create %s: %w", label, err)
	}

	r.nextID++
	s := &gpuSurface{
		handle:  obscurance.Surface{ID: obscurance.SurfaceID(r.nextID), Width: width, Height: height, Format: format},
		label:   label,
		texture: tex,
		view:    view,
		pooled:  pooled,
	}
	r.surfaces[s.handle.ID] = s
	return s.handle, nil
}

// destroy releases a non-pooled surface's texture.
func (r *renderer) destroy(handle obscurance.Surface) {
	s, ok := r.surfaces[handle.ID]
	if !ok || s.pooled {
		return
	}
	delete(r.surfaces, handle.ID)
	s.release()
}

func (r *renderer) uploadGeometry(label string, img *exr.RGBAImage) (obscurance.Surface, error) {
	s, err := r.create(label, img.Rect.Dx(), img.Rect.Dy(), obscurance.SurfaceFormatColor, false)
	if err != nil {
		return obscurance.Surface{}, err
	}
	r.backend.WriteTexture(r.surfaces[s.ID].texture, encodeColor(img), s.Width, s.Height, colorBytesPerPixel)
	return s, nil
}

// acquire hands out a pooled surface, reusing a released one of the same descriptor when possible.
func (r *renderer) acquire(desc obscurance.SurfaceDescriptor) (obscurance.Surface, error) {
	key := obscurance.SurfaceDescriptor{Width: desc.Width, Height: desc.Height, Format: desc.Format}
	if free := r.free[key]; len(free) > 0 {
		s := free[len(free)-1]
		r.free[key] = free[:len(free)-1]
		s.label = desc.Label
		r.surfaces[s.handle.ID] = s
		return s.handle, nil
	}
	return r.create(desc.Label, desc.Width, desc.Height, desc.Format, true)
}

func (r *renderer) release(handle obscurance.Surface) {
	s, ok := r.surfaces[handle.ID]
	if !ok || !s.pooled {
		return
	}
	delete(r.surfaces, handle.ID)
	key := obscurance.SurfaceDescriptor{Width: handle.Width, Height: handle.Height, Format: handle.Format}
	r.free[key] = append(r.free[key], s)
}

func (r *renderer) live(handle obscurance.Surface, slot obscurance.Slot) (*gpuSurface, error) {
	s, ok := r.surfaces[handle.ID]
	if !ok {
		return nil, fmt.Errorf("renderer: %s is not a live surface", slot)
	}
	return s, nil
}

func (r *renderer) geometryFor(kind obscurance.SourceKind) (obscurance.Surface, error) {
	if kind == obscurance.SourceGBuffer {
		if r.gbuffer.Valid() {
			return r.gbuffer, nil
		}
		if !r.geometry.Valid() {
			return obscurance.Surface{}, fmt.Errorf("renderer: no G-buffer geometry set")
		}
	}
	if !r.geometry.Valid() {
		return obscurance.Surface{}, fmt.Errorf("renderer: no depth/normal geometry set")
	}
	return r.geometry, nil
}

func (r *renderer) draw(p obscurance.Program, pass obscurance.Pass, b obscurance.Bindings) error {
	m, ok := r.programs[p.ID]
	if !ok {
		return fmt.Errorf("renderer: draw with unknown program %d", p.ID)
	}
	if pass.Kind == obscurance.PassCopy {
		return r.copySurface(b[pass.Inputs[0]], b[pass.Outputs[0]])
	}

	variant, err := variantFor(pass)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	pl, err := r.pipelineFor(m.Name(), variant)
	if err != nil {
		return err
	}

	targets := make([]*wgpu.TextureView, len(pass.Outputs))
	for i, slot := range pass.Outputs {
		sf, err := r.live(b[slot], slot)
		if err != nil {
			return err
		}
		for _, in := range pass.Inputs {
			if b[in].ID == sf.handle.ID {
				return fmt.Errorf("renderer: %s reads and writes surface %d", pass.Kind, sf.handle.ID)
			}
		}
		targets[i] = sf.view
	}

	u := m.Uniform(pass)
	if geo := b[obscurance.SlotGeometry]; geo.Valid() && geo.Height > 0 {
		u.Aspect = float32(geo.Width) / float32(geo.Height)
	}
	return r.encode(pl, pass, b, targets, u.Marshal())
}

// encode binds every declaration of the pipeline's fragment shader and records the draw.
// The bind groups are released once the recorded work is submitted.
func (r *renderer) encode(pl pipeline.Pipeline, pass obscurance.Pass, b obscurance.Bindings, targets []*wgpu.TextureView, uniform []byte) error {
	fragment := pl.Shader(shader.ShaderTypeFragment)
	providers := make(map[int]bind_group_provider.BindGroupProvider)
	providerFor := func(group int) bind_group_provider.BindGroupProvider {
		if p, ok := providers[group]; ok {
			return p
		}
		p := bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s group %d", pl.PipelineKey(), group),
			bind_group_provider.WithBindGroupLayout(pl.BindGroupLayout(group)),
		)
		providers[group] = p
		return p
	}

	var writes []bind_group_provider.BufferWrite
	for _, decl := range fragment.Declarations() {
		group, binding := *decl.Group, *decl.Binding
		provider := providerFor(group)

		switch decl.Type {
		case shader.AnnotationTypeBindingGroup:
			if uniform == nil {
				return fmt.Errorf("renderer: %s declares a parameter block", pl.PipelineKey())
			}
			buf, err := r.nextUniform()
			if err != nil {
				return err
			}
			provider.SetBuffer(binding, buf)
			writes = append(writes, bind_group_provider.BufferWrite{Provider: provider, Binding: binding, Data: uniform})
		case shader.AnnotationTypeProvider:
			if decl.Args[0] == shader.AnnotationArgSampler {
				provider.SetSampler(binding, r.sampler)
				continue
			}
			slot, err := inputSlot(decl.Role(), pass)
			if err != nil {
				return fmt.Errorf("renderer: %w", err)
			}
			sf, err := r.live(b[slot], slot)
			if err != nil {
				return err
			}
			provider.SetTextureView(binding, sf.view)
		}
	}

	maxGroup := -1
	for g := range providers {
		maxGroup = max(maxGroup, g)
	}
	groups := make([]bind_group_provider.BindGroupProvider, maxGroup+1)
	for g := range groups {
		provider := providerFor(g)
		r.inFlight = append(r.inFlight, provider)
		if err := r.backend.InitBindGroup(provider, fragment.BindGroupLayoutDescriptor(g)); err != nil {
			return fmt.Errorf("renderer: %s: %w", pl.PipelineKey(), err)
		}
		groups[g] = provider
	}

	r.backend.WriteBuffers(writes)
	return r.backend.EncodeDraw(pl, targets, groups)
}

// nextUniform hands out the next parameter buffer of the current submission.
func (r *renderer) nextUniform() (*wgpu.Buffer, error) {
	if r.uniformNext == len(r.uniforms) {
		buf, err := r.backend.CreateUniformBuffer(fmt.Sprintf("Obscurance Params %d", len(r.uniforms)), uniformSize)
		if err != nil {
			return nil, fmt.Errorf("renderer: uniform buffer: %w", err)
		}
		r.uniforms = append(r.uniforms, buf)
	}
	buf := r.uniforms[r.uniformNext]
	r.uniformNext++
	return buf, nil
}

func (r *renderer) copySurface(src, dst obscurance.Surface) error {
	from, err := r.live(src, obscurance.SlotSource)
	if err != nil {
		return err
	}
	to, err := r.live(dst, obscurance.SlotDestination)
	if err != nil {
		return err
	}
	if from.handle.Width != to.handle.Width || from.handle.Height != to.handle.Height || from.handle.Format != to.handle.Format {
		return fmt.Errorf("renderer: copy %dx%d into %dx%d", from.handle.Width, from.handle.Height, to.handle.Width, to.handle.Height)
	}
	if from == to {
		return nil
	}
	return r.backend.EncodeCopy(from.texture, to.texture, from.handle.Width, from.handle.Height)
}

// flush submits recorded work and recycles the per-draw resources.
func (r *renderer) flush() error {
	err := r.backend.Flush()
	for _, p := range r.inFlight {
		p.Release()
	}
	r.inFlight = r.inFlight[:0]
	r.uniformNext = 0
	return err
}
