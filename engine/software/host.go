// Package software is a CPU implementation of obscurance.Host. Colour and geometry surfaces are
// half-float EXR images, occlusion masks are 8-bit gray images, and every pass runs row-parallel
// on a worker pool. It backs the offline bake tool and the pixel-level tests of the pipeline.
package software

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ao/common"
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/mrjoshuak/go-openexr/exr"
)

// surface is one host-owned image. Exactly one of color and mask is set.
type surface struct {
	handle obscurance.Surface
	label  string
	color  *exr.RGBAImage
	mask   *image.Gray
	pooled bool
}

// host is the implementation of the Host interface.
type host struct {
	mu *sync.Mutex

	caps        obscurance.Capabilities
	fieldOfView float32
	workers     int
	pool        worker.DynamicWorkerPool
	taskID      int

	nextID   uint64
	surfaces map[obscurance.SurfaceID]*surface
	free     map[obscurance.SurfaceDescriptor][]*surface

	registry   map[string]bool
	programs   map[obscurance.ProgramID]string
	parameters map[obscurance.ProgramID]obscurance.ProgramParameters

	geometry obscurance.Surface
	gbuffer  obscurance.Surface
	albedo   obscurance.Surface
	ambient  obscurance.Surface

	stages map[obscurance.Stage][]*obscurance.Recording

	// per-draw scratch, reused while the frame size and sample count hold
	fusedMask *image.Gray
	scaled    *image.Gray
	kernel    []common.Vec3
}

// Host is a CPU renderer that satisfies obscurance.Host and adds the image plumbing a caller
// needs to feed it frames and read results back.
type Host interface {
	obscurance.Host

	// NewColorSurface registers an image as a colour surface. The host keeps the image and writes
	// into it when the surface is bound as an output.
	//
	// Parameters:
	//   - img: the image to register
	//
	// Returns:
	//   - obscurance.Surface: the handle of the registered surface
	NewColorSurface(img *exr.RGBAImage) obscurance.Surface

	// ColorImage returns the image behind a colour surface.
	//
	// Parameters:
	//   - s: the surface handle
	//
	// Returns:
	//   - *exr.RGBAImage: the image
	//   - bool: false if s is not a live colour surface
	ColorImage(s obscurance.Surface) (*exr.RGBAImage, bool)

	// MaskImage returns the image behind an occlusion mask surface.
	//
	// Parameters:
	//   - s: the surface handle
	//
	// Returns:
	//   - *image.Gray: the mask
	//   - bool: false if s is not a live mask surface
	MaskImage(s obscurance.Surface) (*image.Gray, bool)

	// SetGeometry sets the depth/normal surface sampled by the Estimate pass. RGB holds the
	// view-space normal, A holds the linear view depth; a depth of 0 marks background.
	//
	// Parameters:
	//   - img: the geometry image
	//
	// Returns:
	//   - obscurance.Surface: the handle of the registered surface
	SetGeometry(img *exr.RGBAImage) obscurance.Surface

	// SetGBuffer sets the deferred G-buffer geometry, in the same encoding as SetGeometry.
	//
	// Parameters:
	//   - img: the G-buffer geometry image
	//
	// Returns:
	//   - obscurance.Surface: the handle of the registered surface
	SetGBuffer(img *exr.RGBAImage) obscurance.Surface

	// SetAmbientTargets sets the deferred albedo and ambient surfaces written by ambient-only passes.
	//
	// Parameters:
	//   - albedo: the albedo target, its alpha channel receives the occlusion
	//   - ambient: the ambient target, its colour channels are darkened
	SetAmbientTargets(albedo, ambient obscurance.Surface)

	// SetCapabilities changes the render path and HDR state the host reports.
	//
	// Parameters:
	//   - caps: the new capabilities
	SetCapabilities(caps obscurance.Capabilities)

	// ExecuteStage replays every command list attached at a stage against the current frame.
	//
	// Parameters:
	//   - stage: the stage to replay
	//   - source: the surface bound to SlotSource
	//   - destination: the surface bound to SlotDestination
	//
	// Returns:
	//   - error: the first replay error
	ExecuteStage(stage obscurance.Stage, source, destination obscurance.Surface) error

	// Parameters returns the last parameter set pushed for a program.
	//
	// Parameters:
	//   - p: the program
	//
	// Returns:
	//   - obscurance.ProgramParameters: the pushed parameters
	//   - bool: false if nothing was pushed
	Parameters(p obscurance.Program) (obscurance.ProgramParameters, bool)

	// LiveSurfaces returns the number of pool surfaces currently borrowed.
	//
	// Returns:
	//   - int: the borrowed surface count
	LiveSurfaces() int
}

var _ Host = &host{}

// NewHost creates a CPU host with the occlusion program registered.
//
// Parameters:
//   - options: functional options for the host
//
// Returns:
//   - Host: the new host
func NewHost(options ...HostBuilderOption) Host {
	h := &host{
		mu:          &sync.Mutex{},
		caps:        obscurance.Capabilities{Path: obscurance.RenderPathForward, HDR: true},
		fieldOfView: 60,
		workers:     max(runtime.NumCPU()-1, 1),
		surfaces:    make(map[obscurance.SurfaceID]*surface),
		free:        make(map[obscurance.SurfaceDescriptor][]*surface),
		registry:    map[string]bool{obscurance.ProgramName: true},
		programs:    make(map[obscurance.ProgramID]string),
		parameters:  make(map[obscurance.ProgramID]obscurance.ProgramParameters),
		stages:      make(map[obscurance.Stage][]*obscurance.Recording),
	}
	for _, opt := range options {
		opt(h)
	}
	if h.fieldOfView <= 0 || h.fieldOfView >= 180 {
		panic(fmt.Sprintf("software: field of view %v out of range", h.fieldOfView))
	}
	h.pool = worker.NewDynamicWorkerPool(h.workers, 256, 1*time.Second)
	return h
}

func (h *host) Capabilities() obscurance.Capabilities {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caps
}

func (h *host) SetCapabilities(caps obscurance.Capabilities) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.caps = caps
}

func (h *host) LoadProgram(name string) (obscurance.Program, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry[name] {
		return obscurance.Program{}, fmt.Errorf("software: program %q not registered", name)
	}
	h.nextID++
	p := obscurance.Program{ID: obscurance.ProgramID(h.nextID), Name: name}
	h.programs[p.ID] = name
	return p, nil
}

func (h *host) DestroyProgram(p obscurance.Program) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.programs, p.ID)
	delete(h.parameters, p.ID)
}

func (h *host) PushParameters(p obscurance.Program, params obscurance.ProgramParameters) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.programs[p.ID]; !ok {
		return fmt.Errorf("software: push to unknown program %d", p.ID)
	}
	h.parameters[p.ID] = params
	return nil
}

func (h *host) Parameters(p obscurance.Program) (obscurance.ProgramParameters, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	params, ok := h.parameters[p.ID]
	return params, ok
}

func (h *host) AcquireSurface(desc obscurance.SurfaceDescriptor) (obscurance.Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.acquire(desc)
}

func (h *host) ReleaseSurface(s obscurance.Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.release(s)
}

func (h *host) LiveSurfaces() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, s := range h.surfaces {
		if s.pooled {
			n++
		}
	}
	return n
}

func (h *host) NewColorSurface(img *exr.RGBAImage) obscurance.Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.register(&surface{label: "color", color: img})
}

func (h *host) ColorImage(s obscurance.Surface) (*exr.RGBAImage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sf, ok := h.surfaces[s.ID]
	if !ok || sf.color == nil {
		return nil, false
	}
	return sf.color, true
}

func (h *host) MaskImage(s obscurance.Surface) (*image.Gray, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sf, ok := h.surfaces[s.ID]
	if !ok || sf.mask == nil {
		return nil, false
	}
	return sf.mask, true
}

func (h *host) SetGeometry(img *exr.RGBAImage) obscurance.Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregister(h.geometry)
	h.geometry = h.register(&surface{label: "geometry", color: img})
	return h.geometry
}

func (h *host) SetGBuffer(img *exr.RGBAImage) obscurance.Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregister(h.gbuffer)
	h.gbuffer = h.register(&surface{label: "gbuffer", color: img})
	return h.gbuffer
}

func (h *host) SetAmbientTargets(albedo, ambient obscurance.Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.albedo = albedo
	h.ambient = ambient
}

func (h *host) GeometrySurface(kind obscurance.SourceKind) (obscurance.Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.geometryFor(kind)
}

func (h *host) Draw(p obscurance.Program, pass obscurance.Pass, b obscurance.Bindings) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.draw(p, pass, b)
}

func (h *host) Copy(src, dst obscurance.Surface) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copySurface(src, dst)
}

// register stores a surface under a fresh ID.
func (h *host) register(s *surface) obscurance.Surface {
	h.nextID++
	s.handle = obscurance.Surface{ID: obscurance.SurfaceID(h.nextID)}
	switch {
	case s.color != nil:
		s.handle.Width, s.handle.Height = s.color.Rect.Dx(), s.color.Rect.Dy()
		s.handle.Format = obscurance.SurfaceFormatColor
	case s.mask != nil:
		s.handle.Width, s.handle.Height = s.mask.Rect.Dx(), s.mask.Rect.Dy()
		s.handle.Format = obscurance.SurfaceFormatR8Linear
	}
	h.surfaces[s.handle.ID] = s
	return s.handle
}

func (h *host) unregister(s obscurance.Surface) {
	if s.Valid() {
		delete(h.surfaces, s.ID)
	}
}

// acquire hands out a pooled surface, reusing a released one of the same descriptor when possible.
func (h *host) acquire(desc obscurance.SurfaceDescriptor) (obscurance.Surface, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return obscurance.Surface{}, fmt.Errorf("software: invalid surface size %dx%d", desc.Width, desc.Height)
	}
	key := obscurance.SurfaceDescriptor{Width: desc.Width, Height: desc.Height, Format: desc.Format}
	if free := h.free[key]; len(free) > 0 {
		s := free[len(free)-1]
		h.free[key] = free[:len(free)-1]
		s.label = desc.Label
		h.surfaces[s.handle.ID] = s
		return s.handle, nil
	}

	rect := image.Rect(0, 0, desc.Width, desc.Height)
	s := &surface{label: desc.Label, pooled: true}
	switch desc.Format {
	case obscurance.SurfaceFormatR8Linear:
		s.mask = image.NewGray(rect)
	case obscurance.SurfaceFormatColor:
		s.color = exr.NewRGBAImage(rect)
	default:
		return obscurance.Surface{}, fmt.Errorf("software: unknown surface format %d", desc.Format)
	}
	return h.register(s), nil
}

func (h *host) release(handle obscurance.Surface) {
	s, ok := h.surfaces[handle.ID]
	if !ok || !s.pooled {
		return
	}
	delete(h.surfaces, handle.ID)
	key := obscurance.SurfaceDescriptor{Width: handle.Width, Height: handle.Height, Format: handle.Format}
	h.free[key] = append(h.free[key], s)
}

func (h *host) geometryFor(kind obscurance.SourceKind) (obscurance.Surface, error) {
	if kind == obscurance.SourceGBuffer {
		if h.gbuffer.Valid() {
			return h.gbuffer, nil
		}
		if !h.geometry.Valid() {
			return obscurance.Surface{}, fmt.Errorf("software: no G-buffer geometry set")
		}
	}
	if !h.geometry.Valid() {
		return obscurance.Surface{}, fmt.Errorf("software: no depth/normal geometry set")
	}
	return h.geometry, nil
}

func (h *host) colorAt(s obscurance.Surface, slot obscurance.Slot) (*exr.RGBAImage, error) {
	sf, ok := h.surfaces[s.ID]
	if !ok || sf.color == nil {
		return nil, fmt.Errorf("software: %s is not a live colour surface", slot)
	}
	return sf.color, nil
}

func (h *host) maskAt(s obscurance.Surface, slot obscurance.Slot) (*image.Gray, error) {
	sf, ok := h.surfaces[s.ID]
	if !ok || sf.mask == nil {
		return nil, fmt.Errorf("software: %s is not a live mask surface", slot)
	}
	return sf.mask, nil
}

// copySurface copies pixels between two surfaces of the same size and format.
func (h *host) copySurface(src, dst obscurance.Surface) error {
	from, ok := h.surfaces[src.ID]
	if !ok {
		return fmt.Errorf("software: copy from unknown surface %d", src.ID)
	}
	to, ok := h.surfaces[dst.ID]
	if !ok {
		return fmt.Errorf("software: copy to unknown surface %d", dst.ID)
	}
	if from.handle.Width != to.handle.Width || from.handle.Height != to.handle.Height || from.handle.Format != to.handle.Format {
		return fmt.Errorf("software: copy %dx%d to %dx%d", from.handle.Width, from.handle.Height, to.handle.Width, to.handle.Height)
	}
	if from == to {
		return nil
	}
	if from.color != nil {
		copy(to.color.Pix, from.color.Pix)
	} else {
		copy(to.mask.Pix, from.mask.Pix)
	}
	return nil
}

// parallelRows runs fn over [0, rows) in bands on the worker pool and waits for all of them.
func (h *host) parallelRows(rows int, fn func(y0, y1 int)) {
	bands := min(h.workers, rows)
	if bands <= 1 {
		fn(0, rows)
		return
	}
	step := (rows + bands - 1) / bands

	var wg sync.WaitGroup
	for y0 := 0; y0 < rows; y0 += step {
		y1 := min(y0+step, rows)
		wg.Add(1)
		id := h.taskID
		h.taskID++
		h.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}
