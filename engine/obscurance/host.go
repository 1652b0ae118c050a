package obscurance

// RenderPath identifies the host renderer's shading path.
type RenderPath int

const (
	// RenderPathForward shades geometry directly into the colour buffer.
	RenderPathForward RenderPath = iota

	// RenderPathDeferred writes a G-buffer first and shades it in a later pass.
	RenderPathDeferred
)

// String returns a readable name for the render path.
func (p RenderPath) String() string {
	if p == RenderPathDeferred {
		return "deferred"
	}
	return "forward"
}

// Capabilities describes the host state that affects which passes can run.
type Capabilities struct {
	// Path is the host's current render path.
	Path RenderPath
	// HDR reports whether the host renders into high-dynamic-range targets.
	HDR bool
}

// GBufferAvailable reports whether the Estimate pass can sample the deferred G-buffer
// instead of a depth/normal surface.
//
// Returns:
//   - bool: true on the deferred path
func (c Capabilities) GBufferAvailable() bool {
	return c.Path == RenderPathDeferred
}

// AmbientOnlySupported reports whether the host can take the composite in its ambient and albedo targets.
//
// Returns:
//   - bool: true on the deferred path with HDR targets
func (c Capabilities) AmbientOnlySupported() bool {
	return c.Path == RenderPathDeferred && c.HDR
}

// SurfaceFormat identifies the pixel layout of a Surface.
type SurfaceFormat int

const (
	// SurfaceFormatR8Linear is a single 8-bit channel in linear colour space, used for occlusion masks.
	SurfaceFormatR8Linear SurfaceFormat = iota

	// SurfaceFormatColor is the host's colour format.
	SurfaceFormatColor
)

// SurfaceID identifies a host surface. The zero value never names a live surface.
type SurfaceID uint64

// Surface is a handle to a host-owned 2D render target.
type Surface struct {
	ID     SurfaceID
	Width  int
	Height int
	Format SurfaceFormat
}

// Valid reports whether the handle names a surface.
//
// Returns:
//   - bool: true if the ID is non-zero
func (s Surface) Valid() bool {
	return s.ID != 0
}

// SurfaceDescriptor describes a surface to allocate.
type SurfaceDescriptor struct {
	Label  string
	Width  int
	Height int
	Format SurfaceFormat
}

// ProgramID identifies a loaded host program. The zero value never names a live program.
type ProgramID uint64

// Program is a handle to the host's occlusion program and all of its pass variants.
type Program struct {
	ID   ProgramID
	Name string
}

// Valid reports whether the handle names a program.
//
// Returns:
//   - bool: true if the ID is non-zero
func (p Program) Valid() bool {
	return p.ID != 0
}

// ProgramName is the logical name of the occlusion program in the host's registry.
const ProgramName = "ambient_obscurance"

// Stage names a point in the host's frame where a command list is replayed.
type Stage string

// StageBeforeReflections is replayed after the G-buffer is lit and before reflections are resolved.
const StageBeforeReflections Stage = "before_reflections"

// Bindings resolves every Slot to a concrete surface for one draw.
type Bindings [slotCount]Surface

// Host is the boundary between the pipeline and the renderer that owns the GPU.
//
// All methods are called from the host's frame callback. The pipeline never retains a
// surface after passing it to ReleaseSurface.
type Host interface {
	// Capabilities reports the host's current render path and HDR state.
	//
	// Returns:
	//   - Capabilities: the current capabilities
	Capabilities() Capabilities

	// LoadProgram looks up a program in the host's registry and creates it.
	//
	// Parameters:
	//   - name: the logical program name
	//
	// Returns:
	//   - Program: the created program
	//   - error: an error if the program cannot be located or created
	LoadProgram(name string) (Program, error)

	// DestroyProgram releases a program created by LoadProgram.
	//
	// Parameters:
	//   - p: the program to destroy
	DestroyProgram(p Program)

	// PushParameters writes the program's parameter set. Draws issued after this call, including
	// draws replayed from a command list, use these values for the cosmetic parameters.
	//
	// Parameters:
	//   - p: the program to update
	//   - params: the parameter set
	//
	// Returns:
	//   - error: an error if the parameters could not be written
	PushParameters(p Program, params ProgramParameters) error

	// AcquireSurface borrows a surface from the host's pool.
	//
	// Parameters:
	//   - desc: the requested size and format
	//
	// Returns:
	//   - Surface: the borrowed surface
	//   - error: an error if no surface could be allocated
	AcquireSurface(desc SurfaceDescriptor) (Surface, error)

	// ReleaseSurface returns a borrowed surface to the host's pool.
	//
	// Parameters:
	//   - s: the surface to return
	ReleaseSurface(s Surface)

	// GeometrySurface returns the host's depth/normal surface, or its G-buffer when kind is SourceGBuffer.
	//
	// Parameters:
	//   - kind: which geometry source to return
	//
	// Returns:
	//   - Surface: the geometry surface for the current frame
	//   - error: an error if the host has no such surface
	GeometrySurface(kind SourceKind) (Surface, error)

	// Draw runs one pass of the program with the given slot bindings.
	//
	// Parameters:
	//   - p: the program to draw with
	//   - pass: the pass to run
	//   - b: the surfaces bound to each slot
	//
	// Returns:
	//   - error: an error if the pass could not be issued
	Draw(p Program, pass Pass, b Bindings) error

	// Copy copies src into dst unmodified.
	//
	// Parameters:
	//   - src: the surface to read
	//   - dst: the surface to write
	//
	// Returns:
	//   - error: an error if the copy could not be issued
	Copy(src, dst Surface) error

	// NewCommandList creates an empty command list.
	//
	// Parameters:
	//   - name: a debug name for the list
	//
	// Returns:
	//   - CommandList: the new list
	NewCommandList(name string) CommandList

	// AttachCommandList registers a list to be replayed every frame at the given stage.
	//
	// Parameters:
	//   - stage: the replay point
	//   - cl: the list to replay
	AttachCommandList(stage Stage, cl CommandList)

	// DetachCommandList stops replaying a list. Detaching a list that is not attached is a no-op.
	//
	// Parameters:
	//   - stage: the replay point the list was attached to
	//   - cl: the list to detach
	DetachCommandList(stage Stage, cl CommandList)
}

// CommandList is a persistent recording of pass commands replayed by the host.
//
// Slots are resolved at replay time: temporaries come from AcquireTemporary, every other slot
// is bound by the host to its current frame surfaces.
type CommandList interface {
	// Name returns the debug name of the list.
	Name() string

	// AcquireTemporary records the allocation of a temporary surface bound to slot.
	AcquireTemporary(slot Slot, desc SurfaceDescriptor)

	// ReleaseTemporary records the release of the temporary bound to slot.
	ReleaseTemporary(slot Slot)

	// Draw records one pass of the program.
	Draw(p Program, pass Pass)

	// Copy records an unmodified copy between two slots.
	Copy(src, dst Slot)

	// Len returns the number of recorded commands.
	Len() int

	// Release discards the recording. A released list records and replays nothing.
	Release()
}
