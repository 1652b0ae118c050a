package obscurance

import (
	"fmt"
)

// resourcePool is the implementation of the ResourcePool interface.
type resourcePool struct {
	host        Host
	programName string

	program     Program
	hasProgram  bool
	outstanding []Surface

	commandList CommandList
	stage       Stage
}

// ResourcePool owns the pipeline's program handle, its borrowed scratch surfaces and its
// persistent command list. Each effect instance owns exactly one pool.
type ResourcePool interface {
	// AcquireProgram returns the cached program, loading it from the host's registry on first use.
	//
	// Returns:
	//   - Program: the occlusion program
	//   - error: ErrResourceUnavailable if the host cannot load it
	AcquireProgram() (Program, error)

	// Program returns the cached program and whether one is held.
	//
	// Returns:
	//   - Program: the cached program, or the zero value
	//   - bool: true if a program is held
	Program() (Program, bool)

	// ScratchSurface borrows a single-channel linear surface of exactly the requested size.
	// Every successful call must be paired with one Release.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - Surface: the borrowed surface
	//   - error: ErrResourceUnavailable if the host cannot provide a matching surface
	ScratchSurface(width, height int) (Surface, error)

	// Release returns a scratch surface to the host immediately.
	// Releasing a surface the pool does not hold is a no-op.
	//
	// Parameters:
	//   - s: the surface to return
	Release(s Surface)

	// Outstanding returns the number of scratch surfaces currently borrowed.
	//
	// Returns:
	//   - int: the outstanding surface count
	Outstanding() int

	// SetCommandList hands the pool ownership of an attached command list. A list already held is
	// detached and released first.
	//
	// Parameters:
	//   - stage: the stage the list is attached to
	//   - cl: the attached list
	SetCommandList(stage Stage, cl CommandList)

	// CommandList returns the held command list, or nil.
	//
	// Returns:
	//   - CommandList: the held list
	CommandList() CommandList

	// Teardown destroys the program, detaches and releases the command list, and force-releases
	// every outstanding surface. Calling it again, or before anything was acquired, is a no-op.
	Teardown()
}

var _ ResourcePool = &resourcePool{}

// NewResourcePool creates a pool that loads and borrows from the given host.
//
// Parameters:
//   - host: the host that owns the GPU resources
//   - programName: the registry name of the occlusion program
//
// Returns:
//   - ResourcePool: an empty pool
func NewResourcePool(host Host, programName string) ResourcePool {
	if host == nil {
		panic("obscurance: NewResourcePool requires a host")
	}
	return &resourcePool{
		host:        host,
		programName: programName,
	}
}

func (r *resourcePool) AcquireProgram() (Program, error) {
	if r.hasProgram {
		return r.program, nil
	}
	p, err := r.host.LoadProgram(r.programName)
	if err != nil {
		return Program{}, fmt.Errorf("%w: program %q: %w", ErrResourceUnavailable, r.programName, err)
	}
	r.program = p
	r.hasProgram = true
	Logger().Debug("obscurance program loaded", "name", r.programName, "id", p.ID)
	return p, nil
}

func (r *resourcePool) Program() (Program, bool) {
	return r.program, r.hasProgram
}

func (r *resourcePool) ScratchSurface(width, height int) (Surface, error) {
	s, err := r.host.AcquireSurface(SurfaceDescriptor{
		Label:  "Obscurance Scratch",
		Width:  width,
		Height: height,
		Format: SurfaceFormatR8Linear,
	})
	if err != nil {
		return Surface{}, fmt.Errorf("%w: scratch %dx%d: %w", ErrResourceUnavailable, width, height, err)
	}
	if s.Width != width || s.Height != height || s.Format != SurfaceFormatR8Linear {
		r.host.ReleaseSurface(s)
		return Surface{}, fmt.Errorf("%w: host returned %dx%d surface for %dx%d request",
			ErrResourceUnavailable, s.Width, s.Height, width, height)
	}
	r.outstanding = append(r.outstanding, s)
	return s, nil
}

func (r *resourcePool) Release(s Surface) {
	for i, o := range r.outstanding {
		if o.ID != s.ID {
			continue
		}
		r.outstanding = append(r.outstanding[:i], r.outstanding[i+1:]...)
		r.host.ReleaseSurface(o)
		return
	}
}

func (r *resourcePool) Outstanding() int {
	return len(r.outstanding)
}

func (r *resourcePool) SetCommandList(stage Stage, cl CommandList) {
	r.dropCommandList()
	r.commandList = cl
	r.stage = stage
}

func (r *resourcePool) CommandList() CommandList {
	return r.commandList
}

func (r *resourcePool) Teardown() {
	for len(r.outstanding) > 0 {
		last := len(r.outstanding) - 1
		s := r.outstanding[last]
		r.outstanding = r.outstanding[:last]
		r.host.ReleaseSurface(s)
	}
	r.dropCommandList()
	if r.hasProgram {
		r.host.DestroyProgram(r.program)
		r.program = Program{}
		r.hasProgram = false
	}
}

// dropCommandList detaches and releases the held command list, if any.
func (r *resourcePool) dropCommandList() {
	if r.commandList == nil {
		return
	}
	r.host.DetachCommandList(r.stage, r.commandList)
	r.commandList.Release()
	r.commandList = nil
	r.stage = ""
}
