package obscurance

import (
	"errors"
	"fmt"
)

// Test helpers shared across obscurance tests.

var errFake = errors.New("fake host failure")

// fakeHost is a Host that records every call and tracks live surfaces.
type fakeHost struct {
	caps Capabilities

	failLoad     bool
	failAcquire  int // fail the Nth AcquireSurface call, 1-based; 0 never fails
	failDraw     PassKind
	failDrawSet  bool
	wrongSize    bool
	failGeometry bool

	nextID    uint64
	live      map[SurfaceID]Surface
	acquires  int
	programs  int
	destroyed int

	events   []string
	draws    []Pass
	pushes   []ProgramParameters
	copies   [][2]Surface
	attached map[Stage][]CommandList
	lists    []*fakeCommandList
}

func newFakeHost(caps Capabilities) *fakeHost {
	return &fakeHost{
		caps:     caps,
		live:     make(map[SurfaceID]Surface),
		attached: make(map[Stage][]CommandList),
	}
}

func (h *fakeHost) id() uint64 {
	h.nextID++
	return h.nextID
}

func (h *fakeHost) Capabilities() Capabilities { return h.caps }

func (h *fakeHost) LoadProgram(name string) (Program, error) {
	h.events = append(h.events, "load "+name)
	if h.failLoad {
		return Program{}, errFake
	}
	h.programs++
	return Program{ID: ProgramID(h.id()), Name: name}, nil
}

func (h *fakeHost) DestroyProgram(p Program) {
	h.events = append(h.events, "destroy "+p.Name)
	h.programs--
	h.destroyed++
}

func (h *fakeHost) PushParameters(_ Program, params ProgramParameters) error {
	h.pushes = append(h.pushes, params)
	return nil
}

func (h *fakeHost) AcquireSurface(desc SurfaceDescriptor) (Surface, error) {
	h.acquires++
	if h.failAcquire != 0 && h.acquires == h.failAcquire {
		return Surface{}, errFake
	}
	s := Surface{ID: SurfaceID(h.id()), Width: desc.Width, Height: desc.Height, Format: desc.Format}
	if h.wrongSize {
		s.Width++
	}
	h.live[s.ID] = s
	h.events = append(h.events, fmt.Sprintf("acquire %dx%d", desc.Width, desc.Height))
	return s, nil
}

func (h *fakeHost) ReleaseSurface(s Surface) {
	if _, ok := h.live[s.ID]; !ok {
		h.events = append(h.events, "release unknown")
		return
	}
	delete(h.live, s.ID)
	h.events = append(h.events, fmt.Sprintf("release %dx%d", s.Width, s.Height))
}

func (h *fakeHost) GeometrySurface(kind SourceKind) (Surface, error) {
	if h.failGeometry {
		return Surface{}, errFake
	}
	return Surface{ID: SurfaceID(1000 + int(kind)), Width: 1, Height: 1, Format: SurfaceFormatColor}, nil
}

func (h *fakeHost) Draw(_ Program, pass Pass, b Bindings) error {
	if h.failDrawSet && pass.Kind == h.failDraw {
		return errFake
	}
	for _, slot := range pass.Inputs {
		if !b[slot].Valid() {
			return fmt.Errorf("%s: input %s unbound", pass.Kind, slot)
		}
	}
	for _, slot := range pass.Outputs {
		if !b[slot].Valid() {
			return fmt.Errorf("%s: output %s unbound", pass.Kind, slot)
		}
	}
	h.draws = append(h.draws, pass)
	h.events = append(h.events, "draw "+pass.Kind.String())
	return nil
}

func (h *fakeHost) Copy(src, dst Surface) error {
	h.copies = append(h.copies, [2]Surface{src, dst})
	h.events = append(h.events, "copy")
	return nil
}

func (h *fakeHost) NewCommandList(name string) CommandList {
	cl := &fakeCommandList{name: name}
	h.lists = append(h.lists, cl)
	return cl
}

func (h *fakeHost) AttachCommandList(stage Stage, cl CommandList) {
	h.attached[stage] = append(h.attached[stage], cl)
}

func (h *fakeHost) DetachCommandList(stage Stage, cl CommandList) {
	lists := h.attached[stage]
	for i, l := range lists {
		if l == cl {
			h.attached[stage] = append(lists[:i], lists[i+1:]...)
			return
		}
	}
}

// fakeCommandList records commands as readable strings.
type fakeCommandList struct {
	name     string
	ops      []string
	passes   []Pass
	released bool
}

func (c *fakeCommandList) Name() string { return c.name }

func (c *fakeCommandList) AcquireTemporary(slot Slot, desc SurfaceDescriptor) {
	c.ops = append(c.ops, fmt.Sprintf("acquire %s %dx%d", slot, desc.Width, desc.Height))
}

func (c *fakeCommandList) ReleaseTemporary(slot Slot) {
	c.ops = append(c.ops, "release "+slot.String())
}

func (c *fakeCommandList) Draw(_ Program, pass Pass) {
	c.ops = append(c.ops, "draw "+pass.Kind.String())
	c.passes = append(c.passes, pass)
}

func (c *fakeCommandList) Copy(src, dst Slot) {
	c.ops = append(c.ops, fmt.Sprintf("copy %s %s", src, dst))
}

func (c *fakeCommandList) Len() int { return len(c.ops) }

func (c *fakeCommandList) Release() {
	c.released = true
	c.ops = nil
	c.passes = nil
}

// recordingPassEncoder captures the passes fed to it by encodePlan.
type recordingPassEncoder struct {
	ops    []string
	passes []Pass
	failOn PassKind
	fail   bool
}

func (r *recordingPassEncoder) acquire(span ScratchSpan) error {
	r.ops = append(r.ops, fmt.Sprintf("acquire %s %dx%d", span.Slot, span.Width, span.Height))
	return nil
}

func (r *recordingPassEncoder) release(slot Slot) {
	r.ops = append(r.ops, "release "+slot.String())
}

func (r *recordingPassEncoder) draw(pass Pass) error {
	if r.fail && pass.Kind == r.failOn {
		return errFake
	}
	r.ops = append(r.ops, "draw "+pass.Kind.String())
	r.passes = append(r.passes, pass)
	return nil
}

func (r *recordingPassEncoder) copy(pass Pass) error {
	r.ops = append(r.ops, "copy")
	r.passes = append(r.passes, pass)
	return nil
}

var (
	forwardCaps  = Capabilities{Path: RenderPathForward}
	deferredCaps = Capabilities{Path: RenderPathDeferred, HDR: true}
	deferredLDR  = Capabilities{Path: RenderPathDeferred}
)

func colorSurface(id uint64, w, h int) Surface {
	return Surface{ID: SurfaceID(id), Width: w, Height: h, Format: SurfaceFormatColor}
}

func kinds(passes []Pass) []PassKind {
	out := make([]PassKind, len(passes))
	for i, p := range passes {
		out[i] = p.Kind
	}
	return out
}
