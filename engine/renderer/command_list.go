package renderer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

// replayTarget encodes replayed commands into the renderer's pending command encoder.
// The renderer lock is already held.
type replayTarget struct {
	r *renderer
}

var _ obscurance.ReplayTarget = replayTarget{}

func (t replayTarget) AcquireTemporary(desc obscurance.SurfaceDescriptor) (obscurance.Surface, error) {
	return t.r.acquire(desc)
}

func (t replayTarget) ReleaseTemporary(s obscurance.Surface) {
	t.r.release(s)
}

func (t replayTarget) GeometryFor(kind obscurance.SourceKind) (obscurance.Surface, error) {
	return t.r.geometryFor(kind)
}

func (t replayTarget) Draw(p obscurance.Program, pass obscurance.Pass, b obscurance.Bindings) error {
	return t.r.draw(p, pass, b)
}

func (t replayTarget) Copy(src, dst obscurance.Surface) error {
	return t.r.copySurface(src, dst)
}

func (r *renderer) NewCommandList(name string) obscurance.CommandList {
	return obscurance.NewRecording(name)
}

func (r *renderer) AttachCommandList(stage obscurance.Stage, cl obscurance.CommandList) {
	list, ok := cl.(*obscurance.Recording)
	if !ok {
		panic(fmt.Sprintf("renderer: cannot attach command list %T", cl))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.stages[stage], list) {
		r.stages[stage] = append(r.stages[stage], list)
	}
}

func (r *renderer) DetachCommandList(stage obscurance.Stage, cl obscurance.CommandList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = slices.DeleteFunc(r.stages[stage], func(l *obscurance.Recording) bool {
		return obscurance.CommandList(l) == cl
	})
}

// ExecuteStage encodes every list attached at stage and submits the result in one flush.
func (r *renderer) ExecuteStage(stage obscurance.Stage, source, destination obscurance.Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b obscurance.Bindings
	b[obscurance.SlotSource] = source
	b[obscurance.SlotDestination] = destination
	b[obscurance.SlotAlbedoTarget] = r.albedo
	b[obscurance.SlotAmbientTarget] = r.ambient

	var errs []error
	for _, list := range r.stages[stage] {
		if err := obscurance.Replay(list, replayTarget{r: r}, b); err != nil {
			errs = append(errs, fmt.Errorf("command list %q: %w", list.Name(), err))
		}
	}
	if err := r.flush(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
