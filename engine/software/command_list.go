package software

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

// replayTarget runs replayed commands on the host. The host lock is already held.
type replayTarget struct {
	h *host
}

var _ obscurance.ReplayTarget = replayTarget{}

func (t replayTarget) AcquireTemporary(desc obscurance.SurfaceDescriptor) (obscurance.Surface, error) {
	return t.h.acquire(desc)
}

func (t replayTarget) ReleaseTemporary(s obscurance.Surface) {
	t.h.release(s)
}

func (t replayTarget) GeometryFor(kind obscurance.SourceKind) (obscurance.Surface, error) {
	return t.h.geometryFor(kind)
}

func (t replayTarget) Draw(p obscurance.Program, pass obscurance.Pass, b obscurance.Bindings) error {
	return t.h.draw(p, pass, b)
}

func (t replayTarget) Copy(src, dst obscurance.Surface) error {
	return t.h.copySurface(src, dst)
}

func (h *host) NewCommandList(name string) obscurance.CommandList {
	return obscurance.NewRecording(name)
}

func (h *host) AttachCommandList(stage obscurance.Stage, cl obscurance.CommandList) {
	list, ok := cl.(*obscurance.Recording)
	if !ok {
		panic(fmt.Sprintf("software: cannot attach command list %T", cl))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !slices.Contains(h.stages[stage], list) {
		h.stages[stage] = append(h.stages[stage], list)
	}
}

func (h *host) DetachCommandList(stage obscurance.Stage, cl obscurance.CommandList) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages[stage] = slices.DeleteFunc(h.stages[stage], func(l *obscurance.Recording) bool {
		return obscurance.CommandList(l) == cl
	})
}

// ExecuteStage replays every list attached at stage with source, destination and the deferred
// targets bound to their slots. Every list runs even when an earlier one fails.
func (h *host) ExecuteStage(stage obscurance.Stage, source, destination obscurance.Surface) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b obscurance.Bindings
	b[obscurance.SlotSource] = source
	b[obscurance.SlotDestination] = destination
	b[obscurance.SlotAlbedoTarget] = h.albedo
	b[obscurance.SlotAmbientTarget] = h.ambient

	var errs []error
	for _, list := range h.stages[stage] {
		if err := obscurance.Replay(list, replayTarget{h: h}, b); err != nil {
			errs = append(errs, fmt.Errorf("command list %q: %w", list.Name(), err))
		}
	}
	return errors.Join(errs...)
}
