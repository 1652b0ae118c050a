package obscurance

import (
	"errors"
	"slices"
	"testing"
)

// hostTarget replays onto a fakeHost.
type hostTarget struct {
	h *fakeHost
}

func (t hostTarget) AcquireTemporary(desc SurfaceDescriptor) (Surface, error) {
	return t.h.AcquireSurface(desc)
}

func (t hostTarget) ReleaseTemporary(s Surface) { t.h.ReleaseSurface(s) }

func (t hostTarget) GeometryFor(kind SourceKind) (Surface, error) { return t.h.GeometrySurface(kind) }

func (t hostTarget) Draw(p Program, pass Pass, b Bindings) error { return t.h.Draw(p, pass, b) }

func (t hostTarget) Copy(src, dst Surface) error { return t.h.Copy(src, dst) }

func recordSinglePass(t *testing.T) (*Recording, Plan) {
	t.Helper()
	plan := BuildPasses(NewEffectConfig(WithBlurIterations(0)), 8, 8, Capabilities{Path: RenderPathForward})
	if len(plan.Passes) != 2 {
		t.Fatalf("len(Passes) = %d, want 2", len(plan.Passes))
	}
	r := NewRecording("obscurance")
	r.AcquireTemporary(SlotMask, SurfaceDescriptor{Width: 8, Height: 8, Format: SurfaceFormatR8Linear})
	r.Draw(Program{ID: 1}, plan.Passes[0])
	r.Draw(Program{ID: 1}, plan.Passes[1])
	r.ReleaseTemporary(SlotMask)
	return r, plan
}

func frameBindings() Bindings {
	var b Bindings
	b[SlotSource] = Surface{ID: 500, Width: 8, Height: 8, Format: SurfaceFormatColor}
	b[SlotDestination] = Surface{ID: 501, Width: 8, Height: 8, Format: SurfaceFormatColor}
	return b
}

func TestReplayRunsCommandsInOrder(t *testing.T) {
	h := newFakeHost(Capabilities{Path: RenderPathForward})
	r, plan := recordSinglePass(t)

	if err := Replay(r, hostTarget{h: h}, frameBindings()); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	want := []string{
		"acquire 8x8",
		"draw " + plan.Passes[0].Kind.String(),
		"draw " + plan.Passes[1].Kind.String(),
		"release 8x8",
	}
	if !slices.Equal(h.events, want) {
		t.Errorf("events = %v, want %v", h.events, want)
	}
	if len(h.live) != 0 {
		t.Errorf("live surfaces = %d, want 0", len(h.live))
	}
}

func TestReplayReleasesTemporariesOnFailure(t *testing.T) {
	h := newFakeHost(Capabilities{Path: RenderPathForward})
	r, plan := recordSinglePass(t)
	h.failDraw, h.failDrawSet = plan.Passes[1].Kind, true

	err := Replay(r, hostTarget{h: h}, frameBindings())
	if !errors.Is(err, errFake) {
		t.Errorf("Replay() error = %v, want %v", err, errFake)
	}
	if len(h.live) != 0 {
		t.Errorf("live surfaces = %d after a failed replay, want 0", len(h.live))
	}
}

func TestReplayGeometryFailure(t *testing.T) {
	h := newFakeHost(Capabilities{Path: RenderPathForward})
	h.failGeometry = true
	r, _ := recordSinglePass(t)

	if err := Replay(r, hostTarget{h: h}, frameBindings()); !errors.Is(err, errFake) {
		t.Errorf("Replay() error = %v, want %v", err, errFake)
	}
	if len(h.draws) != 0 {
		t.Errorf("draws = %d, want 0", len(h.draws))
	}
}

func TestRecordingRelease(t *testing.T) {
	r, _ := recordSinglePass(t)
	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", r.Len())
	}
	r.Release()
	r.Copy(SlotSource, SlotDestination)
	if r.Len() != 0 || len(r.Commands()) != 0 {
		t.Errorf("Len() = %d after Release, want 0", r.Len())
	}
}
