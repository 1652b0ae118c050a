package obscurance

import (
	"errors"
	"testing"
)

func TestResourcePoolAcquireProgramCaches(t *testing.T) {
	h := newFakeHost(forwardCaps)
	pool := NewResourcePool(h, ProgramName)

	p1, err := pool.AcquireProgram()
	if err != nil {
		t.Fatalf("AcquireProgram() error = %v", err)
	}
	p2, err := pool.AcquireProgram()
	if err != nil {
		t.Fatalf("AcquireProgram() error = %v", err)
	}
	if p1 != p2 {
		t.Errorf("AcquireProgram() = %v then %v, want the cached program", p1, p2)
	}
	if h.programs != 1 {
		t.Errorf("host programs = %d, want 1", h.programs)
	}
	if got, ok := pool.Program(); !ok || got != p1 {
		t.Errorf("Program() = %v, %v, want %v, true", got, ok, p1)
	}
}

func TestResourcePoolAcquireProgramUnavailable(t *testing.T) {
	h := newFakeHost(forwardCaps)
	h.failLoad = true
	pool := NewResourcePool(h, "missing")

	_, err := pool.AcquireProgram()
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("AcquireProgram() error = %v, want ErrResourceUnavailable", err)
	}
	if !errors.Is(err, errFake) {
		t.Errorf("AcquireProgram() error = %v, want the host error wrapped", err)
	}
	if _, ok := pool.Program(); ok {
		t.Error("Program() ok = true after a failed load")
	}
}

func TestResourcePoolScratchSurface(t *testing.T) {
	h := newFakeHost(forwardCaps)
	pool := NewResourcePool(h, ProgramName)

	s, err := pool.ScratchSurface(64, 32)
	if err != nil {
		t.Fatalf("ScratchSurface() error = %v", err)
	}
	if s.Width != 64 || s.Height != 32 || s.Format != SurfaceFormatR8Linear {
		t.Errorf("ScratchSurface() = %+v, want 64x32 R8Linear", s)
	}
	if pool.Outstanding() != 1 {
		t.Errorf("Outstanding() = %d, want 1", pool.Outstanding())
	}

	pool.Release(s)
	if pool.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after Release, want 0", pool.Outstanding())
	}
	if len(h.live) != 0 {
		t.Errorf("host live surfaces = %d, want 0", len(h.live))
	}
}

func TestResourcePoolScratchSurfaceWrongSize(t *testing.T) {
	h := newFakeHost(forwardCaps)
	h.wrongSize = true
	pool := NewResourcePool(h, ProgramName)

	_, err := pool.ScratchSurface(16, 16)
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("ScratchSurface() error = %v, want ErrResourceUnavailable", err)
	}
	if len(h.live) != 0 {
		t.Errorf("host live surfaces = %d, want the mismatched surface released", len(h.live))
	}
	if pool.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", pool.Outstanding())
	}
}

func TestResourcePoolReleaseUntracked(t *testing.T) {
	h := newFakeHost(forwardCaps)
	pool := NewResourcePool(h, ProgramName)

	pool.Release(Surface{ID: 77})
	pool.Release(Surface{})
	if len(h.events) != 0 {
		t.Errorf("host events = %v, want none", h.events)
	}
}

func TestResourcePoolTeardownIdempotent(t *testing.T) {
	h := newFakeHost(deferredCaps)
	pool := NewResourcePool(h, ProgramName)

	if _, err := pool.AcquireProgram(); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if _, err := pool.ScratchSurface(8, 8); err != nil {
			t.Fatal(err)
		}
	}
	cl := h.NewCommandList("test")
	h.AttachCommandList(StageBeforeReflections, cl)
	pool.SetCommandList(StageBeforeReflections, cl)

	pool.Teardown()

	if len(h.live) != 0 {
		t.Errorf("host live surfaces = %d, want 0", len(h.live))
	}
	if h.programs != 0 {
		t.Errorf("host programs = %d, want 0", h.programs)
	}
	if len(h.attached[StageBeforeReflections]) != 0 {
		t.Error("command list still attached after Teardown")
	}
	if !h.lists[0].released {
		t.Error("command list not released after Teardown")
	}
	if pool.CommandList() != nil {
		t.Error("CommandList() != nil after Teardown")
	}

	events := len(h.events)
	pool.Teardown()
	if len(h.events) != events || h.destroyed != 1 {
		t.Errorf("second Teardown touched the host: events %d -> %d, destroyed %d", events, len(h.events), h.destroyed)
	}
}

func TestResourcePoolTeardownBeforeAcquire(t *testing.T) {
	h := newFakeHost(forwardCaps)
	pool := NewResourcePool(h, ProgramName)
	pool.Teardown()
	if len(h.events) != 0 {
		t.Errorf("host events = %v, want none", h.events)
	}
}

func TestResourcePoolSetCommandListReplaces(t *testing.T) {
	h := newFakeHost(deferredCaps)
	pool := NewResourcePool(h, ProgramName)

	first := h.NewCommandList("first")
	h.AttachCommandList(StageBeforeReflections, first)
	pool.SetCommandList(StageBeforeReflections, first)

	second := h.NewCommandList("second")
	h.AttachCommandList(StageBeforeReflections, second)
	pool.SetCommandList(StageBeforeReflections, second)

	if !h.lists[0].released {
		t.Error("first list not released when replaced")
	}
	if got := h.attached[StageBeforeReflections]; len(got) != 1 || got[0] != second {
		t.Errorf("attached lists = %v, want only the second", got)
	}
}

func TestNewResourcePoolNilHostPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewResourcePool(nil) did not panic")
		}
	}()
	NewResourcePool(nil, ProgramName)
}
