package obscurance

import (
	"errors"
	"slices"
	"testing"
)

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name string
		cfg  EffectConfig
		caps Capabilities
		want StrategyKind
	}{
		{"forward", NewEffectConfig(), forwardCaps, StrategyImmediate},
		{"deferred colour", NewEffectConfig(), deferredCaps, StrategyImmediate},
		{"ambient ldr", NewEffectConfig(WithAmbientOnly(true)), deferredLDR, StrategyImmediate},
		{"ambient forward", NewEffectConfig(WithAmbientOnly(true)), forwardCaps, StrategyImmediate},
		{"ambient hdr", NewEffectConfig(WithAmbientOnly(true)), deferredCaps, StrategyDeferred},
	}
	for _, tt := range tests {
		if got := selectStrategy(tt.cfg, tt.caps); got != tt.want {
			t.Errorf("%s: selectStrategy() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEncodePlanScratchLifetimes(t *testing.T) {
	plan := BuildPasses(NewEffectConfig(WithBlurIterations(1)), 16, 16, forwardCaps)
	var enc recordingPassEncoder
	if err := encodePlan(&enc, &plan, true); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"acquire mask 16x16",
		"draw estimate",
		"acquire blur_scratch 16x16",
		"draw blur_horizontal",
		"draw blur_vertical",
		"release blur_scratch",
		"draw combine",
		"release mask",
	}
	if !slices.Equal(enc.ops, want) {
		t.Errorf("ops = %v, want %v", enc.ops, want)
	}
}

func TestEncodePlanReleasesOnError(t *testing.T) {
	plan := BuildPasses(NewEffectConfig(WithBlurIterations(2)), 16, 16, forwardCaps)
	enc := recordingPassEncoder{fail: true, failOn: PassBlurVertical}

	err := encodePlan(&enc, &plan, true)
	if !errors.Is(err, errFake) {
		t.Fatalf("encodePlan() error = %v, want errFake", err)
	}
	acquired, released := 0, 0
	for _, op := range enc.ops {
		switch op[:7] {
		case "acquire":
			acquired++
		case "release":
			released++
		}
	}
	if acquired != 2 || released != 2 {
		t.Errorf("acquired %d, released %d, want 2 and 2: %v", acquired, released, enc.ops)
	}
}

func TestEncodePlanFused(t *testing.T) {
	plan := BuildPasses(NewEffectConfig(WithBlurIterations(0)), 16, 16, forwardCaps)

	var fused recordingPassEncoder
	if err := encodePlan(&fused, &plan, true); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(fused.ops, []string{"draw estimate_combine"}) {
		t.Errorf("fused ops = %v", fused.ops)
	}

	var split recordingPassEncoder
	if err := encodePlan(&split, &plan, false); err != nil {
		t.Fatal(err)
	}
	if got := kinds(split.passes); !slices.Equal(got, []PassKind{PassEstimate, PassCombine}) {
		t.Errorf("unfused passes = %v", got)
	}
}

func TestStrategiesIssueSamePasses(t *testing.T) {
	cfg := NewEffectConfig(WithBlurIterations(3), WithDownsample(true))
	plan := BuildPasses(cfg, 128, 96, deferredCaps)
	program := Program{ID: 1, Name: ProgramName}

	immediateHost := newFakeHost(deferredCaps)
	immediatePool := NewResourcePool(immediateHost, ProgramName)
	imm := newImmediateStrategy(immediateHost, immediatePool, true)
	if err := imm.execute(&plan, program, colorSurface(500, 128, 96), colorSurface(501, 128, 96)); err != nil {
		t.Fatalf("immediate execute() error = %v", err)
	}

	deferredHost := newFakeHost(deferredCaps)
	deferredPool := NewResourcePool(deferredHost, ProgramName)
	def := newDeferredStrategy(deferredHost, deferredPool, StageBeforeReflections, true)
	if err := def.prepare(&plan, program); err != nil {
		t.Fatalf("deferred prepare() error = %v", err)
	}

	recorded := deferredHost.lists[0].passes
	if got, want := kinds(recorded), kinds(immediateHost.draws); !slices.Equal(got, want) {
		t.Fatalf("recorded passes = %v, immediate draws = %v", got, want)
	}
	for i := range recorded {
		r, d := recorded[i], immediateHost.draws[i]
		if r.Width != d.Width || r.Height != d.Height || r.BlurVector != d.BlurVector ||
			!slices.Equal(r.Inputs, d.Inputs) || !slices.Equal(r.Outputs, d.Outputs) {
			t.Errorf("pass %d: recorded %v, immediate %v", i, r, d)
		}
	}
	if immediatePool.Outstanding() != 0 || len(immediateHost.live) != 0 {
		t.Errorf("immediate left %d surfaces outstanding", len(immediateHost.live))
	}
}

func TestDeferredStrategyAttaches(t *testing.T) {
	h := newFakeHost(deferredCaps)
	pool := NewResourcePool(h, ProgramName)
	plan := BuildPasses(NewEffectConfig(WithAmbientOnly(true), WithBlurIterations(1)), 32, 32, deferredCaps)
	s := newDeferredStrategy(h, pool, StageBeforeReflections, true)

	if err := s.prepare(&plan, Program{ID: 1}); err != nil {
		t.Fatal(err)
	}
	if got := h.attached[StageBeforeReflections]; len(got) != 1 {
		t.Fatalf("attached lists = %d, want 1", len(got))
	}
	if pool.CommandList() == nil {
		t.Error("pool does not own the recorded list")
	}
	want := []string{
		"acquire mask 32x32",
		"draw estimate",
		"acquire blur_scratch 32x32",
		"draw blur_horizontal",
		"draw blur_vertical",
		"release blur_scratch",
		"draw combine",
		"release mask",
	}
	if !slices.Equal(h.lists[0].ops, want) {
		t.Errorf("recorded ops = %v, want %v", h.lists[0].ops, want)
	}

	src, dst := colorSurface(500, 32, 32), colorSurface(501, 32, 32)
	if err := s.execute(&plan, Program{ID: 1}, src, dst); err != nil {
		t.Fatal(err)
	}
	if len(h.copies) != 1 || h.copies[0] != [2]Surface{src, dst} {
		t.Errorf("copies = %v, want one source to destination copy", h.copies)
	}
	if len(h.draws) != 0 {
		t.Errorf("per-frame draws = %d, want 0", len(h.draws))
	}
}

func TestImmediateStrategyPassthrough(t *testing.T) {
	h := newFakeHost(forwardCaps)
	h.failGeometry = true
	pool := NewResourcePool(h, ProgramName)
	plan := BuildPasses(NewEffectConfig(WithAmbientOnly(true)), 32, 32, forwardCaps)
	s := newImmediateStrategy(h, pool, true)

	src, dst := colorSurface(500, 32, 32), colorSurface(501, 32, 32)
	if err := s.execute(&plan, Program{}, src, dst); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if len(h.draws) != 0 {
		t.Errorf("draws = %d, want 0", len(h.draws))
	}
	if len(h.copies) != 1 || h.copies[0] != [2]Surface{src, dst} {
		t.Errorf("copies = %v, want one source to destination copy", h.copies)
	}
}

func TestImmediateStrategyAcquireFailure(t *testing.T) {
	h := newFakeHost(forwardCaps)
	h.failAcquire = 2
	pool := NewResourcePool(h, ProgramName)
	plan := BuildPasses(NewEffectConfig(WithBlurIterations(1)), 32, 32, forwardCaps)
	s := newImmediateStrategy(h, pool, true)

	err := s.execute(&plan, Program{ID: 1}, colorSurface(500, 32, 32), colorSurface(501, 32, 32))
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("execute() error = %v, want ErrResourceUnavailable", err)
	}
	if pool.Outstanding() != 0 || len(h.live) != 0 {
		t.Errorf("outstanding = %d, live = %d, want 0 and 0", pool.Outstanding(), len(h.live))
	}
}
