package obscurance

import "testing"

func TestChangeObserverStartsDirty(t *testing.T) {
	o := NewChangeObserver()
	if o.State() != ObserverNeedsRebuild {
		t.Errorf("State() = %v, want needs_rebuild", o.State())
	}
}

func TestChangeObserverTransitions(t *testing.T) {
	cfg := NewEffectConfig()
	base := SnapshotOf(cfg, forwardCaps, 640, 480)

	tests := []struct {
		name  string
		next  Snapshot
		state ObserverState
	}{
		{"same", base, ObserverStable},
		{"resize", SnapshotOf(cfg, forwardCaps, 800, 600), ObserverNeedsRebuild},
		{"path", SnapshotOf(cfg, deferredLDR, 640, 480), ObserverNeedsRebuild},
		{"hdr", SnapshotOf(cfg, Capabilities{HDR: true}, 640, 480), ObserverNeedsRebuild},
		{"downsample", SnapshotOf(NewEffectConfig(WithDownsample(true)), forwardCaps, 640, 480), ObserverNeedsRebuild},
		{"blur", SnapshotOf(NewEffectConfig(WithBlurIterations(3)), forwardCaps, 640, 480), ObserverNeedsRebuild},
		{"ambient", SnapshotOf(NewEffectConfig(WithAmbientOnly(true)), forwardCaps, 640, 480), ObserverNeedsRebuild},
		{"intensity", SnapshotOf(NewEffectConfig(WithIntensity(0.1)), forwardCaps, 640, 480), ObserverStable},
		{"radius", SnapshotOf(NewEffectConfig(WithRadius(2)), forwardCaps, 640, 480), ObserverStable},
		{"samples", SnapshotOf(NewEffectConfig(WithSampleCount(90)), forwardCaps, 640, 480), ObserverStable},
		{"clamped blur", SnapshotOf(NewEffectConfig(WithBlurIterations(2)), forwardCaps, 640, 480), ObserverStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewChangeObserver()
			o.MarkStable(base)
			if got := o.Observe(tt.next); got != tt.state {
				t.Errorf("Observe() = %v, want %v", got, tt.state)
			}
		})
	}
}

func TestChangeObserverSticky(t *testing.T) {
	base := SnapshotOf(NewEffectConfig(), forwardCaps, 10, 10)
	o := NewChangeObserver()
	o.MarkStable(base)
	o.Invalidate()
	if got := o.Observe(base); got != ObserverNeedsRebuild {
		t.Errorf("Observe() after Invalidate = %v, want needs_rebuild", got)
	}
	o.MarkStable(base)
	if got := o.Observe(base); got != ObserverStable {
		t.Errorf("Observe() after MarkStable = %v, want stable", got)
	}
}
