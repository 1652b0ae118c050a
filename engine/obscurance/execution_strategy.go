package obscurance

import "fmt"

// StrategyKind identifies when the pipeline's GPU commands are issued.
type StrategyKind int

const (
	// StrategyImmediate issues every pass inline during the frame callback.
	StrategyImmediate StrategyKind = iota
	// StrategyDeferred records the passes once into a command list the host replays every frame.
	StrategyDeferred
)

// String returns a readable name for the strategy.
func (k StrategyKind) String() string {
	if k == StrategyDeferred {
		return "deferred"
	}
	return "immediate"
}

// selectStrategy picks the deferred strategy only for ambient-only output on a host that supports it.
func selectStrategy(cfg EffectConfig, caps Capabilities) StrategyKind {
	if cfg.AmbientOnly && caps.AmbientOnlySupported() {
		return StrategyDeferred
	}
	return StrategyImmediate
}

// executionStrategy realizes a Plan. Both variants walk the plan through encodePlan, so they issue
// the same passes in the same order with the same bindings.
type executionStrategy interface {
	kind() StrategyKind

	// prepare runs once per rebuild with the freshly built plan.
	prepare(plan *Plan, program Program) error

	// execute runs once per frame.
	execute(plan *Plan, program Program, source, destination Surface) error
}

// passEncoder consumes the passes of a plan.
type passEncoder interface {
	acquire(span ScratchSpan) error
	release(slot Slot)
	draw(pass Pass) error
	copy(pass Pass) error
}

// encodePlan feeds a plan to an encoder, acquiring every scratch slot right before its first pass
// and releasing it right after its last. Slots still held when a pass fails are released before
// returning.
func encodePlan(enc passEncoder, plan *Plan, fuse bool) (err error) {
	if fuse && plan.Fused() {
		return enc.draw(plan.FusedPass())
	}

	var held [slotCount]bool
	defer func() {
		for slot := range held {
			if held[slot] {
				enc.release(Slot(slot))
			}
		}
	}()

	for i, pass := range plan.Passes {
		for _, span := range plan.Scratch {
			if span.First != i {
				continue
			}
			if err := enc.acquire(span); err != nil {
				return err
			}
			held[span.Slot] = true
		}

		if pass.Kind == PassCopy {
			err = enc.copy(pass)
		} else {
			err = enc.draw(pass)
		}
		if err != nil {
			return fmt.Errorf("%s pass: %w", pass.Kind, err)
		}

		for _, span := range plan.Scratch {
			if span.Last == i && held[span.Slot] {
				enc.release(span.Slot)
				held[span.Slot] = false
			}
		}
	}
	return nil
}

// immediateStrategy draws every pass inline. Scratch surfaces never outlive one execute call.
type immediateStrategy struct {
	host Host
	pool ResourcePool
	fuse bool

	enc immediateEncoder
}

func newImmediateStrategy(host Host, pool ResourcePool, fuse bool) *immediateStrategy {
	return &immediateStrategy{
		host: host,
		pool: pool,
		fuse: fuse,
		enc:  immediateEncoder{host: host, pool: pool},
	}
}

func (s *immediateStrategy) kind() StrategyKind {
	return StrategyImmediate
}

func (s *immediateStrategy) prepare(*Plan, Program) error {
	return nil
}

func (s *immediateStrategy) execute(plan *Plan, program Program, source, destination Surface) error {
	s.enc.program = program
	s.enc.bindings = Bindings{}
	s.enc.bindings[SlotSource] = source
	s.enc.bindings[SlotDestination] = destination

	if !plan.Passthrough {
		kind := plan.Passes[0].Parameters.Source
		geometry, err := s.host.GeometrySurface(kind)
		if err != nil {
			return fmt.Errorf("%w: geometry surface: %w", ErrResourceUnavailable, err)
		}
		s.enc.bindings[SlotGeometry] = geometry
	}

	return encodePlan(&s.enc, plan, s.fuse)
}

// immediateEncoder binds slots to concrete surfaces and issues each pass on the host.
type immediateEncoder struct {
	host     Host
	pool     ResourcePool
	program  Program
	bindings Bindings
}

func (e *immediateEncoder) acquire(span ScratchSpan) error {
	s, err := e.pool.ScratchSurface(span.Width, span.Height)
	if err != nil {
		return err
	}
	e.bindings[span.Slot] = s
	return nil
}

func (e *immediateEncoder) release(slot Slot) {
	e.pool.Release(e.bindings[slot])
	e.bindings[slot] = Surface{}
}

func (e *immediateEncoder) draw(pass Pass) error {
	return e.host.Draw(e.program, pass, e.bindings)
}

func (e *immediateEncoder) copy(pass Pass) error {
	return e.host.Copy(e.bindings[pass.Inputs[0]], e.bindings[pass.Outputs[0]])
}

// deferredStrategy records the plan into a command list attached at a host stage. The per-frame
// callback only copies the source through, since the replayed list does the real work.
type deferredStrategy struct {
	host  Host
	pool  ResourcePool
	stage Stage
	fuse  bool
}

func newDeferredStrategy(host Host, pool ResourcePool, stage Stage, fuse bool) *deferredStrategy {
	return &deferredStrategy{
		host:  host,
		pool:  pool,
		stage: stage,
		fuse:  fuse,
	}
}

func (s *deferredStrategy) kind() StrategyKind {
	return StrategyDeferred
}

func (s *deferredStrategy) prepare(plan *Plan, program Program) error {
	cl := s.host.NewCommandList("Ambient Obscurance")
	if err := encodePlan(&recordingEncoder{list: cl, program: program}, plan, s.fuse); err != nil {
		cl.Release()
		return err
	}
	s.host.AttachCommandList(s.stage, cl)
	s.pool.SetCommandList(s.stage, cl)
	Logger().Debug("obscurance command list recorded", "stage", s.stage, "commands", cl.Len())
	return nil
}

func (s *deferredStrategy) execute(_ *Plan, _ Program, source, destination Surface) error {
	return s.host.Copy(source, destination)
}

// recordingEncoder appends each pass to a command list. Temporaries are requested and released
// inside the list, so the host allocates them at replay.
type recordingEncoder struct {
	list    CommandList
	program Program
}

func (e *recordingEncoder) acquire(span ScratchSpan) error {
	e.list.AcquireTemporary(span.Slot, SurfaceDescriptor{
		Label:  "Obscurance Scratch",
		Width:  span.Width,
		Height: span.Height,
		Format: SurfaceFormatR8Linear,
	})
	return nil
}

func (e *recordingEncoder) release(slot Slot) {
	e.list.ReleaseTemporary(slot)
}

func (e *recordingEncoder) draw(pass Pass) error {
	e.list.Draw(e.program, pass)
	return nil
}

func (e *recordingEncoder) copy(pass Pass) error {
	e.list.Copy(pass.Inputs[0], pass.Outputs[0])
	return nil
}
