package obscurance

// ObserverState is the rebuild state of a ChangeObserver.
type ObserverState int

const (
	// ObserverStable means the cached resources and pass topology match the current state.
	ObserverStable ObserverState = iota
	// ObserverNeedsRebuild means the resources must be torn down and rebuilt before the next draw.
	ObserverNeedsRebuild
)

// String returns a readable name for the state.
func (s ObserverState) String() string {
	if s == ObserverStable {
		return "stable"
	}
	return "needs_rebuild"
}

// Snapshot holds the structural state that decides scratch sizing and pass topology.
// Cosmetic parameters are deliberately absent.
type Snapshot struct {
	AmbientOnly    bool
	Capabilities   Capabilities
	Width          int
	Height         int
	Downsample     bool
	BlurIterations int
}

// SnapshotOf captures the structural state of a frame.
//
// Parameters:
//   - cfg: the effect configuration
//   - caps: the host capabilities
//   - width: the source width in pixels
//   - height: the source height in pixels
//
// Returns:
//   - Snapshot: the structural state
func SnapshotOf(cfg EffectConfig, caps Capabilities, width, height int) Snapshot {
	return Snapshot{
		AmbientOnly:    cfg.AmbientOnly,
		Capabilities:   caps,
		Width:          width,
		Height:         height,
		Downsample:     cfg.Downsample,
		BlurIterations: cfg.EffectiveBlurIterations(),
	}
}

// changeObserver is the implementation of the ChangeObserver interface.
type changeObserver struct {
	state  ObserverState
	stable Snapshot
}

// ChangeObserver detects structural drift between frames.
type ChangeObserver interface {
	// State returns the current state.
	//
	// Returns:
	//   - ObserverState: the current state
	State() ObserverState

	// Invalidate forces the NeedsRebuild state.
	Invalidate()

	// Observe compares a frame's snapshot with the last stable one and moves to NeedsRebuild on any difference.
	//
	// Parameters:
	//   - s: the current frame's snapshot
	//
	// Returns:
	//   - ObserverState: the state after the comparison
	Observe(s Snapshot) ObserverState

	// MarkStable records a completed rebuild for the given snapshot.
	//
	// Parameters:
	//   - s: the snapshot the resources were built for
	MarkStable(s Snapshot)
}

var _ ChangeObserver = &changeObserver{}

// NewChangeObserver creates an observer in the NeedsRebuild state, since nothing has been built yet.
//
// Returns:
//   - ChangeObserver: a new observer
func NewChangeObserver() ChangeObserver {
	return &changeObserver{state: ObserverNeedsRebuild}
}

func (o *changeObserver) State() ObserverState {
	return o.state
}

func (o *changeObserver) Invalidate() {
	o.state = ObserverNeedsRebuild
}

func (o *changeObserver) Observe(s Snapshot) ObserverState {
	if o.state == ObserverStable && s != o.stable {
		o.state = ObserverNeedsRebuild
	}
	return o.state
}

func (o *changeObserver) MarkStable(s Snapshot) {
	o.stable = s
	o.state = ObserverStable
}
