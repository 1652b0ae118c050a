package obscurance

import "fmt"

// PassKind identifies which program variant a pass runs.
type PassKind int

const (
	// PassEstimate samples the geometry surface and writes the raw occlusion mask.
	PassEstimate PassKind = iota
	// PassBlurHorizontal runs the horizontal half of the geometry-aware blur.
	PassBlurHorizontal
	// PassBlurVertical runs the vertical half of the geometry-aware blur.
	PassBlurVertical
	// PassCombine composites the mask into the destination.
	PassCombine
	// PassCopy copies the source into the destination unmodified.
	PassCopy
	// PassEstimateCombine estimates and composites in a single dispatch.
	PassEstimateCombine
)

var passKindNames = [...]string{
	PassEstimate:        "estimate",
	PassBlurHorizontal:  "blur_horizontal",
	PassBlurVertical:    "blur_vertical",
	PassCombine:         "combine",
	PassCopy:            "copy",
	PassEstimateCombine: "estimate_combine",
}

// String returns the program variant name of the pass kind.
func (k PassKind) String() string {
	if k < 0 || int(k) >= len(passKindNames) {
		return fmt.Sprintf("pass_kind(%d)", int(k))
	}
	return passKindNames[k]
}

// Slot is a symbolic surface binding. Passes reference slots, not surfaces, so one pass list
// can be bound immediately or recorded into a command list and bound at replay.
type Slot int

const (
	// SlotSource is the full-resolution source colour surface.
	SlotSource Slot = iota
	// SlotGeometry is the depth/normal surface or G-buffer.
	SlotGeometry
	// SlotMask is the working-resolution occlusion mask.
	SlotMask
	// SlotBlurScratch is the working-resolution intermediate of a blur pair.
	SlotBlurScratch
	// SlotDestination is the full-resolution destination colour surface.
	SlotDestination
	// SlotAlbedoTarget is the deferred albedo target.
	SlotAlbedoTarget
	// SlotAmbientTarget is the deferred ambient target.
	SlotAmbientTarget

	slotCount
)

var slotNames = [...]string{
	SlotSource:        "source",
	SlotGeometry:      "geometry",
	SlotMask:          "mask",
	SlotBlurScratch:   "blur_scratch",
	SlotDestination:   "destination",
	SlotAlbedoTarget:  "albedo_target",
	SlotAmbientTarget: "ambient_target",
}

// String returns the slot name.
func (s Slot) String() string {
	if s < 0 || s >= slotCount {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// Scratch reports whether the slot is a pool-allocated scratch surface.
func (s Slot) Scratch() bool {
	return s == SlotMask || s == SlotBlurScratch
}

// SourceKind selects the geometry source sampled by the Estimate pass.
type SourceKind int

const (
	// SourceDepthNormals samples the host's combined depth/normal surface.
	SourceDepthNormals SourceKind = iota
	// SourceGBuffer samples the deferred G-buffer.
	SourceGBuffer
)

// ProgramParameters is the parameter set pushed to the occlusion program.
type ProgramParameters struct {
	Intensity   float32
	Radius      float32
	Contrast    float32
	FallOff     float32
	Estimator   EstimatorMode
	SampleCount int
	Source      SourceKind
	Downsample  bool
	AmbientOnly bool
}

// parametersFor derives the program parameter set from the effective configuration values.
func parametersFor(cfg EffectConfig, caps Capabilities) ProgramParameters {
	source := SourceDepthNormals
	if caps.GBufferAvailable() {
		source = SourceGBuffer
	}
	return ProgramParameters{
		Intensity:   cfg.EffectiveIntensity(),
		Radius:      cfg.EffectiveRadius(),
		Contrast:    Contrast,
		FallOff:     FallOff,
		Estimator:   cfg.EffectiveEstimator(),
		SampleCount: cfg.EffectiveSampleCount(),
		Source:      source,
		Downsample:  cfg.Downsample,
		AmbientOnly: cfg.AmbientOnly && caps.AmbientOnlySupported(),
	}
}

// Pass describes one draw of the pipeline. Inputs and Outputs are shared read-only slices.
type Pass struct {
	Kind    PassKind
	Inputs  []Slot
	Outputs []Slot
	// Width and Height are the render size of the pass outputs.
	Width  int
	Height int
	// BlurVector is the tap direction and spacing of blur passes, zero otherwise.
	BlurVector [2]float32
	Parameters ProgramParameters
}

// String returns a compact description used in debug logs.
func (p Pass) String() string {
	return fmt.Sprintf("%s %v->%v %dx%d", p.Kind, p.Inputs, p.Outputs, p.Width, p.Height)
}

var (
	estimateInputs      = []Slot{SlotGeometry}
	maskOutputs         = []Slot{SlotMask}
	maskInputs          = []Slot{SlotMask}
	blurScratchSlots    = []Slot{SlotBlurScratch}
	combineInputs       = []Slot{SlotSource, SlotMask}
	destinationOutputs  = []Slot{SlotDestination}
	sourceInputs        = []Slot{SlotSource}
	ambientOutputs      = []Slot{SlotAlbedoTarget, SlotAmbientTarget}
	fusedInputs         = []Slot{SlotSource, SlotGeometry}
	horizontalBlurTaps  = [2]float32{1, 0}
	verticalBlurTaps    = [2]float32{0, 1}
	verticalBlurTapsLow = [2]float32{0, 2}
)
