package obscurance

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ao/common"
)

// ScratchSpan gives the size of a scratch slot and the index range of the passes that use it.
// The surface is acquired before pass First and released after pass Last.
type ScratchSpan struct {
	Slot   Slot
	Width  int
	Height int
	First  int
	Last   int
}

// Plan is the ordered pass list for one configuration.
type Plan struct {
	Passes  []Pass
	Scratch []ScratchSpan

	SourceWidth   int
	SourceHeight  int
	WorkingWidth  int
	WorkingHeight int

	// Passthrough is set when the plan is a single unmodified copy.
	Passthrough bool
	// AmbientOnly is set when the Combine pass writes the deferred ambient and albedo targets.
	AmbientOnly bool
}

// BuildPasses computes the pass list for a configuration and source size.
//
// Parameters:
//   - cfg: the effect configuration, read through its Effective accessors
//   - sourceWidth: the source surface width in pixels
//   - sourceHeight: the source surface height in pixels
//   - caps: the host capabilities; GBufferAvailable selects the geometry source
//
// Returns:
//   - Plan: the ordered passes and their scratch spans
func BuildPasses(cfg EffectConfig, sourceWidth, sourceHeight int, caps Capabilities) Plan {
	var p Plan
	p.Build(cfg, sourceWidth, sourceHeight, caps)
	return p
}

// Build recomputes the plan in place, reusing the capacity of its slices.
//
// Parameters:
//   - cfg: the effect configuration, read through its Effective accessors
//   - sourceWidth: the source surface width in pixels
//   - sourceHeight: the source surface height in pixels
//   - caps: the host capabilities
func (p *Plan) Build(cfg EffectConfig, sourceWidth, sourceHeight int, caps Capabilities) {
	p.Passes = p.Passes[:0]
	p.Scratch = p.Scratch[:0]
	p.SourceWidth, p.SourceHeight = sourceWidth, sourceHeight
	p.WorkingWidth, p.WorkingHeight = sourceWidth, sourceHeight
	p.Passthrough = false
	p.AmbientOnly = false

	if cfg.AmbientOnly && !caps.AmbientOnlySupported() {
		p.Passthrough = true
		p.Passes = append(p.Passes, Pass{
			Kind:    PassCopy,
			Inputs:  sourceInputs,
			Outputs: destinationOutputs,
			Width:   sourceWidth,
			Height:  sourceHeight,
		})
		return
	}
	p.AmbientOnly = cfg.AmbientOnly

	if cfg.Downsample {
		p.WorkingWidth = common.HalveDimension(sourceWidth)
		p.WorkingHeight = common.HalveDimension(sourceHeight)
	}

	params := parametersFor(cfg, caps)

	p.Passes = append(p.Passes, Pass{
		Kind:       PassEstimate,
		Inputs:     estimateInputs,
		Outputs:    maskOutputs,
		Width:      p.WorkingWidth,
		Height:     p.WorkingHeight,
		Parameters: params,
	})

	iterations := cfg.EffectiveBlurIterations()
	if iterations > 0 {
		vertical := verticalBlurTaps
		if cfg.Downsample {
			vertical = verticalBlurTapsLow
		}
		firstBlur := len(p.Passes)
		for range iterations {
			p.Passes = append(p.Passes,
				Pass{
					Kind:       PassBlurHorizontal,
					Inputs:     maskInputs,
					Outputs:    blurScratchSlots,
					Width:      p.WorkingWidth,
					Height:     p.WorkingHeight,
					BlurVector: horizontalBlurTaps,
					Parameters: params,
				},
				Pass{
					Kind:       PassBlurVertical,
					Inputs:     blurScratchSlots,
					Outputs:    maskOutputs,
					Width:      p.WorkingWidth,
					Height:     p.WorkingHeight,
					BlurVector: vertical,
					Parameters: params,
				},
			)
		}
		p.Scratch = append(p.Scratch, ScratchSpan{
			Slot:   SlotBlurScratch,
			Width:  p.WorkingWidth,
			Height: p.WorkingHeight,
			First:  firstBlur,
			Last:   len(p.Passes) - 1,
		})
	}

	combine := Pass{
		Kind:       PassCombine,
		Inputs:     combineInputs,
		Outputs:    destinationOutputs,
		Width:      sourceWidth,
		Height:     sourceHeight,
		Parameters: params,
	}
	if p.AmbientOnly {
		combine.Inputs = maskInputs
		combine.Outputs = ambientOutputs
	}
	p.Passes = append(p.Passes, combine)

	// the mask lives from the estimate to the combine
	p.Scratch = append(p.Scratch, ScratchSpan{
		Slot:   SlotMask,
		Width:  p.WorkingWidth,
		Height: p.WorkingHeight,
		First:  0,
		Last:   len(p.Passes) - 1,
	})
}

// Fused reports whether Estimate followed directly by Combine can run as one PassEstimateCombine dispatch.
//
// Returns:
//   - bool: true without blur, downsampling, pass-through or ambient-only output
func (p *Plan) Fused() bool {
	return !p.Passthrough && !p.AmbientOnly &&
		len(p.Passes) == 2 &&
		p.Passes[0].Kind == PassEstimate && p.Passes[1].Kind == PassCombine &&
		!p.Passes[0].Parameters.Downsample
}

// FusedPass returns the single-dispatch equivalent of the plan's Estimate and Combine passes.
// It is only meaningful when Fused reports true.
//
// Returns:
//   - Pass: the fused pass
func (p *Plan) FusedPass() Pass {
	return Pass{
		Kind:       PassEstimateCombine,
		Inputs:     fusedInputs,
		Outputs:    destinationOutputs,
		Width:      p.SourceWidth,
		Height:     p.SourceHeight,
		Parameters: p.Passes[0].Parameters,
	}
}

// Count returns the number of passes of the given kind.
//
// Parameters:
//   - kind: the pass kind to count
//
// Returns:
//   - int: the number of matching passes
func (p *Plan) Count(kind PassKind) int {
	n := 0
	for i := range p.Passes {
		if p.Passes[i].Kind == kind {
			n++
		}
	}
	return n
}

// ScratchSlots returns the number of distinct scratch slots the plan uses.
//
// Returns:
//   - int: the number of scratch spans
func (p *Plan) ScratchSlots() int {
	return len(p.Scratch)
}

// Validate checks the ordering rules of the pass list: a pass-through plan is a single copy;
// otherwise exactly one Estimate comes first, blur passes come in horizontal then vertical
// pairs that read the previous pair's output, and exactly one Combine comes last.
//
// Returns:
//   - error: a description of the first violated rule, or nil
func (p *Plan) Validate() error {
	if len(p.Passes) == 0 {
		return errors.New("plan has no passes")
	}
	if p.Passthrough {
		if len(p.Passes) != 1 || p.Passes[0].Kind != PassCopy {
			return errors.New("pass-through plan must be a single copy")
		}
		return nil
	}
	if p.Passes[0].Kind != PassEstimate {
		return fmt.Errorf("first pass is %s, want %s", p.Passes[0].Kind, PassEstimate)
	}
	last := len(p.Passes) - 1
	if p.Passes[last].Kind != PassCombine {
		return fmt.Errorf("last pass is %s, want %s", p.Passes[last].Kind, PassCombine)
	}
	blur := p.Passes[1:last]
	if len(blur)%2 != 0 {
		return fmt.Errorf("odd number of blur passes: %d", len(blur))
	}
	for i := 0; i < len(blur); i += 2 {
		h, v := blur[i], blur[i+1]
		if h.Kind != PassBlurHorizontal || v.Kind != PassBlurVertical {
			return fmt.Errorf("blur pair %d is %s/%s", i/2, h.Kind, v.Kind)
		}
		if h.Inputs[0] != SlotMask || h.Outputs[0] != v.Inputs[0] || v.Outputs[0] != SlotMask {
			return fmt.Errorf("blur pair %d does not chain through the mask", i/2)
		}
	}
	return nil
}
