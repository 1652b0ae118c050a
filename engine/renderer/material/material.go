package material

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ao/common"
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

// material is the implementation of the Material interface.
type material struct {
	name         string
	program      obscurance.Program
	fieldOfView  float32
	parameters   obscurance.ProgramParameters
	pushed       bool
	pipelineKeys map[string]string
}

// Material is the GPU-side state of one loaded occlusion program: the last parameter set pushed
// by the pipeline and the render pipeline used by each pass kind.
//
// Structural values (source, downsampling, ambient-only, blur taps, render size) always come from
// the pass being drawn. Cosmetic values (intensity, radius, estimator, sample count, contrast,
// fall-off) come from the last push so command lists recorded earlier pick them up at replay.
type Material interface {
	// Name retrieves the program name this material was created for.
	//
	// Returns:
	//   - string: the program name
	Name() string

	// Program retrieves the program handle this material belongs to.
	//
	// Returns:
	//   - obscurance.Program: the program handle
	Program() obscurance.Program

	// Parameters retrieves the last pushed parameter set.
	//
	// Returns:
	//   - obscurance.ProgramParameters: the pushed parameters
	//   - bool: false if nothing was pushed yet
	Parameters() (obscurance.ProgramParameters, bool)

	// SetParameters stores a pushed parameter set.
	//
	// Parameters:
	//   - params: the parameter set
	SetParameters(params obscurance.ProgramParameters)

	// Uniform builds the uniform block for one draw of a pass.
	//
	// Parameters:
	//   - pass: the pass being drawn
	//
	// Returns:
	//   - GPUObscuranceParams: the uniform block ready to marshal
	Uniform(pass obscurance.Pass) GPUObscuranceParams

	// PipelineKey retrieves the key of the render pipeline that runs a program variant.
	//
	// Parameters:
	//   - variant: the variant name (e.g. "estimate", "combine_ambient")
	//
	// Returns:
	//   - string: the pipeline key, or an empty string if none was set
	PipelineKey(variant string) string

	// SetPipelineKey sets the render pipeline key for a program variant.
	//
	// Parameters:
	//   - variant: the variant name
	//   - key: the pipeline key
	SetPipelineKey(variant, key string)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// A program handle must be supplied through WithProgram.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		fieldOfView:  60,
		pipelineKeys: make(map[string]string),
	}
	for _, opt := range options {
		opt(m)
	}
	if !m.program.Valid() {
		panic(fmt.Sprintf("material: %q requires a valid program", m.name))
	}
	if m.name == "" {
		m.name = m.program.Name
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Program() obscurance.Program {
	return m.program
}

func (m *material) Parameters() (obscurance.ProgramParameters, bool) {
	return m.parameters, m.pushed
}

func (m *material) SetParameters(params obscurance.ProgramParameters) {
	m.parameters = params
	m.pushed = true
}

func (m *material) Uniform(pass obscurance.Pass) GPUObscuranceParams {
	params := pass.Parameters
	if m.pushed {
		params.Intensity = m.parameters.Intensity
		params.Radius = m.parameters.Radius
		params.Contrast = m.parameters.Contrast
		params.FallOff = m.parameters.FallOff
		params.Estimator = m.parameters.Estimator
		params.SampleCount = m.parameters.SampleCount
	}

	u := GPUObscuranceParams{
		Intensity:   params.Intensity,
		Radius:      params.Radius,
		Contrast:    params.Contrast,
		FallOff:     params.FallOff,
		Estimator:   uint32(params.Estimator),
		SampleCount: uint32(max(params.SampleCount, 1)),
		BlurVector:  pass.BlurVector,
		TanHalfFOV:  common.TanHalfFOV(m.fieldOfView),
		Aspect:      1,
		TargetSize:  [2]float32{float32(pass.Width), float32(pass.Height)},
	}
	if params.Downsample {
		u.Downsample = 1
	}
	if params.AmbientOnly {
		u.AmbientOnly = 1
	}
	if pass.Height > 0 {
		u.Aspect = float32(pass.Width) / float32(pass.Height)
	}
	return u
}

func (m *material) PipelineKey(variant string) string {
	return m.pipelineKeys[variant]
}

func (m *material) SetPipelineKey(variant, key string) {
	m.pipelineKeys[variant] = key
}
