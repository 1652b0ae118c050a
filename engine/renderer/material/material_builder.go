package material

import "github.com/Carmen-Shannon/oxy-ao/engine/obscurance"

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithProgram is an option builder that binds the material to a loaded program.
//
// Parameters:
//   - p: the program handle
//
// Returns:
//   - MaterialBuilderOption: a function that applies the program option to a material
func WithProgram(p obscurance.Program) MaterialBuilderOption {
	return func(m *material) {
		m.program = p
	}
}

// WithFieldOfView is an option builder that sets the vertical field of view, in degrees, used to
// reconstruct view-space positions from linear depth.
//
// Parameters:
//   - degrees: the vertical field of view
//
// Returns:
//   - MaterialBuilderOption: a function that applies the field of view option to a material
func WithFieldOfView(degrees float32) MaterialBuilderOption {
	return func(m *material) {
		if degrees > 0 && degrees < 180 {
			m.fieldOfView = degrees
		}
	}
}
