package renderer

import (
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLibrary sets the shader library programs are loaded from. The embedded library is used
// when not specified.
//
// Parameters:
//   - lib: the shader library
//
// Returns:
//   - RendererBuilderOption: a function that applies the library option to a renderer
func WithLibrary(lib shader.Library) RendererBuilderOption {
	return func(r *renderer) {
		r.library = lib
	}
}

// WithCapabilities sets the render path and HDR state the renderer reports.
//
// Parameters:
//   - caps: the capabilities to report
//
// Returns:
//   - RendererBuilderOption: a function that applies the capabilities option to a renderer
func WithCapabilities(caps obscurance.Capabilities) RendererBuilderOption {
	return func(r *renderer) {
		r.caps = caps
	}
}

// WithFieldOfView sets the vertical field of view, in degrees, used to reconstruct view-space
// positions from linear depth. Values outside (0, 180) are ignored.
//
// Parameters:
//   - degrees: the vertical field of view
//
// Returns:
//   - RendererBuilderOption: a function that applies the field of view option to a renderer
func WithFieldOfView(degrees float32) RendererBuilderOption {
	return func(r *renderer) {
		if degrees > 0 && degrees < 180 {
			r.fieldOfView = degrees
		}
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
