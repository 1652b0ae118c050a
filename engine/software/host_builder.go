package software

import "github.com/Carmen-Shannon/oxy-ao/engine/obscurance"

// HostBuilderOption is a functional option for configuring a software Host.
type HostBuilderOption func(*host)

// WithCapabilities sets the render path and HDR state the host reports.
// The default is the forward path with HDR targets.
//
// Parameters:
//   - caps: the capabilities to report
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithCapabilities(caps obscurance.Capabilities) HostBuilderOption {
	return func(h *host) {
		h.caps = caps
	}
}

// WithPrograms replaces the program registry. Loading a name that is not listed fails.
//
// Parameters:
//   - names: the registered program names
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithPrograms(names ...string) HostBuilderOption {
	return func(h *host) {
		h.registry = make(map[string]bool, len(names))
		for _, n := range names {
			h.registry[n] = true
		}
	}
}

// WithFieldOfView sets the vertical field of view, in degrees, used to reconstruct view-space
// positions from linear depth.
//
// Parameters:
//   - degrees: the vertical field of view (default 60)
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithFieldOfView(degrees float32) HostBuilderOption {
	return func(h *host) {
		h.fieldOfView = degrees
	}
}

// WithWorkers sets the number of row bands each pass is split into.
// Values <= 0 are treated as 1.
//
// Parameters:
//   - n: the number of pool workers
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithWorkers(n int) HostBuilderOption {
	return func(h *host) {
		h.workers = max(n, 1)
	}
}
