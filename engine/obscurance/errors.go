package obscurance

import "errors"

var (
	// ErrResourceUnavailable reports that a program or surface could not be obtained from the host.
	// The effect answers it with an unmodified copy of the source for that frame and retries on the next one.
	ErrResourceUnavailable = errors.New("obscurance: resource unavailable")

	// ErrCapabilityMismatch reports that a requested mode is not supported by the host's current state.
	// The effect answers it with a silent pass-through.
	ErrCapabilityMismatch = errors.New("obscurance: capability mismatch")

	// ErrInvalidConfiguration classifies out-of-range configuration values. The effect never returns it;
	// values are clamped by the EffectConfig accessors. Hosts may use it for their own validation.
	ErrInvalidConfiguration = errors.New("obscurance: invalid configuration")
)
