package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyA     = 65 // A key (ASCII)
	KeyB     = 66 // B key (ASCII)
	KeyD     = 68 // D key (ASCII)
	KeyE     = 69 // E key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyP     = 80 // P key (ASCII)
	KeyR     = 82 // R key (ASCII)
	KeyS     = 83 // S key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)

	Key1 = 49 // 1 key (ASCII)
	Key2 = 50 // 2 key (ASCII)
	Key3 = 51 // 3 key (ASCII)
	Key4 = 52 // 4 key (ASCII)
)

// Non-printable keys
const (
	KeyEsc   = 256 // Escape key (GLFW)
	KeyRight = 262 // Right arrow (GLFW)
	KeyLeft  = 263 // Left arrow (GLFW)
	KeyDown  = 264 // Down arrow (GLFW)
	KeyUp    = 265 // Up arrow (GLFW)
)
