package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client area size. A viewer usually matches the frame it shows.
// Non-positive values keep the default.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithSizeLimits bounds the client area while resizing.
//
// Parameters:
//   - minWidth: minimum width in pixels
//   - minHeight: minimum height in pixels
//   - maxWidth: maximum width in pixels
//   - maxHeight: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = minWidth, minHeight
		w.maxWidth, w.maxHeight = max(maxWidth, minWidth), max(maxHeight, minHeight)
	}
}

// WithResizable controls whether the user can resize the window.
//
// Parameters:
//   - resizable: false to pin the window to its initial size (default true)
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}
