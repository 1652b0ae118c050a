package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the viewer's output window. It owns the presentation surface and forwards the
// keyboard, scroll and file-drop input that drives the effect's controls.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up, negative = down)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetDropCallback sets the callback for files dropped onto the window.
	//
	// Parameters:
	//   - callback: function receiving the dropped file paths
	SetDropCallback(callback func(paths []string))

	// SetTitle changes the title bar text. Must be called from the goroutine running ProcessMessages,
	// typically from the update callback.
	//
	// Parameters:
	//   - title: the new window title
	SetTitle(title string)

	// SurfaceDescriptor returns the descriptor the renderer creates its presentation surface from.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and no close has been requested.
	IsRunning() bool

	// RequestClose asks the message loop to stop. Safe to call from any goroutine.
	RequestClose()

	// Close destroys the window and releases platform resources. Must be called from the goroutine
	// that created the window, after ProcessMessages returns.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages polls input until the window closes or RequestClose is called, running the
	// update callback after every poll. It must run on the goroutine that created the window.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// engineWindow is the GLFW-backed Window used by the viewer.
type engineWindow struct {
	title     string
	resizable bool

	// size limits applied while the user drags the window edges
	minWidth, minHeight int
	maxWidth, maxHeight int

	// framebuffer size in pixels, updated by the resize callback
	width, height int

	internalWindow any // *glfwWindow once created

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onDrop    func(paths []string)
}

var _ Window = &engineWindow{}

// NewWindow opens a 1280x720 resizable window titled "oxy-ao", then applies options. It locks
// the calling goroutine to its OS thread and panics if the platform window cannot be created.
//
// Parameters:
//   - options: size, title and resize options
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxy-ao",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetDropCallback(callback func(paths []string)) {
	w.onDrop = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
