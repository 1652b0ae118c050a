package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW state behind an engineWindow. running is cleared from the render
// goroutine by RequestClose, so it is atomic.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running atomic.Bool
}

// newPlatformWindow creates a GLFW window without a client API, applies the size limits and
// routes key, scroll, drop and framebuffer events to w's callbacks.
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if !w.resizable {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %v", err)
	}

	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{
		parent: w,
		window: win,
	}
	gw.running.Store(true)
	w.internalWindow = gw

	// Esc closes the viewer; every other press and repeat goes to the controls.
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running.Store(false)
			win.SetShouldClose(true)
			return
		}
		if (action == glfw.Press || action == glfw.Repeat) && w.onKeyDown != nil {
			w.onKeyDown(uint32(key))
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetDropCallback(func(_ *glfw.Window, names []string) {
		if w.onDrop != nil {
			w.onDrop(names)
		}
	})

	// the renderer sizes its surfaces in framebuffer pixels, which differ from window units on high-DPI displays
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	w.width, w.height = win.GetFramebufferSize()

	return nil
}

// platformGetSurfaceDescriptor returns the wgpuglfw surface descriptor of the open window.
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformIsRunningCheck is false once the window is closed, a close was requested, or the user
// clicked the close button.
func platformIsRunningCheck(w *engineWindow) bool {
	if w.internalWindow == nil {
		return false
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.running.Load() && !gw.window.ShouldClose()
}

// platformCloseWindow destroys the window and terminates GLFW. Closing twice is an error.
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window already closed")
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running.Store(false)
	gw.window.Destroy()
	w.internalWindow = nil
	glfw.Terminate()
	return nil
}

// platformProcessMessages drains pending GLFW events and reports whether the loop should continue.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}

// platformRequestClose clears the running flag so the message loop exits on its next iteration.
func platformRequestClose(w *engineWindow) {
	if gw, ok := w.internalWindow.(*glfwWindow); ok {
		gw.running.Store(false)
	}
}

// platformSetTitle updates the title bar of the open window.
func platformSetTitle(w *engineWindow, title string) {
	if gw, ok := w.internalWindow.(*glfwWindow); ok {
		gw.window.SetTitle(title)
	}
}
