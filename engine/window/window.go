package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the live preview window. It owns the surface the renderer presents to and forwards
// keyboard, mouse and resize input to the callbacks set on it.
type Window interface {
	// SetUpdateCallback installs the per-iteration hook of ProcessMessages.
	//
	// Parameters:
	//   - callback: the hook, nil for none
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback sets the callback for key presses and releases. Repeats are not reported.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code and whether it is now held
	SetKeyCallback(callback func(key int, down bool))

	// SetMouseButtonCallback sets the callback for left mouse button presses and releases.
	//
	// Parameters:
	//   - callback: function receiving whether the button is held and the cursor position in pixels
	SetMouseButtonCallback(callback func(down bool, x, y float32))

	// SetCursorCallback sets the callback for cursor movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in framebuffer pixels
	SetCursorCallback(callback func(x, y float32))

	// SetTitle replaces the title bar text.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// ContentScale returns the ratio of framebuffer pixels to window coordinates.
	//
	// Returns:
	//   - float32: the scale, 1 on standard displays
	ContentScale() float32

	// SurfaceDescriptor describes the native window handle for surface creation.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, nil before the window opens
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and no close was requested.
	//
	// Returns:
	//   - bool: false once closing
	IsRunning() bool

	// RequestClose asks the message loop to stop after the current iteration.
	RequestClose()

	// Close destroys the window. Later calls do nothing.
	//
	// Returns:
	//   - error: non-nil if the window never opened
	Close() error

	// ProcessMessages polls events and calls the update hook until the window stops running.
	ProcessMessages()

	// Width is the framebuffer width.
	//
	// Returns:
	//   - int: pixels
	Width() int

	// Height is the framebuffer height.
	//
	// Returns:
	//   - int: pixels
	Height() int
}

// engineWindow tracks sizes and callbacks on top of the platform window.
type engineWindow struct {
	title string

	// size limits in window coordinates, 0 for no limit.
	maxWidth, maxHeight int
	minWidth, minHeight int

	// width and height track the framebuffer, not the window coordinates.
	width  int
	height int
	scale  float32

	// internalWindow is a *glfwWindow once opened.
	internalWindow any

	onUpdate      func()
	onResize      func(width, height int)
	onKey         func(key int, down bool)
	onMouseButton func(down bool, x, y float32)
	onCursor      func(x, y float32)
}

var _ Window = &engineWindow{}

// NewWindow opens a 1280x720 window titled codeskew, adjusted by options. It panics when
// GLFW cannot open a window.
//
// Parameters:
//   - options: size and title overrides
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "codeskew",
		minWidth:  160,
		minHeight: 90,
		width:     1280,
		height:    720,
		scale:     1,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key int, down bool)) {
	w.onKey = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(down bool, x, y float32)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetCursorCallback(callback func(x, y float32)) {
	w.onCursor = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) ContentScale() float32 {
	return w.scale
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
		if !platformProcessMessages(w) {
			return
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
