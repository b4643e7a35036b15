package common

// GLFW key codes handled by the live preview.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace     = 32  // Spacebar (ASCII)
	KeyEsc       = 256 // Escape key (GLFW)
	KeyEnter     = 257 // Enter key (GLFW)
	KeyTab       = 258 // Tab key (GLFW)
	KeyBackspace = 259 // Backspace key (GLFW)
	KeyRight     = 262 // Right arrow (GLFW)
	KeyLeft      = 263 // Left arrow (GLFW)
	KeyDown      = 264 // Down arrow (GLFW)
	KeyUp        = 265 // Up arrow (GLFW)
	KeyF1        = 290 // F1 (GLFW), F2..F12 follow
	KeyF12       = 301 // F12 (GLFW)

	KeyLeftShift    = 340 // Left Shift (GLFW)
	KeyLeftControl  = 341 // Left Control (GLFW)
	KeyLeftAlt      = 342 // Left Alt (GLFW)
	KeyRightShift   = 344 // Right Shift (GLFW)
	KeyRightControl = 345 // Right Control (GLFW)
	KeyRightAlt     = 346 // Right Alt (GLFW)
)

// glfwToWeb maps the non-printable GLFW keys to browser keyCode values, which shaders test
// with keyDown.
var glfwToWeb = map[int]uint32{
	KeyEsc:          27,
	KeyEnter:        13,
	KeyTab:          9,
	KeyBackspace:    8,
	KeyRight:        39,
	KeyLeft:         37,
	KeyDown:         40,
	KeyUp:           38,
	KeyLeftShift:    16,
	KeyRightShift:   16,
	KeyLeftControl:  17,
	KeyRightControl: 17,
	KeyLeftAlt:      18,
	KeyRightAlt:     18,
}

// WebKeyCode translates a GLFW key into the keyCode used by the keyboard bitfield.
// Letters, digits and space share their ASCII value in both schemes.
//
// Parameters:
//   - glfwKey: the GLFW key code
//
// Returns:
//   - uint32: the keyboard bitfield index
//   - bool: false if the key has no mapping
func WebKeyCode(glfwKey int) (uint32, bool) {
	switch {
	case glfwKey == KeySpace,
		glfwKey >= '0' && glfwKey <= '9',
		glfwKey >= 'A' && glfwKey <= 'Z':
		return uint32(glfwKey), true
	case glfwKey >= KeyF1 && glfwKey <= KeyF12:
		return uint32(112 + glfwKey - KeyF1), true
	}
	code, ok := glfwToWeb[glfwKey]
	return code, ok
}
