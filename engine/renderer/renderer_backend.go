package renderer

// RendererBackendType names a GPU API the renderer can drive.
type RendererBackendType int

const (
	// BackendTypeWGPU drives the device through wgpu-native.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode selects how the surface hands finished frames to the display.
type PresentMode int

const (
	// PresentModeVSync presents in step with the display refresh.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents as soon as a frame is ready and may tear.
	PresentModeUncapped
)

// RendererBackend is implemented by every GPU backend the renderer can hold.
type RendererBackend interface {
	wgpuRendererBackend
}
