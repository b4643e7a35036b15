package bindings

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption configures a provider built by NewBindGroupProvider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout attaches the layout the group is created against.
//
// Parameters:
//   - bgl: the layout of the group
//
// Returns:
//   - BindGroupProviderOption: the option storing the layout
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer registers a buffer under a binding slot of the group.
//
// Parameters:
//   - binding: the @binding slot
//   - buf: the buffer bound at that slot
//
// Returns:
//   - BindGroupProviderOption: the option registering the buffer
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
