package bindings

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider stores the group 0 resources keyed by @binding slot.
type bindGroupProvider struct {
	// label names the group in GPU debug output.
	label string

	bindGroup *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	buffers map[int]*wgpu.Buffer
	// textures back the views. A nil texture means the view is owned elsewhere.
	textures map[int]*wgpu.Texture
	textureViews map[int]*wgpu.TextureView
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider holds the GPU side of the group 0 bindings described by a Registry.
// The Renderer creates the resources, stores them here keyed by binding index and builds the
// bind group from them.
//
// Usage pattern:
//  1. Renderer creates a BindGroupProvider
//  2. Renderer creates the layout from Registry.LayoutDescriptor and every resource, storing each via the setters
//  3. Renderer builds the bind group from Entries and stores it via SetBindGroup
//  4. Renderer resolves each Registry BufferWrite through Buffer
//  5. Replacing a resource (channel load, resize) releases the old one and rebuilds the bind group
type BindGroupProvider interface {
	// Release frees the group, its layout and every resource slot.
	Release()

	// Label names the group for debugging.
	//
	// Returns:
	//   - string: the label
	Label() string

	// BindGroup is the group set by SetBindGroup.
	//
	// Returns:
	//   - *wgpu.BindGroup: nil before the first build
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout is the layout set by SetBindGroupLayout.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: nil before creation
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer looks up the buffer bound at a slot.
	//
	// Parameters:
	//   - binding: the @binding slot
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Texture looks up the texture behind a slot's view.
	//
	// Parameters:
	//   - binding: the @binding slot
	//
	// Returns:
	//   - *wgpu.Texture: the texture or nil
	Texture(binding int) *wgpu.Texture

	// TextureView looks up the view bound at a slot.
	//
	// Parameters:
	//   - binding: the @binding slot
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler looks up the sampler bound at a slot.
	//
	// Parameters:
	//   - binding: the @binding slot
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Entries returns the bind group entries in binding order for every resource held.
	//
	// Returns:
	//   - []wgpu.BindGroupEntry: the entries
	Entries() []wgpu.BindGroupEntry

	// SetBindGroup replaces the group. The old group is released.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout replaces the layout. The old layout is released.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer replaces the buffer at a slot. The old buffer is released.
	//
	// Parameters:
	//   - binding: the @binding slot
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTexture stores a texture and its view for a binding, releasing the previous pair.
	//
	// Parameters:
	//   - binding: the @binding slot
	//   - tex: the texture, may be nil when the view is owned elsewhere
	//   - tv: the texture view
	SetTexture(binding int, tex *wgpu.Texture, tv *wgpu.TextureView)

	// SetSampler replaces the sampler at a slot. The old sampler is released.
	//
	// Parameters:
	//   - binding: the @binding slot
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider returns a provider with no resources.
//
// Parameters:
//   - label: the name shown in GPU debug output
//   - options: options seeding the layout or buffers
//
// Returns:
//   - BindGroupProvider: the configured provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textures:     make(map[int]*wgpu.Texture),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Texture(binding int) *wgpu.Texture {
	return p.textures[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Entries() []wgpu.BindGroupEntry {
	entries := make([]wgpu.BindGroupEntry, 0, BindingCount)
	for i := 0; i < int(BindingCount); i++ {
		switch {
		case p.buffers[i] != nil:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(i),
				Buffer:  p.buffers[i],
				Size:    wgpu.WholeSize,
			})
		case p.textureViews[i] != nil:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     uint32(i),
				TextureView: p.textureViews[i],
			})
		case p.samplers[i] != nil:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: uint32(i),
				Sampler: p.samplers[i],
			})
		}
	}
	return entries
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	if p.bindGroupLayout != nil && p.bindGroupLayout != bgl {
		p.bindGroupLayout.Release()
	}
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture, tv *wgpu.TextureView) {
	if old := p.textureViews[binding]; old != nil && old != tv {
		old.Release()
	}
	if old := p.textures[binding]; old != nil && old != tex {
		old.Release()
	}
	p.textures[binding] = tex
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	if old := p.samplers[binding]; old != nil && old != s {
		old.Release()
	}
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, tex := range p.textures {
		if tex != nil {
			tex.Release()
		}
		delete(p.textures, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
