package pipeline

import (
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderPipeline is the implementation of the RenderPipeline interface.
type renderPipeline struct {
	// pipelineKey is the unique identifier for this pipeline
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// pipeline is the created render pipeline, nil until set by the backend
	pipeline *wgpu.RenderPipeline

	cullMode   wgpu.CullMode
	topology   wgpu.PrimitiveTopology
	frontFace  wgpu.FrontFace
	writeMask  wgpu.ColorWriteMask
	blendState *wgpu.BlendState
}

// RenderPipeline describes a vertex + fragment pipeline. The renderer uses one to blit the
// screen texture onto the window surface.
type RenderPipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader of the given type, nil if not set.
	//
	// Parameters:
	//   - shaderType: vertex or fragment
	//
	// Returns:
	//   - shader.Shader: the shader or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the created render pipeline, nil before creation.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline or nil
	Pipeline() *wgpu.RenderPipeline

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state, or nil when blending is off.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state or nil
	BlendState() *wgpu.BlendState

	// SetPipeline stores the created render pipeline, releasing the previous one.
	//
	// Parameters:
	//   - rp: the WebGPU render pipeline
	SetPipeline(rp *wgpu.RenderPipeline)

	// Release releases the render pipeline.
	Release()
}

var _ RenderPipeline = &renderPipeline{}

// NewRenderPipeline creates a RenderPipeline with blending off, no culling and a triangle list.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of RenderPipelineOption functions to configure the pipeline
//
// Returns:
//   - RenderPipeline: a new RenderPipeline instance
func NewRenderPipeline(pipelineKey string, opts ...RenderPipelineOption) RenderPipeline {
	p := &renderPipeline{
		pipelineKey: pipelineKey,
		cullMode:    wgpu.CullModeNone,
		topology:    wgpu.PrimitiveTopologyTriangleList,
		frontFace:   wgpu.FrontFaceCCW,
		writeMask:   wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *renderPipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *renderPipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *renderPipeline) Pipeline() *wgpu.RenderPipeline {
	return p.pipeline
}

func (p *renderPipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *renderPipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *renderPipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *renderPipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *renderPipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *renderPipeline) SetPipeline(rp *wgpu.RenderPipeline) {
	if p.pipeline != nil && p.pipeline != rp {
		p.pipeline.Release()
	}
	p.pipeline = rp
}

func (p *renderPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}
