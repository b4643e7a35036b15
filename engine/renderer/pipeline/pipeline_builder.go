package pipeline

import (
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ComputePipelineOption is a functional option used to configure a ComputePipeline during construction.
type ComputePipelineOption func(*computePipeline)

// WithEntryPoint sets the entry point name of this pipeline.
//
// Parameters:
//   - name: the entry point name
//
// Returns:
//   - ComputePipelineOption: a function that sets the entry point name
func WithEntryPoint(name string) ComputePipelineOption {
	return func(p *computePipeline) {
		p.name = name
	}
}

// WithHandle attaches the backend pipeline object.
//
// Parameters:
//   - h: the backend handle
//
// Returns:
//   - ComputePipelineOption: a function that sets the handle
func WithHandle(h Handle) ComputePipelineOption {
	return func(p *computePipeline) {
		p.handle = h
	}
}

// WithWorkgroupSize sets the workgroup size. Zero dimensions are stored as 1.
//
// Parameters:
//   - size: the @workgroup_size dimensions
//
// Returns:
//   - ComputePipelineOption: a function that sets the workgroup size
func WithWorkgroupSize(size [3]uint32) ComputePipelineOption {
	return func(p *computePipeline) {
		for i, v := range size {
			if v == 0 {
				v = 1
			}
			p.workgroupSize[i] = v
		}
	}
}

// WithWorkgroupCount sets an explicit dispatch grid that replaces the screen derived one.
//
// Parameters:
//   - count: the dispatch grid
//
// Returns:
//   - ComputePipelineOption: a function that sets the workgroup count override
func WithWorkgroupCount(count [3]uint32) ComputePipelineOption {
	return func(p *computePipeline) {
		c := count
		p.workgroupCount = &c
	}
}

// WithDispatchOnce marks the pipeline to run only on the first frame after a compile.
//
// Parameters:
//   - once: the dispatch once flag
//
// Returns:
//   - ComputePipelineOption: a function that sets the dispatch once flag
func WithDispatchOnce(once bool) ComputePipelineOption {
	return func(p *computePipeline) {
		p.dispatchOnce = once
	}
}

// WithDispatchCount sets how many times the pipeline is dispatched per frame.
//
// Parameters:
//   - count: the repeat count, 0 skips the pipeline
//
// Returns:
//   - ComputePipelineOption: a function that sets the dispatch count
func WithDispatchCount(count uint32) ComputePipelineOption {
	return func(p *computePipeline) {
		p.dispatchCount = count
	}
}

// RenderPipelineOption is a functional option used to configure a RenderPipeline during construction.
type RenderPipelineOption func(*renderPipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - RenderPipelineOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) RenderPipelineOption {
	return func(p *renderPipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - RenderPipelineOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) RenderPipelineOption {
	return func(p *renderPipeline) {
		p.fragmentShader = s
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode (e.g., wgpu.CullModeNone, wgpu.CullModeBack)
//
// Returns:
//   - RenderPipelineOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) RenderPipelineOption {
	return func(p *renderPipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology (e.g., wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - RenderPipelineOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) RenderPipelineOption {
	return func(p *renderPipeline) {
		p.topology = topology
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask (e.g., wgpu.ColorWriteMaskAll)
//
// Returns:
//   - RenderPipelineOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) RenderPipelineOption {
	return func(p *renderPipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState sets the blend state for this pipeline. Nil disables blending.
//
// Parameters:
//   - blendState: the blend state
//
// Returns:
//   - RenderPipelineOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) RenderPipelineOption {
	return func(p *renderPipeline) {
		p.blendState = blendState
	}
}
