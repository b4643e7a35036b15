package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPipelineOptions(t *testing.T) {
	src := "@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }\n" +
		"@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }\n"
	vs, err := shader.NewShader("blit", shader.ShaderTypeVertex, src, 0)
	require.NoError(t, err)
	fs, err := shader.NewShader("blit", shader.ShaderTypeFragment, src, 0)
	require.NoError(t, err)

	p := NewRenderPipeline("blit", WithVertexShader(vs), WithFragmentShader(fs), WithCullMode(wgpu.CullModeBack))
	assert.Equal(t, "blit", p.PipelineKey())
	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, p.Shader(shader.ShaderTypeFragment))
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.ColorWriteMaskAll, p.WriteMask())
	assert.Nil(t, p.BlendState())
	assert.Nil(t, p.Pipeline())
	p.Release()
}
