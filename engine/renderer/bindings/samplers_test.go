package bindings

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplersMatchBindingOrder(t *testing.T) {
	samplers := Samplers()
	require.Len(t, samplers, int(BindingCount-BindingSamplerNearest))

	nearest := samplers[BindingSamplerNearest-BindingSamplerNearest]
	assert.Equal(t, "nearest", nearest.Label)
	assert.Equal(t, wgpu.FilterModeNearest, nearest.MagFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, nearest.AddressModeU)

	trilinear := samplers[BindingSamplerTrilinear-BindingSamplerNearest]
	assert.Equal(t, wgpu.FilterModeLinear, trilinear.MinFilter)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, trilinear.MipmapFilter)

	bilinearRepeat := samplers[BindingSamplerBilinearRepeat-BindingSamplerNearest]
	assert.Equal(t, "bilinear_repeat", bilinearRepeat.Label)
	assert.Equal(t, wgpu.AddressModeRepeat, bilinearRepeat.AddressModeV)
	assert.Equal(t, wgpu.MipmapFilterModeNearest, bilinearRepeat.MipmapFilter)
}
