package bindings

import (
	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Samplers returns the configuration of the six fixed samplers in binding order, starting at
// BindingSamplerNearest.
//
// Returns:
//   - []common.SamplerStagingData: one entry per sampler binding
func Samplers() []common.SamplerStagingData {
	out := make([]common.SamplerStagingData, 0, len(samplerNames))
	for i, name := range samplerNames {
		address := wgpu.AddressModeClampToEdge
		if i >= 3 {
			address = wgpu.AddressModeRepeat
		}

		s := common.SamplerStagingData{
			Label:        name,
			AddressModeU: address,
			AddressModeV: address,
			AddressModeW: address,
			MagFilter:    wgpu.FilterModeLinear,
			MinFilter:    wgpu.FilterModeLinear,
			MipmapFilter: wgpu.MipmapFilterModeNearest,
		}
		switch i % 3 {
		case 0:
			s.MagFilter = wgpu.FilterModeNearest
			s.MinFilter = wgpu.FilterModeNearest
		case 2:
			s.MipmapFilter = wgpu.MipmapFilterModeLinear
		}
		out = append(out, s)
	}
	return out
}
