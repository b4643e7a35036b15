// layout.go declares the fixed group 0 binding table shared by every compute pipeline and
// derives both its WGSL declarations and its wgpu layout from the same entries.
package bindings

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Binding indices of group 0.
const (
	BindingStorage0 uint32 = iota
	BindingStorage1
	BindingTime
	BindingMouse
	BindingKeyboard
	BindingCustom
	BindingData
	BindingAssertCounts
	BindingDispatch
	BindingScreen
	BindingPassIn
	BindingPassOut
	BindingChannel0
	BindingChannel1
	BindingSamplerNearest
	BindingSamplerBilinear
	BindingSamplerTrilinear
	BindingSamplerNearestRepeat
	BindingSamplerBilinearRepeat
	BindingSamplerTrilinearRepeat

	// BindingCount is the number of group 0 bindings.
	BindingCount
)

// NumChannels is the number of sampled input textures.
const NumChannels = 2

// NumPasses is the number of layers in the pass_in / pass_out texture arrays.
const NumPasses = 4

// ScreenFormat is the format of the screen storage texture.
const ScreenFormat = wgpu.TextureFormatRGBA16Float

// Binding is one entry of the group 0 table.
type Binding struct {
	// Index is the @binding index.
	Index uint32

	// Name is the WGSL variable name. Storage slots have no fixed name.
	Name string

	// AddressSpace is the var<...> template, empty for textures and samplers.
	AddressSpace string

	// Type is the WGSL type of the variable.
	Type string
}

// Declaration renders the binding as a WGSL global declaration.
//
// Returns:
//   - string: e.g. "@group(0) @binding(2) var<uniform> time: Time;"
func (b Binding) Declaration() string {
	if b.AddressSpace != "" {
		return fmt.Sprintf("@group(0) @binding(%d) var<%s> %s: %s;", b.Index, b.AddressSpace, b.Name, b.Type)
	}
	return fmt.Sprintf("@group(0) @binding(%d) var %s: %s;", b.Index, b.Name, b.Type)
}

// LayoutEntry returns the wgpu layout entry for the binding, visible to compute only.
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the classified layout entry
func (b Binding) LayoutEntry() wgpu.BindGroupLayoutEntry {
	return classifyResource(b.Index, wgpu.ShaderStageCompute, b.AddressSpace, b.Type)
}

// samplerNames are the sampler variables in binding order starting at BindingSamplerNearest.
var samplerNames = [...]string{
	"nearest",
	"bilinear",
	"trilinear",
	"nearest_repeat",
	"bilinear_repeat",
	"trilinear_repeat",
}

// Table returns the group 0 table. passF32 selects rgba32float for pass_out.
//
// Parameters:
//   - passF32: whether the pass textures use 32-bit floats
//   - maxAsserts: the number of assertion counters
//
// Returns:
//   - []Binding: the entries ordered by index
func Table(passF32 bool, maxAsserts int) []Binding {
	passFormat := "rgba16float"
	if passF32 {
		passFormat = "rgba32float"
	}

	table := []Binding{
		{Index: BindingStorage0, Name: "_storage0", AddressSpace: "storage,read_write", Type: "array<u32>"},
		{Index: BindingStorage1, Name: "_storage1", AddressSpace: "storage,read_write", Type: "array<u32>"},
		{Index: BindingTime, Name: "time", AddressSpace: "uniform", Type: "Time"},
		{Index: BindingMouse, Name: "mouse", AddressSpace: "uniform", Type: "Mouse"},
		{Index: BindingKeyboard, Name: "_keyboard", AddressSpace: "uniform", Type: "array<vec4<u32>,2>"},
		{Index: BindingCustom, Name: "custom", AddressSpace: "uniform", Type: "Custom"},
		{Index: BindingData, Name: "data", AddressSpace: "storage,read", Type: "Data"},
		{Index: BindingAssertCounts, Name: "_assert_counts", AddressSpace: "storage,read_write", Type: fmt.Sprintf("array<atomic<u32>,%d>", maxAsserts)},
		{Index: BindingDispatch, Name: "dispatch", AddressSpace: "uniform", Type: "DispatchInfo"},
		{Index: BindingScreen, Name: "screen", Type: "texture_storage_2d<rgba16float,write>"},
		{Index: BindingPassIn, Name: "pass_in", Type: "texture_2d_array<f32>"},
		{Index: BindingPassOut, Name: "pass_out", Type: fmt.Sprintf("texture_storage_2d_array<%s,write>", passFormat)},
		{Index: BindingChannel0, Name: "channel0", Type: "texture_2d<f32>"},
		{Index: BindingChannel1, Name: "channel1", Type: "texture_2d<f32>"},
	}
	for i, name := range samplerNames {
		table = append(table, Binding{Index: BindingSamplerNearest + uint32(i), Name: name, Type: "sampler"})
	}
	return table
}

// isStorageSlot reports whether index is one of the #storage slots, which user code declares.
func isStorageSlot(index uint32) bool {
	return index == BindingStorage0 || index == BindingStorage1
}

// classifyResource derives a layout entry from a WGSL address space and type.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	if addressSpace != "" {
		switch {
		case addressSpace == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case strings.HasPrefix(addressSpace, "storage"):
			if strings.Contains(addressSpace, "read_write") {
				entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			} else {
				entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			}
		}
		return entry
	}

	switch {
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_storage_"):
		base, params := splitTypeParams(typeName)
		entry.StorageTexture.ViewDimension = storageTextureDims[base]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = texelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = storageAccess[strings.TrimSpace(access)]
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		entry.Texture.ViewDimension = sampledTextureDims[base]
		entry.Texture.SampleType = sampleTypes[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

var sampledTextureDims = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
}

var storageTextureDims = map[string]wgpu.TextureViewDimension{
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

var texelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
}
