package renderer

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/blit.wgsl
var blitSource string

// ErrHeadless is returned by surface operations on a backend created without a window.
var ErrHeadless = errors.New("backend has no surface")

// ErrBindingsNotInitialized is returned when a frame is dispatched before InitBindings.
var ErrBindingsNotInitialized = errors.New("bindings have not been initialized")

// wgpuComputeHandle owns a compute pipeline and the layout it was created with.
type wgpuComputeHandle struct {
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.PipelineLayout
}

func (h *wgpuComputeHandle) Release() {
	if h.pipeline != nil {
		h.pipeline.Release()
		h.pipeline = nil
	}
	if h.layout != nil {
		h.layout.Release()
		h.layout = nil
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	maxStorageBinding uint64

	// registry is the host side of group 0, installed by InitBindings.
	registry bindings.Registry
	// provider holds the group 0 resources. Its layout stays nil; layouts owns them.
	provider bindings.BindGroupProvider

	screenWidth  uint32
	screenHeight uint32
	passFormat   wgpu.TextureFormat
	dataSize     uint64

	// layouts caches one compute bind group layout per pass format for pipeline creation.
	layouts map[wgpu.TextureFormat]*wgpu.BindGroupLayout

	// The last compiled unit's shader module, shared by every entry point of one compile.
	moduleCode string
	module     *wgpu.ShaderModule

	blit         pipeline.RenderPipeline
	blitProvider bindings.BindGroupProvider

	screenReadback     *wgpu.Buffer
	screenReadbackSize uint64
	assertReadback     *wgpu.Buffer
}

type wgpuRendererBackend interface {
	// Device returns the wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Headless reports whether the backend was created without a surface.
	//
	// Returns:
	//   - bool: true when there is no window surface
	Headless() bool

	// MaxStorageBufferBindingSize returns the largest storage buffer binding the device allows.
	//
	// Returns:
	//   - uint64: the limit in bytes
	MaxStorageBufferBindingSize() uint64

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	// It does nothing on a headless backend.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateComputePipeline compiles one entry point of a compilation unit against the group 0
	// layout of the installed registry. Consecutive calls with the same code share one shader
	// module.
	//
	// Parameters:
	//   - label: the debug label
	//   - code: the complete WGSL unit
	//   - entryPoint: the compute entry point name
	//
	// Returns:
	//   - pipeline.Handle: a *wgpuComputeHandle
	//   - error: the device error if the module or pipeline could not be created
	CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error)

	// InitBindings creates or refreshes every group 0 resource described by the registry and
	// rebuilds the bind group. Buffers and channels survive; the screen and pass textures are
	// recreated when the size or pass format changed.
	//
	// Parameters:
	//   - registry: the binding registry
	//
	// Returns:
	//   - error: an error if a resource could not be created
	InitBindings(registry bindings.Registry) error

	// ResetTextures recreates the screen and pass textures, clearing their contents.
	//
	// Returns:
	//   - error: an error if a texture could not be created
	ResetTextures() error

	// PassFormat returns the format of the installed pass textures.
	//
	// Returns:
	//   - wgpu.TextureFormat: the pass format, undefined before InitBindings
	PassFormat() wgpu.TextureFormat

	// SetChannel uploads an RGBA8 texture into a channel binding.
	//
	// Parameters:
	//   - index: the channel index, 0 or 1
	//   - staging: the pixel data
	//
	// Returns:
	//   - error: an error if the index or data is invalid or the upload failed
	SetChannel(index int, staging common.TextureStagingData) error

	// WriteBuffers uploads buffer writes resolved through the group 0 provider. A write to the
	// data binding larger than its buffer grows the buffer and rebuilds the bind group.
	//
	// Parameters:
	//   - writes: the writes to upload
	//
	// Returns:
	//   - error: an error if a buffer had to be recreated and failed
	WriteBuffers(writes []bindings.BufferWrite) error

	// Dispatch runs one compute pass in its own submission. The dispatch uniform is written first
	// and pass_out is copied into pass_in after the pass.
	//
	// Parameters:
	//   - p: the pipeline to dispatch
	//   - dispatch: the dispatch uniform write for this repeat
	//   - workgroups: the workgroup grid
	//
	// Returns:
	//   - error: an error if the command buffer could not be built
	Dispatch(p pipeline.ComputePipeline, dispatch bindings.BufferWrite, workgroups [3]uint32) error

	// Present blits the screen texture onto the surface and presents it.
	//
	// Returns:
	//   - error: ErrHeadless, or an error if the surface texture could not be acquired
	Present() error

	// ReadScreen copies the screen texture into a mapped staging buffer.
	//
	// Returns:
	//   - []byte: the rgba16float rows, bytesPerRow apart
	//   - uint32: the padded row pitch
	//   - error: an error if the copy or map failed
	ReadScreen() ([]byte, uint32, error)

	// ReadAssertCounts reads and clears the assertion counters.
	//
	// Returns:
	//   - []uint32: one count per counter
	//   - error: an error if the copy or map failed
	ReadAssertCounts() ([]uint32, error)

	// Release releases every GPU resource held by the backend.
	Release()
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the instance, adapter and device. A nil surfaceDescriptor
// creates a headless backend.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		layouts:     make(map[wgpu.TextureFormat]*wgpu.BindGroupLayout),
	}
	if surfaceDescriptor != nil {
		w.surface = w.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// Raise the storage binding limit to what the adapter supports so the text grid slots can
	// be sized from config.
	limits := wgpu.DefaultLimits()
	supported := a.GetLimits().Limits
	limits.MaxStorageBufferBindingSize = max(limits.MaxStorageBufferBindingSize, supported.MaxStorageBufferBindingSize)
	limits.MaxBufferSize = max(limits.MaxBufferSize, supported.MaxBufferSize)
	limits.MaxStorageBufferBindingSize = min(limits.MaxStorageBufferBindingSize, limits.MaxBufferSize)
	w.maxStorageBinding = limits.MaxStorageBufferBindingSize

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Headless() bool {
	return b.surface == nil
}

func (b *wgpuRendererBackendImpl) MaxStorageBufferBindingSize() uint64 {
	return b.maxStorageBinding
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if b.surfaceFormat == nil {
		b.surfaceFormat = &capabilities.Formats[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.registry == nil {
		return nil, ErrBindingsNotInitialized
	}

	if b.module == nil || b.moduleCode != code {
		module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: label,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: code,
			},
		})
		if err != nil {
			return nil, err
		}
		if b.module != nil {
			b.module.Release()
		}
		b.module = module
		b.moduleCode = code
	}

	bgl, err := b.computeLayout(b.registry.PassFormat())
	if err != nil {
		return nil, err
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     b.module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		layout.Release()
		return nil, err
	}

	return &wgpuComputeHandle{pipeline: created, layout: layout}, nil
}

// computeLayout returns the cached group 0 layout for a pass format. The caller holds b.mu.
func (b *wgpuRendererBackendImpl) computeLayout(format wgpu.TextureFormat) (*wgpu.BindGroupLayout, error) {
	if bgl, ok := b.layouts[format]; ok {
		return bgl, nil
	}
	descriptor := b.registry.LayoutDescriptor()
	bgl, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute bind group layout: %w", err)
	}
	b.layouts[format] = bgl
	return bgl, nil
}

func (b *wgpuRendererBackendImpl) InitBindings(registry bindings.Registry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.registry = registry
	if b.provider == nil {
		b.provider = bindings.NewBindGroupProvider("Compute")
	}

	if err := b.initUniforms(registry); err != nil {
		return err
	}
	if err := b.initStorage(registry); err != nil {
		return err
	}
	if err := b.initDataBuffer(uint64(len(registry.DataWrite().Data))); err != nil {
		return err
	}
	if err := b.initScreenTextures(registry.Width(), registry.Height(), registry.PassFormat()); err != nil {
		return err
	}
	for i := range bindings.NumChannels {
		if b.provider.TextureView(int(bindings.BindingChannel0)+i) != nil {
			continue
		}
		if err := b.uploadChannel(i, blankChannel()); err != nil {
			return err
		}
	}
	if err := b.initSamplers(); err != nil {
		return err
	}

	bgl, err := b.computeLayout(registry.PassFormat())
	if err != nil {
		return err
	}
	return b.rebuildBindGroup(bgl)
}

// initUniforms creates the uniform and assertion buffers once.
func (b *wgpuRendererBackendImpl) initUniforms(registry bindings.Registry) error {
	sizes := map[uint32]uint64{
		bindings.BindingTime:     (&bindings.TimeData{}).Size(),
		bindings.BindingMouse:    (&bindings.MouseData{}).Size(),
		bindings.BindingKeyboard: (&bindings.KeyboardData{}).Size(),
		bindings.BindingCustom:   (&bindings.CustomData{}).Size(),
		bindings.BindingDispatch: (&bindings.DispatchData{}).Size(),
	}
	for binding, size := range sizes {
		if b.provider.Buffer(int(binding)) != nil {
			continue
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("Uniform Buffer %d", binding),
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.provider.SetBuffer(int(binding), buf)
	}

	if b.provider.Buffer(int(bindings.BindingAssertCounts)) == nil {
		size := uint64(registry.MaxAsserts()) * 4
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Assert Counts Buffer",
			Size:  size,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.provider.SetBuffer(int(bindings.BindingAssertCounts), buf)

		readback, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Assert Counts Readback",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.assertReadback = readback
	}
	return nil
}

// initStorage creates the two #storage slots once, clamped to the device limit.
func (b *wgpuRendererBackendImpl) initStorage(registry bindings.Registry) error {
	sizes := registry.StorageSizes()
	for i, binding := range []uint32{bindings.BindingStorage0, bindings.BindingStorage1} {
		if b.provider.Buffer(int(binding)) != nil {
			continue
		}
		size := common.Clamp(sizes[i], 4, b.maxStorageBinding)
		size -= size % 4
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("Storage Buffer %d", i),
			Size:  size,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		})
		if err != nil {
			return fmt.Errorf("failed to create storage buffer %d of %d bytes: %w", i, size, err)
		}
		b.provider.SetBuffer(int(binding), buf)
	}
	return nil
}

// initDataBuffer grows the #data buffer to at least size bytes.
func (b *wgpuRendererBackendImpl) initDataBuffer(size uint64) error {
	size = max(size, 4)
	if b.provider.Buffer(int(bindings.BindingData)) != nil && size <= b.dataSize {
		return nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Data Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.provider.SetBuffer(int(bindings.BindingData), buf)
	b.dataSize = size
	return nil
}

// initScreenTextures recreates the screen and pass textures when the size or format changed.
func (b *wgpuRendererBackendImpl) initScreenTextures(width, height uint32, passFormat wgpu.TextureFormat) error {
	width, height = max(width, 1), max(height, 1)
	if b.provider.TextureView(int(bindings.BindingScreen)) != nil &&
		width == b.screenWidth && height == b.screenHeight && passFormat == b.passFormat {
		return nil
	}

	screen, screenView, err := b.createTexture("Screen", wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		bindings.ScreenFormat, wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc,
		wgpu.TextureViewDimension2D)
	if err != nil {
		return err
	}
	b.provider.SetTexture(int(bindings.BindingScreen), screen, screenView)

	passSize := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: bindings.NumPasses}
	passIn, passInView, err := b.createTexture("Pass In", passSize, passFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst, wgpu.TextureViewDimension2DArray)
	if err != nil {
		return err
	}
	b.provider.SetTexture(int(bindings.BindingPassIn), passIn, passInView)

	passOut, passOutView, err := b.createTexture("Pass Out", passSize, passFormat,
		wgpu.TextureUsageStorageBinding|wgpu.TextureUsageCopySrc, wgpu.TextureViewDimension2DArray)
	if err != nil {
		return err
	}
	b.provider.SetTexture(int(bindings.BindingPassOut), passOut, passOutView)

	b.screenWidth, b.screenHeight, b.passFormat = width, height, passFormat
	if b.blitProvider != nil {
		b.blitProvider.SetBindGroup(nil)
		b.blitProvider.SetTexture(0, nil, nil)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) createTexture(
	label string,
	size wgpu.Extent3D,
	format wgpu.TextureFormat,
	usage wgpu.TextureUsage,
	viewDimension wgpu.TextureViewDimension,
) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " Texture",
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s texture: %w", label, err)
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " View",
		Format:          format,
		Dimension:       viewDimension,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: size.DepthOrArrayLayers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create %s texture view: %w", label, err)
	}
	return tex, view, nil
}

// blankChannel is the 1x1 texture bound to channels that have nothing loaded.
func blankChannel() common.TextureStagingData {
	return common.TextureStagingData{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1}
}

func (b *wgpuRendererBackendImpl) initSamplers() error {
	for i, data := range bindings.Samplers() {
		binding := int(bindings.BindingSamplerNearest) + i
		if b.provider.Sampler(binding) != nil {
			continue
		}
		samp, err := b.createSampler(data)
		if err != nil {
			return err
		}
		b.provider.SetSampler(binding, samp)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) createSampler(data common.SamplerStagingData) (*wgpu.Sampler, error) {
	// Filter modes are used as given: the zero value is a valid mode.
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         data.Label,
		AddressModeU:  data.AddressModeU,
		AddressModeV:  data.AddressModeV,
		AddressModeW:  data.AddressModeW,
		MagFilter:     data.MagFilter,
		MinFilter:     data.MinFilter,
		MipmapFilter:  data.MipmapFilter,
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler %s: %w", data.Label, err)
	}
	return samp, nil
}

func (b *wgpuRendererBackendImpl) rebuildBindGroup(bgl *wgpu.BindGroupLayout) error {
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   b.provider.Label() + " Bind Group",
		Layout:  bgl,
		Entries: b.provider.Entries(),
	})
	if err != nil {
		return err
	}
	b.provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) ResetTextures() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider == nil || b.registry == nil {
		return ErrBindingsNotInitialized
	}
	b.screenWidth, b.screenHeight = 0, 0
	if err := b.initScreenTextures(b.registry.Width(), b.registry.Height(), b.passFormat); err != nil {
		return err
	}
	return b.rebuildBindGroup(b.layouts[b.passFormat])
}

func (b *wgpuRendererBackendImpl) PassFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.passFormat
}

func (b *wgpuRendererBackendImpl) SetChannel(index int, staging common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider == nil {
		return ErrBindingsNotInitialized
	}
	if err := b.uploadChannel(index, staging); err != nil {
		return err
	}
	return b.rebuildBindGroup(b.layouts[b.passFormat])
}

// uploadChannel creates and fills a channel texture. The caller holds b.mu.
func (b *wgpuRendererBackendImpl) uploadChannel(index int, staging common.TextureStagingData) error {
	if index < 0 || index >= bindings.NumChannels {
		return fmt.Errorf("channel index %d out of range [0, %d)", index, bindings.NumChannels)
	}
	if err := staging.Validate(); err != nil {
		return fmt.Errorf("channel %d: %w", index, err)
	}

	size := wgpu.Extent3D{Width: staging.Width, Height: staging.Height, DepthOrArrayLayers: 1}
	tex, view, err := b.createTexture(fmt.Sprintf("Channel %d", index), size, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst, wgpu.TextureViewDimension2D)
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.BytesPerRow(),
			RowsPerImage: staging.Height,
		},
		&size,
	)

	b.provider.SetTexture(int(bindings.BindingChannel0)+index, tex, view)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bindings.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider == nil {
		return ErrBindingsNotInitialized
	}

	for _, w := range writes {
		if w.Binding == int(bindings.BindingData) && w.Offset+uint64(len(w.Data)) > b.dataSize {
			if err := b.initDataBuffer(w.Offset + uint64(len(w.Data))); err != nil {
				return err
			}
			if err := b.rebuildBindGroup(b.layouts[b.passFormat]); err != nil {
				return err
			}
		}
		buf := b.provider.Buffer(w.Binding)
		if buf == nil || len(w.Data) == 0 {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) Dispatch(p pipeline.ComputePipeline, dispatch bindings.BufferWrite, workgroups [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider == nil || b.provider.BindGroup() == nil {
		return ErrBindingsNotInitialized
	}
	handle, ok := p.Handle().(*wgpuComputeHandle)
	if !ok || handle.pipeline == nil {
		return fmt.Errorf("pipeline %s has no wgpu compute pipeline", p.Name())
	}
	if workgroups[0] == 0 || workgroups[1] == 0 || workgroups[2] == 0 {
		return nil
	}

	if buf := b.provider.Buffer(dispatch.Binding); buf != nil {
		b.queue.WriteBuffer(buf, dispatch.Offset, dispatch.Data)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(handle.pipeline)
	pass.SetBindGroup(0, b.provider.BindGroup(), nil)
	pass.DispatchWorkgroups(workgroups[0], workgroups[1], workgroups[2])
	pass.End()

	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: b.provider.Texture(int(bindings.BindingPassOut)), Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: b.provider.Texture(int(bindings.BindingPassIn)), Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: b.screenWidth, Height: b.screenHeight, DepthOrArrayLayers: bindings.NumPasses},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return ErrHeadless
	}
	if b.surfaceFormat == nil {
		return errors.New("surface has not been configured")
	}
	if b.provider == nil {
		return ErrBindingsNotInitialized
	}
	if err := b.initBlit(); err != nil {
		return err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(b.blit.Pipeline())
	pass.SetBindGroup(0, b.blitProvider.BindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

// initBlit lazily builds the blit pipeline and its bind group over the screen texture. The
// caller holds b.mu.
func (b *wgpuRendererBackendImpl) initBlit() error {
	if b.blitProvider == nil {
		b.blitProvider = bindings.NewBindGroupProvider("Blit")
		bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: "Blit Bind Group Layout",
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: wgpu.ShaderStageFragment,
					Texture: wgpu.TextureBindingLayout{
						SampleType:    wgpu.TextureSampleTypeFloat,
						ViewDimension: wgpu.TextureViewDimension2D,
					},
				},
				{
					Binding:    1,
					Visibility: wgpu.ShaderStageFragment,
					Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create blit bind group layout: %w", err)
		}
		b.blitProvider.SetBindGroupLayout(bgl)

		samp, err := b.createSampler(common.SamplerStagingData{
			Label:        "Blit Sampler",
			AddressModeU: wgpu.AddressModeClampToEdge,
			AddressModeV: wgpu.AddressModeClampToEdge,
			AddressModeW: wgpu.AddressModeClampToEdge,
			MagFilter:    wgpu.FilterModeLinear,
			MinFilter:    wgpu.FilterModeLinear,
			MipmapFilter: wgpu.MipmapFilterModeNearest,
		})
		if err != nil {
			return err
		}
		b.blitProvider.SetSampler(1, samp)
	}

	if b.blit == nil {
		if err := b.registerBlitPipeline(); err != nil {
			return err
		}
	}

	if b.blitProvider.BindGroup() == nil {
		// The blit provider owns a second view of the screen texture, not the texture.
		view, err := b.provider.Texture(int(bindings.BindingScreen)).CreateView(nil)
		if err != nil {
			return err
		}
		b.blitProvider.SetTexture(0, nil, view)

		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "Blit Bind Group",
			Layout:  b.blitProvider.BindGroupLayout(),
			Entries: b.blitProvider.Entries(),
		})
		if err != nil {
			return err
		}
		b.blitProvider.SetBindGroup(bindGroup)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) registerBlitPipeline() error {
	vertexShader, err := shader.NewShader("Blit", shader.ShaderTypeVertex, blitSource, 0)
	if err != nil {
		return err
	}
	fragmentShader, err := shader.NewShader("Blit", shader.ShaderTypeFragment, blitSource, 0)
	if err != nil {
		return err
	}
	p := pipeline.NewRenderPipeline("Blit",
		pipeline.WithVertexShader(vertexShader),
		pipeline.WithFragmentShader(fragmentShader),
	)

	module, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	defer module.Release()

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.blitProvider.BindGroupLayout()},
	})
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					Blend:     p.BlendState(),
					WriteMask: p.WriteMask(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}
	p.SetPipeline(created)
	b.blit = p
	return nil
}

func (b *wgpuRendererBackendImpl) ReadScreen() ([]byte, uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider == nil {
		return nil, 0, ErrBindingsNotInitialized
	}

	bytesPerRow := paddedBytesPerRow(b.screenWidth)
	size := uint64(bytesPerRow) * uint64(b.screenHeight)
	if b.screenReadback == nil || b.screenReadbackSize != size {
		if b.screenReadback != nil {
			b.screenReadback.Release()
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Screen Readback",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, 0, err
		}
		b.screenReadback = buf
		b.screenReadbackSize = size
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, 0, err
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: b.provider.Texture(int(bindings.BindingScreen)), Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: b.screenReadback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: b.screenHeight,
			},
		},
		&wgpu.Extent3D{Width: b.screenWidth, Height: b.screenHeight, DepthOrArrayLayers: 1},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, 0, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	data, err := b.mapRead(b.screenReadback, size)
	if err != nil {
		return nil, 0, fmt.Errorf("screen readback: %w", err)
	}
	return data, bytesPerRow, nil
}

func (b *wgpuRendererBackendImpl) ReadAssertCounts() ([]uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.provider == nil || b.registry == nil {
		return nil, ErrBindingsNotInitialized
	}

	counters := b.provider.Buffer(int(bindings.BindingAssertCounts))
	size := uint64(b.registry.MaxAsserts()) * 4

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()

	encoder.CopyBufferToBuffer(counters, 0, b.assertReadback, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	data, err := b.mapRead(b.assertReadback, size)
	if err != nil {
		return nil, fmt.Errorf("assert readback: %w", err)
	}
	b.queue.WriteBuffer(counters, 0, make([]byte, size))

	counts := make([]uint32, len(data)/4)
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return counts, nil
}

// mapRead maps buf, waits for the device and returns a copy of the first size bytes.
func (b *wgpuRendererBackendImpl) mapRead(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	var status wgpu.BufferMapAsyncStatus
	err := buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("buffer map failed with status %d", status)
	}

	mapped := buf.GetMappedRange(0, uint(size))
	data := make([]byte, len(mapped))
	copy(data, mapped)
	buf.Unmap()
	return data, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blit != nil {
		b.blit.Release()
		b.blit = nil
	}
	if b.blitProvider != nil {
		b.blitProvider.Release()
		b.blitProvider = nil
	}
	if b.provider != nil {
		b.provider.Release()
		b.provider = nil
	}
	for format, bgl := range b.layouts {
		bgl.Release()
		delete(b.layouts, format)
	}
	if b.module != nil {
		b.module.Release()
		b.module = nil
	}
	for _, buf := range []*wgpu.Buffer{b.screenReadback, b.assertReadback} {
		if buf != nil {
			buf.Release()
		}
	}
	b.screenReadback, b.assertReadback = nil, nil
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
