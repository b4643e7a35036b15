package renderer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/compiler"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// fixedTimeStep is the time advanced by each RenderToBuffer call, in seconds.
const fixedTimeStep = 0.016

// ErrTextDataTooLarge is returned when a text grid does not fit the storage slots.
var ErrTextDataTooLarge = errors.New("text data does not fit the storage buffers")

// SurfaceProvider is the part of a window the renderer needs to present frames.
type SurfaceProvider interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// TextData is a code point grid and its colours, uploaded to storage slots 0 and 1.
type TextData interface {
	TerminalBuffer() []uint32
	ColorBuffer() []uint32
}

// AssertFailure is an assertion counter that fired, mapped to its source line.
type AssertFailure struct {
	// Line is the 1-based source line of the #assert directive.
	Line int
	// Count is the number of invocations that failed the predicate since the last read.
	Count uint32
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	// compileMu serialises compile attempts.
	compileMu sync.Mutex
	// frameMu guards dispatch against a concurrent swap and release of the pipeline set.
	frameMu sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	registry    bindings.Registry
	compiler    compiler.Compiler
	pipelines   *pipeline.Set
	readback    *readbackConverter

	sourceMapMu sync.RWMutex
	sourceMap   *shader.SourceMap

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	resolver             shader.IncludeResolver
	sink                 shader.ErrorSink
	defines              map[string]string
	registryOptions      []bindings.RegistryOption
	maxAsserts           int
	readbackWorkers      int
}

// Renderer drives the compute pipelines built from a user shader.
//
// A Renderer owns the binding registry, the installed pipeline set and the GPU backend. The
// typical flow is Preprocess, then Compile, then RenderFrame (window) or RenderToBuffer
// (headless) once per frame. A failed Compile leaves the previous pipelines rendering.
type Renderer interface {
	// Preprocess runs the directive preprocessor over a shader source. SCREEN_WIDTH and
	// SCREEN_HEIGHT are defined from the current screen size.
	//
	// Parameters:
	//   - ctx: cancels pending include fetches
	//   - source: the raw shader text
	//
	// Returns:
	//   - *shader.SourceMap: the transformed source
	//   - error: a *shader.WGSLError, also reported to the error sink
	Preprocess(ctx context.Context, source string) (*shader.SourceMap, error)

	// Compile builds one pipeline per compute entry point of the source map and installs the
	// new set. On failure the previous set stays installed.
	//
	// Parameters:
	//   - ctx: aborts the attempt between pipelines
	//   - sourceMap: the output of Preprocess
	//
	// Returns:
	//   - error: a *shader.WGSLError, also reported to the error sink
	Compile(ctx context.Context, sourceMap *shader.SourceMap) error

	// Pipelines returns the installed compute pipelines in declaration order.
	//
	// Returns:
	//   - []pipeline.ComputePipeline: a snapshot of the set
	Pipelines() []pipeline.ComputePipeline

	// SourceMap returns the source map of the installed pipelines, nil before the first compile.
	//
	// Returns:
	//   - *shader.SourceMap: the source map
	SourceMap() *shader.SourceMap

	// Registry returns the binding registry.
	//
	// Returns:
	//   - bindings.Registry: the registry
	Registry() bindings.Registry

	// RenderFrame stages the uniforms, runs the dispatch plan and presents the screen when the
	// renderer has a window.
	//
	// Returns:
	//   - error: an error if a dispatch or the present failed
	RenderFrame() error

	// RenderToBuffer advances time by a fixed step, runs one frame and reads the screen back.
	//
	// Returns:
	//   - []byte: tightly packed RGBA8 pixels, Width()*Height()*4 bytes
	//   - error: an error if the frame or readback failed
	RenderToBuffer() ([]byte, error)

	// ReadAssertCounts reads and clears the assertion counters.
	//
	// Returns:
	//   - []uint32: one count per counter, index matching SourceMap.AssertMap
	//   - error: an error if the readback failed
	ReadAssertCounts() ([]uint32, error)

	// AssertFailures reads the assertion counters and maps the non-zero ones to source lines.
	//
	// Returns:
	//   - []AssertFailure: the failed assertions in counter order
	//   - error: an error if the readback failed
	AssertFailures() ([]AssertFailure, error)

	// LoadChannel uploads a texture into channel0 or channel1.
	//
	// Parameters:
	//   - index: the channel index
	//   - staging: the RGBA8 pixels
	//
	// Returns:
	//   - error: an error if the index or data is invalid
	LoadChannel(index int, staging common.TextureStagingData) error

	// LoadShaderTextData uploads a text grid, code points to storage slot 0 and colours to
	// storage slot 1.
	//
	// Parameters:
	//   - data: the text grid
	//
	// Returns:
	//   - error: ErrTextDataTooLarge or a backend error
	LoadShaderTextData(data TextData) error

	// SetCustomFloats replaces the named custom values. New names take effect on the next
	// Compile.
	//
	// Parameters:
	//   - names: the member names
	//   - values: the values, one per name
	//
	// Returns:
	//   - error: an error if the lengths differ or there are too many values
	SetCustomFloats(names []string, values []float32) error

	// SetCustomFloat updates one existing custom value.
	//
	// Parameters:
	//   - name: the member name
	//   - value: the new value
	//
	// Returns:
	//   - bool: false if the name is unknown
	SetCustomFloat(name string, value float32) bool

	// SetTimeElapsed sets time.elapsed in seconds.
	//
	// Parameters:
	//   - elapsed: seconds since reset
	SetTimeElapsed(elapsed float32)

	// SetTimeDelta sets time.delta in seconds.
	//
	// Parameters:
	//   - delta: seconds since the previous frame
	SetTimeDelta(delta float32)

	// SetMousePos records a cursor position normalised to [0, 1]. It applies while clicked.
	//
	// Parameters:
	//   - x: horizontal position
	//   - y: vertical position
	SetMousePos(x, y float32)

	// SetMouseClick records the mouse button state.
	//
	// Parameters:
	//   - down: whether the button is held
	SetMouseClick(down bool)

	// SetKey records the state of a browser key code.
	//
	// Parameters:
	//   - code: the key code
	//   - down: whether the key is held
	SetKey(code uint32, down bool)

	// SetPassF32 selects 32-bit pass textures from the next Compile on.
	//
	// Parameters:
	//   - enabled: true for rgba32float passes
	SetPassF32(enabled bool)

	// SetPresentMode sets the surface present mode.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Resize reconfigures the surface to width x height and the screen to the size scaled by
	// scale, then resets.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//   - scale: the screen resolution relative to the surface, 1 if not positive
	//
	// Returns:
	//   - error: an error if the screen textures could not be recreated
	Resize(width, height int, scale float32) error

	// Reset clears time, mouse, keyboard and the screen and pass textures. Custom values and
	// user data survive, and dispatch once pipelines run again on the next frame.
	//
	// Returns:
	//   - error: an error if the textures could not be recreated
	Reset() error

	// Width returns the screen width in pixels.
	//
	// Returns:
	//   - uint32: the width
	Width() uint32

	// Height returns the screen height in pixels.
	//
	// Returns:
	//   - uint32: the height
	Height() uint32

	// Release releases the pipelines and every GPU resource.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer presenting into a window surface. The screen matches the
// window size.
//
// Parameters:
//   - backendType: the backend type to use (e.g., BackendTypeWGPU)
//   - window: the window to present into
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: a new Renderer instance
func NewRenderer(backendType RendererBackendType, window SurfaceProvider, options ...RendererBuilderOption) Renderer {
	r := newRenderer(backendType, options...)

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(window.Width(), window.Height())
	r.init(uint32(max(window.Width(), 1)), uint32(max(window.Height(), 1)))
	return r
}

// NewHeadlessRenderer creates a Renderer without a surface, for RenderToBuffer.
//
// Parameters:
//   - width: the screen width in pixels
//   - height: the screen height in pixels
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: a new Renderer instance
func NewHeadlessRenderer(width, height uint32, options ...RendererBuilderOption) Renderer {
	r := newRenderer(BackendTypeWGPU, options...)
	r.backend = newWGPURendererBackend(nil, r.forceFallbackAdapter)
	r.init(max(width, 1), max(height, 1))
	return r
}

// newRenderer applies the options. The caller sets the backend and calls init.
func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		backendType: backendType,
		pipelines:   pipeline.NewSet(),
		sink:        shader.DiscardSink,
		maxAsserts:  shader.DefaultMaxAsserts,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// init creates the registry, the compiler and the GPU bindings. GPU failures panic, matching
// the backend constructor.
func (r *renderer) init(width, height uint32) {
	opts := append([]bindings.RegistryOption{bindings.WithMaxAsserts(r.maxAsserts)}, r.registryOptions...)
	r.registry = bindings.NewRegistry(width, height, opts...)
	r.compiler = compiler.New(r.backend, compiler.WithErrorSink(r.sink))
	r.readback = newReadbackConverter(r.readbackWorkers)

	if err := r.backend.InitBindings(r.registry); err != nil {
		panic(fmt.Errorf("failed to initialise bindings: %w", err))
	}
}

func (r *renderer) Preprocess(ctx context.Context, source string) (*shader.SourceMap, error) {
	defines := make(map[string]string, len(r.defines)+2)
	for k, v := range r.defines {
		defines[k] = v
	}
	defines["SCREEN_WIDTH"] = strconv.FormatUint(uint64(r.registry.Width()), 10)
	defines["SCREEN_HEIGHT"] = strconv.FormatUint(uint64(r.registry.Height()), 10)

	opts := []shader.PreProcessorOption{
		shader.WithErrorSink(r.sink),
		shader.WithMaxAsserts(r.registry.MaxAsserts()),
	}
	if r.resolver != nil {
		opts = append(opts, shader.WithIncludeResolver(r.resolver))
	}
	return shader.NewPreProcessor(defines, opts...).Run(ctx, source)
}

func (r *renderer) Compile(ctx context.Context, sourceMap *shader.SourceMap) error {
	r.compileMu.Lock()
	defer r.compileMu.Unlock()

	built, err := r.compiler.Compile(ctx, sourceMap, r.registry)
	if err != nil {
		return err
	}

	r.frameMu.Lock()
	defer r.frameMu.Unlock()

	r.registry.SetUserData(sourceMap.UserData)
	if r.registry.PassFormat() != r.backend.PassFormat() {
		if err := r.backend.InitBindings(r.registry); err != nil {
			pipeline.ReleaseAll(built)
			return fmt.Errorf("failed to rebuild bindings for %v passes: %w", r.registry.PassFormat(), err)
		}
	}
	if err := r.backend.WriteBuffers([]bindings.BufferWrite{r.registry.DataWrite()}); err != nil {
		pipeline.ReleaseAll(built)
		return fmt.Errorf("failed to upload data tables: %w", err)
	}

	pipeline.ReleaseAll(r.pipelines.Swap(built))

	r.sourceMapMu.Lock()
	r.sourceMap = sourceMap
	r.sourceMapMu.Unlock()
	return nil
}

func (r *renderer) Pipelines() []pipeline.ComputePipeline {
	return r.pipelines.Snapshot()
}

func (r *renderer) SourceMap() *shader.SourceMap {
	r.sourceMapMu.RLock()
	defer r.sourceMapMu.RUnlock()
	return r.sourceMap
}

func (r *renderer) Registry() bindings.Registry {
	return r.registry
}

func (r *renderer) RenderFrame() error {
	if err := r.dispatchFrame(); err != nil {
		return err
	}
	if r.backend.Headless() {
		return nil
	}
	return r.backend.Present()
}

func (r *renderer) RenderToBuffer() ([]byte, error) {
	t := r.registry.Time()
	r.registry.SetTime(t.Elapsed+fixedTimeStep, fixedTimeStep)

	if err := r.dispatchFrame(); err != nil {
		return nil, err
	}

	raw, bytesPerRow, err := r.backend.ReadScreen()
	if err != nil {
		return nil, err
	}
	return r.readback.Convert(raw, r.registry.Width(), r.registry.Height(), bytesPerRow)
}

// dispatchFrame uploads the uniforms and runs one frame of the dispatch plan.
func (r *renderer) dispatchFrame() error {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()

	if err := r.backend.WriteBuffers(r.registry.Stage()); err != nil {
		return err
	}

	width, height := r.registry.Width(), r.registry.Height()
	for _, step := range r.pipelines.Plan(r.pipelines.TakeFirst()) {
		r.registry.SetDispatchID(step.ID)
		count := step.Pipeline.WorkgroupCount(width, height)
		if err := r.backend.Dispatch(step.Pipeline, r.registry.DispatchWrite(), count); err != nil {
			return fmt.Errorf("dispatch %s #%d: %w", step.Pipeline.Name(), step.ID, err)
		}
	}
	r.registry.AdvanceFrame()
	return nil
}

func (r *renderer) ReadAssertCounts() ([]uint32, error) {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()
	return r.backend.ReadAssertCounts()
}

func (r *renderer) AssertFailures() ([]AssertFailure, error) {
	counts, err := r.ReadAssertCounts()
	if err != nil {
		return nil, err
	}
	return mapAssertFailures(r.SourceMap(), counts), nil
}

// mapAssertFailures pairs non-zero counters with the lines recorded in the source map.
func mapAssertFailures(sourceMap *shader.SourceMap, counts []uint32) []AssertFailure {
	if sourceMap == nil {
		return nil
	}
	var failures []AssertFailure
	for i, count := range counts {
		if count == 0 {
			continue
		}
		line, ok := sourceMap.AssertLine(i)
		if !ok {
			continue
		}
		failures = append(failures, AssertFailure{Line: line, Count: count})
	}
	return failures
}

func (r *renderer) LoadChannel(index int, staging common.TextureStagingData) error {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()
	return r.backend.SetChannel(index, staging)
}

func (r *renderer) LoadShaderTextData(data TextData) error {
	writes, err := textDataWrites(data, r.registry.StorageSizes())
	if err != nil {
		return err
	}
	r.frameMu.Lock()
	defer r.frameMu.Unlock()
	return r.backend.WriteBuffers(writes)
}

// textDataWrites marshals a text grid into writes for the two storage slots.
func textDataWrites(data TextData, sizes [2]uint64) ([]bindings.BufferWrite, error) {
	buffers := [2][]uint32{data.TerminalBuffer(), data.ColorBuffer()}
	writes := make([]bindings.BufferWrite, 0, len(buffers))
	for i, values := range buffers {
		if uint64(len(values))*4 > sizes[i] {
			return nil, fmt.Errorf("%w: slot %d needs %d bytes, has %d", ErrTextDataTooLarge, i, len(values)*4, sizes[i])
		}
		payload := make([]byte, len(values)*4)
		for j, v := range values {
			binary.LittleEndian.PutUint32(payload[j*4:], v)
		}
		writes = append(writes, bindings.BufferWrite{Binding: int(bindings.BindingStorage0) + i, Data: payload})
	}
	return writes, nil
}

func (r *renderer) SetCustomFloats(names []string, values []float32) error {
	return r.registry.SetCustomFloats(names, values)
}

func (r *renderer) SetCustomFloat(name string, value float32) bool {
	return r.registry.SetCustomFloat(name, value)
}

func (r *renderer) SetTimeElapsed(elapsed float32) {
	r.registry.SetTime(elapsed, r.registry.Time().Delta)
}

func (r *renderer) SetTimeDelta(delta float32) {
	r.registry.SetTime(r.registry.Time().Elapsed, delta)
}

func (r *renderer) SetMousePos(x, y float32) {
	r.registry.SetMouse(x, y)
}

func (r *renderer) SetMouseClick(down bool) {
	r.registry.SetMouseClick(down)
}

func (r *renderer) SetKey(code uint32, down bool) {
	r.registry.SetKey(code, down)
}

func (r *renderer) SetPassF32(enabled bool) {
	r.registry.SetPassF32(enabled)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Resize(width, height int, scale float32) error {
	if scale <= 0 {
		scale = 1
	}
	screenWidth := uint32(max(int(float32(width)*scale), 1))
	screenHeight := uint32(max(int(float32(height)*scale), 1))

	r.frameMu.Lock()
	r.backend.ConfigureSurface(width, height)
	r.registry.Resize(screenWidth, screenHeight)
	err := r.backend.InitBindings(r.registry)
	r.frameMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to resize screen to %dx%d: %w", screenWidth, screenHeight, err)
	}

	logger.Logger().Debug("renderer resized", "surface_width", width, "surface_height", height,
		"screen_width", screenWidth, "screen_height", screenHeight)
	return r.Reset()
}

func (r *renderer) Reset() error {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()

	r.registry.Reset()
	r.pipelines.Rearm()
	return r.backend.ResetTextures()
}

func (r *renderer) Width() uint32 {
	return r.registry.Width()
}

func (r *renderer) Height() uint32 {
	return r.registry.Height()
}

func (r *renderer) Release() {
	r.frameMu.Lock()
	defer r.frameMu.Unlock()
	r.pipelines.Release()
	r.backend.Release()
}
