package renderer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	entry    string
	released int
}

func (h *fakeHandle) Release() { h.released++ }

type fakeDispatch struct {
	name       string
	id         uint32
	workgroups [3]uint32
}

// fakeBackend records what the renderer asks of the GPU.
type fakeBackend struct {
	headless   bool
	passFormat wgpu.TextureFormat
	failCode   string

	initCalls     int
	resetCalls    int
	presents      int
	surfaceSize   [2]int
	writes        []bindings.BufferWrite
	dispatches    []fakeDispatch
	channels      map[int]common.TextureStagingData
	handles       []*fakeHandle
	screen        []byte
	screenPitch   uint32
	assertCounts  []uint32
	registry      bindings.Registry
	releaseCalled bool
}

var _ wgpuRendererBackend = &fakeBackend{}

func (f *fakeBackend) Device() *wgpu.Device                { return nil }
func (f *fakeBackend) Headless() bool                      { return f.headless }
func (f *fakeBackend) MaxStorageBufferBindingSize() uint64 { return 1 << 30 }
func (f *fakeBackend) ConfigureSurface(width, height int)  { f.surfaceSize = [2]int{width, height} }
func (f *fakeBackend) SetPresentMode(PresentMode)          {}
func (f *fakeBackend) PassFormat() wgpu.TextureFormat      { return f.passFormat }
func (f *fakeBackend) Release()                            { f.releaseCalled = true }

func (f *fakeBackend) CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error) {
	if f.failCode != "" && strings.Contains(code, f.failCode) {
		return nil, errors.New("wgsl:1:1 error: rejected")
	}
	h := &fakeHandle{entry: entryPoint}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeBackend) InitBindings(registry bindings.Registry) error {
	f.initCalls++
	f.registry = registry
	f.passFormat = registry.PassFormat()
	return nil
}

func (f *fakeBackend) ResetTextures() error {
	f.resetCalls++
	return nil
}

func (f *fakeBackend) SetChannel(index int, staging common.TextureStagingData) error {
	if index < 0 || index >= bindings.NumChannels {
		return fmt.Errorf("channel index %d out of range", index)
	}
	if f.channels == nil {
		f.channels = make(map[int]common.TextureStagingData)
	}
	f.channels[index] = staging
	return nil
}

func (f *fakeBackend) WriteBuffers(writes []bindings.BufferWrite) error {
	f.writes = append(f.writes, writes...)
	return nil
}

func (f *fakeBackend) Dispatch(p pipeline.ComputePipeline, dispatch bindings.BufferWrite, workgroups [3]uint32) error {
	f.dispatches = append(f.dispatches, fakeDispatch{
		name:       p.Name(),
		id:         binary.LittleEndian.Uint32(dispatch.Data),
		workgroups: workgroups,
	})
	return nil
}

func (f *fakeBackend) Present() error {
	f.presents++
	return nil
}

func (f *fakeBackend) ReadScreen() ([]byte, uint32, error) {
	return f.screen, f.screenPitch, nil
}

func (f *fakeBackend) ReadAssertCounts() ([]uint32, error) {
	return f.assertCounts, nil
}

func (f *fakeBackend) lastWrite(binding uint32) (bindings.BufferWrite, bool) {
	for i := len(f.writes) - 1; i >= 0; i-- {
		if f.writes[i].Binding == int(binding) {
			return f.writes[i], true
		}
	}
	return bindings.BufferWrite{}, false
}

func newTestRenderer(t *testing.T, backend *fakeBackend, width, height uint32, options ...RendererBuilderOption) *renderer {
	t.Helper()
	r := newRenderer(BackendTypeWGPU, options...)
	r.backend = backend
	r.init(width, height)
	return r
}

const plannedSource = `#workgroup_count init 1 1 1
#dispatch_once init
#dispatch_count step 2
@compute @workgroup_size(1)
fn init() {}

@compute @workgroup_size(16, 16)
fn step() {}

@compute @workgroup_size(16, 16)
fn image(@builtin(global_invocation_id) id: vec3u) {
    textureStore(screen, id.xy, vec4f(1.0));
}
`

func compileSource(t *testing.T, r *renderer, source string) error {
	t.Helper()
	sm, err := r.Preprocess(context.Background(), source)
	require.NoError(t, err)
	return r.Compile(context.Background(), sm)
}

func pipelineNames(pipelines []pipeline.ComputePipeline) []string {
	names := make([]string, 0, len(pipelines))
	for _, p := range pipelines {
		names = append(names, p.Name())
	}
	return names
}

func TestRendererCompileInstallsSet(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 64, 32)
	assert.Equal(t, 1, backend.initCalls)

	require.NoError(t, compileSource(t, r, plannedSource))
	assert.Equal(t, []string{"init", "step", "image"}, pipelineNames(r.Pipelines()))
	require.NotNil(t, r.SourceMap())
	assert.True(t, r.SourceMap().DispatchOnce["init"])

	_, ok := backend.lastWrite(bindings.BindingData)
	assert.True(t, ok, "data tables are uploaded after a compile")
}

func TestRendererFailedCompileKeepsPreviousSet(t *testing.T) {
	sink := &shader.CollectSink{}
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 64, 32, WithErrorSink(sink))

	require.NoError(t, compileSource(t, r, plannedSource))
	before := r.Pipelines()

	backend.failCode = "fn broken"
	err := compileSource(t, r, plannedSource+"\n@compute @workgroup_size(1)\nfn broken() {}\n")
	require.Error(t, err)

	werr, ok := shader.AsWGSLError(err)
	require.True(t, ok)
	assert.Equal(t, shader.ErrorKindGpuCompilation, werr.Kind)
	require.NotNil(t, sink.Last())

	assert.Equal(t, pipelineNames(before), pipelineNames(r.Pipelines()))
	for _, h := range backend.handles[:3] {
		assert.Zero(t, h.released, "installed pipelines must survive a failed compile")
	}
}

func TestRendererRecompileReleasesOldSet(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 64, 32)

	require.NoError(t, compileSource(t, r, plannedSource))
	require.NoError(t, compileSource(t, r, plannedSource))
	require.Len(t, backend.handles, 6)
	for _, h := range backend.handles[:3] {
		assert.Equal(t, 1, h.released)
	}
	for _, h := range backend.handles[3:] {
		assert.Zero(t, h.released)
	}
}

func TestRendererFramePlan(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend, 64, 32)
	require.NoError(t, compileSource(t, r, plannedSource))

	require.NoError(t, r.RenderFrame())
	assert.Equal(t, []fakeDispatch{
		{name: "init", id: 0, workgroups: [3]uint32{1, 1, 1}},
		{name: "step", id: 0, workgroups: [3]uint32{4, 2, 1}},
		{name: "step", id: 1, workgroups: [3]uint32{4, 2, 1}},
		{name: "image", id: 0, workgroups: [3]uint32{4, 2, 1}},
	}, backend.dispatches)
	assert.Equal(t, 1, backend.presents)
	assert.Equal(t, uint32(1), r.Registry().Time().Frame)

	backend.dispatches = nil
	require.NoError(t, r.RenderFrame())
	assert.Equal(t, []string{"step", "step", "image"}, []string{
		backend.dispatches[0].name, backend.dispatches[1].name, backend.dispatches[2].name,
	})
	assert.Len(t, backend.dispatches, 3)

	// A reset runs the dispatch once entries again.
	backend.dispatches = nil
	require.NoError(t, r.Reset())
	assert.Equal(t, 1, backend.resetCalls)
	require.NoError(t, r.RenderFrame())
	require.NotEmpty(t, backend.dispatches)
	assert.Equal(t, "init", backend.dispatches[0].name)
	assert.Equal(t, uint32(1), r.Registry().Time().Frame)
}

func TestRendererHeadlessFrameDoesNotPresent(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 8, 8)
	require.NoError(t, compileSource(t, r, plannedSource))
	require.NoError(t, r.RenderFrame())
	assert.Zero(t, backend.presents)
}

func TestRendererRenderToBuffer(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 37, 70, WithReadbackWorkers(3))
	require.NoError(t, compileSource(t, r, plannedSource))

	backend.screen, backend.screenPitch = paddedImage(37, 70)
	out, err := r.RenderToBuffer()
	require.NoError(t, err)
	require.Len(t, out, 37*70*4)
	assert.Equal(t, expectedPixel(20, 50, 37, 70), [4]byte(out[(50*37+20)*4:(50*37+20)*4+4]))

	tm := r.Registry().Time()
	assert.InDelta(t, fixedTimeStep, tm.Elapsed, 1e-6)
	assert.InDelta(t, fixedTimeStep, tm.Delta, 1e-6)

	_, err = r.RenderToBuffer()
	require.NoError(t, err)
	assert.InDelta(t, 2*fixedTimeStep, r.Registry().Time().Elapsed, 1e-6)
}

func TestRendererAssertFailures(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 8, 8)

	source := "#assert 1 > 0\n@compute @workgroup_size(1)\nfn main() {\n#assert 2 > 1\n}\n"
	require.NoError(t, compileSource(t, r, source))

	backend.assertCounts = []uint32{0, 7, 0, 0, 0, 0, 0, 0, 0, 0}
	failures, err := r.AssertFailures()
	require.NoError(t, err)
	assert.Equal(t, []AssertFailure{{Line: 4, Count: 7}}, failures)
}

type gridStub struct {
	text, colors []uint32
}

func (g gridStub) TerminalBuffer() []uint32 { return g.text }
func (g gridStub) ColorBuffer() []uint32    { return g.colors }

func TestRendererLoadShaderTextData(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 8, 8, WithStorageSizes(16, 8))

	require.NoError(t, r.LoadShaderTextData(gridStub{text: []uint32{'h', 'i'}, colors: []uint32{0xFFFFFF, 0x00FF00}}))
	text, ok := backend.lastWrite(bindings.BindingStorage0)
	require.True(t, ok)
	assert.Equal(t, []byte{'h', 0, 0, 0, 'i', 0, 0, 0}, text.Data)
	colors, ok := backend.lastWrite(bindings.BindingStorage1)
	require.True(t, ok)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0, 0, 0xFF, 0, 0}, colors.Data)

	err := r.LoadShaderTextData(gridStub{text: []uint32{1}, colors: []uint32{1, 2, 3}})
	assert.ErrorIs(t, err, ErrTextDataTooLarge)
}

func TestRendererResizeScalesScreen(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend, 100, 50)
	r.SetMouseClick(true)
	r.SetMousePos(0.5, 0.5)

	require.NoError(t, r.Resize(200, 100, 1.5))
	assert.Equal(t, [2]int{200, 100}, backend.surfaceSize)
	assert.Equal(t, uint32(300), r.Width())
	assert.Equal(t, uint32(150), r.Height())
	assert.Equal(t, 2, backend.initCalls)
	assert.Equal(t, 1, backend.resetCalls)
	assert.Equal(t, bindings.MouseData{}, r.Registry().Mouse(), "resize resets the mouse")

	require.NoError(t, r.Resize(10, 10, 0))
	assert.Equal(t, uint32(10), r.Width())
}

func TestRendererPreprocessScreenDefines(t *testing.T) {
	r := newTestRenderer(t, &fakeBackend{headless: true}, 640, 360, WithDefines(map[string]string{"SPEED": "2.0"}))

	sm, err := r.Preprocess(context.Background(), "let w = SCREEN_WIDTH;\nlet h = SCREEN_HEIGHT;\nlet s = SPEED;\n")
	require.NoError(t, err)
	assert.Equal(t, "let w = 640;\nlet h = 360;\nlet s = 2.0;\n", sm.Source)
}

func TestRendererPassFormatAppliedOnCompile(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 8, 8)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, backend.passFormat)

	r.SetPassF32(true)
	assert.Equal(t, 1, backend.initCalls, "the pass format waits for the next compile")

	require.NoError(t, compileSource(t, r, plannedSource))
	assert.Equal(t, 2, backend.initCalls)
	assert.Equal(t, wgpu.TextureFormatRGBA32Float, backend.passFormat)
	assert.Contains(t, r.compiler.LastUnit().Prelude, "texture_storage_2d_array<rgba32float,write>")
}

func TestRendererCustomFloats(t *testing.T) {
	backend := &fakeBackend{headless: true}
	r := newTestRenderer(t, backend, 8, 8)

	require.NoError(t, r.SetCustomFloats([]string{"speed", "zoom"}, []float32{1.5, 2}))
	assert.True(t, r.SetCustomFloat("zoom", 3))
	assert.False(t, r.SetCustomFloat("missing", 1))
	require.NoError(t, compileSource(t, r, plannedSource))
	assert.Contains(t, r.compiler.LastUnit().Prelude, "speed: float,")

	require.NoError(t, r.RenderFrame())
	custom, ok := backend.lastWrite(bindings.BindingCustom)
	require.True(t, ok)
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(custom.Data[0:4])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(custom.Data[4:8])))
}

func TestMapAssertFailuresWithoutSourceMap(t *testing.T) {
	assert.Nil(t, mapAssertFailures(nil, []uint32{1}))
}
