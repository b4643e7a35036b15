package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	entry    string
	released int
}

func (h *fakeHandle) Release() {
	h.released++
}

// fakeDevice records every pipeline request. failOn makes the named entry point fail with
// the error returned by failWith.
type fakeDevice struct {
	mu       sync.Mutex
	codes    []string
	entries  []string
	handles  []*fakeHandle
	failOn   string
	failWith func(code string) error
}

func (d *fakeDevice) CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = append(d.codes, code)
	d.entries = append(d.entries, entryPoint)
	if entryPoint == d.failOn {
		return nil, d.failWith(code)
	}
	h := &fakeHandle{entry: entryPoint}
	d.handles = append(d.handles, h)
	return h, nil
}

const twoEntrySource = `#workgroup_count b 2 3 4
#dispatch_once a
#dispatch_count b 3
@compute @workgroup_size(8, 8)
fn a(@builtin(global_invocation_id) id: uint3) {
}

fn helper() -> float {
    return 1.0;
}

@workgroup_size(1) @compute
fn b(@builtin(global_invocation_id) id: uint3) {
}
`

func preprocess(t *testing.T, src string) *shader.SourceMap {
	t.Helper()
	sm, err := shader.NewPreProcessor(map[string]string{"SCREEN_WIDTH": "64", "SCREEN_HEIGHT": "64"}).Run(t.Context(), src)
	require.NoError(t, err)
	return sm
}

func TestCompileOnePipelinePerEntryPoint(t *testing.T) {
	dev := &fakeDevice{}
	reg := bindings.NewRegistry(64, 64)

	pipelines, err := New(dev).Compile(t.Context(), preprocess(t, twoEntrySource), reg)
	require.NoError(t, err)
	require.Len(t, pipelines, 2)

	a, b := pipelines[0], pipelines[1]
	assert.Equal(t, "a", a.Name())
	assert.Equal(t, [3]uint32{8, 8, 1}, a.WorkgroupSize())
	assert.True(t, a.DispatchOnce())
	assert.Equal(t, uint32(1), a.DispatchCount())
	_, explicit := a.ExplicitWorkgroupCount()
	assert.False(t, explicit)
	assert.Equal(t, [3]uint32{8, 8, 1}, a.WorkgroupCount(64, 64))

	assert.Equal(t, "b", b.Name())
	assert.Equal(t, [3]uint32{1, 1, 1}, b.WorkgroupSize())
	assert.False(t, b.DispatchOnce())
	assert.Equal(t, uint32(3), b.DispatchCount())
	assert.Equal(t, [3]uint32{2, 3, 4}, b.WorkgroupCount(64, 64))

	assert.Equal(t, []string{"a", "b"}, dev.entries)
	assert.Equal(t, dev.codes[0], dev.codes[1])
}

func TestCompileIsDeterministic(t *testing.T) {
	dev := &fakeDevice{}
	reg := bindings.NewRegistry(64, 64)
	sm := preprocess(t, twoEntrySource)
	c := New(dev)

	first, err := c.Compile(t.Context(), sm, reg)
	require.NoError(t, err)
	second, err := c.Compile(t.Context(), sm, reg)
	require.NoError(t, err)

	require.Len(t, dev.codes, 4)
	assert.Equal(t, dev.codes[0], dev.codes[2])
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name(), second[i].Name())
		assert.Equal(t, first[i].WorkgroupSize(), second[i].WorkgroupSize())
		assert.Equal(t, first[i].DispatchOnce(), second[i].DispatchOnce())
		assert.Equal(t, first[i].DispatchCount(), second[i].DispatchCount())
	}
}

func TestCompileFailureReleasesPartialSet(t *testing.T) {
	sink := &shader.CollectSink{}
	dev := &fakeDevice{
		failOn:   "b",
		failWith: func(string) error { return errors.New("pipeline creation failed") },
	}

	pipelines, err := New(dev, WithErrorSink(sink)).Compile(t.Context(), preprocess(t, twoEntrySource), bindings.NewRegistry(64, 64))
	require.Error(t, err)
	assert.Nil(t, pipelines)

	werr, ok := shader.AsWGSLError(err)
	require.True(t, ok)
	assert.Equal(t, shader.ErrorKindGpuCompilation, werr.Kind)
	assert.Equal(t, 0, werr.Line)
	assert.Contains(t, werr.Summary, "pipeline creation failed")

	require.Len(t, dev.handles, 1)
	assert.Equal(t, 1, dev.handles[0].released)
	require.NotNil(t, sink.Last())
	assert.Equal(t, shader.ErrorKindGpuCompilation, sink.Last().Kind)
}

func TestCompileMapsDeviceLineToSource(t *testing.T) {
	src := "#define N 4\n@compute @workgroup_size(1)\nfn main() {\n    let broken = N;\n}\n"
	dev := &fakeDevice{
		failOn: "main",
		failWith: func(code string) error {
			for i, line := range strings.Split(code, "\n") {
				if strings.Contains(line, "let broken") {
					return fmt.Errorf("Shader validation error:\n   ┌─ wgsl:%d:5\n", i+1)
				}
			}
			return errors.New("marker not found")
		},
	}

	_, err := New(dev).Compile(t.Context(), preprocess(t, src), bindings.NewRegistry(64, 64))
	werr, ok := shader.AsWGSLError(err)
	require.True(t, ok)
	assert.Equal(t, 4, werr.Line)
}

func TestCompileErrorInsidePreludeHasNoLine(t *testing.T) {
	dev := &fakeDevice{
		failOn:   "main",
		failWith: func(string) error { return errors.New("error at wgsl:2:1") },
	}
	src := "@compute @workgroup_size(1)\nfn main() {\n}\n"

	_, err := New(dev).Compile(t.Context(), preprocess(t, src), bindings.NewRegistry(64, 64))
	werr, ok := shader.AsWGSLError(err)
	require.True(t, ok)
	assert.Equal(t, 0, werr.Line)
}

func TestCompileCancelled(t *testing.T) {
	dev := &fakeDevice{}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := New(dev).Compile(ctx, preprocess(t, twoEntrySource), bindings.NewRegistry(64, 64))
	werr, ok := shader.AsWGSLError(err)
	require.True(t, ok)
	assert.Equal(t, shader.ErrorKindCancelled, werr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dev.entries)
}

func TestCompileNilSourceMap(t *testing.T) {
	_, err := New(&fakeDevice{}).Compile(t.Context(), nil, bindings.NewRegistry(1, 1))
	assert.ErrorIs(t, err, ErrNilSourceMap)
}

func TestCompileSwapKeepsPreviousSetOnFailure(t *testing.T) {
	set := pipeline.NewSet()
	reg := bindings.NewRegistry(64, 64)

	good, err := New(&fakeDevice{}).Compile(t.Context(), preprocess(t, twoEntrySource), reg)
	require.NoError(t, err)
	set.Swap(good)

	bad := &fakeDevice{failOn: "a", failWith: func(string) error { return errors.New("boom") }}
	_, err = New(bad).Compile(t.Context(), preprocess(t, twoEntrySource), reg)
	require.Error(t, err)

	snapshot := set.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].Name())
}

func TestLastUnitOrder(t *testing.T) {
	src := "enable f16;\n@compute @workgroup_size(1)\nfn main() {\n}\n"
	c := New(&fakeDevice{})

	_, err := c.Compile(t.Context(), preprocess(t, src), bindings.NewRegistry(64, 64))
	require.NoError(t, err)

	unit := c.LastUnit()
	code := unit.Code()
	assert.True(t, strings.HasPrefix(code, "enable f16;\n"))
	assert.True(t, strings.HasSuffix(code, "fn main() {\n}\n"))
	assert.Equal(t, 1+strings.Count(unit.Prelude, "\n"), unit.BodyOffset())
}
