package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandle struct {
	released int
}

func (h *countingHandle) Release() {
	h.released++
}

func TestComputePipelineDefaults(t *testing.T) {
	p := NewComputePipeline("main_image")
	assert.Equal(t, "main_image", p.Name())
	assert.Equal(t, [3]uint32{1, 1, 1}, p.WorkgroupSize())
	assert.False(t, p.DispatchOnce())
	assert.Equal(t, uint32(1), p.DispatchCount())
	_, ok := p.ExplicitWorkgroupCount()
	assert.False(t, ok)
	assert.Nil(t, p.Handle())
	p.Release()
}

func TestComputePipelineWorkgroupCount(t *testing.T) {
	p := NewComputePipeline("a", WithWorkgroupSize([3]uint32{16, 16, 0}))
	assert.Equal(t, [3]uint32{16, 16, 1}, p.WorkgroupSize())
	assert.Equal(t, [3]uint32{120, 68, 1}, p.WorkgroupCount(1920, 1080))
	assert.Equal(t, [3]uint32{1, 1, 1}, p.WorkgroupCount(1, 1))

	o := NewComputePipeline("b", WithWorkgroupSize([3]uint32{8, 8, 1}), WithWorkgroupCount([3]uint32{4, 2, 1}))
	assert.Equal(t, [3]uint32{4, 2, 1}, o.WorkgroupCount(1920, 1080))
	count, ok := o.ExplicitWorkgroupCount()
	assert.True(t, ok)
	assert.Equal(t, [3]uint32{4, 2, 1}, count)
}

func TestComputePipelineRelease(t *testing.T) {
	h := &countingHandle{}
	p := NewComputePipeline("a", WithHandle(h))
	assert.Same(t, h, p.Handle())
	p.Release()
	p.Release()
	assert.Equal(t, 1, h.released)
}

func TestSetPlan(t *testing.T) {
	s := NewSet()
	assert.Empty(t, s.Plan(true))

	initP := NewComputePipeline("init", WithDispatchOnce(true))
	step := NewComputePipeline("step", WithDispatchCount(3))
	never := NewComputePipeline("never", WithDispatchCount(0))
	image := NewComputePipeline("image")
	s.Swap([]ComputePipeline{initP, step, never, image})

	names := func(steps []Step) []string {
		out := make([]string, 0, len(steps))
		for _, st := range steps {
			out = append(out, st.Pipeline.Name())
		}
		return out
	}

	first := s.Plan(s.TakeFirst())
	assert.Equal(t, []string{"init", "step", "step", "step", "image"}, names(first))
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{first[1].ID, first[2].ID, first[3].ID})

	later := s.Plan(s.TakeFirst())
	assert.Equal(t, []string{"step", "step", "step", "image"}, names(later))
}

func TestSetSwap(t *testing.T) {
	s := NewSet()
	h1, h2 := &countingHandle{}, &countingHandle{}
	a := NewComputePipeline("a", WithHandle(h1))
	b := NewComputePipeline("b", WithHandle(h2))

	assert.Empty(t, s.Swap([]ComputePipeline{a}))
	assert.True(t, s.TakeFirst())
	assert.False(t, s.TakeFirst())

	s.Rearm()
	assert.True(t, s.TakeFirst())

	old := s.Swap([]ComputePipeline{b})
	require.Len(t, old, 1)
	assert.Equal(t, "a", old[0].Name())
	ReleaseAll(old)
	assert.Equal(t, 1, h1.released)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "b", snap[0].Name())
	assert.Equal(t, 1, s.Len())

	s.Release()
	assert.Equal(t, 1, h2.released)
	assert.Zero(t, s.Len())
}
