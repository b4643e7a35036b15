package profiler

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestTickClosesInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	mem := runtime.MemStats{Alloc: 2 << 20, TotalAlloc: 4 << 20, NumGC: 2}
	mem.PauseNs[0] = 1000
	mem.PauseNs[1] = 5000
	p := newProfiler(time.Second, clock.now, func(m *runtime.MemStats) { *m = mem })

	for range 59 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		_, closed := p.Tick()
		require.False(t, closed)
	}
	clock.t = time.Unix(1, 0)
	stats, closed := p.Tick()
	require.True(t, closed)

	assert.InDelta(t, 60.0, stats.FPS, 1e-9)
	assert.Equal(t, time.Second/60, stats.FrameTime)
	assert.InDelta(t, 2.0, stats.HeapMB, 1e-9)
	assert.InDelta(t, 4.0, stats.AllocRateMB, 1e-9)
	assert.Equal(t, uint32(2), stats.GCCount)
	assert.Equal(t, 5*time.Microsecond, stats.MaxPause)
	assert.Equal(t, stats, p.Last())
}

func TestResetDropsFrames(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newProfiler(time.Second, clock.now, func(*runtime.MemStats) {})

	p.Tick()
	clock.t = time.Unix(5, 0)
	p.Reset()
	clock.t = time.Unix(6, 0)
	stats, closed := p.Tick()
	require.True(t, closed)
	assert.InDelta(t, 1.0, stats.FPS, 1e-9)
}
