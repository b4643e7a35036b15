package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
)

// Stats is one interval summary produced by Tick.
type Stats struct {
	// FPS is the number of frames per second over the interval.
	FPS float64
	// FrameTime is the mean frame duration over the interval.
	FrameTime time.Duration
	// HeapMB is the live heap in megabytes.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in megabytes per second.
	AllocRateMB float64
	// GCCount is the total number of completed collections.
	GCCount uint32
	// MaxPause is the longest collection pause seen during the interval.
	MaxPause time.Duration
}

// Profiler summarises frame rate and memory once per interval and logs the summary at INFO.
type Profiler struct {
	interval       time.Duration
	now            func() time.Time
	readMem        func(*runtime.MemStats)
	frames         int
	since          time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a Profiler with a one second interval.
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler() *Profiler {
	return newProfiler(time.Second, time.Now, runtime.ReadMemStats)
}

func newProfiler(interval time.Duration, now func() time.Time, readMem func(*runtime.MemStats)) *Profiler {
	return &Profiler{
		interval: interval,
		now:      now,
		readMem:  readMem,
		since:    now(),
	}
}

// Tick records one presented frame. When the interval has elapsed the summary is logged and returned.
//
// Returns:
//   - Stats: the summary of the interval that just closed
//   - bool: true if an interval closed on this tick
func (p *Profiler) Tick() (Stats, bool) {
	p.frames++
	now := p.now()
	elapsed := now.Sub(p.since)
	if elapsed < p.interval {
		return Stats{}, false
	}

	p.readMem(&p.memStats)
	stats := Stats{
		FPS:         float64(p.frames) / elapsed.Seconds(),
		FrameTime:   elapsed / time.Duration(p.frames),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		MaxPause:    p.maxPause(),
	}

	logger.Logger().Info("frame stats",
		"fps", stats.FPS,
		"frame_time", stats.FrameTime,
		"heap_mb", stats.HeapMB,
		"alloc_mb_s", stats.AllocRateMB,
		"gc", stats.GCCount,
		"max_pause", stats.MaxPause)

	p.frames = 0
	p.since = now
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.last = stats
	return stats, true
}

// Last returns the most recent closed interval, zero before the first.
func (p *Profiler) Last() Stats {
	return p.last
}

// Reset starts a new interval, dropping frames counted so far. Used after a pause.
func (p *Profiler) Reset() {
	p.frames = 0
	p.since = p.now()
}

// maxPause scans the PauseNs ring for collections since the previous interval.
func (p *Profiler) maxPause() time.Duration {
	count := p.memStats.NumGC
	start := p.lastGCCount
	if count-start > uint32(len(p.memStats.PauseNs)) {
		start = count - uint32(len(p.memStats.PauseNs))
	}
	var longest uint64
	for i := start; i < count; i++ {
		longest = max(longest, p.memStats.PauseNs[i%uint32(len(p.memStats.PauseNs))])
	}
	return time.Duration(longest)
}
