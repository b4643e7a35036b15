package pipeline

import "sync"

// Step is one dispatch of a frame: the pipeline and the repeat index written to dispatch.id.
type Step struct {
	Pipeline ComputePipeline
	ID       uint32
}

// Set is the installed pipeline collection of a renderer. Compiles build a replacement off to
// the side and install it with Swap, so readers always see either the old or the new set.
type Set struct {
	mu        sync.RWMutex
	pipelines []ComputePipeline
	first     bool
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Swap installs pipelines and returns the previous set, which the caller releases once no frame
// uses it. The next frame after a swap counts as the first frame.
//
// Parameters:
//   - pipelines: the new set, in entry point declaration order
//
// Returns:
//   - []ComputePipeline: the previously installed set
func (s *Set) Swap(pipelines []ComputePipeline) []ComputePipeline {
	next := make([]ComputePipeline, len(pipelines))
	copy(next, pipelines)

	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.pipelines
	s.pipelines = next
	s.first = true
	return old
}

// Snapshot returns a copy of the installed pipelines.
func (s *Set) Snapshot() []ComputePipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ComputePipeline, len(s.pipelines))
	copy(out, s.pipelines)
	return out
}

// Len returns the number of installed pipelines.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pipelines)
}

// TakeFirst reports whether no frame has been planned since the last Swap and clears the flag.
func (s *Set) TakeFirst() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.first
	s.first = false
	return first
}

// Rearm makes the next frame count as the first frame again, so dispatch once pipelines run
// after a reset.
func (s *Set) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.first = true
}

// Plan returns the ordered dispatch list of one frame. Dispatch once pipelines are included
// only when first is true. Each pipeline contributes DispatchCount steps with IDs 0..n-1.
//
// Parameters:
//   - first: whether this is the first frame after a Swap
//
// Returns:
//   - []Step: the dispatches in order
func (s *Set) Plan(first bool) []Step {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := make([]Step, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		if p.DispatchOnce() && !first {
			continue
		}
		for id := range p.DispatchCount() {
			steps = append(steps, Step{Pipeline: p, ID: id})
		}
	}
	return steps
}

// Release releases every installed pipeline and empties the set.
func (s *Set) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pipelines {
		p.Release()
	}
	s.pipelines = nil
}

// ReleaseAll releases every pipeline in pipelines.
func ReleaseAll(pipelines []ComputePipeline) {
	for _, p := range pipelines {
		if p != nil {
			p.Release()
		}
	}
}
