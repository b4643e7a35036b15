package pipeline

// Handle is a backend pipeline object. The wgpu backend wraps *wgpu.ComputePipeline, the
// headless validation device returns a handle with nothing to release.
type Handle interface {
	// Release frees the backend resources of the pipeline.
	Release()
}

// computePipeline is the implementation of the ComputePipeline interface.
type computePipeline struct {
	// name is the entry point name, which is also the pipeline key
	name string
	// handle is the backend pipeline, nil until created by a Device
	handle Handle

	workgroupSize  [3]uint32
	workgroupCount *[3]uint32
	dispatchOnce   bool
	dispatchCount  uint32
}

// ComputePipeline is one compiled compute entry point together with the dispatch metadata the
// preprocessor collected for it.
type ComputePipeline interface {
	// Name returns the entry point name of this pipeline.
	//
	// Returns:
	//   - string: the entry point name
	Name() string

	// Handle returns the backend pipeline object.
	//
	// Returns:
	//   - Handle: the backend handle, nil if none was attached
	Handle() Handle

	// WorkgroupSize returns the @workgroup_size of the entry point.
	//
	// Returns:
	//   - [3]uint32: the workgroup dimensions, each at least 1
	WorkgroupSize() [3]uint32

	// ExplicitWorkgroupCount returns the #workgroup_count override, if any.
	//
	// Returns:
	//   - [3]uint32: the override grid
	//   - bool: false when no override was declared
	ExplicitWorkgroupCount() ([3]uint32, bool)

	// WorkgroupCount returns the dispatch grid for a screen of the given size: the override
	// when declared, otherwise enough workgroups to cover every pixel.
	//
	// Parameters:
	//   - width: the screen width in pixels
	//   - height: the screen height in pixels
	//
	// Returns:
	//   - [3]uint32: the dispatch grid
	WorkgroupCount(width, height uint32) [3]uint32

	// DispatchOnce reports whether the pipeline runs only on the first frame after a compile.
	//
	// Returns:
	//   - bool: the dispatch once flag
	DispatchOnce() bool

	// DispatchCount returns how many times the pipeline is dispatched per frame.
	//
	// Returns:
	//   - uint32: the repeat count, 0 skips the pipeline
	DispatchCount() uint32

	// Release releases the backend handle.
	Release()
}

var _ ComputePipeline = &computePipeline{}

// NewComputePipeline creates a ComputePipeline. Defaults: workgroup size [1,1,1], no workgroup
// count override, not dispatch once, dispatch count 1.
//
// Parameters:
//   - name: the entry point name
//   - opts: a variadic list of ComputePipelineOption functions to configure the pipeline
//
// Returns:
//   - ComputePipeline: a new ComputePipeline with the given configuration
func NewComputePipeline(name string, opts ...ComputePipelineOption) ComputePipeline {
	p := &computePipeline{
		name:          name,
		workgroupSize: [3]uint32{1, 1, 1},
		dispatchCount: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *computePipeline) Name() string {
	return p.name
}

func (p *computePipeline) Handle() Handle {
	return p.handle
}

func (p *computePipeline) WorkgroupSize() [3]uint32 {
	return p.workgroupSize
}

func (p *computePipeline) ExplicitWorkgroupCount() ([3]uint32, bool) {
	if p.workgroupCount == nil {
		return [3]uint32{}, false
	}
	return *p.workgroupCount, true
}

func (p *computePipeline) WorkgroupCount(width, height uint32) [3]uint32 {
	if p.workgroupCount != nil {
		return *p.workgroupCount
	}
	return [3]uint32{
		divCeil(width, p.workgroupSize[0]),
		divCeil(height, p.workgroupSize[1]),
		1,
	}
}

func (p *computePipeline) DispatchOnce() bool {
	return p.dispatchOnce
}

func (p *computePipeline) DispatchCount() uint32 {
	return p.dispatchCount
}

func (p *computePipeline) Release() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
}

func divCeil(n, d uint32) uint32 {
	if d == 0 {
		d = 1
	}
	return (n + d - 1) / d
}
