package compiler

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/gogpu/naga/wgsl"
)

// ErrNilSourceMap is returned when Compile is called without a source map.
var ErrNilSourceMap = errors.New("compiler: nil source map")

// compiler is the implementation of the Compiler interface.
type compiler struct {
	mu     sync.Mutex
	device Device
	sink   shader.ErrorSink
	label  string
	last   Unit
}

// Compiler turns a preprocessed shader into one compute pipeline per entry point.
type Compiler interface {
	// Compile builds the prelude, assembles the compilation unit, scans it for compute entry
	// points and creates one pipeline per entry point on the device. The result is all or
	// nothing: on failure every pipeline created during the attempt is released.
	//
	// Parameters:
	//   - ctx: cancels the attempt between pipelines
	//   - sourceMap: the preprocessed shader
	//   - registry: the binding registry supplying custom names and declarations
	//
	// Returns:
	//   - []pipeline.ComputePipeline: the new pipeline set in declaration order
	//   - error: a *shader.WGSLError of kind GpuCompilation or Cancelled
	Compile(ctx context.Context, sourceMap *shader.SourceMap, registry bindings.Registry) ([]pipeline.ComputePipeline, error)

	// LastUnit returns the compilation unit of the most recent attempt.
	//
	// Returns:
	//   - Unit: the unit, zero before the first attempt
	LastUnit() Unit
}

var _ Compiler = &compiler{}

// New creates a Compiler that creates pipelines on device.
//
// Parameters:
//   - device: the device pipelines are created on
//   - options: functional options for the compiler
//
// Returns:
//   - Compiler: the new compiler
func New(device Device, options ...CompilerOption) Compiler {
	c := &compiler{
		device: device,
		sink:   shader.DiscardSink,
		label:  "user shader",
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) LastUnit() Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *compiler) Compile(ctx context.Context, sourceMap *shader.SourceMap, registry bindings.Registry) ([]pipeline.ComputePipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sourceMap == nil {
		return nil, ErrNilSourceMap
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(cancelled(err))
	}

	start := time.Now()
	unit := NewUnit(sourceMap, registry)
	c.last = unit

	sh, err := shader.NewShader(c.label, shader.ShaderTypeCompute, unit.Code(), unit.BodyOffset())
	if err != nil {
		return nil, c.fail(&shader.WGSLError{Kind: shader.ErrorKindGpuCompilation, Summary: err.Error(), Err: err})
	}

	entries := sh.EntryPoints()
	if len(entries) == 0 {
		logger.Logger().Warn("shader has no compute entry points", "label", c.label)
	}

	built := make([]pipeline.ComputePipeline, 0, len(entries))
	for _, ep := range entries {
		if err := ctx.Err(); err != nil {
			pipeline.ReleaseAll(built)
			return nil, c.fail(cancelled(err))
		}

		handle, err := c.device.CreateComputePipeline(ep.Name, sh.Source(), ep.Name)
		if err != nil {
			pipeline.ReleaseAll(built)
			return nil, c.fail(&shader.WGSLError{
				Kind:    shader.ErrorKindGpuCompilation,
				Summary: err.Error(),
				Line:    unit.SourceLine(sourceMap, deviceErrorLine(err)),
				Err:     err,
			})
		}

		opts := []pipeline.ComputePipelineOption{
			pipeline.WithHandle(handle),
			pipeline.WithWorkgroupSize(ep.WorkgroupSize),
			pipeline.WithDispatchOnce(sourceMap.DispatchOnce[ep.Name]),
		}
		if count, ok := sourceMap.WorkgroupCount[ep.Name]; ok {
			opts = append(opts, pipeline.WithWorkgroupCount(count))
		}
		if n, ok := sourceMap.DispatchCount[ep.Name]; ok {
			opts = append(opts, pipeline.WithDispatchCount(n))
		}
		p := pipeline.NewComputePipeline(ep.Name, opts...)
		built = append(built, p)

		logger.Logger().Debug("compute pipeline created",
			"entry_point", ep.Name,
			"workgroup_size", p.WorkgroupSize(),
			"dispatch_once", p.DispatchOnce(),
			"dispatch_count", p.DispatchCount(),
		)
	}

	logger.Logger().Info("shader compiled", "label", c.label, "entry_points", len(built), "elapsed", time.Since(start))
	return built, nil
}

func (c *compiler) fail(err *shader.WGSLError) *shader.WGSLError {
	c.sink.Report(err)
	return err
}

func cancelled(cause error) *shader.WGSLError {
	return &shader.WGSLError{Kind: shader.ErrorKindCancelled, Summary: "compilation cancelled", Err: cause}
}

// wgpuLocation matches the span marker in wgpu shader diagnostics, e.g. "┌─ wgsl:12:5".
var wgpuLocation = regexp.MustCompile(`wgsl:(\d+):\d+`)

// deviceErrorLine extracts the 1-based unit line from a device error, or 0.
func deviceErrorLine(err error) int {
	var sourceErrs *wgsl.SourceErrors
	if errors.As(err, &sourceErrs) && sourceErrs.Len() > 0 {
		return (*sourceErrs)[0].Span.Start.Line
	}
	var sourceErr *wgsl.SourceError
	if errors.As(err, &sourceErr) {
		return sourceErr.Span.Start.Line
	}
	var parseErr wgsl.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Token.Line
	}
	if m := wgpuLocation.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			return line
		}
	}
	return 0
}
