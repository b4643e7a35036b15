package compiler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrEntryPointNotFound is returned by the naga device when a unit has no entry point with the
// requested name.
var ErrEntryPointNotFound = errors.New("entry point not found")

// ErrNotCompute is returned by the naga device when the requested entry point is not a
// compute entry point.
var ErrNotCompute = errors.New("entry point is not a compute entry point")

// NagaPipeline is the handle produced by the naga device. It carries the lowered entry point
// instead of a GPU object.
type NagaPipeline struct {
	Label      string
	EntryPoint ir.EntryPoint
}

func (p *NagaPipeline) Release() {}

// nagaDevice is a headless Device that parses, lowers and validates WGSL with gogpu/naga.
type nagaDevice struct {
	mu       sync.Mutex
	validate bool

	lastCode   string
	lastModule *ir.Module
	lastErr    error
}

var _ Device = &nagaDevice{}

// NagaDeviceOption is a functional option used to configure the naga device during construction.
type NagaDeviceOption func(*nagaDevice)

// WithValidation toggles IR validation after lowering. Validation is on by default.
//
// Parameters:
//   - enabled: false to stop after lowering
//
// Returns:
//   - NagaDeviceOption: a function that sets the validation flag
func WithValidation(enabled bool) NagaDeviceOption {
	return func(d *nagaDevice) {
		d.validate = enabled
	}
}

// NewNagaDevice creates a Device that checks compilation units without a GPU.
// Every entry point of one compile attempt shares the same unit, so the last lowered module
// is cached by its code.
//
// Parameters:
//   - options: functional options for the device
//
// Returns:
//   - Device: the headless device
func NewNagaDevice(options ...NagaDeviceOption) Device {
	d := &nagaDevice{validate: true}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *nagaDevice) CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error) {
	module, err := d.module(code)
	if err != nil {
		return nil, err
	}

	for _, ep := range module.EntryPoints {
		if ep.Name != entryPoint {
			continue
		}
		if ep.Stage != ir.StageCompute {
			return nil, fmt.Errorf("%s: %w: %s", label, ErrNotCompute, entryPoint)
		}
		return &NagaPipeline{Label: label, EntryPoint: ep}, nil
	}
	return nil, fmt.Errorf("%s: %w: %s", label, ErrEntryPointNotFound, entryPoint)
}

func (d *nagaDevice) module(code string) (*ir.Module, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastModule != nil || d.lastErr != nil {
		if code == d.lastCode {
			return d.lastModule, d.lastErr
		}
	}

	module, err := d.lower(code)
	d.lastCode, d.lastModule, d.lastErr = code, module, err
	return module, err
}

func (d *nagaDevice) lower(code string) (*ir.Module, error) {
	ast, err := naga.Parse(code)
	if err != nil {
		return nil, err
	}

	module, err := naga.LowerWithSource(ast, code)
	if err != nil {
		return nil, fmt.Errorf("lower error: %w", err)
	}

	if !d.validate {
		return module, nil
	}
	issues, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("validation failed with %d error(s): %w", len(issues), issues[0])
	}
	return module, nil
}
