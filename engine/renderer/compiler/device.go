package compiler

import "github.com/Carmen-Shannon/codeskew-go/engine/renderer/pipeline"

// Device is the part of a GPU device the compiler needs: turning one WGSL compilation unit
// and an entry point name into a compute pipeline.
type Device interface {
	// CreateComputePipeline compiles code and creates a compute pipeline for entryPoint.
	// The same code is passed for every entry point of a compile attempt.
	//
	// Parameters:
	//   - label: a debug label for the pipeline
	//   - code: the complete WGSL compilation unit
	//   - entryPoint: the compute function to use as the pipeline entry
	//
	// Returns:
	//   - pipeline.Handle: the created pipeline, released by the caller
	//   - error: the device error, possibly carrying a line of code
	CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error)
}

// DeviceFunc adapts a plain function to the Device interface.
type DeviceFunc func(label, code, entryPoint string) (pipeline.Handle, error)

func (f DeviceFunc) CreateComputePipeline(label, code, entryPoint string) (pipeline.Handle, error) {
	return f(label, code, entryPoint)
}
