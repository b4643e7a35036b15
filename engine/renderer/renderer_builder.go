package renderer

import (
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
)

// RendererBuilderOption configures a renderer built by NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode picks the surface present mode used once the surface is configured.
//
// Parameters:
//   - mode: PresentModeVSync or PresentModeUncapped
//
// Returns:
//   - RendererBuilderOption: the option storing the mode
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer requests the fallback adapter. A software Vulkan driver such as
// lavapipe must be installed.
//
// Parameters:
//   - force: true selects the fallback adapter
//
// Returns:
//   - RendererBuilderOption: the option storing the flag
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithIncludeResolver sets the resolver used by Preprocess for #include directives.
//
// Parameters:
//   - resolver: the include resolver
//
// Returns:
//   - RendererBuilderOption: a function that sets the resolver
func WithIncludeResolver(resolver shader.IncludeResolver) RendererBuilderOption {
	return func(r *renderer) {
		r.resolver = resolver
	}
}

// WithErrorSink sets the sink that preprocess and compile errors are reported to.
//
// Parameters:
//   - sink: the error sink, nil discards
//
// Returns:
//   - RendererBuilderOption: a function that sets the sink
func WithErrorSink(sink shader.ErrorSink) RendererBuilderOption {
	return func(r *renderer) {
		if sink == nil {
			sink = shader.DiscardSink
		}
		r.sink = sink
	}
}

// WithDefines adds definitions seeded into every Preprocess call. SCREEN_WIDTH and
// SCREEN_HEIGHT always reflect the screen size.
//
// Parameters:
//   - defines: the name to value pairs
//
// Returns:
//   - RendererBuilderOption: a function that sets the defines
func WithDefines(defines map[string]string) RendererBuilderOption {
	return func(r *renderer) {
		r.defines = defines
	}
}

// WithStorageSizes sets the byte sizes of storage slots 0 and 1. The backend clamps them to
// the device limit.
//
// Parameters:
//   - slot0: the size of storage slot 0
//   - slot1: the size of storage slot 1
//
// Returns:
//   - RendererBuilderOption: a function that sets the storage sizes
func WithStorageSizes(slot0, slot1 uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.registryOptions = append(r.registryOptions, bindings.WithStorageSizes(slot0, slot1))
	}
}

// WithPassF32 selects rgba32float pass textures from the start.
//
// Parameters:
//   - enabled: true for 32-bit pass textures
//
// Returns:
//   - RendererBuilderOption: a function that sets the pass format
func WithPassF32(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.registryOptions = append(r.registryOptions, bindings.WithPassF32(enabled))
	}
}

// WithMaxAsserts sets the number of assertion counters.
//
// Parameters:
//   - n: the counter count, values below 1 keep the default
//
// Returns:
//   - RendererBuilderOption: a function that sets the counter count
func WithMaxAsserts(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.maxAsserts = n
		}
	}
}

// WithReadbackWorkers sets the number of workers converting RenderToBuffer rows.
//
// Parameters:
//   - workers: the worker count, 0 uses one less than the CPU count
//
// Returns:
//   - RendererBuilderOption: a function that sets the worker count
func WithReadbackWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		r.readbackWorkers = workers
	}
}
