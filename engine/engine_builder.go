package engine

import (
	"time"

	"github.com/Carmen-Shannon/codeskew-go/engine/config"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/codeskew-go/engine/window"
)

// EngineBuilderOption adjusts an engine before NewEngine wires it.
type EngineBuilderOption func(*engine)

// WithConfig uses cfg instead of loading a config file.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: the option
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = &cfg
	}
}

// WithConfigPath loads the config from path instead of codeskew.toml in the working directory.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - EngineBuilderOption: the option
func WithConfigPath(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
	}
}

// WithShaderPath overrides the configured shader file.
//
// Parameters:
//   - path: the WGSL file to preview
//
// Returns:
//   - EngineBuilderOption: the option
func WithShaderPath(path string) EngineBuilderOption {
	return func(e *engine) {
		e.shaderPath = path
	}
}

// WithProfiling enables or disables the once per second frame stats log.
//
// Parameters:
//   - enabled: true logs frame stats
//
// Returns:
//   - EngineBuilderOption: the option
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow supplies the window instead of opening one from the config.
//
// Parameters:
//   - w: the window, released by the engine on exit
//
// Returns:
//   - EngineBuilderOption: the option
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets a renderer built by the caller. Renderer options derived from the config
// are not applied to it.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: the option
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithErrorSink replaces the terminal sink shader errors are printed to.
//
// Parameters:
//   - sink: the error sink
//
// Returns:
//   - EngineBuilderOption: the option
func WithErrorSink(sink shader.ErrorSink) EngineBuilderOption {
	return func(e *engine) {
		e.sink = sink
	}
}

// WithKeepLogger leaves the installed engine logger alone instead of replacing it with a
// stderr logger at the configured level.
//
// Returns:
//   - EngineBuilderOption: the option
func WithKeepLogger() EngineBuilderOption {
	return func(e *engine) {
		e.keepLogger = true
	}
}

// WithRenderFrameLimit sleeps after each frame so at most fps frames render per second.
//
// Parameters:
//   - fps: the cap, 0 or less renders unthrottled
//
// Returns:
//   - EngineBuilderOption: the option
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
