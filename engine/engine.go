package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/Carmen-Shannon/codeskew-go/engine/channel"
	"github.com/Carmen-Shannon/codeskew-go/engine/config"
	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/Carmen-Shannon/codeskew-go/engine/profiler"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/codeskew-go/engine/report"
	"github.com/Carmen-Shannon/codeskew-go/engine/watcher"
	"github.com/Carmen-Shannon/codeskew-go/engine/window"
)

const pausedSuffix = " - Paused"

// engine implements the Engine interface.
// Everything that touches the renderer runs on the window thread inside the update callback.
type engine struct {
	cfg        *config.Config
	configPath string
	shaderPath string

	window   window.Window
	renderer renderer.Renderer
	sink     shader.ErrorSink
	terminal report.TerminalSink
	watcher  watcher.Watcher
	loader   channel.Loader

	profiler         *profiler.Profiler
	profilingEnabled bool
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	keepLogger       bool

	// now is swapped in tests.
	now       func() time.Time
	paused    bool
	reference float32 // seconds accumulated before the current run segment
	started   time.Time
	lastFrame time.Time

	quitChannel chan struct{}
	quitOnce    sync.Once
	releaseOnce sync.Once
}

// Engine is the live preview: a window showing a compute shader that recompiles when its file changes.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer drawing the shader.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Config returns the effective configuration after overrides.
	//
	// Returns:
	//   - config.Config: the configuration
	Config() config.Config

	// Reload reads the shader file, preprocesses and compiles it. On failure the previous
	// pipelines keep rendering and the error is reported to the error sink.
	//
	// Parameters:
	//   - ctx: cancels in-flight include fetches
	//
	// Returns:
	//   - error: the read, preprocess or compile error
	Reload(ctx context.Context) error

	// TogglePause freezes or resumes shader time and updates the window title.
	TogglePause()

	// Paused reports whether shader time is frozen.
	//
	// Returns:
	//   - bool: true while paused
	Paused() bool

	// ResetTime sets shader time back to zero and resumes.
	ResetTime()

	// Run starts the message loop and blocks until the window closes, then releases
	// the renderer, watcher and window.
	Run()

	// Quit stops the message loop at the next frame. Safe to call multiple times.
	Quit()
}

// NewEngine loads the configuration, opens the window, loads the shader with its metadata and
// compiles it. A shader that fails to compile does not fail construction; the error is reported
// to the error sink and the window stays blank until a reload succeeds.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the configuration or shader metadata cannot be loaded
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		now:         time.Now,
		profiler:    profiler.NewProfiler(),
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.cfg == nil {
		cfg, err := config.Load(e.configPath)
		if err != nil {
			return nil, err
		}
		e.cfg = &cfg
	}
	if e.shaderPath != "" {
		e.cfg.Shader.Path = e.shaderPath
	}
	if e.cfg.Shader.Path == "" {
		return nil, fmt.Errorf("no shader path configured")
	}
	if !e.keepLogger {
		level, err := logger.ParseLevel(e.cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLogger(logger.New(os.Stderr, level))
	}

	if e.sink == nil {
		e.sink = report.NewTerminalSink(os.Stderr, report.WithFileName(filepath.Base(e.cfg.Shader.Path)))
	}
	if t, ok := e.sink.(report.TerminalSink); ok {
		e.terminal = t
	}

	meta, err := config.LoadMetadata(e.cfg.Shader.Path)
	if err != nil {
		return nil, err
	}

	if e.window == nil {
		e.window = window.NewWindow(
			window.WithTitle(e.cfg.Window.Title),
			window.WithSize(e.cfg.Window.Width, e.cfg.Window.Height),
		)
	}
	if e.renderer == nil {
		e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, e.rendererOptions(meta)...)
	}
	if e.loader == nil {
		e.loader = channel.NewLoader(
			channel.WithBaseDir(filepath.Dir(e.cfg.Shader.Path)),
			channel.WithCacheDir(filepath.Join(os.TempDir(), "codeskew_cache")),
			channel.WithWorkers(bindings.NumChannels),
		)
	}

	e.applyMetadata(meta)
	e.bindInput()
	e.window.SetTitle(e.cfg.Window.Title)

	if e.cfg.Shader.HotReload && e.watcher == nil {
		e.startWatcher()
	}

	if err := e.Reload(context.Background()); err != nil {
		logger.Logger().Warn("initial shader compile failed", "path", e.cfg.Shader.Path, "error", err)
	}

	e.started = e.now()
	e.lastFrame = e.started
	return e, nil
}

// rendererOptions maps the configuration onto renderer options.
func (e *engine) rendererOptions(meta config.Metadata) []renderer.RendererBuilderOption {
	mode := renderer.PresentModeVSync
	if !e.cfg.Window.VSync {
		mode = renderer.PresentModeUncapped
	}
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(e.cfg.Renderer.ForceFallbackAdapter),
		renderer.WithIncludeResolver(e.includeResolver()),
		renderer.WithErrorSink(e.sink),
		renderer.WithStorageSizes(e.cfg.Renderer.Storage0Bytes, e.cfg.Renderer.Storage1Bytes),
		renderer.WithPassF32(e.cfg.Renderer.PassF32 || meta.Float32Enabled),
	}
}

// includeResolver searches the shader's directory, then each include dir, then the standard library.
func (e *engine) includeResolver() shader.IncludeResolver {
	resolvers := []shader.IncludeResolver{shader.NewFSResolver(os.DirFS(filepath.Dir(e.cfg.Shader.Path)))}
	for _, dir := range e.cfg.Shader.IncludeDirs {
		resolvers = append(resolvers, shader.NewFSResolver(os.DirFS(dir)))
	}
	resolvers = append(resolvers, shader.NewStdResolver())
	return shader.NewChainResolver(resolvers...)
}

// applyMetadata sets custom floats, the pass format and channel textures from the sidecar.
// Texture failures leave the channel blank.
func (e *engine) applyMetadata(meta config.Metadata) {
	if len(meta.Uniforms) > 0 {
		if err := e.renderer.SetCustomFloats(meta.UniformNames(), meta.UniformValues()); err != nil {
			logger.Logger().Warn("failed to set shader uniforms", "error", err)
		}
	}
	if meta.Float32Enabled {
		e.renderer.SetPassF32(true)
	}

	sources := make([]string, 0, bindings.NumChannels)
	for i, tex := range meta.Textures {
		if i >= bindings.NumChannels {
			logger.Logger().Warn("ignoring extra channel textures", "count", len(meta.Textures), "channels", bindings.NumChannels)
			break
		}
		sources = append(sources, tex.Img)
	}
	for i, src := range sources {
		staging, err := e.loader.Load(context.Background(), src)
		if err != nil {
			logger.Logger().Warn("failed to load channel texture", "channel", i, "source", src, "error", err)
			continue
		}
		if err := e.renderer.LoadChannel(i, staging); err != nil {
			logger.Logger().Warn("failed to upload channel texture", "channel", i, "error", err)
		}
	}
}

func (e *engine) startWatcher() {
	w, err := watcher.NewWatcher(watcher.WithDebounce(time.Duration(e.cfg.Shader.DebounceMS) * time.Millisecond))
	if err != nil {
		logger.Logger().Warn("hot reload disabled", "error", err)
		return
	}
	if err := w.Add(e.cfg.Shader.Path); err != nil {
		logger.Logger().Warn("hot reload disabled", "error", err)
		_ = w.Close()
		return
	}
	e.watcher = w
}

// bindInput routes window input to the renderer and the preview controls.
func (e *engine) bindInput() {
	e.window.SetUpdateCallback(e.frame)
	e.window.SetKeyCallback(e.handleKey)
	e.window.SetMouseButtonCallback(func(down bool, x, y float32) {
		e.renderer.SetMouseClick(down)
		if down {
			e.setMouse(x, y)
		}
	})
	e.window.SetCursorCallback(e.setMouse)
	e.window.SetResizeCallback(e.handleResize)
}

func (e *engine) handleKey(key int, down bool) {
	if code, ok := common.WebKeyCode(key); ok {
		e.renderer.SetKey(code, down)
	}
	if !down {
		return
	}
	switch key {
	case common.KeyEsc:
		e.window.RequestClose()
	case common.KeySpace:
		e.TogglePause()
	case common.KeyBackspace:
		e.ResetTime()
	}
}

func (e *engine) setMouse(x, y float32) {
	w, h := e.window.Width(), e.window.Height()
	if w <= 0 || h <= 0 {
		return
	}
	e.renderer.SetMousePos(x/float32(w), y/float32(h))
}

func (e *engine) handleResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.renderer.Resize(width, height, 1); err != nil {
		logger.Logger().Error("failed to resize renderer", "width", width, "height", height, "error", err)
		return
	}
	// SCREEN_WIDTH and SCREEN_HEIGHT are baked into the shader.
	if err := e.Reload(context.Background()); err != nil {
		logger.Logger().Debug("recompile after resize failed", "error", err)
	}
}

// frame runs once per message loop iteration.
func (e *engine) frame() {
	select {
	case <-e.quitChannel:
		e.window.RequestClose()
		return
	default:
	}

	if e.watcher != nil {
		select {
		case path, ok := <-e.watcher.Changes():
			if ok {
				logger.Logger().Info("shader changed, recompiling", "path", path)
				if err := e.Reload(context.Background()); err != nil {
					logger.Logger().Debug("recompile failed, keeping previous pipelines", "error", err)
				}
			}
		default:
		}
	}

	now := e.now()
	if !e.paused {
		e.renderer.SetTimeElapsed(e.elapsedAt(now))
		e.renderer.SetTimeDelta(float32(now.Sub(e.lastFrame).Seconds()))
	} else {
		e.renderer.SetTimeDelta(0)
	}
	e.lastFrame = now

	if err := e.renderer.RenderFrame(); err != nil {
		logger.Logger().Warn("frame failed", "error", err)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) elapsedAt(now time.Time) float32 {
	return e.reference + float32(now.Sub(e.started).Seconds())
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Config() config.Config {
	return *e.cfg
}

func (e *engine) Reload(ctx context.Context) error {
	path := e.cfg.Shader.Path
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read shader: %w", err)
	}
	source := string(data)
	if e.terminal != nil {
		e.terminal.SetSource(filepath.Base(path), source)
	}

	start := time.Now()
	sm, err := e.renderer.Preprocess(ctx, source)
	if err != nil {
		return err
	}
	if err := e.renderer.Compile(ctx, sm); err != nil {
		return err
	}
	logger.Logger().Info("shader compiled", "path", path, "pipelines", len(e.renderer.Pipelines()), "took", time.Since(start))
	return nil
}

func (e *engine) TogglePause() {
	now := e.now()
	e.paused = !e.paused
	if e.paused {
		e.reference = e.elapsedAt(now)
		e.window.SetTitle(e.cfg.Window.Title + pausedSuffix)
		return
	}
	e.started = now
	e.lastFrame = now
	e.profiler.Reset()
	e.window.SetTitle(e.cfg.Window.Title)
}

func (e *engine) Paused() bool {
	return e.paused
}

func (e *engine) ResetTime() {
	now := e.now()
	e.paused = false
	e.reference = 0
	e.started = now
	e.lastFrame = now
	e.renderer.SetTimeElapsed(0)
	e.window.SetTitle(e.cfg.Window.Title)
	logger.Logger().Debug("time reset")
}

func (e *engine) Run() {
	e.window.ProcessMessages()
	e.release()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) release() {
	e.releaseOnce.Do(func() {
		if e.watcher != nil {
			_ = e.watcher.Close()
		}
		e.renderer.Release()
		if err := e.window.Close(); err != nil {
			logger.Logger().Debug("window close", "error", err)
		}
	})
}
