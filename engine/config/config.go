// package config loads codeskew.toml and the per-shader metadata sidecar.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "codeskew.toml"

// Config is the decoded codeskew.toml.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Shader   ShaderConfig   `toml:"shader"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

// WindowConfig is the [window] section.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

// ShaderConfig is the [shader] section.
type ShaderConfig struct {
	Path        string   `toml:"path"`
	IncludeDirs []string `toml:"include_dirs"`
	HotReload   bool     `toml:"hot_reload"`
	DebounceMS  int      `toml:"debounce_ms"`
}

// RendererConfig is the [renderer] section.
type RendererConfig struct {
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter"`
	Storage0Bytes        uint64 `toml:"storage0_bytes"`
	Storage1Bytes        uint64 `toml:"storage1_bytes"`
	PassF32              bool   `toml:"pass_f32"`
}

// LogConfig is the [log] section.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used for keys a file leaves out.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "codeskew",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Shader: ShaderConfig{
			Path:        "examples/shaders/default.wgsl",
			IncludeDirs: []string{"examples/shaders"},
			HotReload:   true,
			DebounceMS:  100,
		},
		Renderer: RendererConfig{
			Storage0Bytes: 128 << 20,
			Storage1Bytes: 8 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML config file over the defaults. A missing file at the default name is not an
// error; a missing file at an explicit path is. Unknown keys are rejected.
//
// Parameters:
//   - path: the file to read, empty for DefaultFileName in the working directory
//
// Returns:
//   - Config: the merged configuration
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			logger.Logger().Debug("no config file, using defaults", "path", expanded)
			cfg := Default()
			return cfg, cfg.expandPaths(".")
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", expanded, err)
	}
	if err := cfg.expandPaths(filepath.Dir(expanded)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Relative paths are left as written.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the merged configuration
//   - error: an error for unknown keys, bad types or invalid values
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: the first invalid value, or nil
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Shader.DebounceMS < 0 {
		return fmt.Errorf("shader.debounce_ms %d must not be negative", c.Shader.DebounceMS)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// expandPaths resolves ~ and makes shader paths relative to base absolute.
func (c *Config) expandPaths(base string) error {
	path, err := resolve(base, c.Shader.Path)
	if err != nil {
		return err
	}
	c.Shader.Path = path

	dirs := make([]string, 0, len(c.Shader.IncludeDirs))
	for _, dir := range c.Shader.IncludeDirs {
		resolved, err := resolve(base, dir)
		if err != nil {
			return err
		}
		dirs = append(dirs, resolved)
	}
	c.Shader.IncludeDirs = dirs
	return nil
}

func resolve(base, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Join(base, expanded), nil
}
