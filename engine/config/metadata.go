package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uniform is a named custom float set before the first compile.
type Uniform struct {
	Name  string  `json:"name" yaml:"name"`
	Value float32 `json:"value" yaml:"value"`
}

// Texture names the image bound to the channel at the same index.
type Texture struct {
	Img string `json:"img" yaml:"img"`
}

// Metadata is the sidecar a shader file can carry next to it.
type Metadata struct {
	Uniforms       []Uniform `json:"uniforms" yaml:"uniforms"`
	Textures       []Texture `json:"textures" yaml:"textures"`
	Float32Enabled bool      `json:"float32Enabled" yaml:"float32Enabled"`
}

// sidecarExtensions are tried in order after the shader file name.
var sidecarExtensions = []string{".json", ".yaml", ".yml"}

// SidecarPath returns the metadata file next to a shader, or an empty string when there is none.
//
// Parameters:
//   - shaderPath: the shader file
//
// Returns:
//   - string: the first existing sidecar path
func SidecarPath(shaderPath string) string {
	for _, ext := range sidecarExtensions {
		candidate := shaderPath + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadMetadata reads the sidecar of a shader. A shader without one yields empty metadata.
// Relative local texture paths are resolved against the shader's directory.
//
// Parameters:
//   - shaderPath: the shader file
//
// Returns:
//   - Metadata: the decoded metadata
//   - error: an error if the sidecar exists but cannot be decoded
func LoadMetadata(shaderPath string) (Metadata, error) {
	path := SidecarPath(shaderPath)
	if path == "" {
		return Metadata{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read shader metadata: %w", err)
	}
	meta, err := ParseMetadata(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(shaderPath)
	for i, tex := range meta.Textures {
		if tex.Img == "" || isURL(tex.Img) || filepath.IsAbs(tex.Img) {
			continue
		}
		meta.Textures[i].Img = filepath.Join(dir, tex.Img)
	}
	return meta, nil
}

// ParseMetadata decodes a JSON or YAML sidecar. A document starting with '{' is read as JSON,
// which tolerates the tab indentation YAML rejects. Unknown fields are rejected.
//
// Parameters:
//   - data: the sidecar document
//
// Returns:
//   - Metadata: the decoded metadata
//   - error: an error if decoding fails
func ParseMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&meta); err != nil {
			return Metadata{}, fmt.Errorf("failed to decode shader metadata: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&meta); err != nil && !errors.Is(err, io.EOF) {
			return Metadata{}, fmt.Errorf("failed to decode shader metadata: %w", err)
		}
	}
	for i, u := range meta.Uniforms {
		if u.Name == "" {
			return Metadata{}, fmt.Errorf("uniform %d has no name", i)
		}
	}
	return meta, nil
}

// UniformNames returns the uniform names in declaration order.
func (m Metadata) UniformNames() []string {
	names := make([]string, len(m.Uniforms))
	for i, u := range m.Uniforms {
		names[i] = u.Name
	}
	return names
}

// UniformValues returns the uniform values in declaration order.
func (m Metadata) UniformValues() []float32 {
	values := make([]float32, len(m.Uniforms))
	for i, u := range m.Uniforms {
		values[i] = u.Value
	}
	return values
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
