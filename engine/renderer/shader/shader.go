package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType picks the stage whose entry points a Shader collects.
type ShaderType int

const (
	// ShaderTypeCompute indicates a compilation unit holding one or more @compute entry points.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the blit vertex stage.
	ShaderTypeVertex

	// ShaderTypeFragment is the blit fragment stage.
	ShaderTypeFragment
)

func (t ShaderType) stage() Stage {
	switch t {
	case ShaderTypeVertex:
		return StageVertex
	case ShaderTypeFragment:
		return StageFragment
	default:
		return StageCompute
	}
}

type shader struct {
	key         string
	source      string
	shaderType  ShaderType
	entryPoints []EntryPoint
	preludeLen  int
	module      *wgpu.ShaderModuleDescriptor
}

// Shader is a WGSL compilation unit ready for module creation. For compute units the source
// is extensions + prelude + user body and every discovered entry point becomes its own
// pipeline.
type Shader interface {
	// Key labels the shader module.
	//
	// Returns:
	//   - string: the key
	Key() string

	// Source is the full compilation unit.
	//
	// Returns:
	//   - string: the WGSL text
	Source() string

	// ShaderType is the stage the entry points were collected for.
	//
	// Returns:
	//   - ShaderType: the stage
	ShaderType() ShaderType

	// EntryPoints returns the entry points of this shader's stage in declaration order.
	//
	// Returns:
	//   - []EntryPoint: the entry points
	EntryPoints() []EntryPoint

	// EntryPoint returns the name of the first entry point, or "" if there is none.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main_image")
	EntryPoint() string

	// PreludeLines returns the number of lines that precede the user body in Source. Line n of
	// Source with n > PreludeLines is line n-PreludeLines of the user body.
	//
	// Returns:
	//   - int: the number of generated lines before the user body
	PreludeLines() int

	// Module is the descriptor passed to CreateShaderModule.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: WGSL code labelled with Key
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader creates a Shader from a complete compilation unit and scans it for entry points
// of the given type's stage.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - shaderType: the stage the entry points are collected for
//   - source: the complete WGSL source
//   - preludeLines: the number of generated lines before the user body, 0 if none
//
// Returns:
//   - Shader: the new shader
//   - error: an error if the source cannot be tokenized
func NewShader(key string, shaderType ShaderType, source string, preludeLines int) (Shader, error) {
	all, err := ScanEntryPoints(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	want := shaderType.stage()
	entries := make([]EntryPoint, 0, len(all))
	for _, e := range all {
		if e.Stage == want {
			entries = append(entries, e)
		}
	}

	return &shader{
		key:         key,
		source:      source,
		shaderType:  shaderType,
		entryPoints: entries,
		preludeLen:  preludeLines,
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: source,
			},
		},
	}, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoints() []EntryPoint {
	return s.entryPoints
}

func (s *shader) EntryPoint() string {
	if len(s.entryPoints) == 0 {
		return ""
	}
	return s.entryPoints[0].Name
}

func (s *shader) PreludeLines() int {
	return s.preludeLen
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
