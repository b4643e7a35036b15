// prelude.go generates the WGSL that precedes every user shader: type aliases, the uniform
// structs, the bindings and the helper functions.
package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
)

//go:embed assets/helpers.wgsl
var helpersSource string

type typeAlias struct {
	name string
	wgsl string
}

var scalarAliases = []typeAlias{
	{"int", "i32"},
	{"uint", "u32"},
	{"float", "f32"},
}

var vectorAliases = []typeAlias{
	{"int", "i32"},
	{"uint", "u32"},
	{"float", "f32"},
	{"bool", "bool"},
}

// placeholderField keeps an otherwise empty struct valid WGSL.
const placeholderField = "_dummy"

// BuildPrelude generates the prelude for one compile attempt. It is rebuilt from the current
// custom float names of registry and the user data tables of sourceMap every time it is called.
//
// Parameters:
//   - registry: the binding registry supplying custom names and resource declarations
//   - sourceMap: the preprocessed shader supplying the #data tables, may be nil
//
// Returns:
//   - string: the prelude WGSL, every line terminated by a newline
func BuildPrelude(registry bindings.Registry, sourceMap *shader.SourceMap) string {
	var sb strings.Builder

	for _, a := range scalarAliases {
		fmt.Fprintf(&sb, "alias %s = %s;\n", a.name, a.wgsl)
	}
	for _, a := range vectorAliases {
		for n := 2; n <= 4; n++ {
			fmt.Fprintf(&sb, "alias %s%d = vec%d<%s>;\n", a.name, n, n, a.wgsl)
		}
	}
	for n := 2; n <= 4; n++ {
		for m := 2; m <= 4; m++ {
			fmt.Fprintf(&sb, "alias float%dx%d = mat%dx%d<f32>;\n", n, m, n, m)
		}
	}

	writeBlock(&sb, bindings.GPUTypesSource)
	writeCustomStruct(&sb, registry.CustomNames())

	table := shader.NewSourceMap().UserData
	if sourceMap != nil && sourceMap.UserData != nil {
		table = sourceMap.UserData
	}
	writeDataStruct(&sb, table)

	writeBlock(&sb, registry.WGSL())
	writeBlock(&sb, helpersSource)
	return sb.String()
}

func writeCustomStruct(sb *strings.Builder, names []string) {
	sb.WriteString("struct Custom {\n")
	if len(names) == 0 {
		fmt.Fprintf(sb, "    %s: float,\n", placeholderField)
	}
	for _, name := range names {
		fmt.Fprintf(sb, "    %s: float,\n", name)
	}
	sb.WriteString("};\n")
}

func writeDataStruct(sb *strings.Builder, table *shader.DataTable) {
	sb.WriteString("struct Data {\n")
	names := table.Names()
	if len(names) == 0 {
		fmt.Fprintf(sb, "    %s: array<u32,1>,\n", placeholderField)
	}
	for _, name := range names {
		values, _ := table.Get(name)
		fmt.Fprintf(sb, "    %s: array<u32,%d>,\n", name, max(len(values), 1))
	}
	sb.WriteString("};\n")
}

// writeBlock appends text and terminates it with a newline if it lacks one.
func writeBlock(sb *strings.Builder, text string) {
	if text == "" {
		return
	}
	sb.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		sb.WriteByte('\n')
	}
}

// Unit is one WGSL compilation unit split into its generated and user parts.
// Code is Extensions, then Prelude, then Body. Extensions go first because WGSL requires
// enable directives ahead of every declaration.
type Unit struct {
	Extensions string
	Prelude    string
	Body       string
}

// NewUnit assembles the compilation unit for sourceMap against the current registry state.
//
// Parameters:
//   - sourceMap: the preprocessed shader
//   - registry: the binding registry
//
// Returns:
//   - Unit: the assembled unit
func NewUnit(sourceMap *shader.SourceMap, registry bindings.Registry) Unit {
	return Unit{
		Extensions: sourceMap.Extensions,
		Prelude:    BuildPrelude(registry, sourceMap),
		Body:       sourceMap.Source,
	}
}

// Code returns the complete WGSL text of the unit.
func (u Unit) Code() string {
	return u.Extensions + u.Prelude + u.Body
}

// BodyOffset returns the number of generated lines that precede the user body in Code.
func (u Unit) BodyOffset() int {
	return countLines(u.Extensions) + countLines(u.Prelude)
}

// SourceLine maps a 1-based line of Code back to the line of the original shader file.
// Lines inside the generated region, and lines that cannot be mapped, return 0.
//
// Parameters:
//   - sourceMap: the source map the unit was built from
//   - unitLine: the 1-based line within Code
//
// Returns:
//   - int: the 1-based line of the user's shader file, or 0
func (u Unit) SourceLine(sourceMap *shader.SourceMap, unitLine int) int {
	bodyLine := unitLine - u.BodyOffset()
	if unitLine <= 0 || bodyLine <= 0 {
		return 0
	}
	line, ok := sourceMap.OriginalLine(bodyLine)
	if !ok {
		return 0
	}
	return line
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
