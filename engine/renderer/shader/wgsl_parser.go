package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/naga/wgsl"
)

// Stage is the pipeline stage an entry point is declared for.
type Stage int

const (
	// StageNone marks a function without a stage attribute.
	StageNone Stage = iota

	// StageCompute marks a @compute entry point.
	StageCompute

	// StageVertex marks a @vertex entry point.
	StageVertex

	// StageFragment marks a @fragment entry point.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "none"
	}
}

// EntryPoint is a function discovered by ScanEntryPoints.
type EntryPoint struct {
	// Name is the function name used as the pipeline entry symbol.
	Name string

	// Stage is the stage attribute found on the function.
	Stage Stage

	// WorkgroupSize is the @workgroup_size of a compute entry point. Missing or non-literal
	// dimensions are 1.
	WorkgroupSize [3]uint32

	// Line is the 1-based line of the fn keyword within the scanned source.
	Line int
}

// attributeList accumulates the attributes that precede a declaration.
type attributeList struct {
	stage         Stage
	hasWorkgroup  bool
	workgroupSize [3]uint32
}

// ScanEntryPoints walks the token stream of source and returns every function whose
// attribute list declares a stage, in declaration order. Attributes may appear in any order.
// An attribute list is reset by any token that is not part of an attribute, so attributes
// on variables, struct members or parameters never attach to a later function.
//
// Compute functions are reported only when they also carry @workgroup_size.
//
// Parameters:
//   - source: the WGSL compilation unit
//
// Returns:
//   - []EntryPoint: the entry points in source order
//   - error: an error if the lexer rejects the source
func ScanEntryPoints(source string) ([]EntryPoint, error) {
	tokens, err := wgsl.NewLexer(source).Tokenize()
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize shader source: %w", err)
	}

	var entries []EntryPoint
	var attrs attributeList

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case wgsl.TokenAt:
			if i+1 >= len(tokens) {
				return entries, nil
			}
			name := tokens[i+1].Lexeme
			args, next := attributeArgs(tokens, i+2)
			switch name {
			case "compute":
				attrs.stage = StageCompute
			case "vertex":
				attrs.stage = StageVertex
			case "fragment":
				attrs.stage = StageFragment
			case "workgroup_size":
				attrs.hasWorkgroup = true
				attrs.workgroupSize = parseWorkgroupSize(args)
			}
			i = next - 1
		case wgsl.TokenFn:
			if i+1 < len(tokens) && tokens[i+1].Kind == wgsl.TokenIdent && attrs.stage != StageNone {
				if attrs.stage != StageCompute || attrs.hasWorkgroup {
					entries = append(entries, EntryPoint{
						Name:          tokens[i+1].Lexeme,
						Stage:         attrs.stage,
						WorkgroupSize: attrs.workgroupSize,
						Line:          tok.Line,
					})
				}
			}
			attrs = attributeList{}
		case wgsl.TokenEOF:
			return entries, nil
		default:
			attrs = attributeList{}
		}
	}
	return entries, nil
}

// ScanComputeEntryPoints returns only the compute entry points of source.
func ScanComputeEntryPoints(source string) ([]EntryPoint, error) {
	all, err := ScanEntryPoints(source)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.Stage == StageCompute {
			out = append(out, e)
		}
	}
	return out, nil
}

// attributeArgs reads a parenthesised, comma separated argument list starting at tokens[start].
// It returns one token slice per top level argument and the index just past the closing
// parenthesis. Without a '(' at start it returns no arguments and start.
func attributeArgs(tokens []wgsl.Token, start int) ([][]wgsl.Token, int) {
	if start >= len(tokens) || tokens[start].Kind != wgsl.TokenLeftParen {
		return nil, start
	}

	var args [][]wgsl.Token
	var current []wgsl.Token
	depth := 0
	for i := start + 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case wgsl.TokenLeftParen:
			depth++
		case wgsl.TokenRightParen:
			if depth == 0 {
				if len(current) > 0 {
					args = append(args, current)
				}
				return args, i + 1
			}
			depth--
		case wgsl.TokenComma:
			if depth == 0 {
				args = append(args, current)
				current = nil
				continue
			}
		case wgsl.TokenEOF:
			return args, i
		}
		current = append(current, tok)
	}
	return args, len(tokens)
}

// parseWorkgroupSize converts up to three @workgroup_size arguments into dimensions. An
// argument that is not a single integer literal, or is zero, becomes 1, as does every
// missing trailing dimension.
func parseWorkgroupSize(args [][]wgsl.Token) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	for i := 0; i < len(args) && i < 3; i++ {
		if len(args[i]) != 1 || args[i][0].Kind != wgsl.TokenIntLiteral {
			continue
		}
		if v, ok := parseIntLiteral(args[i][0].Lexeme); ok && v > 0 {
			size[i] = v
		}
	}
	return size
}

// parseIntLiteral parses a WGSL integer literal with an optional u or i suffix.
func parseIntLiteral(lexeme string) (uint32, bool) {
	s := strings.TrimRight(lexeme, "ui")
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
