// directives.go defines the preprocessor directive vocabulary and the helpers that turn a
// directive line into tokens. A directive occupies one full line, starts with '#', and is
// whitespace separated after comments are stripped. Directive semantics live in the
// PreProcessor; this file only knows how to recognise and split them.
package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DirectiveType is the first token of a directive line.
type DirectiveType string

const (
	// DirectiveInclude splices another source into the current one.
	//
	// Syntax:
	//   #include "path/to/file.wgsl"
	//   #include <name>
	//
	// The chevron form resolves std/<name>. #include <string> also switches on string
	// literal rewriting for the rest of the compile.
	DirectiveInclude DirectiveType = "#include"

	// DirectiveWorkgroupCount overrides the dispatch grid of an entry point.
	//
	// Syntax: #workgroup_count NAME X Y Z
	DirectiveWorkgroupCount DirectiveType = "#workgroup_count"

	// DirectiveDispatchOnce marks an entry point to run only on the first frame after a compile.
	//
	// Syntax: #dispatch_once NAME
	DirectiveDispatchOnce DirectiveType = "#dispatch_once"

	// DirectiveDispatchCount repeats an entry point N times per frame.
	//
	// Syntax: #dispatch_count NAME N
	DirectiveDispatchCount DirectiveType = "#dispatch_count"

	// DirectiveDefine adds a substitution. VALUE may be empty.
	//
	// Syntax: #define NAME [VALUE...]
	DirectiveDefine DirectiveType = "#define"

	// DirectiveStorage declares one of the two user storage buffers.
	//
	// Syntax: #storage NAME TYPE...
	DirectiveStorage DirectiveType = "#storage"

	// DirectiveAssert emits a GPU side assertion backed by an atomic counter.
	//
	// Syntax: #assert PREDICATE...
	DirectiveAssert DirectiveType = "#assert"

	// DirectiveData appends u32 values to a named table exposed through the Data struct.
	//
	// Syntax: #data NAME u32 V1,V2,...
	DirectiveData DirectiveType = "#data"
)

// enableKeyword marks lines hoisted into SourceMap.Extensions.
const enableKeyword = "enable"

// stdIncludePrefix is prepended to chevron include names.
const stdIncludePrefix = "std/"

// stringIncludeName is the chevron include that turns string literal rewriting on.
const stringIncludeName = "string"

var (
	// commentRegex matches a line comment or a single-line block comment.
	commentRegex = regexp.MustCompile(`(//.*|(?s:/\*.*?\*/))`)

	// quotedRegex matches a double quoted literal with backslash escapes and captures its body.
	quotedRegex = regexp.MustCompile(`"((?:[^\\"]|\\.)*)"`)

	// chevronRegex captures the name in an <name> include argument.
	chevronRegex = regexp.MustCompile(`<(.*)>`)
)

// Directive is a tokenised directive line.
type Directive struct {
	// Type is the first token, including the '#'.
	Type DirectiveType

	// Args holds the remaining tokens.
	Args []string

	// Line is the line number the directive is attributed to.
	Line int
}

// stripComments removes // and /* */ comments from a single line.
//
// Parameters:
//   - line: the source line
//
// Returns:
//   - string: the line without comments
func stripComments(line string) string {
	return commentRegex.ReplaceAllString(line, "")
}

// parseDirective tokenises a line already known to start with '#'. It returns nil when the
// line holds no tokens after comment stripping.
//
// Parameters:
//   - line: the substituted source line
//   - lineNum: the line number to attribute the directive to
//
// Returns:
//   - *Directive: the tokenised directive, or nil for an empty line
func parseDirective(line string, lineNum int) *Directive {
	tokens := strings.Fields(stripComments(line))
	if len(tokens) == 0 {
		return nil
	}
	return &Directive{
		Type: DirectiveType(tokens[0]),
		Args: tokens[1:],
		Line: lineNum,
	}
}

// isDirectiveLine reports whether the trimmed line is a directive.
func isDirectiveLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#")
}

// isEnableLine reports whether the trimmed line is hoisted into the extensions block.
// The check is a plain prefix match on "enable".
func isEnableLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, enableKeyword)
}

// parseU32 parses a directive value. Decimal and 0x hex are accepted, with an optional
// trailing 'u' suffix.
//
// Parameters:
//   - token: the raw token
//   - lineNum: the line to attribute a failure to
//
// Returns:
//   - uint32: the parsed value
//   - *WGSLError: a DirectiveSyntax error if the token is not a u32
func parseU32(token string, lineNum int) (uint32, *WGSLError) {
	s := strings.TrimSuffix(strings.TrimSpace(token), "u")
	base := 10
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		s, base = rest, 16
	} else if rest, ok := strings.CutPrefix(s, "0X"); ok {
		s, base = rest, 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		werr := newWGSLError(ErrorKindDirectiveSyntax, lineNum, fmt.Sprintf("Cannot parse '%s' as u32", token))
		werr.Err = err
		return 0, werr
	}
	return uint32(v), nil
}
