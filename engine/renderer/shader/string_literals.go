package shader

import (
	"strconv"
	"strings"
)

// StringMaxLen is the fixed capacity of the WGSL String struct used by string mode.
const StringMaxLen = 20

const stringTooLongSummary = "String literals cannot be longer than 20 characters"

// stringEncoder rewrites quoted literals into String constructor calls. It reuses its
// scratch buffers across lines of a single compile.
type stringEncoder struct {
	sb    strings.Builder
	chars []uint32
}

// encodeLine replaces every double quoted literal in line with
// String(len, array<uint,20>(...)). Literals that fail to unescape are left as written.
//
// Parameters:
//   - line: the substituted source line
//   - lineNum: the line to attribute a length error to
//
// Returns:
//   - string: the rewritten line
//   - *WGSLError: a StringLiteralTooLong error for the first literal over StringMaxLen characters
func (e *stringEncoder) encodeLine(line string, lineNum int) (string, *WGSLError) {
	var failure *WGSLError
	out := quotedRegex.ReplaceAllStringFunc(line, func(literal string) string {
		if failure != nil {
			return literal
		}
		decoded, err := strconv.Unquote(literal)
		if err != nil {
			return literal
		}

		e.chars = e.chars[:0]
		for _, r := range decoded {
			e.chars = append(e.chars, uint32(r))
		}
		n := len(e.chars)
		if n > StringMaxLen {
			failure = newWGSLError(ErrorKindStringLiteralTooLong, lineNum, stringTooLongSummary)
			return literal
		}
		for len(e.chars) < StringMaxLen {
			e.chars = append(e.chars, 0)
		}
		return e.constructor(n)
	})
	if failure != nil {
		return "", failure
	}
	return out, nil
}

func (e *stringEncoder) constructor(n int) string {
	e.sb.Reset()
	e.sb.WriteString("String(")
	e.sb.WriteString(strconv.Itoa(n))
	e.sb.WriteString(", array<uint,20>(")
	for i, c := range e.chars {
		if i > 0 {
			e.sb.WriteString(", ")
		}
		e.sb.WriteString(formatCodePoint(c))
	}
	e.sb.WriteString("))")
	return e.sb.String()
}

// formatCodePoint renders c as 0x-prefixed hex with at least two digits.
func formatCodePoint(c uint32) string {
	h := strconv.FormatUint(uint64(c), 16)
	if len(h) < 2 {
		h = "0" + h
	}
	return "0x" + h
}
