package textgrid

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is named.
const DefaultStyle = "monokai"

// tabWidth is the number of cells a tab expands to.
const tabWidth = 4

// Highlight tokenises code with the chroma lexer for language and colours each character from style.
// Unknown languages fall back to plain text and unknown styles to the chroma fallback.
//
// Parameters:
//   - language: a chroma lexer name, alias or file name such as "go" or "main.rs"
//   - style: a chroma style name, empty for DefaultStyle
//   - code: the source text
//
// Returns:
//   - []StyledLine: the styled lines
//   - error: an error if tokenising fails
func Highlight(language, style, code string) ([]StyledLine, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Match(language)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	if style == "" {
		style = DefaultStyle
	}
	theme := styles.Get(style)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenise %s source: %w", language, err)
	}

	base := theme.Get(chroma.Text).Colour
	if !base.IsSet() {
		base = chroma.MustParseColour("#ffffff")
	}

	lines := []StyledLine{{}}
	for _, tok := range iterator.Tokens() {
		colour := theme.Get(tok.Type).Colour
		if !colour.IsSet() {
			colour = base
		}
		for _, ch := range tok.Value {
			switch ch {
			case '\n':
				lines = append(lines, StyledLine{})
				continue
			case '\r':
				continue
			}
			sr := StyledRune{Char: ch, R: colour.Red(), G: colour.Green(), B: colour.Blue()}
			n := 1
			if ch == '\t' {
				sr.Char = ' '
				n = tabWidth
			}
			last := len(lines) - 1
			for range n {
				lines[last] = append(lines[last], sr)
			}
		}
	}
	if strings.HasSuffix(code, "\n") && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// FromSource highlights code and lays it out into a grid.
//
// Parameters:
//   - language: a chroma lexer name, alias or file name
//   - style: a chroma style name, empty for DefaultStyle
//   - code: the source text
//
// Returns:
//   - Grid: the filled grid
//   - error: an error if tokenising fails
func FromSource(language, style, code string) (Grid, error) {
	lines, err := Highlight(language, style, code)
	if err != nil {
		return nil, err
	}
	return FromLines(lines), nil
}
