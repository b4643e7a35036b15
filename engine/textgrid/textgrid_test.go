package textgrid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLinesPacksColours(t *testing.T) {
	g := FromLines([]StyledLine{{
		{Char: 'f', R: 255, G: 100, B: 50},
		{Char: 'n', R: 100, G: 255, B: 100},
	}})

	ch, colour := g.At(0, 0)
	assert.Equal(t, 'f', ch)
	assert.Equal(t, uint32(0xFF6432), colour)
	ch, colour = g.At(0, 1)
	assert.Equal(t, 'n', ch)
	assert.Equal(t, uint32(0x64FF64), colour)
	assert.Equal(t, 1, g.RowsUsed())
	assert.Equal(t, 2, g.ColsUsed())
}

func TestGridDefaults(t *testing.T) {
	g := NewGrid()
	terminal := g.TerminalBuffer()
	colours := g.ColorBuffer()
	require.Len(t, terminal, Rows*Cols)
	require.Len(t, colours, Rows*Cols)
	for i := range terminal {
		assert.Zero(t, terminal[i])
		assert.Equal(t, DefaultColor, colours[i])
	}
	assert.Equal(t, 9600, BufferSize())
}

func TestFromLinesTruncates(t *testing.T) {
	long := make(StyledLine, Cols+10)
	for i := range long {
		long[i] = StyledRune{Char: 'x'}
	}
	lines := make([]StyledLine, Rows+5)
	for i := range lines {
		lines[i] = long
	}

	g := FromLines(lines)
	assert.Equal(t, Rows, g.RowsUsed())
	assert.Equal(t, Cols, g.ColsUsed())

	buf := g.TerminalBuffer()
	assert.Equal(t, uint32('x'), buf[(Rows-1)*Cols+Cols-1])
}

func TestFromLinesRowMajor(t *testing.T) {
	g := FromLines([]StyledLine{{{Char: 'a'}}, {}, {{Char: 'c'}, {Char: 'd'}}})
	buf := g.TerminalBuffer()
	assert.Equal(t, uint32('a'), buf[0])
	assert.Zero(t, buf[Cols])
	assert.Equal(t, uint32('c'), buf[2*Cols])
	assert.Equal(t, uint32('d'), buf[2*Cols+1])
	assert.Equal(t, 3, g.RowsUsed())
	assert.Equal(t, 2, g.ColsUsed())
}

func TestAtOutOfRange(t *testing.T) {
	g := NewGrid()
	ch, colour := g.At(-1, 0)
	assert.Zero(t, ch)
	assert.Equal(t, DefaultColor, colour)
	ch, _ = g.At(0, Cols)
	assert.Zero(t, ch)
}

func TestHighlightSplitsLines(t *testing.T) {
	code := "package main\n\nfunc main() {\n\treturn\n}\n"
	lines, err := Highlight("go", "", code)
	require.NoError(t, err)
	require.Len(t, lines, 5)

	var text []string
	for _, line := range lines {
		var sb strings.Builder
		for _, sr := range line {
			sb.WriteRune(sr.Char)
		}
		text = append(text, sb.String())
	}
	assert.Equal(t, "package main", text[0])
	assert.Empty(t, text[1])
	assert.Equal(t, "    return", text[3])
}

func TestHighlightColoursKeywords(t *testing.T) {
	lines, err := Highlight("go", "monokai", "func f")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Len(t, lines[0], 6)
	assert.NotEqual(t, lines[0][0].Packed(), lines[0][4].Packed())
}

func TestFromSourceUnknownLanguage(t *testing.T) {
	g, err := FromSource("not-a-language", "not-a-style", "hello\nworld")
	require.NoError(t, err)
	assert.Equal(t, 2, g.RowsUsed())
	assert.Equal(t, 5, g.ColsUsed())
	ch, _ := g.At(1, 0)
	assert.Equal(t, 'w', ch)
}
