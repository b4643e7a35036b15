package report

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestTerminalSinkPrintsLineAndCarets(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, WithProfile(termenv.Ascii))
	sink.SetSource("toy.wgsl", "fn a() {}\n\t#foo bar\nfn b() {}")

	sink.Report(&shader.WGSLError{Kind: shader.ErrorKindDirectiveSyntax, Line: 2, Summary: "Unrecognised preprocessor directive"})

	assert.Equal(t,
		"toy.wgsl:2: Unrecognised preprocessor directive\n"+
			"2 |     #foo bar\n"+
			"  |     ^^^^^^^^\n",
		buf.String())
}

func TestTerminalSinkWithoutLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, WithProfile(termenv.Ascii), WithFileName("main.wgsl"))
	sink.Report(&shader.WGSLError{Kind: shader.ErrorKindGpuCompilation, Summary: "device lost"})
	sink.Report(&shader.WGSLError{Kind: shader.ErrorKindGpuCompilation, Line: 99, Summary: "past the end"})
	sink.Report(nil)

	assert.Equal(t, "main.wgsl: device lost\nmain.wgsl:99: past the end\n", buf.String())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	NewLogSink(l).Report(&shader.WGSLError{Kind: shader.ErrorKindRedefinition, Line: 3, Summary: "X redefined"})

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "line=3")
	assert.Contains(t, out, `summary="X redefined"`)
}

func TestTee(t *testing.T) {
	a, b := &shader.CollectSink{}, &shader.CollectSink{}
	Tee(a, nil, b).Report(&shader.WGSLError{Summary: "x"})
	assert.Len(t, a.Errors(), 1)
	assert.Len(t, b.Errors(), 1)
}
