// package report renders shader errors for humans and for logs.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/muesli/termenv"
)

// TerminalSink prints each error as "file:line: summary" followed by the offending source line
// and a caret gutter under it.
type TerminalSink interface {
	shader.ErrorSink

	// SetSource replaces the shader text that reported lines are looked up in.
	//
	// Parameters:
	//   - file: the name printed before the line number
	//   - source: the user shader text
	SetSource(file, source string)
}

type terminalSink struct {
	mu    sync.Mutex
	out   *termenv.Output
	file  string
	lines []string
}

var _ TerminalSink = &terminalSink{}

// NewTerminalSink creates a TerminalSink writing to w. Colours follow the terminal profile of w
// unless overridden with WithProfile.
//
// Parameters:
//   - w: the writer, usually os.Stderr
//   - options: the TerminalSinkBuilderOptions to apply
//
// Returns:
//   - TerminalSink: the sink
func NewTerminalSink(w io.Writer, options ...TerminalSinkBuilderOption) TerminalSink {
	cfg := terminalSinkConfig{file: "shader"}
	for _, opt := range options {
		opt(&cfg)
	}
	outOpts := []termenv.OutputOption{}
	if cfg.profile != nil {
		outOpts = append(outOpts, termenv.WithProfile(*cfg.profile))
	}
	return &terminalSink{
		out:  termenv.NewOutput(w, outOpts...),
		file: cfg.file,
	}
}

func (t *terminalSink) SetSource(file, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if file != "" {
		t.file = file
	}
	t.lines = strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
}

func (t *terminalSink) Report(err *shader.WGSLError) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	red := t.out.Color("1")
	blue := t.out.Color("4")

	location := t.file
	if err.Line > 0 {
		location = fmt.Sprintf("%s:%d", t.file, err.Line)
	}
	fmt.Fprintf(t.out, "%s: %s\n",
		t.out.String(location).Bold(),
		t.out.String(err.Summary).Foreground(red))

	if err.Line <= 0 || err.Line > len(t.lines) {
		return
	}
	text := strings.ReplaceAll(t.lines[err.Line-1], "\t", "    ")
	number := fmt.Sprintf("%d", err.Line)
	gutter := strings.Repeat(" ", len(number))

	trimmed := strings.TrimLeft(text, " ")
	indent := len(text) - len(trimmed)
	carets := strings.Repeat("^", max(len(strings.TrimRight(trimmed, " ")), 1))

	fmt.Fprintf(t.out, "%s %s %s\n", t.out.String(number).Foreground(blue), t.out.String("|").Foreground(blue), text)
	fmt.Fprintf(t.out, "%s %s %s%s\n", gutter, t.out.String("|").Foreground(blue), strings.Repeat(" ", indent), t.out.String(carets).Foreground(red))
}

type logSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink that logs each error at ERROR with its kind and line.
//
// Parameters:
//   - l: the logger, nil for the engine logger
//
// Returns:
//   - shader.ErrorSink: the sink
func NewLogSink(l *slog.Logger) shader.ErrorSink {
	return &logSink{log: l}
}

func (s *logSink) Report(err *shader.WGSLError) {
	if err == nil {
		return
	}
	l := s.log
	if l == nil {
		l = logger.Logger()
	}
	l.Error("shader error", "kind", err.Kind.String(), "line", err.Line, "summary", err.Summary)
}

// Tee fans each error out to every sink.
//
// Parameters:
//   - sinks: the sinks, nil entries are skipped
//
// Returns:
//   - shader.ErrorSink: the combined sink
func Tee(sinks ...shader.ErrorSink) shader.ErrorSink {
	return shader.ErrorSinkFunc(func(err *shader.WGSLError) {
		for _, s := range sinks {
			if s != nil {
				s.Report(err)
			}
		}
	})
}
