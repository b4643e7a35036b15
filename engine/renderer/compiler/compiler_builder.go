package compiler

import "github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"

// CompilerOption is a functional option used to configure a Compiler during construction.
type CompilerOption func(*compiler)

// WithErrorSink sets the sink every compile failure is reported to.
//
// Parameters:
//   - s: the sink, nil restores the discarding default
//
// Returns:
//   - CompilerOption: a function that sets the sink
func WithErrorSink(s shader.ErrorSink) CompilerOption {
	return func(c *compiler) {
		if s == nil {
			s = shader.DiscardSink
		}
		c.sink = s
	}
}

// WithLabel sets the label used for the shader module and in log records.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - CompilerOption: a function that sets the label
func WithLabel(label string) CompilerOption {
	return func(c *compiler) {
		c.label = label
	}
}
