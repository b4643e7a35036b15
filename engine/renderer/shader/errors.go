package shader

import (
	"errors"
	"fmt"
	"sync"
)

// ErrorKind classifies a WGSLError by the stage and rule that produced it.
type ErrorKind int

const (
	// ErrorKindDirectiveSyntax covers wrong directive arity, unknown directives and unparseable values.
	ErrorKindDirectiveSyntax ErrorKind = iota

	// ErrorKindRedefinition is raised when #define targets a name that already exists.
	ErrorKindRedefinition

	// ErrorKindResourceLimit is raised when the #storage or #assert caps are exceeded.
	ErrorKindResourceLimit

	// ErrorKindIncludeNotFound is raised when an include path cannot be resolved.
	ErrorKindIncludeNotFound

	// ErrorKindStringLiteralTooLong is raised in string mode for literals over StringMaxLen characters.
	ErrorKindStringLiteralTooLong

	// ErrorKindGpuCompilation is raised when the device rejects a shader module or pipeline.
	ErrorKindGpuCompilation

	// ErrorKindCancelled is raised when the context of a compile attempt is done.
	ErrorKindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindDirectiveSyntax:
		return "directive syntax"
	case ErrorKindRedefinition:
		return "redefinition"
	case ErrorKindResourceLimit:
		return "resource limit"
	case ErrorKindIncludeNotFound:
		return "include not found"
	case ErrorKindStringLiteralTooLong:
		return "string literal too long"
	case ErrorKindGpuCompilation:
		return "gpu compilation"
	case ErrorKindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// WGSLError is the single error type produced by preprocessing and compilation.
// Line is the 1-based line of the user shader the error is attributed to, or 0 when
// no line could be determined.
type WGSLError struct {
	Kind    ErrorKind
	Summary string
	Line    int

	// Err is the underlying cause, if any (resolver failure, context error, device error).
	Err error
}

func newWGSLError(kind ErrorKind, line int, summary string) *WGSLError {
	return &WGSLError{Kind: kind, Summary: summary, Line: line}
}

func (e *WGSLError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Summary)
	}
	return e.Summary
}

func (e *WGSLError) Unwrap() error {
	return e.Err
}

// AsWGSLError unwraps err into a *WGSLError.
//
// Parameters:
//   - err: any error, possibly wrapping a *WGSLError
//
// Returns:
//   - *WGSLError: the wrapped WGSLError, or nil
//   - bool: true if err contained a WGSLError
func AsWGSLError(err error) (*WGSLError, bool) {
	var werr *WGSLError
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}

// ErrorSink receives every WGSLError produced by a compile attempt. It is injected into the
// PreProcessor and the Compiler so shader errors can be surfaced next to the offending source
// without a global output channel.
type ErrorSink interface {
	// Report delivers a single error. Implementations must not retain err beyond the call
	// unless they copy it.
	//
	// Parameters:
	//   - err: the error to report
	Report(err *WGSLError)
}

// ErrorSinkFunc adapts a plain function to the ErrorSink interface.
type ErrorSinkFunc func(err *WGSLError)

func (f ErrorSinkFunc) Report(err *WGSLError) {
	f(err)
}

type discardSink struct{}

func (discardSink) Report(*WGSLError) {}

// DiscardSink drops every error. It is the default sink.
var DiscardSink ErrorSink = discardSink{}

// CollectSink stores reported errors in order. It is safe for concurrent use.
type CollectSink struct {
	mu   sync.Mutex
	errs []*WGSLError
}

var _ ErrorSink = &CollectSink{}

func (c *CollectSink) Report(err *WGSLError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *err
	c.errs = append(c.errs, &cp)
}

// Errors returns a copy of every error reported so far.
func (c *CollectSink) Errors() []*WGSLError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*WGSLError, len(c.errs))
	copy(out, c.errs)
	return out
}

// Last returns the most recent error, or nil.
func (c *CollectSink) Last() *WGSLError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs[len(c.errs)-1]
}

// Reset clears the collected errors.
func (c *CollectSink) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = nil
}

// ReportTo delivers err to sink when err wraps a WGSLError. Nil sinks and non-WGSL errors
// are ignored.
//
// Parameters:
//   - sink: the destination sink, may be nil
//   - err: the error to report
func ReportTo(sink ErrorSink, err error) {
	if sink == nil || err == nil {
		return
	}
	if werr, ok := AsWGSLError(err); ok {
		sink.Report(werr)
	}
}
