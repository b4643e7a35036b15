package shader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWGSLErrorFormatting(t *testing.T) {
	err := newWGSLError(ErrorKindDirectiveSyntax, 4, "Unrecognised preprocessor directive")
	assert.Equal(t, "line 4: Unrecognised preprocessor directive", err.Error())

	err = newWGSLError(ErrorKindGpuCompilation, 0, "device lost")
	assert.Equal(t, "device lost", err.Error())
	assert.Equal(t, "gpu compilation", err.Kind.String())
}

func TestAsWGSLError(t *testing.T) {
	cause := errors.New("cause")
	werr := newWGSLError(ErrorKindIncludeNotFound, 2, "Cannot find include <x>")
	werr.Err = cause
	wrapped := fmt.Errorf("compile: %w", werr)

	got, ok := AsWGSLError(wrapped)
	require.True(t, ok)
	assert.Same(t, werr, got)
	assert.ErrorIs(t, wrapped, cause)

	_, ok = AsWGSLError(cause)
	assert.False(t, ok)
}

func TestSinks(t *testing.T) {
	sink := &CollectSink{}
	ReportTo(sink, errors.New("not a shader error"))
	assert.Nil(t, sink.Last())

	werr := newWGSLError(ErrorKindResourceLimit, 9, "limit")
	ReportTo(sink, fmt.Errorf("wrapped: %w", werr))
	require.Len(t, sink.Errors(), 1)
	assert.Equal(t, 9, sink.Last().Line)

	werr.Line = 10
	assert.Equal(t, 9, sink.Last().Line, "sinks keep a copy")

	var seen *WGSLError
	ReportTo(ErrorSinkFunc(func(e *WGSLError) { seen = e }), werr)
	assert.Same(t, werr, seen)

	ReportTo(nil, werr)
	DiscardSink.Report(werr)

	sink.Reset()
	assert.Empty(t, sink.Errors())
}
