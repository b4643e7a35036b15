package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringEncoder(t *testing.T) {
	var e stringEncoder

	out, err := e.encodeLine(`let s = "hi";`, 1)
	require.Nil(t, err)
	assert.Equal(t, "let s = String(2, array<uint,20>(0x68, 0x69"+strings.Repeat(", 0x00", 18)+"));", out)

	out, err = e.encodeLine(`f("", "é");`, 2)
	require.Nil(t, err)
	assert.Equal(t,
		"f(String(0, array<uint,20>(0x00"+strings.Repeat(", 0x00", 19)+")), "+
			"String(1, array<uint,20>(0xe9"+strings.Repeat(", 0x00", 19)+")));",
		out)

	out, err = e.encodeLine("no literals here", 3)
	require.Nil(t, err)
	assert.Equal(t, "no literals here", out)
}

func TestStringEncoderCountsRunes(t *testing.T) {
	var e stringEncoder
	_, err := e.encodeLine(`"`+strings.Repeat("é", 20)+`"`, 1)
	assert.Nil(t, err)

	_, err = e.encodeLine(`"`+strings.Repeat("é", 21)+`"`, 4)
	require.NotNil(t, err)
	assert.Equal(t, ErrorKindStringLiteralTooLong, err.Kind)
	assert.Equal(t, 4, err.Line)
}

func TestFormatCodePoint(t *testing.T) {
	assert.Equal(t, "0x00", formatCodePoint(0))
	assert.Equal(t, "0x0a", formatCodePoint(10))
	assert.Equal(t, "0x7f", formatCodePoint(127))
	assert.Equal(t, "0x1f600", formatCodePoint(0x1f600))
}
