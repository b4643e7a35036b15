package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivCeilAndAlignUp(t *testing.T) {
	assert.Equal(t, uint32(8), DivCeil(64, 8))
	assert.Equal(t, uint32(9), DivCeil(65, 8))
	assert.Equal(t, uint32(5), DivCeil(5, 0))
	assert.Equal(t, uint32(256), AlignUp(8, 256))
	assert.Equal(t, uint32(512), AlignUp(257, 256))
	assert.Equal(t, uint32(256), AlignUp(256, 256))
}

func TestF16ToF32(t *testing.T) {
	cases := map[uint16]float32{
		0x0000: 0,
		0x3c00: 1,
		0xc000: -2,
		0x3800: 0.5,
		0x3555: 0.333251953125,
		0x7bff: 65504,
		0x0001: 5.960464477539063e-08,
		0x0400: 6.103515625e-05,
	}
	for h, want := range cases {
		assert.Equal(t, want, F16ToF32(h), "0x%04x", h)
	}
	assert.True(t, math.IsInf(float64(F16ToF32(0x7c00)), 1))
	assert.True(t, math.IsInf(float64(F16ToF32(0xfc00)), -1))
	assert.True(t, math.IsNaN(float64(F16ToF32(0x7e00))))
	assert.True(t, math.Signbit(float64(F16ToF32(0x8000))))
}

func TestF32ToF16RoundTrip(t *testing.T) {
	for _, h := range []uint16{0x0000, 0x0001, 0x03ff, 0x0400, 0x3555, 0x3c00, 0x7bff, 0xc000, 0x7c00} {
		assert.Equal(t, h, F32ToF16(F16ToF32(h)), "0x%04x", h)
	}
	assert.Equal(t, uint16(0x7c00), F32ToF16(1e6))
	assert.Equal(t, uint16(0x0000), F32ToF16(1e-10))
	assert.Equal(t, uint16(0x7e00), F32ToF16(float32(math.NaN())))
}

func TestUnitToByte(t *testing.T) {
	assert.Equal(t, byte(0), UnitToByte(-1))
	assert.Equal(t, byte(0), UnitToByte(float32(math.NaN())))
	assert.Equal(t, byte(127), UnitToByte(0.5))
	assert.Equal(t, byte(255), UnitToByte(1))
	assert.Equal(t, byte(255), UnitToByte(7))
}

func TestTextureStagingDataValidate(t *testing.T) {
	assert.NoError(t, TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2}.Validate())
	assert.Error(t, TextureStagingData{Pixels: make([]byte, 15), Width: 2, Height: 2}.Validate())
	assert.Error(t, TextureStagingData{Width: 0, Height: 2}.Validate())
	assert.Equal(t, uint32(8), TextureStagingData{Width: 2}.BytesPerRow())
}

func TestWebKeyCode(t *testing.T) {
	cases := map[int]uint32{
		'A':          65,
		'7':          55,
		KeySpace:     32,
		KeyEsc:       27,
		KeyBackspace: 8,
		KeyLeft:      37,
		KeyF1:        112,
		KeyF12:       123,
		KeyRightAlt:  18,
	}
	for key, want := range cases {
		got, ok := WebKeyCode(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := WebKeyCode(-1)
	assert.False(t, ok)
}

func TestCoalesceAndClamp(t *testing.T) {
	assert.Equal(t, float32(32), Coalesce(float32(0), 32))
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce[string]())
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, 0, Clamp(-2, 0, 5))
}
