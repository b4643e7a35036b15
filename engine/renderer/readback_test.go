package renderer

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paddedImage builds an rgba16float readback buffer whose pixel (x, y) has channels
// r = x/width, g = y/height, b = 0.5 and a = 1.
func paddedImage(width, height uint32) ([]byte, uint32) {
	pitch := paddedBytesPerRow(width)
	buf := make([]byte, pitch*height)
	for y := range height {
		for x := range width {
			texel := buf[y*pitch+x*screenBytesPerPixel:]
			values := [4]float32{float32(x) / float32(width), float32(y) / float32(height), 0.5, 1}
			for ch, v := range values {
				binary.LittleEndian.PutUint16(texel[ch*2:], common.F32ToF16(v))
			}
		}
		// Poison the padding so a reader that ignores the pitch fails.
		for p := y*pitch + width*screenBytesPerPixel; p < (y+1)*pitch; p++ {
			buf[p] = 0xff
		}
	}
	return buf, pitch
}

func expectedPixel(x, y, width, height uint32) [4]byte {
	return [4]byte{
		common.UnitToByte(common.F16ToF32(common.F32ToF16(float32(x) / float32(width)))),
		common.UnitToByte(common.F16ToF32(common.F32ToF16(float32(y) / float32(height)))),
		127,
		255,
	}
}

func TestPaddedBytesPerRow(t *testing.T) {
	assert.Equal(t, uint32(256), paddedBytesPerRow(1))
	assert.Equal(t, uint32(256), paddedBytesPerRow(32))
	assert.Equal(t, uint32(512), paddedBytesPerRow(33))
	assert.Equal(t, uint32(15360), paddedBytesPerRow(1920))
}

func TestReadbackConvertPaddedRows(t *testing.T) {
	for _, workers := range []int{1, 4} {
		const width, height = 37, 70
		src, pitch := paddedImage(width, height)

		out, err := newReadbackConverter(workers).Convert(src, width, height, pitch)
		require.NoError(t, err)
		require.Len(t, out, width*height*4)

		for _, p := range [][2]uint32{{0, 0}, {36, 0}, {5, 33}, {36, 69}, {18, 64}} {
			x, y := p[0], p[1]
			got := [4]byte(out[(y*width+x)*4 : (y*width+x)*4+4])
			assert.Equal(t, expectedPixel(x, y, width, height), got, "workers=%d pixel %v", workers, p)
		}
	}
}

func TestReadbackConvertClamps(t *testing.T) {
	src := make([]byte, paddedBytesPerRow(2))
	for ch, v := range []float32{-1, 2, 0.25, 1} {
		binary.LittleEndian.PutUint16(src[ch*2:], common.F32ToF16(v))
	}
	// Second pixel: NaN red channel.
	binary.LittleEndian.PutUint16(src[8:], 0x7e00)

	out, err := newReadbackConverter(1).Convert(src, 2, 1, paddedBytesPerRow(2))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255, 63, 255}, out[:4])
	assert.Equal(t, byte(0), out[4])
}

func TestReadbackConvertRejectsShortBuffer(t *testing.T) {
	_, err := newReadbackConverter(1).Convert(make([]byte, 100), 4, 4, 256)
	assert.Error(t, err)

	_, err = newReadbackConverter(1).Convert(make([]byte, 1024), 64, 1, 256)
	assert.Error(t, err)

	out, err := newReadbackConverter(1).Convert(nil, 0, 0, 256)
	assert.NoError(t, err)
	assert.Nil(t, out)
}
