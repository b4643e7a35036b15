// readback.go converts the padded rgba16float rows copied out of the screen texture into
// tightly packed RGBA8 pixels.
package renderer

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/codeskew-go/common"
)

const (
	// screenBytesPerPixel is the texel size of rgba16float.
	screenBytesPerPixel = 8

	// copyBytesPerRowAlignment is the row pitch alignment required by texture to buffer copies.
	copyBytesPerRowAlignment = 256

	// minRowsPerBand keeps small images from being split into tasks that cost more than they save.
	minRowsPerBand = 32
)

// paddedBytesPerRow returns the row pitch of a screen readback buffer.
func paddedBytesPerRow(width uint32) uint32 {
	return common.AlignUp(width*screenBytesPerPixel, copyBytesPerRowAlignment)
}

// readbackConverter splits a readback into row bands and converts them on a worker pool.
type readbackConverter struct {
	workers int
	pool    worker.DynamicWorkerPool
}

func newReadbackConverter(workers int) *readbackConverter {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	c := &readbackConverter{workers: workers}
	if workers > 1 {
		c.pool = worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
	}
	return c
}

// Convert turns padded rgba16float rows into tightly packed RGBA8.
//
// Parameters:
//   - src: the mapped readback buffer, bytesPerRow bytes per row
//   - width: the image width in pixels
//   - height: the image height in pixels
//   - bytesPerRow: the padded row pitch of src
//
// Returns:
//   - []byte: width*height*4 bytes of RGBA8
//   - error: an error if src is too small for the given geometry
func (c *readbackConverter) Convert(src []byte, width, height, bytesPerRow uint32) ([]byte, error) {
	if width == 0 || height == 0 {
		return nil, nil
	}
	if bytesPerRow < width*screenBytesPerPixel {
		return nil, fmt.Errorf("readback row pitch %d is smaller than %d pixels", bytesPerRow, width)
	}
	need := uint64(bytesPerRow)*uint64(height-1) + uint64(width)*screenBytesPerPixel
	if uint64(len(src)) < need {
		return nil, fmt.Errorf("readback buffer holds %d bytes, need %d", len(src), need)
	}

	dst := make([]byte, int(width)*int(height)*4)

	bands := min(c.workers, int(common.DivCeil(height, minRowsPerBand)))
	if c.pool == nil || bands <= 1 {
		convertRows(dst, src, width, bytesPerRow, 0, height)
		return dst, nil
	}

	rowsPerBand := common.DivCeil(height, uint32(bands))
	var wg sync.WaitGroup
	for band := range bands {
		y0 := uint32(band) * rowsPerBand
		y1 := min(y0+rowsPerBand, height)
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				convertRows(dst, src, width, bytesPerRow, y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return dst, nil
}

// convertRows converts rows [y0, y1) of src into dst.
func convertRows(dst, src []byte, width, bytesPerRow, y0, y1 uint32) {
	for y := y0; y < y1; y++ {
		in := src[y*bytesPerRow:]
		out := dst[y*width*4:]
		for x := uint32(0); x < width; x++ {
			texel := in[x*screenBytesPerPixel:]
			for ch := range uint32(4) {
				h := binary.LittleEndian.Uint16(texel[ch*2:])
				out[x*4+ch] = common.UnitToByte(common.F16ToF32(h))
			}
		}
	}
}
