// package channel loads the images bound to the channel0 and channel1 textures.
package channel

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/codeskew-go/common"
	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for HDR images, which have no RGBA8 form.
var ErrUnsupportedFormat = errors.New("unsupported channel image format")

// Loader reads channel images from disk or over HTTP and converts them to RGBA8 staging data.
type Loader interface {
	// Load reads and decodes a single image.
	//
	// Parameters:
	//   - ctx: cancels an in-flight fetch
	//   - source: a file path or an http(s) URL
	//
	// Returns:
	//   - common.TextureStagingData: the RGBA8 pixels
	//   - error: an error if reading or decoding fails
	Load(ctx context.Context, source string) (common.TextureStagingData, error)

	// LoadAll loads several images concurrently. The result order matches sources.
	//
	// Parameters:
	//   - ctx: cancels in-flight fetches
	//   - sources: file paths or http(s) URLs
	//
	// Returns:
	//   - []common.TextureStagingData: the images in source order
	//   - error: the first error encountered, joined with any others
	LoadAll(ctx context.Context, sources []string) ([]common.TextureStagingData, error)
}

type loader struct {
	client       *http.Client
	baseDir      string
	cacheDir     string
	maxDimension int
	workers      int
	pool         worker.DynamicWorkerPool
	poolOnce     sync.Once
}

var _ Loader = &loader{}

// NewLoader creates a channel image loader.
//
// Parameters:
//   - options: the LoaderBuilderOptions to apply
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		client:  &http.Client{Timeout: 30 * time.Second},
		workers: 2,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) Load(ctx context.Context, source string) (common.TextureStagingData, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	staging, err := l.decode(data)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("failed to decode %s: %w", source, err)
	}
	logger.Logger().Debug("channel image loaded", "source", source, "width", staging.Width, "height", staging.Height)
	return staging, nil
}

func (l *loader) LoadAll(ctx context.Context, sources []string) ([]common.TextureStagingData, error) {
	out := make([]common.TextureStagingData, len(sources))
	if len(sources) <= 1 || l.workers <= 1 {
		for i, src := range sources {
			staging, err := l.Load(ctx, src)
			if err != nil {
				return nil, err
			}
			out[i] = staging
		}
		return out, nil
	}

	l.poolOnce.Do(func() {
		l.pool = worker.NewDynamicWorkerPool(l.workers, 16, 1*time.Second)
	})

	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				out[i], errs[i] = l.Load(ctx, src)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// read returns the raw bytes of a local file or a fetched URL.
func (l *loader) read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasSuffix(strings.ToLower(source), ".hdr") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	}
	if isURL(source) {
		return l.fetch(ctx, source)
	}
	path := source
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel image: %w", err)
	}
	return data, nil
}

func (l *loader) fetch(ctx context.Context, url string) ([]byte, error) {
	cached := l.cachePath(url)
	if cached != "" {
		if data, err := os.ReadFile(cached); err == nil {
			logger.Logger().Debug("channel image cache hit", "url", url)
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	if cached != "" {
		if err := os.MkdirAll(l.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(cached, data, 0o644); err != nil {
				logger.Logger().Warn("failed to cache channel image", "url", url, "error", err)
			}
		}
	}
	return data, nil
}

func (l *loader) cachePath(url string) string {
	if l.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(l.cacheDir, hex.EncodeToString(sum[:]))
}

func (l *loader) decode(data []byte) (common.TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return FromImage(img, l.maxDimension), nil
}

// FromImage converts an image to RGBA8 staging data, shrinking it so neither side exceeds
// maxDimension. A maxDimension of 0 keeps the original size.
//
// Parameters:
//   - img: the decoded image
//   - maxDimension: the largest allowed width or height, 0 for no limit
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels
func FromImage(img image.Image, maxDimension int) common.TextureStagingData {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDimension > 0 && (w > maxDimension || h > maxDimension) {
		if w >= h {
			h = max(h*maxDimension/w, 1)
			w = maxDimension
		} else {
			w = max(w*maxDimension/h, 1)
			h = maxDimension
		}
		rgba = transform.Resize(rgba, w, h, transform.Linear)
	}

	pixels := rgba.Pix
	if rgba.Stride != w*4 || len(pixels) != w*h*4 {
		pixels = make([]byte, w*h*4)
		for y := range h {
			copy(pixels[y*w*4:(y+1)*w*4], rgba.Pix[y*rgba.Stride:])
		}
	}
	return common.TextureStagingData{Pixels: pixels, Width: uint32(w), Height: uint32(h)}
}

// Procedural builds the grey hash-noise texture used when a shader asks for a generated channel.
//
// Parameters:
//   - width: the texture width
//   - height: the texture height
//
// Returns:
//   - common.TextureStagingData: the RGBA8 pixels, alpha 255
func Procedural(width, height uint32) common.TextureStagingData {
	pixels := make([]byte, 0, int(width)*int(height)*4)
	for y := range height {
		for x := range width {
			v := byte(((x*374761393 + y*668265263) ^ (x * y)) % 256)
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return common.TextureStagingData{Pixels: pixels, Width: width, Height: height}
}

// Blank returns the opaque black 1x1 texture bound to unused channels.
func Blank() common.TextureStagingData {
	return common.TextureStagingData{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1}
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
