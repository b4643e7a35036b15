package channel

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcedural(t *testing.T) {
	tex := Procedural(4, 3)
	require.NoError(t, tex.Validate())

	pixel := func(x, y int) []byte {
		i := (y*4 + x) * 4
		return tex.Pixels[i : i+4]
	}
	assert.Equal(t, []byte{0, 0, 0, 255}, pixel(0, 0))
	assert.Equal(t, []byte{177, 177, 177, 255}, pixel(1, 0))
	assert.Equal(t, []byte{47, 47, 47, 255}, pixel(0, 1))
	assert.Equal(t, []byte{225, 225, 225, 255}, pixel(1, 1))
	assert.Equal(t, []byte{119, 119, 119, 255}, pixel(3, 2))
}

func TestBlank(t *testing.T) {
	tex := Blank()
	require.NoError(t, tex.Validate())
	assert.Equal(t, []byte{0, 0, 0, 255}, tex.Pixels)
}

func TestLoadFileRelativeToBaseDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tex.png"), encodePNG(t, 5, 3), 0o644))

	tex, err := NewLoader(WithBaseDir(dir)).Load(context.Background(), "tex.png")
	require.NoError(t, err)
	require.NoError(t, tex.Validate())
	assert.Equal(t, uint32(5), tex.Width)
	assert.Equal(t, uint32(3), tex.Height)
	assert.Equal(t, []byte{4, 2, 7, 255}, tex.Pixels[(2*5+4)*4:(2*5+4)*4+4])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(WithBaseDir(t.TempDir())).Load(context.Background(), "missing.png")
	assert.Error(t, err)
}

func TestLoadRejectsHDR(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), "sky.hdr")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMaxDimension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wide.png"), encodePNG(t, 64, 16), 0o644))

	tex, err := NewLoader(WithBaseDir(dir), WithMaxDimension(32)).Load(context.Background(), "wide.png")
	require.NoError(t, err)
	require.NoError(t, tex.Validate())
	assert.Equal(t, uint32(32), tex.Width)
	assert.Equal(t, uint32(8), tex.Height)
}

func TestLoadURLUsesCache(t *testing.T) {
	payload := encodePNG(t, 2, 2)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	l := NewLoader(WithCacheDir(t.TempDir()), WithHTTPClient(srv.Client()))
	for range 2 {
		tex, err := l.Load(context.Background(), srv.URL+"/tex.png")
		require.NoError(t, err)
		assert.Equal(t, uint32(2), tex.Width)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoadURLStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewLoader().Load(context.Background(), srv.URL+"/none.png")
	assert.ErrorContains(t, err, "404")
}

func TestLoadAllKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), encodePNG(t, 3, 1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), encodePNG(t, 1, 4), 0o644))

	textures, err := NewLoader(WithBaseDir(dir), WithWorkers(2)).LoadAll(context.Background(), []string{"a.png", "b.png"})
	require.NoError(t, err)
	require.Len(t, textures, 2)
	assert.Equal(t, uint32(3), textures[0].Width)
	assert.Equal(t, uint32(4), textures[1].Height)
}

func TestLoadAllReportsErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), encodePNG(t, 3, 1), 0o644))

	_, err := NewLoader(WithBaseDir(dir), WithWorkers(2)).LoadAll(context.Background(), []string{"a.png", "missing.png"})
	assert.Error(t, err)
}

func TestFromImageSubImage(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 8, 8))
	base.Set(5, 5, color.RGBA{R: 200, A: 255})
	sub := base.SubImage(image.Rect(4, 4, 8, 8))

	tex := FromImage(sub, 0)
	require.NoError(t, tex.Validate())
	assert.Equal(t, uint32(4), tex.Width)
	assert.Equal(t, byte(200), tex.Pixels[(1*4+1)*4])
}
