package shader

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdResolver(t *testing.T) {
	r := NewStdResolver()
	for _, name := range []string{"std/string", "std/math", "std/noise", "std/color", "std/math.wgsl"} {
		src, err := r.Resolve(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, src, name)
	}

	_, err := r.Resolve(context.Background(), "std/missing")
	assert.ErrorIs(t, err, ErrIncludeNotFound)
}

func TestFSResolver(t *testing.T) {
	fsys := fstest.MapFS{
		"lib/common.wgsl": &fstest.MapFile{Data: []byte("fn common() {}")},
	}
	r := NewFSResolver(fsys)

	src, err := r.Resolve(context.Background(), "./lib/common.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "fn common() {}", src)

	_, err = r.Resolve(context.Background(), "lib/common")
	assert.ErrorIs(t, err, ErrIncludeNotFound, "extension is only optional for std includes")

	_, err = r.Resolve(context.Background(), "../escape.wgsl")
	assert.ErrorIs(t, err, ErrIncludeNotFound)
}

func TestChainResolver(t *testing.T) {
	boom := errors.New("boom")
	first := MapResolver{"a.wgsl": "first"}
	failing := ResolverFunc(func(ctx context.Context, includePath string) (string, error) {
		if includePath == "b.wgsl" {
			return "", boom
		}
		return "", ErrIncludeNotFound
	})
	last := MapResolver{"a.wgsl": "last", "c.wgsl": "c"}
	r := NewChainResolver(first, failing, last)

	src, err := r.Resolve(context.Background(), "a.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "first", src)

	src, err = r.Resolve(context.Background(), "c.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "c", src)

	_, err = r.Resolve(context.Background(), "b.wgsl")
	assert.ErrorIs(t, err, boom, "non not-found errors stop the chain")

	_, err = r.Resolve(context.Background(), "d.wgsl")
	assert.ErrorIs(t, err, ErrIncludeNotFound)
}

func TestMapResolverHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MapResolver{"a.wgsl": "a"}.Resolve(ctx, "a.wgsl")
	assert.ErrorIs(t, err, context.Canceled)
}
