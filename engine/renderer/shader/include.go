package shader

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed assets/std/*.wgsl
var stdAssets embed.FS

// ErrIncludeNotFound is returned by resolvers that do not know a path. Chained resolvers
// fall through to the next resolver on this error only.
var ErrIncludeNotFound = errors.New("include not found")

// IncludeResolver fetches the text of an include path. Resolve is the only point at which
// a preprocessing run suspends; runs call it strictly in document order.
type IncludeResolver interface {
	// Resolve returns the shader text for a logical include path.
	//
	// Parameters:
	//   - ctx: cancels the fetch when the compile attempt is abandoned
	//   - includePath: the path as written (quoted form) or "std/<name>" (chevron form)
	//
	// Returns:
	//   - string: the included shader text
	//   - error: ErrIncludeNotFound (possibly wrapped) if the path is unknown, or any other fetch error
	Resolve(ctx context.Context, includePath string) (string, error)
}

// ResolverFunc adapts a function to IncludeResolver.
type ResolverFunc func(ctx context.Context, includePath string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, includePath string) (string, error) {
	return f(ctx, includePath)
}

// MapResolver resolves includes from an in-memory map of path to source.
type MapResolver map[string]string

func (m MapResolver) Resolve(ctx context.Context, includePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, ok := m[includePath]
	if !ok {
		return "", fmt.Errorf("%s: %w", includePath, ErrIncludeNotFound)
	}
	return src, nil
}

// fsResolver resolves includes by reading files from an fs.FS.
type fsResolver struct {
	fsys fs.FS

	// optionalExt is tried as a suffix when the bare path does not exist.
	optionalExt string
}

// NewFSResolver creates a resolver that reads include paths as files of fsys. Paths are
// cleaned and must stay inside fsys.
//
// Parameters:
//   - fsys: the file system to read from, e.g. os.DirFS(shaderDir)
//
// Returns:
//   - IncludeResolver: the resolver
func NewFSResolver(fsys fs.FS) IncludeResolver {
	return &fsResolver{fsys: fsys}
}

// NewStdResolver creates a resolver for the embedded standard library reached through
// #include <name>. It serves std/string, std/math, std/noise and std/color.
//
// Returns:
//   - IncludeResolver: the resolver
func NewStdResolver() IncludeResolver {
	sub, err := fs.Sub(stdAssets, "assets")
	if err != nil {
		panic(err)
	}
	return &fsResolver{fsys: sub, optionalExt: ".wgsl"}
}

func (r *fsResolver) Resolve(ctx context.Context, includePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := path.Clean(strings.TrimPrefix(includePath, "./"))
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%s: %w", includePath, ErrIncludeNotFound)
	}

	data, err := fs.ReadFile(r.fsys, name)
	if errors.Is(err, fs.ErrNotExist) && r.optionalExt != "" && path.Ext(name) == "" {
		data, err = fs.ReadFile(r.fsys, name+r.optionalExt)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", includePath, ErrIncludeNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read include %s: %w", includePath, err)
	}
	return string(data), nil
}

// chainResolver tries each resolver in order.
type chainResolver struct {
	resolvers []IncludeResolver
}

// NewChainResolver creates a resolver that asks each resolver in turn. A resolver that
// reports ErrIncludeNotFound passes the path on; any other error stops the chain.
//
// Parameters:
//   - resolvers: the resolvers to consult, in priority order
//
// Returns:
//   - IncludeResolver: the combined resolver
func NewChainResolver(resolvers ...IncludeResolver) IncludeResolver {
	return &chainResolver{resolvers: resolvers}
}

func (c *chainResolver) Resolve(ctx context.Context, includePath string) (string, error) {
	for _, r := range c.resolvers {
		if r == nil {
			continue
		}
		src, err := r.Resolve(ctx, includePath)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrIncludeNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", includePath, ErrIncludeNotFound)
}
