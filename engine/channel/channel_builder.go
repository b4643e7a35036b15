package channel

import (
	"net/http"
)

// LoaderBuilderOption is a functional option applied to a loader during construction via NewLoader.
type LoaderBuilderOption func(*loader)

// WithBaseDir sets the directory relative file paths resolve against.
//
// Parameters:
//   - dir: the base directory, usually the shader's directory
//
// Returns:
//   - LoaderBuilderOption: a function that sets the base directory
func WithBaseDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.baseDir = dir
	}
}

// WithCacheDir stores fetched URLs under dir and reads them back on later loads.
//
// Parameters:
//   - dir: the cache directory, empty disables caching
//
// Returns:
//   - LoaderBuilderOption: a function that sets the cache directory
func WithCacheDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.cacheDir = dir
	}
}

// WithHTTPClient sets the client used for http(s) sources.
//
// Parameters:
//   - client: the HTTP client
//
// Returns:
//   - LoaderBuilderOption: a function that sets the client
func WithHTTPClient(client *http.Client) LoaderBuilderOption {
	return func(l *loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithMaxDimension shrinks images so neither side exceeds n pixels.
//
// Parameters:
//   - n: the largest allowed side, 0 for no limit
//
// Returns:
//   - LoaderBuilderOption: a function that sets the limit
func WithMaxDimension(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxDimension = max(n, 0)
	}
}

// WithWorkers sets how many images LoadAll decodes at once.
//
// Parameters:
//   - n: the worker count, 1 loads sequentially
//
// Returns:
//   - LoaderBuilderOption: a function that sets the worker count
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}
