package watcher

import (
	"time"
)

// WatcherBuilderOption is a functional option applied to a watcher during construction via NewWatcher.
type WatcherBuilderOption func(*watcher)

// WithDebounce sets the quiet period before a change is signalled.
//
// Parameters:
//   - d: the debounce duration, values below 1ms keep the default
//
// Returns:
//   - WatcherBuilderOption: a function that sets the debounce
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if d >= time.Millisecond {
			w.debounce = d
		}
	}
}
