// package watcher signals when shader files change on disk so the live preview can recompile.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/codeskew-go/engine/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a change is signalled.
const DefaultDebounce = 100 * time.Millisecond

// Watcher coalesces file system events on a set of files into change signals.
type Watcher interface {
	// Add starts watching a file. The parent directory is watched so editors that save by rename
	// are still seen.
	//
	// Parameters:
	//   - path: the file to watch
	//
	// Returns:
	//   - error: an error if the directory cannot be watched
	Add(path string) error

	// Changes delivers the last changed path once events go quiet for the debounce period.
	// Signals that arrive while one is pending are merged.
	//
	// Returns:
	//   - <-chan string: the change channel, closed by Close
	Changes() <-chan string

	// Close stops watching and closes the change channel.
	//
	// Returns:
	//   - error: an error from the underlying watcher
	Close() error
}

type watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	changes  chan string

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	timer   *time.Timer
	last    string
	closed  bool
	done    chan struct{}
	stopped sync.WaitGroup
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher and starts its event loop.
//
// Parameters:
//   - options: the WatcherBuilderOptions to apply
//
// Returns:
//   - Watcher: the watcher
//   - error: an error if the platform watcher cannot be created
func NewWatcher(options ...WatcherBuilderOption) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &watcher{
		fs:       fsw,
		debounce: DefaultDebounce,
		changes:  make(chan string, 1),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}
	w.stopped.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	w.files[abs] = true
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		delete(w.files, abs)
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	logger.Logger().Debug("watching shader file", "path", abs)
	return nil
}

func (w *watcher) Changes() <-chan string {
	return w.changes
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	w.mu.Unlock()

	err := w.fs.Close()
	w.stopped.Wait()

	w.mu.Lock()
	close(w.changes)
	w.mu.Unlock()
	return err
}

func (w *watcher) loop() {
	defer w.stopped.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.handle(event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Logger().Warn("file watcher error", "error", err)
		}
	}
}

func (w *watcher) handle(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || !w.files[abs] {
		return
	}
	logger.Logger().Debug("shader file event", "path", abs)
	w.last = abs
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *watcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.changes <- w.last:
	default:
	}
}
