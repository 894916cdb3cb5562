// Package watcher reports settled changes to configuration files so they can be
// reloaded without restarting the server.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors individual files, or the files directly inside a directory,
// using fsnotify. Bursts of writes are debounced: an event is emitted only once
// a file's size and modification time stop changing for Options.Settle.
//
// Files are watched through their parent directory, so editors that save by
// writing a temporary file and renaming it over the original keep working.
type Watcher struct {
	logger *slog.Logger
	opts   Options
	fs     *fsnotify.Watcher

	files   map[string]bool
	dirs    map[string]bool
	pending map[string]*pendingEvent
	stopped bool
	mu      sync.Mutex // protects files, dirs, pending and stopped

	events   chan Event
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// pendingEvent tracks a file that may still be changing
type pendingEvent struct {
	exists  bool
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher. Nothing is watched until Watch is called.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		fs:      fsw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a file or directory. Directories are not watched recursively.
func (w *Watcher) Watch(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to add watch on %s: %w", dir, err)
	}

	w.mu.Lock()
	if info.IsDir() {
		w.dirs[path] = true
	} else {
		w.files[path] = true
	}
	w.mu.Unlock()

	w.logger.Debug("added watch", "path", path, "dir", info.IsDir())
	return nil
}

// Start processes file system events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-w.done:
	}
	return nil
}

// processEvents processes fsnotify events
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if !w.wanted(path) {
		return
	}
	w.startSettling(path)
}

// wanted reports whether path is a watched file, or a non-ignored file in a
// watched directory.
func (w *Watcher) wanted(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return true
	}
	return w.dirs[filepath.Dir(path)] && !w.opts.ignored(path)
}

// startSettling (re)starts the settle timer for path.
func (w *Watcher) startSettling(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	pending, ok := w.pending[path]
	if ok {
		pending.timer.Stop()
	} else {
		pending = &pendingEvent{}
		w.pending[path] = pending
	}

	info, err := os.Stat(path)
	pending.exists = err == nil
	if err == nil {
		if info.IsDir() {
			delete(w.pending, path)
			return
		}
		pending.size = info.Size()
		pending.modTime = info.ModTime()
	}

	pending.timer = time.AfterFunc(w.opts.Settle, func() {
		w.checkSettled(path)
	})
}

// checkSettled emits an event once path has stopped changing.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	pending, ok := w.pending[path]
	if !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.emit(Event{Op: Removed, Path: path})
		return
	}

	if !pending.exists || info.Size() != pending.size || !info.ModTime().Equal(pending.modTime) {
		// Still changing, restart timer
		pending.exists = true
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.opts.Settle, func() {
			w.checkSettled(path)
		})
		return
	}

	delete(w.pending, path)
	w.emit(Event{
		Op:      Changed,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

// emit sends event unless the watcher is stopping. Callers hold w.mu.
func (w *Watcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// Events returns the channel of settled events. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		w.stopped = true
		for _, pending := range w.pending {
			pending.timer.Stop()
		}
		clear(w.pending)
		w.mu.Unlock()

		err = w.fs.Close()
		w.wg.Wait()

		close(w.events)
		close(w.errors)
	})
	return err
}
