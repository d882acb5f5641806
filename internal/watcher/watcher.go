// Package watcher delivers debounced file-system events to the incremental
// indexer. Raw fsnotify events are coalesced per path inside a debounce
// window before being emitted.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation is the kind of file-system change.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file changed.
	OpModify
	// OpDelete indicates a file was removed.
	OpDelete
)

// String returns a human-readable operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one debounced file-system event.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures the watcher.
type Options struct {
	// DebounceWindow is how long to coalesce events per path (default: 200ms).
	DebounceWindow time.Duration

	// EventBufferSize is the raw event channel buffer (default: 1000).
	EventBufferSize int
}

// WithDefaults fills zero values.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow == 0 {
		o.DebounceWindow = 200 * time.Millisecond
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = 1000
	}
	return o
}

// FSWatcher watches a directory tree with fsnotify and emits debounced
// events.
type FSWatcher struct {
	opts     Options
	debounce *Debouncer

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	stopped bool
}

// NewFSWatcher creates a watcher with the given options.
func NewFSWatcher(opts Options) *FSWatcher {
	opts = opts.WithDefaults()
	return &FSWatcher{
		opts:     opts,
		debounce: NewDebouncer(opts.DebounceWindow),
	}
}

// Start begins watching root recursively until ctx is cancelled or Stop is
// called. New directories are added to the watch as they appear.
func (w *FSWatcher) Start(ctx context.Context, root string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	// Watch the tree, skipping hidden directories.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if isHidden(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return err
	}

	go w.loop(ctx, fsw)
	return nil
}

func (w *FSWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *FSWatcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return
	}

	// New directories join the watch; directory events are not forwarded.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = fsw.Add(event.Name)
			return
		}
	}

	var op Operation
	switch {
	case event.Op.Has(fsnotify.Create):
		op = OpCreate
	case event.Op.Has(fsnotify.Write):
		op = OpModify
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return // chmod-only events carry no content change
	}

	w.debounce.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// Events returns the channel of debounced event batches.
func (w *FSWatcher) Events() <-chan []FileEvent {
	return w.debounce.Output()
}

// Stop stops the watcher. Safe to call multiple times.
func (w *FSWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.debounce.Stop()
}

// isHidden reports whether a file or directory name is dot-prefixed.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
