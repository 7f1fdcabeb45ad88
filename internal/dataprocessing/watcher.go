package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called once a watched source has settled after a change.
type ChangeFunc func(ctx context.Context, path string)

// Watcher reports changes to a set of source files. Events are debounced per
// file so the burst of writes and renames an editor save produces results in
// one callback.
type Watcher struct {
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger

	mu      sync.Mutex
	files   map[string]struct{}
	pending map[string]*pendingChange
	fsw     *fsnotify.Watcher
	watched map[string]struct{}
}

// NewWatcher creates a watcher calling onChange for settled changes.
func NewWatcher(debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With(slog.String("component", "watcher")),
		files:    make(map[string]struct{}),
		pending:  make(map[string]*pendingChange),
		watched:  make(map[string]struct{}),
	}
}

// Add registers a file. Its directory is watched rather than the file itself
// so replace-by-rename saves are seen.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.files[abs] = struct{}{}
	if w.fsw != nil {
		return w.watchDirLocked(filepath.Dir(abs))
	}
	return nil
}

// Files returns the registered paths.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

func (w *Watcher) watchDirLocked(dir string) error {
	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watched[dir] = struct{}{}
	return nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	w.mu.Lock()
	w.fsw = fsw
	for f := range w.files {
		if err := w.watchDirLocked(filepath.Dir(f)); err != nil {
			// Don't fail - the dataset is still served, just not reloaded
			w.logger.ErrorContext(ctx, "failed to watch source directory", slog.String("error", err.Error()))
		}
	}
	w.mu.Unlock()

	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx, filepath.Clean(event.Name))

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.ErrorContext(ctx, "watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; !ok {
		return
	}

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	p := &pendingChange{}
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx, path, p) })
	w.pending[path] = p
}

// pendingChange is one debounce timer. Its identity tells a fired timer
// whether a later event has replaced it.
type pendingChange struct {
	timer *time.Timer
}

// fire runs the callback for p unless a newer change for path superseded it.
func (w *Watcher) fire(ctx context.Context, path string, p *pendingChange) {
	w.mu.Lock()
	current := w.pending[path] == p
	if current {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if !current || ctx.Err() != nil {
		return
	}
	w.logger.DebugContext(ctx, "source changed", slog.String("path", path))
	w.onChange(ctx, path)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.fsw = nil
	clear(w.watched)
}
