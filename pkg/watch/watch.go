// Package watch reports changes to files in the directories of open
// templates, for clients that do not send workspace/didChangeWatchedFiles.
package watch

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/fsnotify.v1"
)

// ChangeFunc is called with the path of every created, written, removed or
// renamed file.
type ChangeFunc func(ctx context.Context, path string)

// Watcher watches directories by reference count, so a directory stays
// watched while any template in it is open.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange ChangeFunc

	mu   sync.Mutex
	dirs map[string]int
}

func New(onChange ChangeFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating file watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		onChange: onChange,
		dirs:     make(map[string]int),
	}, nil
}

// Add starts watching dir, or counts one more reference to it.
func (w *Watcher) Add(dir string) error {
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] > 0 {
		w.dirs[dir]++
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return errors.Errorf("watching %s: %w", dir, err)
	}
	w.dirs[dir] = 1
	return nil
}

// Remove drops one reference to dir and stops watching it at zero.
func (w *Watcher) Remove(dir string) {
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.dirs[dir]
	if !ok {
		return
	}
	if n > 1 {
		w.dirs[dir] = n - 1
		return
	}
	delete(w.dirs, dir)
	_ = w.fsw.Remove(dir)
}

// Watched lists the directories currently watched.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	return out
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Trace().Str("path", ev.Name).Stringer("op", ev.Op).Msg("file event")
			w.onChange(ctx, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("file watcher")
		}
	}
}

func (w *Watcher) Close() error {
	if err := w.fsw.Close(); err != nil {
		return errors.Errorf("closing file watcher: %w", err)
	}
	return nil
}
