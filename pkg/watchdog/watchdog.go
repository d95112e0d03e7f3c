// Package watchdog reports files created under watched corpus directories.
package watchdog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Factory struct {
	logger *zap.Logger
}

func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{logger: logger}
}

// keepFunc decides whether a created file is reported. Returning false
// drops the event. A nil keepFunc reports everything.
type keepFunc func(string) bool

// WatchDog forwards file-creation events from its watched directories to a
// notify channel. The channel is closed when ctx is done or the underlying
// watcher breaks, so receivers can range over it.
type WatchDog struct {
	ctx     context.Context
	notify  chan<- string
	keep    keepFunc
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// New starts a watchdog. Directories are added afterwards with AddDir.
func (f *Factory) New(ctx context.Context, notify chan<- string, keep keepFunc) (*WatchDog, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	wd := &WatchDog{
		ctx:     ctx,
		notify:  notify,
		keep:    keep,
		logger:  f.logger,
		watcher: watcher,
	}
	go wd.watch()
	return wd, nil
}

// AddDir adds a directory to the watch list. The directory must exist.
func (w *WatchDog) AddDir(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(absDir); err != nil {
		return err
	}
	w.logger.Debug("watching directory", zap.String("dir", absDir))
	return nil
}

func (w *WatchDog) watch() {
	defer w.watcher.Close()
	defer close(w.notify)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

func (w *WatchDog) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != fsnotify.Create {
		return
	}
	if w.keep != nil && !w.keep(event.Name) {
		w.logger.Debug("file ignored by filter", zap.String("file", event.Name))
		return
	}
	select {
	case w.notify <- event.Name:
	case <-w.ctx.Done():
	}
}
