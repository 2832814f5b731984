package schema

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a schema file on disk and hands freshly compiled
// validators to onReload whenever the file changes. A failed recompile is
// logged and the previously active validator is left in place; in-flight
// connection handlers keep the validator pointer they already hold, so a
// reload never invalidates records already validated.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *slog.Logger
}

// WatchFile starts watching path, invoking onReload(newValidator) each time
// a write event yields a successfully compiled schema. Close must be called
// to release the underlying inotify/kqueue handle.
func WatchFile(path string, onReload func(*Validator), log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, log: log}

	go w.loop(path, onReload)

	return w, nil
}

func (w *Watcher) loop(path string, onReload func(*Validator)) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			v, err := FromFile(path)
			if err != nil {
				w.log.Warn("schema reload failed, keeping previous validator", "path", path, "error", err)
				continue
			}
			w.log.Info("schema reloaded", "path", path)
			onReload(v)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("schema watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
