package resolver

import (
	"github.com/fsnotify/fsnotify"

	"github.com/traktion/anttp/internal/logger"
)

// Reloader produces a fresh snapshot of some hot-reloadable state
// (the bookmark table, or the access-list decision map) from its
// backing source (the configured access-list record, synced to a
// local file by an out-of-band process).
type Reloader[T any] func() (T, error)

// WatchFile watches path for writes and calls apply with a freshly
// loaded snapshot on every change, the same watch-and-replace-wholesale
// idiom the access checker and bookmark resolver both need: updates
// replace state in one atomic swap, never mutate it in place.
func WatchFile[T any](path string, load Reloader[T], apply func(T)) (close func() error, err error) {
	log := logger.Named("resolver.watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, err
	}

	reload := func() {
		v, err := load()
		if err != nil {
			log.WithError(err).Warnf("reload of %s failed, keeping previous state", path)
			return
		}
		apply(v)
	}

	reload()

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warnf("watch error on %s", path)
			}
		}
	}()

	return w.Close, nil
}
