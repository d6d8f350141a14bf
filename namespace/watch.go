package namespace

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long Watch waits for a burst of events to end before
// reloading, so that half-written files are not read.
const settle = 50 * time.Millisecond

// Watch rebuilds the namespace from base and paths every time one of the
// files changes, and passes the result to onReload. A failed reload passes
// a nil registry and the error; the caller keeps whatever it had. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, base *Registry, paths []string, onReload func(*Registry, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			log.Debugf("namespace file event: %s", event)
			if !drain(ctx, watcher.Events) {
				return nil
			}

			r, err := Load(base, paths...)
			if err != nil {
				log.Errorf("reload failed: %s", err)
				onReload(nil, err)
			} else {
				log.Infof("reloaded %d entries", r.Len())
				onReload(r, nil)
			}

			// editors replace files by renaming, which drops the watch
			for _, path := range paths {
				_ = watcher.Add(path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watcher: %s", err)
		}
	}
}

// drain swallows events until none arrive for the settle period. It
// reports false if ctx ended or the watcher closed first.
func drain(ctx context.Context, events <-chan fsnotify.Event) bool {
	timer := time.NewTimer(settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-events:
			if !ok {
				return false
			}
			timer.Reset(settle)
		case <-timer.C:
			return true
		}
	}
}
