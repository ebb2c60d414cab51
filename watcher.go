package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// quiet period after the last matching event before a reload is signalled
const watchDebounce = 200 * time.Millisecond

// resolveWatchPaths returns the cleaned path and, if path is a symlink, the
// cleaned path of its target. target is empty for regular files.
func resolveWatchPaths(path string) (link, target string) {
	link = filepath.Clean(path)
	if abs, err := filepath.Abs(link); err == nil {
		link = abs
	}
	fi, err := os.Lstat(link)
	if err != nil || fi.Mode()&os.ModeSymlink == 0 {
		return link, ""
	}
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return link, ""
	}
	return link, filepath.Clean(resolved)
}

// startStoreWatcher watches the store file and calls notify after changes
// settle.
//
// Parameters:
//   - path: Full path to the store file.
//   - notify: Called once per burst of matching events.
//   - log: Logger for watcher errors.
//
// Returns:
//   - *fsnotify.Watcher: A watcher the caller should close when done.
//   - error: Non-nil if the watcher cannot be created or the directory cannot be watched.
func startStoreWatcher(path string, notify func(), log *zap.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watching a directory is more reliable than watching a single file.
	link, target := resolveWatchPaths(path)
	paths := []string{link}
	if target != "" {
		paths = append(paths, target)
	}
	watched := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close() //nolint:errcheck
			return nil, err
		}
		watched[dir] = true
	}

	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					if timer != nil {
						timer.Stop()
					}
					return
				}
				match := false
				for _, p := range paths {
					if shouldReloadStore(p, filepath.Base(p), event) {
						match = true
						break
					}
				}
				if !match {
					continue
				}
				// Debounce noisy editor save patterns.
				if timer == nil {
					timer = time.AfterFunc(watchDebounce, func() {
						log.Debug("store change signalled")
						notify()
					})
				} else {
					timer.Reset(watchDebounce)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("store watcher error", zap.Error(err))
			}
		}
	}()
	return watcher, nil
}
