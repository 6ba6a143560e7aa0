// Package watch observes the loaded document on disk and flags the
// session as stale when the file changes after loading. It never
// mutates document content; the session only ever changes through
// re-initialization.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/checksum"
)

type target struct {
	path     string
	checksum string
}

// Watcher tracks a single document file. The watched target changes
// whenever a new document is loaded.
type Watcher struct {
	fsw       *fsnotify.Watcher
	targets   chan target
	markStale func()
	logger    *slog.Logger
}

// New creates a watcher. markStale is invoked (possibly repeatedly)
// when the current target changes on disk.
func New(markStale func(), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:       fsw,
		targets:   make(chan target, 1),
		markStale: markStale,
		logger:    logger,
	}, nil
}

// SetTarget points the watcher at a newly loaded document. Safe to
// call from the protocol loop while Run is active.
func (w *Watcher) SetTarget(path, sum string) {
	// Drop a pending retarget; only the latest load matters.
	select {
	case <-w.targets:
	default:
	}
	w.targets <- target{path: path, checksum: sum}
}

// Run processes file events until ctx is cancelled. The parent
// directory is watched rather than the file itself so that editors
// that replace files via rename are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var cur target
	var watchedDir string

	retarget := func(t target) {
		dir := filepath.Dir(t.path)
		if dir != watchedDir {
			if watchedDir != "" {
				_ = w.fsw.Remove(watchedDir)
			}
			if err := w.fsw.Add(dir); err != nil {
				w.logger.Warn("watcher: add dir failed",
					slog.String("dir", dir),
					slog.String("error", err.Error()))
				return
			}
			watchedDir = dir
		}
		cur = t
		w.logger.Debug("watcher: tracking document", slog.String("path", t.path))
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case t := <-w.targets:
			retarget(t)

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if cur.path == "" || ev.Name != cur.path {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				data, err := os.ReadFile(cur.path)
				if err != nil {
					w.logger.Warn("watcher: read failed",
						slog.String("path", cur.path),
						slog.String("error", err.Error()))
					continue
				}
				if checksum.Sum(data) == cur.checksum {
					continue
				}
				w.logger.Info("watcher: document changed on disk", slog.String("path", cur.path))
				w.markStale()

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.logger.Info("watcher: document removed or renamed", slog.String("path", cur.path))
				w.markStale()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}
