// Package watch re-runs the sync pipeline when the content directory
// changes on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SyncFunc runs one full sync pass.
type SyncFunc func(ctx context.Context) error

// Watcher triggers a debounced sync whenever a markdown file under Root is
// created, written, removed, or renamed. Bursts of events (editors often
// write several times per save) collapse into one run.
type Watcher struct {
	Root     string
	Debounce time.Duration
	Logger   *slog.Logger
	Sync     SyncFunc
}

// New returns a Watcher with the default debounce window.
func New(root string, logger *slog.Logger, sync SyncFunc) *Watcher {
	return &Watcher{
		Root:     root,
		Debounce: 2 * time.Second,
		Logger:   logger,
		Sync:     sync,
	}
}

// Run watches until ctx is cancelled. New directories created at runtime are
// added to the watch list. Sync failures are logged and the watch continues.
func (wt *Watcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, wt.Root); err != nil {
		return err
	}

	wt.Logger.Info("watch: started", slog.String("root", wt.Root))

	// timer debounces the sync trigger.
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(wt.Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(wt.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			wt.Logger.Info("watch: stopped")
			return nil

		case <-timerCh:
			wt.Logger.Info("watch: content changed, syncing")
			if err := wt.Sync(ctx); err != nil {
				wt.Logger.Error("watch: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						wt.Logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				wt.Logger.Debug("watch: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			wt.Logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
