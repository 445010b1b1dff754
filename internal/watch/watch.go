// Package watch re-runs a gallery update whenever the picture tree changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must stay quiet before a run
const DefaultDebounce = 2 * time.Second

// Watcher watches Root recursively. Bursts of events are coalesced: Run is
// called once the tree has been quiet for Debounce. Runs never overlap and
// happen on the goroutine calling Watch.
type Watcher struct {
	Root        string
	ExcludeDirs []string // directory names not watched
	Exclude     []string // path substrings whose events are ignored
	Debounce    time.Duration
	Run         func(ctx context.Context) error
	Logger      *slog.Logger
}

// Watch runs once, then again after every settled burst of changes, until
// ctx is cancelled. A failing run is logged and watching goes on.
func (w *Watcher) Watch(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.Root); err != nil {
		return err
	}

	w.run(ctx, log)

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if isDir, err := statDir(ev.Name); err == nil && isDir {
					if err := w.addTree(fw, ev.Name); err != nil {
						log.Warn("failed to watch directory", "path", ev.Name, "error", err)
					}
				}
			}
			log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			pending++
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-timer.C:
			log.Info("tree changed", "events", pending)
			pending = 0
			w.run(ctx, log)
		}
	}
}

func (w *Watcher) run(ctx context.Context, log *slog.Logger) {
	start := time.Now()
	if err := w.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("update failed", "error", err)
		return
	}
	log.Info("update finished", "duration", time.Since(start).Round(time.Millisecond))
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root && (slices.Contains(w.ExcludeDirs, d.Name()) || w.ignored(path)) {
			return fs.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	// a trailing separator lets "dir/" exclude dir itself
	withSep := path + string(filepath.Separator)
	for _, e := range w.Exclude {
		if e != "" && strings.Contains(withSep, e) {
			return true
		}
	}
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if slices.Contains(w.ExcludeDirs, part) {
			return true
		}
	}
	return false
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
