// Package watcher rebuilds the index when files under the workspace roots
// change. Bursts of events are debounced into a single full rebuild.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ykosuru/vsix-sub002/internal/corpus"
	"github.com/ykosuru/vsix-sub002/internal/filter"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// DefaultDebounce is the quiet period before a rebuild starts
const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc reloads and rebuilds the index
type RebuildFunc func(ctx context.Context) error

// Options configures a Watcher. Zero values mean defaults.
type Options struct {
	Debounce      time.Duration
	SkipDirs      []string // default corpus.DefaultSkipDirs
	IncludeHidden bool
	Logger        *slog.Logger
}

// Watcher watches workspace roots and triggers rebuilds
type Watcher struct {
	roots   []string
	rebuild RebuildFunc
	opts    Options
	skip    map[string]bool
	logger  *slog.Logger
	fsw     *fsnotify.Watcher

	mu       sync.Mutex
	timer    *time.Timer
	fire     chan struct{}
	rebuilds atomic.Int64
}

// New creates a watcher over roots. Nothing is watched until Run.
func New(roots []string, rebuild RebuildFunc, opts *Options) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, corpus.ErrNoRoots
	}
	if rebuild == nil {
		return nil, errors.New("rebuild function is required")
	}
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	dirs := o.SkipDirs
	if len(dirs) == 0 {
		dirs = corpus.DefaultSkipDirs
	}
	skip := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		skip[strings.ToLower(d)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		roots:   roots,
		rebuild: rebuild,
		opts:    o,
		skip:    skip,
		logger:  logging.OrDiscard(o.Logger),
		fsw:     fsw,
		fire:    make(chan struct{}, 1),
	}, nil
}

// Rebuilds returns how many rebuilds have run
func (w *Watcher) Rebuilds() int64 {
	return w.rebuilds.Load()
}

// Run watches until ctx is done. Rebuilds run on the calling goroutine, one
// at a time; events arriving during a rebuild schedule another.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	w.logger.Info("watching for changes", "roots", len(w.roots), "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-w.fire:
			w.runRebuild(ctx)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if w.ignored(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Create) && isDir(event.Name) {
		// a skipped directory appearing at runtime (npm install) is never watched
		if w.skippedDir(filepath.Base(event.Name)) {
			return
		}
		if err := w.addRecursive(event.Name); err != nil {
			w.logger.Debug("failed to watch new directory", "path", event.Name, "error", err)
		}
		w.schedule()
		return
	}
	// removed or renamed paths may be directories we can no longer stat
	if !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) && !filter.ShouldIndex(filepath.Base(event.Name)) {
		return
	}
	w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
	w.schedule()
}

// schedule (re)starts the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) runRebuild(ctx context.Context) {
	start := time.Now()
	err := w.rebuild(ctx)
	switch {
	case err == nil:
		w.rebuilds.Add(1)
		w.logger.Info("index rebuilt after change", "duration", time.Since(start))
	case errors.Is(err, types.ErrBuildInProgress):
		w.logger.Debug("build in progress, retrying later")
		w.schedule()
	case ctx.Err() != nil:
	default:
		w.logger.Error("rebuild failed", "error", err)
	}
}

// ignored reports whether any directory segment of p is skipped
func (w *Watcher) ignored(p string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		dir := filepath.Dir(rel)
		for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
			if seg == "." || seg == "" {
				continue
			}
			if w.skippedDir(seg) {
				return true
			}
		}
		return false
	}
	return false
}

// skippedDir reports whether a directory named name is never watched
func (w *Watcher) skippedDir(name string) bool {
	return w.skip[strings.ToLower(name)] || (!w.opts.IncludeHidden && strings.HasPrefix(name, "."))
}

// addRecursive watches dir and every directory below it that is not skipped
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != dir && w.skippedDir(name) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Debug("failed to watch directory", "path", p, "error", err)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
