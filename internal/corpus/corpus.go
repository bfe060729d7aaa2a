// Package corpus loads files from disk into a types.Corpus ready for a build.
package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ykosuru/vsix-sub002/internal/filter"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const (
	// DefaultMaxFileSize skips files larger than 1 MiB
	DefaultMaxFileSize = 1 << 20

	// binarySniffLen is how much of a file is checked for NUL bytes
	binarySniffLen = 8000
)

// DefaultSkipDirs are directory names never descended into
var DefaultSkipDirs = []string{
	"node_modules", ".git", ".svn", "__pycache__", "venv", ".venv", "env", ".env",
	"dist", "build", "target", "out", "generated", "vendor",
}

// ErrNoRoots is returned when Load is called without a folder
var ErrNoRoots = errors.New("at least one root folder is required")

// Options configures a load. Zero values mean defaults.
type Options struct {
	SkipDirs      []string // replaces DefaultSkipDirs when non-empty
	IncludeHidden bool     // descend into dot-directories
	MaxFileSize   int64    // bytes; default DefaultMaxFileSize, negative means unlimited
	Workers       int      // concurrent readers (default: runtime.NumCPU())
	Logger        *slog.Logger
}

// Stats counts what a load did
type Stats struct {
	FilesLoaded   int      `json:"files_loaded"`
	FilesSkipped  int      `json:"files_skipped"`
	FilesFailed   int      `json:"files_failed"`
	BytesLoaded   int64    `json:"bytes_loaded"`
	ErrorMessages []string `json:"error_messages,omitempty"`
}

// Load walks every root and reads the files found into a corpus. Paths are
// slash separated and relative to their root; with several roots each path
// is prefixed with its root's base name so they stay unique. Unreadable files
// are skipped and reported in Stats, never retried.
func Load(ctx context.Context, roots []string, opts *Options) (types.Corpus, *Stats, error) {
	if len(roots) == 0 {
		return nil, nil, ErrNoRoots
	}
	if opts == nil {
		opts = &Options{}
	}
	logger := logging.OrDiscard(opts.Logger)

	skip := make(map[string]bool)
	dirs := opts.SkipDirs
	if len(dirs) == 0 {
		dirs = DefaultSkipDirs
	}
	for _, d := range dirs {
		skip[strings.ToLower(d)] = true
	}
	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	stats := &Stats{ErrorMessages: make([]string, 0)}
	var found []entry
	for _, root := range roots {
		prefix := ""
		if len(roots) > 1 {
			prefix = filepath.Base(filepath.Clean(root))
		}
		entries, skipped, err := discover(ctx, root, prefix, skip, opts.IncludeHidden, maxSize)
		if err != nil {
			return nil, nil, err
		}
		stats.FilesSkipped += skipped
		found = append(found, entries...)
	}

	corpus := make(types.Corpus, len(found))
	var (
		mu      sync.Mutex // Protect corpus and stats.ErrorMessages
		loaded  int32
		binary  int32
		failed  int32
		nbytes  int64
		sem     = make(chan struct{}, workers)
		g, gctx = errgroup.WithContext(ctx)
	)
	for _, e := range found {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			data, err := os.ReadFile(e.abs)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				skipErr := &types.SkippableFileError{Path: e.rel, Err: err}
				logger.Warn("skipping file", "path", e.rel, "error", err)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, skipErr.Error())
				mu.Unlock()
				return nil
			}
			if isBinary(data) {
				atomic.AddInt32(&binary, 1)
				logger.Debug("binary file skipped", "path", e.rel)
				return nil
			}

			content := string(data)
			if !utf8.ValidString(content) {
				content = strings.ToValidUTF8(content, "\uFFFD")
			}
			atomic.AddInt32(&loaded, 1)
			atomic.AddInt64(&nbytes, int64(len(data)))
			mu.Lock()
			corpus[e.rel] = types.CorpusFile{Content: content, Language: filter.DetectLanguage(e.rel)}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("load cancelled: %w", err)
	}

	stats.FilesLoaded = int(loaded)
	stats.FilesSkipped += int(binary)
	stats.FilesFailed = int(failed)
	stats.BytesLoaded = nbytes
	sort.Strings(stats.ErrorMessages)

	logger.Info("corpus loaded",
		"roots", len(roots),
		"files", stats.FilesLoaded,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"bytes", stats.BytesLoaded)
	return corpus, stats, nil
}

type entry struct {
	abs string
	rel string
}

// discover walks root and returns the candidate files with their corpus paths
func discover(ctx context.Context, root, prefix string, skip map[string]bool, hidden bool, maxSize int64) ([]entry, int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("root %s is not a directory", root)
	}

	var out []entry
	skipped := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped, the walk goes on
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		name := d.Name()
		if d.IsDir() {
			if p == root {
				return nil
			}
			if skip[strings.ToLower(name)] || (!hidden && strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if maxSize > 0 {
			fi, err := d.Info()
			if err != nil || fi.Size() > maxSize {
				skipped++
				return nil
			}
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if prefix != "" {
			rel = path.Join(prefix, rel)
		}
		out = append(out, entry{abs: p, rel: rel})
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("load cancelled: %w", err)
	}
	return out, skipped, nil
}

// isBinary reports whether data looks like a binary file
func isBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}
