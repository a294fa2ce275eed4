// Package watch re-ingests documents when files under watched directories
// are created or written.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// DefaultDebounce is how long a path must be quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherFailed indicates the filesystem watcher failed to initialise.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Ingester ingests a file from disk.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*domain.IngestReport, error)
}

// Result is the outcome of ingesting one changed file.
type Result struct {
	Path   string
	Report *domain.IngestReport
	Err    error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher watches directory trees and ingests supported files as they change.
type Watcher struct {
	ingest   Ingester
	exts     []string
	debounce time.Duration

	watcher *fsnotify.Watcher
	results chan Result
	stop    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending map[string]time.Time
	dirs    int
}

// New creates a watcher that hands changed files with one of exts to ingest.
// An empty exts accepts every non-hidden file.
func New(ingest Ingester, exts []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &Watcher{
		ingest:   ingest,
		exts:     exts,
		debounce: DefaultDebounce,
		watcher:  fw,
		results:  make(chan Result, 16),
		stop:     make(chan struct{}),
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches root and every non-hidden directory below it.
func (w *Watcher) Add(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.mu.Lock()
		w.dirs++
		w.mu.Unlock()
		logger.Debug("watching %s", path)
		return nil
	})
}

// Dirs returns the number of directories being watched.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs
}

// Results returns the channel of ingest outcomes. Results are dropped
// when the channel is full.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Run processes filesystem events until ctx is cancelled or Stop is called.
// The results channel is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.results)

	tick := time.NewTicker(w.debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-w.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleEvent(event); ok {
				w.schedule(path, time.Now())
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case now := <-tick.C:
			w.flush(ctx, now)
		}
	}
}

// Stop stops the watcher and releases its resources. Safe to call twice.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// handleEvent returns the file to ingest for event, if any. New
// directories are added to the watch set.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if isHidden(filepath.Base(event.Name)) {
		return "", false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.Add(event.Name); err != nil {
				logger.Warn("watching new directory %s: %v", event.Name, err)
			}
		}
		return "", false
	}
	if !w.supported(event.Name) {
		return "", false
	}
	return event.Name, true
}

// schedule records a change to path; repeated changes push the deadline out.
func (w *Watcher) schedule(path string, now time.Time) {
	w.mu.Lock()
	w.pending[path] = now.Add(w.debounce)
	w.mu.Unlock()
}

// due removes and returns the pending paths whose deadline has passed.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var paths []string
	for path, deadline := range w.pending {
		if !now.Before(deadline) {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	slices.Sort(paths)
	return paths
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for _, path := range w.due(now) {
		report, err := w.ingest.IngestFile(ctx, path)
		if err != nil {
			logger.Warn("ingesting %s: %v", path, err)
		} else {
			logger.Debug("ingested %s as %s", path, report.Document.ID)
		}

		select {
		case w.results <- Result{Path: path, Report: report, Err: err}:
		default:
		}
	}
}

func (w *Watcher) supported(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return slices.Contains(w.exts, strings.ToLower(filepath.Ext(path)))
}

// isHidden reports whether a file or directory name starts with a dot.
// The special names "." and ".." are not hidden.
func isHidden(name string) bool {
	return name != "." && name != ".." && strings.HasPrefix(name, ".")
}
