// Package watch triggers a debounced callback when rule sources change.
//
// A Watcher registers every directory under its root with fsnotify and
// collects events for files the source registry recognizes. Events that
// arrive within the debounce window are coalesced so the callback fires
// once with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/rulegen/internal/source"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 300 * time.Millisecond

// editor and OS noise that never names a rule source
var ignoredSuffixes = []string{".swp", ".swo", "~", ".tmp"}

// Config holds the parameters for a Watcher.
type Config struct {
	// Root is the directory to watch recursively. Empty means the working
	// directory.
	Root string

	// Skip lists directories excluded from watching, typically the output
	// directory when it lives under Root.
	Skip []string

	// Registry decides which files are rule sources. nil means
	// source.Default().
	Registry *source.Registry

	// Debounce is the quiet period after the last event before OnChange
	// fires. Zero or negative means DefaultDebounce.
	Debounce time.Duration

	// OnChange receives the sorted, deduplicated changed paths relative to
	// Root. Errors are logged and do not stop the watcher.
	OnChange func(ctx context.Context, changed []string) error

	Logger *slog.Logger
}

// Watcher monitors a source tree. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	root     string
	skip     []string
	registry *source.Registry
	debounce time.Duration
	logger   *slog.Logger
	started  atomic.Bool
}

// New resolves the root, creates the fsnotify watcher and registers every
// directory under the root.
func New(cfg Config) (*Watcher, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", absRoot)
	}

	skip := make([]string, 0, len(cfg.Skip))
	for _, dir := range cfg.Skip {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve skipped dir: %w", err)
		}
		skip = append(skip, abs)
	}

	w := &Watcher{
		cfg:      cfg,
		root:     absRoot,
		skip:     skip,
		registry: cfg.Registry,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
	}
	if w.registry == nil {
		w.registry = source.Default()
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close watcher after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Close releases the fsnotify watcher of a Watcher whose Run was never
// called. Run closes it on its own.
func (w *Watcher) Close() error {
	if w.started.CompareAndSwap(false, true) {
		return w.fsw.Close()
	}
	return nil
}

// Run blocks until ctx is canceled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks. Run
// waits for an in-flight callback before returning.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu       sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
		stopped  bool
		running  atomic.Bool
		inflight sync.WaitGroup
	)

	// fire runs on the timer goroutine. A fire that finds a callback still
	// running reschedules itself so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("callback busy, deferring changes")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if stopped || len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		inflight.Add(1)
		mu.Unlock()
		defer inflight.Done()

		w.logger.Debug("sources changed", "count", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("change callback failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		inflight.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if w.skipped(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) && w.maybeAddDir(evt.Name) {
				continue
			}
			if !w.relevant(evt.Name) {
				continue
			}

			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil {
				rel = evt.Name
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// addDirectories registers every directory under the root that is not
// skipped. Unreadable directories are logged and left out.
func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// maybeAddDir registers a directory created after startup, along with any
// directories already inside it. It reports whether path was a directory.
func (w *Watcher) maybeAddDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if w.skipped(p) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(p); addErr != nil {
			w.logger.Warn("add new directory", "path", p, "error", addErr)
		}
		return nil
	})
	return true
}

// skipped reports whether path lies in a skipped directory or below a
// hidden directory of the tree.
func (w *Watcher) skipped(path string) bool {
	for _, dir := range w.skip {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// relevant reports whether path names a rule source.
func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(base, suffix) {
			return false
		}
	}
	_, ok := w.registry.KindOf(base)
	return ok
}
