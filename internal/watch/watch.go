// Package watch re-runs a merge whenever the archives in a directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jackzampolin/cbzmerge/internal/archive"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 2 * time.Second

// RunFunc performs one merge.
type RunFunc func(ctx context.Context) error

// Config configures a Watcher.
type Config struct {
	Dir        string        // Directory to watch
	Extensions []string      // Archive extensions that trigger a run (default .cbz)
	Ignore     []string      // Paths whose changes never trigger a run, e.g. the merge output
	Debounce   time.Duration // Quiet period after the last change before a run
	RunOnStart bool          // Merge once before waiting for changes
	Run        RunFunc
	Logger     *slog.Logger
}

// Watcher schedules merges for directory changes. Runs happen one at a time
// on the watch loop; a failed run is logged and watching continues.
type Watcher struct {
	cfg    Config
	ignore map[string]bool
	logger *slog.Logger
	runs   int
	fails  int
}

// New validates cfg and creates a Watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if cfg.Run == nil {
		return nil, errors.New("run function is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = archive.DefaultExtensions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ignore := make(map[string]bool, len(cfg.Ignore))
	for _, p := range cfg.Ignore {
		ignore[absPath(p)] = true
	}

	return &Watcher{
		cfg:    cfg,
		ignore: ignore,
		logger: logger.With("dir", cfg.Dir),
	}, nil
}

// Watch blocks until ctx is cancelled. Cancellation is a normal exit.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("watching for archive changes", "debounce", w.cfg.Debounce)

	return w.loop(ctx, fw.Events, fw.Errors)
}

// loop is the event loop behind Watch.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	if w.cfg.RunOnStart {
		w.run(ctx)
	}

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.Relevant(ev) {
				continue
			}
			w.logger.Debug("archive changed", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.run(ctx)
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	w.runs++
	start := time.Now()
	if err := w.cfg.Run(ctx); err != nil {
		w.fails++
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("merge failed", "error", err)
		return
	}
	w.logger.Info("merge finished", "duration", time.Since(start).Round(time.Millisecond))
}

// Relevant reports whether ev should schedule a merge: a create, write,
// remove or rename of a visible archive that is not ignored.
func (w *Watcher) Relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !archive.MatchExtension(base, w.cfg.Extensions) {
		return false
	}
	return !w.ignore[absPath(ev.Name)]
}

// Stats returns the number of runs and failed runs so far. Only safe to
// call once Watch has returned.
func (w *Watcher) Stats() (runs, failed int) {
	return w.runs, w.fails
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
