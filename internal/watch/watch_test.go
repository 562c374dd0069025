package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jackzampolin/cbzmerge/internal/testutil"
)

type harness struct {
	w      *Watcher
	events chan fsnotify.Event
	errs   chan error
	runs   atomic.Int32
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
	err    error
}

func startLoop(t *testing.T, cfg Config, runErr error) *harness {
	t.Helper()
	h := &harness{
		events: make(chan fsnotify.Event),
		errs:   make(chan error),
		done:   make(chan error, 1),
	}
	cfg.Run = func(ctx context.Context) error {
		h.runs.Add(1)
		return runErr
	}
	if cfg.Logger == nil {
		cfg.Logger = testutil.Logger(t)
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.w = w

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- w.loop(ctx, h.events, h.errs) }()
	t.Cleanup(func() { h.stop() })
	return h
}

// stop cancels the loop and returns its result.
func (h *harness) stop() error {
	h.once.Do(func() {
		h.cancel()
		h.err = <-h.done
	})
	return h.err
}

func (h *harness) send(name string, op fsnotify.Op) {
	h.events <- fsnotify.Event{Name: name, Op: op}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Run: func(context.Context) error { return nil }}); err == nil {
		t.Error("expected error without directory")
	}
	if _, err := New(Config{Dir: t.TempDir()}); err == nil {
		t.Error("expected error without run function")
	}

	w, err := New(Config{Dir: t.TempDir(), Run: func(context.Context) error { return nil }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w.cfg.Debounce != DefaultDebounce {
		t.Errorf("expected default debounce, got %v", w.cfg.Debounce)
	}
}

func TestWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		Dir:    dir,
		Ignore: []string{filepath.Join(dir, "merged.cbz")},
		Run:    func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		file string
		op   fsnotify.Op
		want bool
	}{
		{"new archive", "a.cbz", fsnotify.Create, true},
		{"written archive", "a.CBZ", fsnotify.Write, true},
		{"removed archive", "a.cbz", fsnotify.Remove, true},
		{"renamed archive", "a.cbz", fsnotify.Rename, true},
		{"chmod only", "a.cbz", fsnotify.Chmod, false},
		{"other file", "notes.txt", fsnotify.Create, false},
		{"hidden temp file", ".merged.1234.tmp", fsnotify.Create, false},
		{"hidden archive", ".a.cbz", fsnotify.Create, false},
		{"merge output", "merged.cbz", fsnotify.Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := fsnotify.Event{Name: filepath.Join(dir, tt.file), Op: tt.op}
			if got := w.Relevant(ev); got != tt.want {
				t.Errorf("Relevant(%s %s) = %v, want %v", tt.op, tt.file, got, tt.want)
			}
		})
	}
}

func TestLoop_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	h := startLoop(t, Config{Dir: dir, Debounce: 50 * time.Millisecond}, nil)

	for _, name := range []string{"a.cbz", "b.cbz", "c.cbz"} {
		h.send(filepath.Join(dir, name), fsnotify.Create)
	}

	if err := testutil.WaitFor(func() bool { return h.runs.Load() == 1 }, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	// No further run without further changes.
	time.Sleep(150 * time.Millisecond)
	if n := h.runs.Load(); n != 1 {
		t.Errorf("expected exactly 1 run for one burst, got %d", n)
	}

	h.send(filepath.Join(dir, "d.cbz"), fsnotify.Create)
	if err := testutil.WaitFor(func() bool { return h.runs.Load() == 2 }, 2*time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestLoop_IgnoresIrrelevantEvents(t *testing.T) {
	dir := t.TempDir()
	h := startLoop(t, Config{Dir: dir, Debounce: 20 * time.Millisecond}, nil)

	h.send(filepath.Join(dir, "readme.txt"), fsnotify.Create)
	h.send(filepath.Join(dir, "a.cbz"), fsnotify.Chmod)
	h.errs <- errors.New("queue overflow")

	time.Sleep(100 * time.Millisecond)
	if n := h.runs.Load(); n != 0 {
		t.Errorf("expected no runs, got %d", n)
	}
}

func TestLoop_FailedRunKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	h := startLoop(t, Config{Dir: dir, Debounce: 20 * time.Millisecond}, errors.New("boom"))

	h.send(filepath.Join(dir, "a.cbz"), fsnotify.Create)
	if err := testutil.WaitFor(func() bool { return h.runs.Load() == 1 }, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	h.send(filepath.Join(dir, "a.cbz"), fsnotify.Write)
	if err := testutil.WaitFor(func() bool { return h.runs.Load() == 2 }, 2*time.Second); err != nil {
		t.Fatal(err)
	}

	if err := h.stop(); err != nil {
		t.Errorf("loop returned error: %v", err)
	}
	if runs, failed := h.w.Stats(); runs != 2 || failed != 2 {
		t.Errorf("stats: runs=%d failed=%d", runs, failed)
	}
}

func TestLoop_RunOnStart(t *testing.T) {
	h := startLoop(t, Config{Dir: t.TempDir(), RunOnStart: true}, nil)
	if err := testutil.WaitFor(func() bool { return h.runs.Load() == 1 }, time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestWatch_FileSystem(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	w, err := New(Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Logger:   testutil.Logger(t),
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)
	testutil.WriteArchive(t, dir, "issue1.cbz", testutil.Pages(t, "01.png"))

	if err := testutil.WaitFor(func() bool { return runs.Load() >= 1 }, 3*time.Second); err != nil {
		t.Error(err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	w, err := New(Config{
		Dir: filepath.Join(t.TempDir(), "missing"),
		Run: func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}
