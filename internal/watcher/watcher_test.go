package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/event"
)

// fakeEngine rejects and prunes paths containing any of the reject
// substrings.
type fakeEngine struct {
	mu          sync.Mutex
	reject      []string
	err         error
	ignoreFiles map[string]bool
	reloads     int
	swaps       chan struct{}
}

func (f *fakeEngine) Check(ev event.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, p := range ev.Paths() {
		for _, r := range f.reject {
			if strings.Contains(p.Path, r) {
				return false, nil
			}
		}
	}
	return true, nil
}

func (f *fakeEngine) PruneDir(dir string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reject {
		if strings.Contains(dir, r) {
			return true
		}
	}
	return false
}

func (f *fakeEngine) Subscribe() (<-chan struct{}, func()) {
	return f.swaps, func() {}
}

func (f *fakeEngine) setReject(reject ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject = reject
}

func (f *fakeEngine) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *fakeEngine) IsIgnoreFile(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ignoreFiles[path]
}

func (f *fakeEngine) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

func waitForEvent(t *testing.T, w *Watcher, match func(event.Event) bool) event.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed")
			if match(ev) {
				return ev
			}
		case err := <-w.Errors():
			t.Fatalf("unexpected error: %v", err)
		case <-deadline:
			t.Fatal("timeout waiting for event")
		}
	}
}

func hasBase(name string) func(event.Event) bool {
	return func(ev event.Event) bool {
		for _, p := range ev.Paths() {
			if filepath.Base(p.Path) == name {
				return true
			}
		}
		return false
	}
}

func startWatcher(t *testing.T, eng Engine, opts Options, roots ...string) *Watcher {
	t.Helper()
	w, err := New(eng, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	go func() {
		_ = w.Start(ctx, roots)
	}()

	// Wait for watcher to initialize
	time.Sleep(150 * time.Millisecond)
	return w
}

func TestWatcher_New(t *testing.T) {
	w, err := New(&fakeEngine{}, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()
	assert.Equal(t, "fsnotify", w.Mode())

	p, err := New(&fakeEngine{}, Options{ForcePolling: true})
	require.NoError(t, err)
	defer func() { _ = p.Stop() }()
	assert.Equal(t, "polling", p.Mode())
}

func TestWatcher_EmitsAcceptedEvents(t *testing.T) {
	// Given: a watcher over a temp directory
	dir := t.TempDir()
	w := startWatcher(t, &fakeEngine{}, Options{EventBufferSize: 100}, dir)

	// When: a file is created
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	// Then: an event with an absolute path is emitted
	ev := waitForEvent(t, w, hasBase("main.go"))
	assert.True(t, filepath.IsAbs(ev.Paths()[0].Path))
	assert.GreaterOrEqual(t, w.Stats().Accepted, uint64(1))
}

func TestWatcher_DropsRejectedEvents(t *testing.T) {
	// Given: an engine rejecting *.log
	dir := t.TempDir()
	w := startWatcher(t, &fakeEngine{reject: []string{".log"}}, Options{}, dir)

	// When: a rejected and then an accepted file are written
	require.NoError(t, os.WriteFile(filepath.Join(dir, "debug.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	// Then: only the accepted file is seen
	waitForEvent(t, w, func(ev event.Event) bool {
		assert.False(t, hasBase("debug.log")(ev), "rejected event emitted")
		return hasBase("keep.txt")(ev)
	})
	assert.GreaterOrEqual(t, w.Stats().Rejected, uint64(1))
}

func TestWatcher_SkipsRejectedDirectories(t *testing.T) {
	// Given: an existing directory the filter rejects
	dir := t.TempDir()
	skipped := filepath.Join(dir, "node_modules")
	require.NoError(t, os.Mkdir(skipped, 0o755))
	eng := &fakeEngine{reject: []string{"node_modules"}}
	w := startWatcher(t, eng, Options{}, dir)

	// When: files are written inside and outside it
	require.NoError(t, os.WriteFile(filepath.Join(skipped, "dep.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("x"), 0o644))

	// Then: only the outside file produces an event
	waitForEvent(t, w, func(ev event.Event) bool {
		assert.False(t, hasBase("dep.js")(ev), "event from skipped directory")
		return hasBase("app.js")(ev)
	})
}

func TestWatcher_SkipsNewRejectedDirectories(t *testing.T) {
	// Given: a watcher whose filter prunes build output
	dir := t.TempDir()
	w := startWatcher(t, &fakeEngine{reject: []string{"build"}}, Options{}, dir)

	// When: the pruned directory is created and written to
	build := filepath.Join(dir, "build")
	require.NoError(t, os.Mkdir(build, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(build, "out.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src.txt"), []byte("x"), 0o644))

	// Then: nothing from inside it is seen
	waitForEvent(t, w, func(ev event.Event) bool {
		assert.False(t, hasBase("out.txt")(ev), "event from pruned directory")
		return hasBase("src.txt")(ev)
	})
}

func TestWatcher_RescansAfterFilterSwap(t *testing.T) {
	// Given: a directory pruned by the initial filter
	dir := t.TempDir()
	gen := filepath.Join(dir, "gen")
	require.NoError(t, os.Mkdir(gen, 0o755))
	eng := &fakeEngine{reject: []string{"gen"}, swaps: make(chan struct{}, 1)}
	w := startWatcher(t, eng, Options{}, dir)

	// When: a new filter stops pruning it
	eng.setReject()
	eng.swaps <- struct{}{}
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(gen, "api.go"), []byte("package gen"), 0o644))

	// Then: events from the directory arrive
	waitForEvent(t, w, hasBase("api.go"))
}

func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, &fakeEngine{}, Options{}, dir)

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitForEvent(t, w, hasBase("pkg"))

	// Give the watcher a moment to add the new directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "util.go"), []byte("package pkg"), 0o644))
	waitForEvent(t, w, hasBase("util.go"))
}

func TestWatcher_ReloadsOnIgnoreFileChange(t *testing.T) {
	// Given: a watched project
	dir := t.TempDir()
	eng := &fakeEngine{}
	w := startWatcher(t, eng, Options{}, dir)

	// When: a .gitignore is written
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n"), 0o644))

	// Then: the engine reloads
	waitForEvent(t, w, hasBase(".gitignore"))
	assert.GreaterOrEqual(t, eng.reloadCount(), 1)
	assert.GreaterOrEqual(t, w.Stats().Reloads, uint64(1))
}

func TestWatcher_DoesNotReloadOnLookalikeNames(t *testing.T) {
	// Given: a watched project
	dir := t.TempDir()
	eng := &fakeEngine{}
	w := startWatcher(t, eng, Options{}, dir)

	// When: files sharing a name with ignore files elsewhere are written
	for _, name := range []string{"exclude", "boring", "ignore-glob"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "last.txt"), []byte("x"), 0o644))

	// Then: their events pass through without a reload
	waitForEvent(t, w, hasBase("last.txt"))
	assert.Zero(t, eng.reloadCount())
	assert.Zero(t, w.Stats().Reloads)
}

func TestWatcher_PollingPrunesDirectories(t *testing.T) {
	// Given: a polling watcher over a tree with a pruned directory
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	vendor := filepath.Join(dir, "vendor")
	require.NoError(t, os.Mkdir(vendor, 0o755))
	w := startWatcher(t, &fakeEngine{reject: []string{"vendor"}},
		Options{ForcePolling: true, PollInterval: 20 * time.Millisecond}, dir)

	// When: files are written inside and outside it
	require.NoError(t, os.WriteFile(filepath.Join(vendor, "lib.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("x"), 0o644))

	// Then: the pruned directory is never walked
	waitForEvent(t, w, func(ev event.Event) bool {
		assert.False(t, hasBase("lib.go")(ev), "event from pruned directory")
		return hasBase("main.go")(ev)
	})
	w.pollWatcher.mu.RLock()
	_, seen := w.pollWatcher.fileState[filepath.Join(vendor, "lib.go")]
	w.pollWatcher.mu.RUnlock()
	assert.False(t, seen)
}

func TestWatcher_Polling(t *testing.T) {
	// Given: a polling watcher
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.go")
	require.NoError(t, os.WriteFile(existing, []byte("package main"), 0o644))
	w := startWatcher(t, &fakeEngine{}, Options{ForcePolling: true, PollInterval: 20 * time.Millisecond}, dir)

	// When/Then: creation, modification and removal are reported
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.go"), []byte("package main"), 0o644))
	ev := waitForEvent(t, w, hasBase("new.go"))
	assert.Equal(t, []event.FileEventKind{event.Create}, ev.Kinds())

	require.NoError(t, os.WriteFile(existing, []byte("package main\n\nfunc main() {}\n"), 0o644))
	ev = waitForEvent(t, w, hasBase("existing.go"))
	assert.Equal(t, []event.FileEventKind{event.ModifyData}, ev.Kinds())

	require.NoError(t, os.Remove(existing))
	ev = waitForEvent(t, w, hasBase("existing.go"))
	assert.Equal(t, []event.FileEventKind{event.Remove}, ev.Kinds())
}

func TestWatcher_Start_InvalidPath_ReturnsError(t *testing.T) {
	w, err := New(&fakeEngine{}, DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	err = w.Start(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})

	require.Error(t, err)
	assert.Equal(t, serrors.ErrCodePathInvalid, serrors.GetCode(err))
}

func TestWatcher_ContextCancel_StopsCleanly(t *testing.T) {
	w, err := New(&fakeEngine{}, DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, []string{t.TempDir()}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	_, open := <-w.Events()
	assert.False(t, open, "events channel should be closed")
}

func TestWatcher_Stop_Idempotent(t *testing.T) {
	w, err := New(&fakeEngine{}, DefaultOptions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Stop())
		}()
	}
	wg.Wait()
}

func TestWatcher_Process_EvaluationError(t *testing.T) {
	// Given: an engine whose filter fails
	boom := errors.New("boom")
	w, err := New(&fakeEngine{err: boom}, Options{ForcePolling: true})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: an event is processed
	w.process(context.Background(), event.FileEvent("/p/a.go", event.FileTypeFile, event.ModifyData))

	// Then: the error is reported, nothing is emitted, and the loop can continue
	select {
	case got := <-w.Errors():
		assert.Equal(t, serrors.ErrCodeEvaluationFailed, serrors.GetCode(got))
		assert.ErrorIs(t, got, boom)
	default:
		t.Fatal("expected an error")
	}
	assert.Empty(t, w.Events())
	assert.Equal(t, uint64(1), w.Stats().Failed)
}

func TestWatcher_Process_DropsWhenBufferFull(t *testing.T) {
	w, err := New(&fakeEngine{}, Options{ForcePolling: true, EventBufferSize: 1})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ev := event.FileEvent("/p/a.go", event.FileTypeFile, event.ModifyData)
	w.process(context.Background(), ev)
	w.process(context.Background(), ev)

	assert.Equal(t, uint64(2), w.Stats().Accepted)
	assert.Equal(t, uint64(1), w.Stats().Dropped)
}

func TestKindFromOp(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want event.FileEventKind
		ok   bool
	}{
		{op: fsnotify.Create, want: event.Create, ok: true},
		{op: fsnotify.Write, want: event.ModifyData, ok: true},
		{op: fsnotify.Remove, want: event.Remove, ok: true},
		{op: fsnotify.Rename, want: event.ModifyName, ok: true},
		{op: fsnotify.Chmod, want: event.ModifyMetadata, ok: true},
		{op: fsnotify.Write | fsnotify.Chmod, want: event.ModifyData, ok: true},
		{op: 0, want: event.Any, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, ok := kindFromOp(tt.op)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{}.WithDefaults()
	assert.Equal(t, DefaultOptions(), got)

	custom := Options{PollInterval: time.Second, EventBufferSize: 5, ForcePolling: true}.WithDefaults()
	assert.Equal(t, time.Second, custom.PollInterval)
	assert.Equal(t, 5, custom.EventBufferSize)
	assert.True(t, custom.ForcePolling)
}
