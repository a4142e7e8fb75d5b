package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFsWatcher is an injectable FsWatcher for driving Watcher.Run without a
// real kernel inotify instance.
type fakeFsWatcher struct {
	events  chan fsnotify.Event
	errs    chan error
	added   []string
	removed []string
	closed  bool
}

func newFakeFsWatcher() *fakeFsWatcher {
	return &fakeFsWatcher{
		events: make(chan fsnotify.Event, 16),
		errs:   make(chan error, 16),
	}
}

func (f *fakeFsWatcher) Add(name string) error {
	f.added = append(f.added, name)
	return nil
}

func (f *fakeFsWatcher) Remove(name string) error {
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeFsWatcher) Close() error {
	f.closed = true
	return nil
}

func (f *fakeFsWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeFsWatcher) Errors() <-chan error          { return f.errs }

func newTestWatcher(t *testing.T, root string, filter *pathutil.Filter) (*Watcher, *fakeFsWatcher) {
	t.Helper()

	fw := newFakeFsWatcher()
	w := New(root, filter, discardLogger())
	w.watcherFactory = func() (FsWatcher, error) { return fw, nil }

	return w, fw
}

func runWatcher(t *testing.T, w *Watcher) (context.CancelFunc, chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	return cancel, done
}

func waitSignal(t *testing.T, w *Watcher, want bool) {
	t.Helper()

	select {
	case <-w.Changes():
		assert.True(t, want, "unexpected signal")
	case <-time.After(200 * time.Millisecond):
		assert.False(t, want, "expected a signal, got none")
	}
}

func TestWatcherSignalsOnWriteEvent(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	testutil.WriteFile(t, root, "notes.md", []byte("hi"))

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	cancel, done := runWatcher(t, w)
	defer cancel()

	fw.events <- fsnotify.Event{Name: root + "/notes.md", Op: fsnotify.Write}
	waitSignal(t, w, true)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherDropsAccessOnlyEvents(t *testing.T) {
	root := testutil.TempSyncRoot(t)

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	cancel, done := runWatcher(t, w)
	defer cancel()

	fw.events <- fsnotify.Event{Name: root + "/notes.md", Op: fsnotify.Chmod}
	waitSignal(t, w, false)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherDropsIgnoredPaths(t *testing.T) {
	root := testutil.TempSyncRoot(t)

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	cancel, done := runWatcher(t, w)
	defer cancel()

	fw.events <- fsnotify.Event{Name: root + "/.git/HEAD", Op: fsnotify.Write}
	waitSignal(t, w, false)

	fw.events <- fsnotify.Event{Name: root + "/" + pathutil.StoreFileName, Op: fsnotify.Write}
	waitSignal(t, w, false)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherDropsEventsWhileActive(t *testing.T) {
	root := testutil.TempSyncRoot(t)

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	w.SetActive(true)

	cancel, done := runWatcher(t, w)
	defer cancel()

	fw.events <- fsnotify.Event{Name: root + "/notes.md", Op: fsnotify.Write}
	waitSignal(t, w, false)

	w.SetActive(false)
	fw.events <- fsnotify.Event{Name: root + "/notes.md", Op: fsnotify.Write}
	waitSignal(t, w, true)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherCoalescesMultipleSignals(t *testing.T) {
	root := testutil.TempSyncRoot(t)

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	cancel, done := runWatcher(t, w)
	defer cancel()

	fw.events <- fsnotify.Event{Name: root + "/a.txt", Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: root + "/b.txt", Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: root + "/c.txt", Op: fsnotify.Write}

	waitSignal(t, w, true)
	waitSignal(t, w, false)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherAddsWatchForNewDirectory(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	sub := testutil.WriteFile(t, root, "sub/keep.txt", []byte("x"))
	_ = sub

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	cancel, done := runWatcher(t, w)
	defer cancel()

	dirPath := root + "/newdir"
	require.NoError(t, testutil.Mkdir(t, dirPath))

	fw.events <- fsnotify.Event{Name: dirPath, Op: fsnotify.Create}
	waitSignal(t, w, true)

	assert.Contains(t, fw.added, dirPath)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	root := testutil.TempSyncRoot(t)

	w, fw := newTestWatcher(t, root, pathutil.NewFilter())
	cancel, done := runWatcher(t, w)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}

	assert.True(t, fw.closed)
}

func TestWatcherRefusesToRunWithNosyncGuard(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".nosync"), nil, 0o644))

	w, _ := newTestWatcher(t, root, pathutil.NewFilter())

	err := w.Run(t.Context())
	assert.ErrorIs(t, err, ErrNosyncGuard)
}
