package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldersync/foldersync/testutil"
)

// signalingWatcher lets a test push change signals on demand.
type signalingWatcher struct {
	ch     chan struct{}
	active bool
}

func newSignalingWatcher() *signalingWatcher {
	return &signalingWatcher{ch: make(chan struct{}, 1)}
}

func (w *signalingWatcher) Changes() <-chan struct{} { return w.ch }
func (w *signalingWatcher) SetActive(active bool)    { w.active = active }

func (w *signalingWatcher) signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func TestForceSyncRunsImmediatelyRegardlessOfDebounce(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, _ := newTestWorker(t, root)
	sw := newSignalingWatcher()
	w.watcher = sw

	_, err := client.Upload(t.Context(), strReader("x"), 1, "", "", "a.txt")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.ForceSync()

	require.Eventually(t, func() bool {
		_, found, err := w.store.Get("a.txt")
		return err == nil && found
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPeriodicPassRunsPullOnlyWithoutPendingEvents(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, _ := newTestWorker(t, root)

	_, err := client.Upload(t.Context(), strReader("x"), 1, "", "", "periodic.txt")
	require.NoError(t, err)

	// Simulate the periodic branch directly rather than waiting out the
	// real 20s interval.
	report, err := w.RunOnce(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventsApplied)
	assert.False(t, report.Full)
}

func TestWatcherUnmuzzledAfterPass(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, _ := newTestWorker(t, root)
	sw := newSignalingWatcher()
	w.watcher = sw

	_, err := w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	assert.False(t, sw.active, "watcher must be un-muzzled again once the pass completes")
}
