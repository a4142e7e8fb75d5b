package sync

import (
	"context"
	"log/slog"

	"github.com/foldersync/foldersync/internal/pathutil"
)

// Worker owns the store, the client, and the watcher, and runs the
// reconciliation loop. It is the only stateful long-lived actor (spec §2).
type Worker struct {
	syncRoot string
	store    Store
	client   Client
	watcher  Watcher
	filter   *pathutil.Filter
	logger   *slog.Logger

	forceSync chan struct{}

	// hashFunc is injectable so tests can avoid real disk hashing.
	hashFunc func(absPath string) (string, error)
}

// New constructs a Worker. filter must already include the store file in
// its ignore set (spec §4.1: "always added to the ignore list").
func New(syncRoot string, st Store, client Client, watcher Watcher, filter *pathutil.Filter, logger *slog.Logger) *Worker {
	return &Worker{
		syncRoot:  syncRoot,
		store:     st,
		client:    client,
		watcher:   watcher,
		filter:    filter,
		logger:    logger,
		forceSync: make(chan struct{}, 1),
		hashFunc:  hashFile,
	}
}

// ForceSync requests an immediate full pass, clearing any pending debounce
// wait (spec §4.4: "ForceSync: immediately run a full pass (clears
// pending)").
func (w *Worker) ForceSync() {
	select {
	case w.forceSync <- struct{}{}:
	default:
	}
}

// Report summarizes the outcome of one pass, for CLI/status consumers.
type Report struct {
	Full           bool
	EventsApplied  int
	CursorAdvanced bool
	Uploaded       int
	Downloaded     int
	RemoteCreated  int
	RemoteDeleted  int
	Errors         []error
}

// RunOnce executes exactly one pass: pull unconditionally, then push only
// if full is true (spec §4.5, §4.6). The "sync active" flag is set before
// starting and cleared after, regardless of outcome, so the watcher stays
// muted across the entire pass (spec §4.4, §4.7).
func (w *Worker) RunOnce(ctx context.Context, full bool) (*Report, error) {
	w.watcher.SetActive(true)
	defer w.watcher.SetActive(false)

	report := &Report{Full: full}

	if err := w.pullPhase(ctx, report); err != nil {
		return report, err
	}

	if full {
		if err := w.pushPhase(ctx, report); err != nil {
			return report, err
		}
	}

	return report, nil
}
