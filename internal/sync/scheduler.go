package sync

import (
	"context"
	"log/slog"
	"time"
)

// Timers per spec §4.4.
const (
	DebounceWindow   = 4 * time.Second
	PeriodicInterval = 20 * time.Second
)

// Run is the single-threaded cooperative loop over a command channel with
// two sources: the watcher, and an internal periodic tick (spec §4.4). It
// blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	var (
		pending       bool
		lastEventTime time.Time
	)

	for {
		wait := PeriodicInterval
		if pending {
			elapsed := time.Since(lastEventTime)
			wait = DebounceWindow - elapsed
			if wait < 0 {
				wait = 0
			}
		}

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case <-w.watcher.Changes():
			timer.Stop()
			pending = true
			lastEventTime = time.Now()

		case <-w.forceSync:
			timer.Stop()
			pending = false
			w.runPassLogged(ctx, true)

		case <-timer.C:
			if pending {
				pending = false
				w.runPassLogged(ctx, true)
			} else {
				w.runPassLogged(ctx, false)
			}
		}
	}
}

// runPassLogged runs one pass and logs its outcome. A per-pass error never
// aborts the worker loop (spec §7 propagation policy: "the worker never
// aborts the process on a per-item failure").
func (w *Worker) runPassLogged(ctx context.Context, full bool) {
	kind := "pull-only"
	if full {
		kind = "full"
	}

	report, err := w.RunOnce(ctx, full)
	if err != nil {
		w.logger.Error("sync pass failed", slog.String("kind", kind), slog.String("error", err.Error()))
		return
	}

	w.logger.Info("sync pass complete",
		slog.String("kind", kind),
		slog.Int("events_applied", report.EventsApplied),
		slog.Bool("cursor_advanced", report.CursorAdvanced),
		slog.Int("uploaded", report.Uploaded),
		slog.Int("downloaded", report.Downloaded),
		slog.Int("errors", len(report.Errors)),
	)
}
