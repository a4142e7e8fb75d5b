// Package watcher wraps a recursive filesystem notifier rooted at the sync
// root, filters ignored paths and events while a sync pass is active, and
// emits a single opaque "something changed" signal (spec §4.3). Adapted
// from the teacher's internal/sync FsWatcher/fsnotifyWrapper pair in
// observer_local.go, collapsed from a typed ChangeEvent stream down to the
// spec's single opaque command.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/foldersync/foldersync/internal/pathutil"
)

// nosyncFileName is a guard file name: if present at the sync root, the
// watcher refuses to start.
const nosyncFileName = ".nosync"

// ErrNosyncGuard is returned when a .nosync guard file is present in the
// sync root.
var ErrNosyncGuard = errors.New("watcher: .nosync guard file present (sync dir may be unmounted)")

// FsWatcher abstracts filesystem event monitoring. Satisfied by
// *fsnotify.Watcher; tests inject a fake.
type FsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWrapper adapts *fsnotify.Watcher to FsWatcher. fsnotify exposes
// Events and Errors as public fields, not methods.
type fsnotifyWrapper struct {
	w *fsnotify.Watcher
}

func (fw *fsnotifyWrapper) Add(name string) error         { return fw.w.Add(name) }
func (fw *fsnotifyWrapper) Remove(name string) error      { return fw.w.Remove(name) }
func (fw *fsnotifyWrapper) Close() error                  { return fw.w.Close() }
func (fw *fsnotifyWrapper) Events() <-chan fsnotify.Event { return fw.w.Events }
func (fw *fsnotifyWrapper) Errors() <-chan error          { return fw.w.Errors }

// Watcher watches syncRoot and forwards a single opaque "changed" signal to
// the worker, per spec §4.3. It implements sync.Watcher.
type Watcher struct {
	syncRoot string
	filter   *pathutil.Filter
	logger   *slog.Logger

	watcherFactory func() (FsWatcher, error)

	changes chan struct{}
	active  atomic.Bool
}

// New constructs a Watcher rooted at syncRoot.
func New(syncRoot string, filter *pathutil.Filter, logger *slog.Logger) *Watcher {
	return &Watcher{
		syncRoot: syncRoot,
		filter:   filter,
		logger:   logger,
		watcherFactory: func() (FsWatcher, error) {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return nil, err
			}

			return &fsnotifyWrapper{w: w}, nil
		},
		changes: make(chan struct{}, 1),
	}
}

// Changes implements sync.Watcher.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// SetActive implements sync.Watcher (spec §4.3 point 3: "Drop all events
// while a shared sync in progress flag is set").
func (w *Watcher) SetActive(active bool) {
	w.active.Store(active)
}

// signal forwards a single non-blocking "changed" notification.
func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Run starts the recursive watch and blocks until ctx is canceled or an
// unrecoverable watcher error occurs.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(w.syncRoot, nosyncFileName)); err == nil {
		w.logger.Warn("nosync guard file detected, aborting watch", slog.String("sync_root", w.syncRoot))
		return ErrNosyncGuard
	}

	fw, err := w.watcherFactory()
	if err != nil {
		return fmt.Errorf("watcher: creating filesystem watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw); err != nil {
		return fmt.Errorf("watcher: adding initial watches: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			w.handleEvent(fw, ev)

		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// handleEvent applies spec §4.3: drop read-only/access events, drop events
// under an ignored segment, drop everything while the muzzle is active,
// otherwise signal the worker once.
func (w *Watcher) handleEvent(fw FsWatcher, ev fsnotify.Event) {
	// Access/read-only events carry no Write/Create/Remove/Rename bit.
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, err := pathutil.ToRelative(w.syncRoot, ev.Name)
	if err != nil || w.filter.IsIgnored(rel) {
		return
	}

	if w.active.Load() {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := fw.Add(ev.Name); addErr != nil {
				w.logger.Warn("failed to add watch for new directory",
					slog.String("path", ev.Name), slog.String("error", addErr.Error()))
			}
		}
	}

	w.signal()
}

// addRecursive walks syncRoot and adds a watch on every non-ignored
// directory.
func (w *Watcher) addRecursive(fw FsWatcher) error {
	return filepath.WalkDir(w.syncRoot, func(fsPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("walk error during watch setup",
				slog.String("path", fsPath), slog.String("error", walkErr.Error()))

			return nil
		}

		if !d.IsDir() {
			return nil
		}

		rel, err := pathutil.ToRelative(w.syncRoot, fsPath)
		if err != nil {
			return nil
		}

		if rel != "" && w.filter.IsIgnored(rel) {
			return filepath.SkipDir
		}

		if err := fw.Add(fsPath); err != nil {
			w.logger.Warn("failed to add watch",
				slog.String("path", fsPath), slog.String("error", err.Error()))
		}

		return nil
	})
}
