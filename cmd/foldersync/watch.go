package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foldersync/foldersync/internal/config"
	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/store"
	"github.com/foldersync/foldersync/internal/sync"
	"github.com/foldersync/foldersync/internal/watcher"
)

// newWatchCmd runs the daemon: starts the filesystem watcher and the
// worker's cooperative scheduler loop, and blocks until interrupted
// (spec §4.4, §5).
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the sync agent continuously",
		Long:  "Watches the sync directory and reconciles it against the remote store on a debounced/periodic schedule until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			w, holder, cleanup, err := buildWorker(cc)
			if err != nil {
				return err
			}
			defer cleanup()

			pidPath := config.DefaultPIDFilePath()

			pidCleanup, err := writePIDFile(pidPath)
			if err != nil {
				return err
			}
			defer pidCleanup()

			ctx := shutdownContext(cmd.Context(), cc.Logger)
			watchSIGHUP(ctx, holder, cc.Logger)

			cc.Logger.Info("starting watch",
				slog.String("sync_dir", cc.Cfg.SyncRootPath),
				slog.Duration("debounce", sync.DebounceWindow),
				slog.Duration("periodic", sync.PeriodicInterval),
			)

			return w.Run(ctx)
		},
	}
}

// buildWorker assembles the store, filter, watcher, remote client, and
// worker from a resolved CLIContext. Returns a cleanup func that closes
// the store and stops the watcher's goroutine.
func buildWorker(cc *CLIContext) (*sync.Worker, *config.Holder, func(), error) {
	holder := config.NewHolder(cc.Cfg, cc.Path)

	syncRoot := cc.Cfg.SyncRootPath

	filter, err := buildFilter(syncRoot)
	if err != nil {
		return nil, nil, nil, err
	}

	dbPath := pathutil.ToAbsolute(syncRoot, pathutil.StoreFileName)

	st, err := store.Open(dbPath, cc.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening local store: %w", err)
	}

	fw := watcher.New(syncRoot, filter, cc.Logger)
	client := newRemoteClient(cc.Cfg, cc.Logger)

	worker := sync.New(syncRoot, st, client, fw, filter, cc.Logger)

	watcherCtx, cancelWatcher := context.WithCancel(context.Background())

	go func() {
		if err := fw.Run(watcherCtx); err != nil {
			cc.Logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	cleanup := func() {
		cancelWatcher()
		st.Close()
	}

	return worker, holder, cleanup, nil
}

// buildFilter constructs the ignore filter, layering an optional
// .foldersyncignore.toml on top of the fixed ignore set (spec §4.1, §6 of
// the expanded ambient stack).
func buildFilter(syncRoot string) (*pathutil.Filter, error) {
	ignorePath := pathutil.ToAbsolute(syncRoot, config.IgnoreFileName)

	gitignoreMatcher, err := config.LoadIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("loading ignore file: %w", err)
	}

	return pathutil.NewFilter().WithMatchers(gitignoreMatcher), nil
}
