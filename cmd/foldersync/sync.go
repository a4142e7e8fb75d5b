package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSyncCmd runs a single full pass (pull then push) and exits, useful for
// scripting or a cron-driven alternative to `watch` (spec §4.4 ForceSync
// semantics applied once, synchronously, with no scheduler).
func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			w, _, cleanup, err := buildWorker(cc)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := w.RunOnce(cmd.Context(), true)
			if err != nil {
				return fmt.Errorf("sync pass failed: %w", err)
			}

			statusf(flagQuiet, "events applied: %d, uploaded: %d, downloaded: %d, remote created: %d, remote deleted: %d, errors: %d\n",
				report.EventsApplied, report.Uploaded, report.Downloaded, report.RemoteCreated, report.RemoteDeleted, len(report.Errors))

			if len(report.Errors) > 0 {
				return fmt.Errorf("sync pass completed with %d error(s)", len(report.Errors))
			}

			return nil
		},
	}
}
