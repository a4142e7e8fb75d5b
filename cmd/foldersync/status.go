package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/store"
)

// newStatusCmd lists the local store's known records, for a quick picture
// of what foldersync currently tracks under the sync directory.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracked files and folders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			dbPath := pathutil.ToAbsolute(cc.Cfg.SyncRootPath, pathutil.StoreFileName)

			st, err := store.Open(dbPath, cc.Logger)
			if err != nil {
				return fmt.Errorf("opening local store: %w", err)
			}
			defer st.Close()

			records, err := st.ListAll()
			if err != nil {
				return fmt.Errorf("listing records: %w", err)
			}

			cursor, err := st.Cursor()
			if err != nil {
				return fmt.Errorf("reading cursor: %w", err)
			}

			color := colorEnabled(os.Stdout)

			headers := []string{"PATH", "TYPE", "ID", "MODIFIED"}
			rows := make([][]string, 0, len(records))

			for _, r := range records {
				kind := "file"
				if r.IsDirectory() {
					kind = "dir"
					if r.IsGroupRoot {
						kind = "group"
					}
				}

				id := "-"
				if r.ID != nil {
					id = *r.ID
				} else {
					id = colorize(color, ansiYellow, "pending")
				}

				rows = append(rows, []string{r.Path, kind, id, formatTime(time.Unix(r.ModifiedAt, 0))})
			}

			printTable(cmd.OutOrStdout(), headers, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d record(s), cursor at %d\n", len(records), cursor)

			return nil
		},
	}
}
