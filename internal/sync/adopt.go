package sync

import (
	"context"
	"fmt"

	"github.com/foldersync/foldersync/internal/remote"
	"github.com/foldersync/foldersync/internal/store"
)

// adoptFolder scans the pull stream from cursor 0 for a folder/group event
// whose name matches and whose remote parent equals the local parent's id,
// binding a local record to a pre-existing remote folder discovered this
// way (spec §4.6, §9 "Cursor-from-zero adoption scan"). This is O(entire
// history) and intentionally fallback-only.
func (w *Worker) adoptFolder(ctx context.Context, name string, parentID *string) (FolderEntry, error) {
	wantParent := store.StrVal(parentID)

	var cursor uint64

	for {
		result, err := w.client.Pull(ctx, cursor)
		if err != nil {
			return FolderEntry{}, fmt.Errorf("sync: adoption scan pull(%d): %w", cursor, err)
		}

		if len(result.Events) == 0 {
			break
		}

		for _, ev := range result.Events {
			if ev.EntityType != remote.EntityFolder && ev.EntityType != remote.EntityGroup &&
				ev.EntityType != remote.EntityGroupFolder {
				continue
			}

			if ev.Data == nil || ev.Data.Name != name {
				continue
			}

			actualParent := ev.Data.FolderID
			if actualParent == "" {
				actualParent = ev.Data.ParentID
			}

			if actualParent == wantParent {
				return FolderEntry{ID: ev.EntityID, Name: name}, nil
			}
		}

		if result.NextCursor <= cursor {
			break
		}

		cursor = result.NextCursor
	}

	return FolderEntry{}, fmt.Errorf("sync: no adoption match found for folder %q under parent %q", name, wantParent)
}
