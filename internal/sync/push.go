package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/remote"
)

// pushPhase runs only on a full pass (spec §4.6).
func (w *Worker) pushPhase(ctx context.Context, report *Report) error {
	localFiles, err := w.localScan()
	if err != nil {
		return err
	}

	storeRecords, err := w.store.ListAll()
	if err != nil {
		return fmt.Errorf("sync: listing store records: %w", err)
	}

	if err := w.pushDeletions(ctx, localFiles, storeRecords, report); err != nil {
		return err
	}

	return w.pushCreatesAndUpdates(ctx, localFiles, report)
}

// pushDeletions handles store records whose path is no longer present
// locally (spec §4.6 "Deletions").
func (w *Worker) pushDeletions(ctx context.Context, localFiles map[string]*localEntry, storeRecords []*FileRecord, report *Report) error {
	for _, record := range storeRecords {
		if _, present := localFiles[record.Path]; present {
			continue
		}

		if record.IsDirectory() && record.IsGroupRoot {
			absPath := pathutil.ToAbsolute(w.syncRoot, record.Path)
			if err := os.MkdirAll(absPath, 0o755); err != nil {
				w.logger.Error("failed to recreate group root",
					slog.String("path", record.Path), slog.String("error", err.Error()))
				report.Errors = append(report.Errors, err)
			}
			// Group roots are user-shared and must not be removed via this
			// client: skip record deletion (spec §4.6 scenario 6).
			continue
		}

		if record.ID == nil {
			// Dangling local create that disappeared again before it was
			// ever pushed: just drop the record.
			if err := w.store.Delete(record.Path); err != nil {
				return err
			}

			continue
		}

		var opErr error
		if record.IsDirectory() {
			opErr = w.client.DeleteFolder(ctx, *record.ID)
		} else {
			opErr = w.client.SoftDeleteFile(ctx, *record.ID)
		}

		if opErr != nil {
			w.logger.Error("failed to delete remotely",
				slog.String("path", record.Path), slog.String("error", opErr.Error()))
			report.Errors = append(report.Errors, opErr)

			continue
		}

		report.RemoteDeleted++

		if err := w.store.Delete(record.Path); err != nil {
			return err
		}
	}

	return nil
}

// pushCreatesAndUpdates iterates local_files in lexicographic path order so
// parent folders are created before their children (spec §4.6 "Creates/
// updates").
func (w *Worker) pushCreatesAndUpdates(ctx context.Context, localFiles map[string]*localEntry, report *Report) error {
	paths := make([]string, 0, len(localFiles))
	for p := range localFiles {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	for _, relPath := range paths {
		entry := localFiles[relPath]

		record, found, err := w.store.Get(relPath)
		if err != nil {
			return err
		}

		switch {
		case !found:
			if err := w.pushNew(ctx, relPath, entry, report); err != nil {
				w.logger.Error("failed to push new entry", slog.String("path", relPath), slog.String("error", err.Error()))
				report.Errors = append(report.Errors, err)
			}

		case !entry.isDir && !record.IsDirectory() && record.Hash != entry.hash:
			if err := w.pushUpload(ctx, relPath, entry, record.ID, report); err != nil {
				w.logger.Error("failed to push update", slog.String("path", relPath), slog.String("error", err.Error()))
				report.Errors = append(report.Errors, err)
			}

		case record.ID == nil:
			if err := w.pushNew(ctx, relPath, entry, report); err != nil {
				w.logger.Error("failed to re-push dangling create", slog.String("path", relPath), slog.String("error", err.Error()))
				report.Errors = append(report.Errors, err)
			}

		default:
			// no-op
		}
	}

	return nil
}

// pushNew creates a new remote folder or uploads a new file (spec §4.6: "it
// is new").
func (w *Worker) pushNew(ctx context.Context, relPath string, entry *localEntry, report *Report) error {
	if entry.isDir {
		return w.pushCreateFolder(ctx, relPath, entry, report)
	}

	return w.pushUpload(ctx, relPath, entry, nil, report)
}

// pushCreateFolder calls create_folder, with the adoption fallback on
// conflict (spec §4.6 "Remote-folder creation with adoption fallback").
func (w *Worker) pushCreateFolder(ctx context.Context, relPath string, entry *localEntry, report *Report) error {
	parentPath := pathutil.ParentPath(relPath)

	var parentID *string
	if parentPath != "" {
		parentRecord, found, err := w.store.Get(parentPath)
		if err != nil {
			return err
		}

		if found {
			parentID = parentRecord.ID
		}
	}

	name := pathutil.Base(relPath)

	created, err := w.client.CreateFolder(ctx, name, parentID)
	if err != nil {
		if !errors.Is(err, remote.ErrConflict) {
			return err
		}

		adopted, adoptErr := w.adoptFolder(ctx, name, parentID)
		if adoptErr != nil {
			return fmt.Errorf("sync: create_folder(%q) conflicted and adoption failed: %w", name, err)
		}

		created = adopted
	}

	report.RemoteCreated++

	return w.finalizeRemoteRecord(relPath, created.ID, DirectorySentinel, entry.mtime, parentPath)
}

// pushUpload uploads relPath's content. A non-nil id re-uploads over the
// existing remote file (a changed local file); a nil id uploads a new file.
func (w *Worker) pushUpload(ctx context.Context, relPath string, entry *localEntry, id *string, report *Report) error {
	absPath := pathutil.ToAbsolute(w.syncRoot, relPath)

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("sync: stat %s before upload: %w", relPath, err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("sync: opening %s for upload: %w", relPath, err)
	}
	defer f.Close()

	parentPath := pathutil.ParentPath(relPath)

	var folderID string
	if parentPath != "" {
		parentRecord, found, lookupErr := w.store.Get(parentPath)
		if lookupErr != nil {
			return lookupErr
		}

		if found && parentRecord.ID != nil {
			folderID = *parentRecord.ID
		}
	}

	idVal := ""
	if id != nil {
		idVal = *id
	}

	uploaded, err := w.client.Upload(ctx, f, info.Size(), idVal, folderID, pathutil.Base(relPath))
	if err != nil {
		return err
	}

	report.Uploaded++

	return w.finalizeRemoteRecord(relPath, uploaded.ID, entry.hash, entry.mtime, parentPath)
}

// finalizeRemoteRecord upserts the record after a successful remote
// operation, propagating group_folder_id from the parent (spec §4.6 step
// 3).
func (w *Worker) finalizeRemoteRecord(relPath, id, hash string, mtime int64, parentPath string) error {
	var groupFolderID *string

	if parentPath != "" {
		parentRecord, found, err := w.store.Get(parentPath)
		if err != nil {
			return err
		}

		if found {
			if parentRecord.IsGroupRoot {
				groupFolderID = parentRecord.ID
			} else {
				groupFolderID = parentRecord.GroupFolderID
			}
		}
	}

	idCopy := id

	return w.store.Upsert(&FileRecord{
		Path:          relPath,
		ID:            &idCopy,
		Hash:          hash,
		ModifiedAt:    mtime,
		GroupFolderID: groupFolderID,
	})
}
