package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/remote"
)

// pullPhase runs unconditionally on every pass, full or pull-only (spec
// §4.5).
func (w *Worker) pullPhase(ctx context.Context, report *Report) error {
	for {
		cursor, err := w.store.Cursor()
		if err != nil {
			return fmt.Errorf("sync: reading cursor: %w", err)
		}

		result, err := w.client.Pull(ctx, cursor)
		if err != nil {
			// Auth/decode failures abort the pass without advancing the
			// cursor (spec §7); transient network errors are already
			// retried inside the client.
			return fmt.Errorf("sync: pull(%d): %w", cursor, err)
		}

		if len(result.Events) == 0 {
			break
		}

		for _, ev := range result.Events {
			if err := w.applyEvent(ctx, ev); err != nil {
				// Local FS errors are logged and skipped; other items in
				// the pass proceed (spec §7).
				w.logger.Error("failed to apply event",
					slog.Int64("event_id", ev.ID), slog.String("action", string(ev.Action)),
					slog.String("entity_type", string(ev.EntityType)), slog.String("error", err.Error()))
				report.Errors = append(report.Errors, err)

				continue
			}

			report.EventsApplied++
		}

		if result.NextCursor > cursor {
			if err := w.store.SetCursor(result.NextCursor); err != nil {
				return fmt.Errorf("sync: persisting cursor %d: %w", result.NextCursor, err)
			}

			report.CursorAdvanced = true
		}
	}

	return nil
}

// derivePath computes the root-relative path an event refers to (spec
// §4.5: "prefer data.path; else data.storage_path with a leading
// owner_id/ prefix stripped if present; else data.name; else skip").
func derivePath(ev SyncEvent) (string, bool) {
	data := ev.Data
	if data == nil {
		return "", false
	}

	if data.Path != "" {
		return data.Path, true
	}

	if data.StoragePath != "" {
		p := data.StoragePath
		if ev.OwnerID != "" {
			prefix := ev.OwnerID + "/"
			p = strings.TrimPrefix(p, prefix)
		}

		return p, true
	}

	if data.Name != "" {
		return data.Name, true
	}

	return "", false
}

// applyEvent dispatches a single pulled SyncEvent (spec §4.5).
func (w *Worker) applyEvent(ctx context.Context, ev SyncEvent) error {
	switch ev.Action {
	case remote.ActionDelete:
		return w.applyDelete(ev)
	case remote.ActionMove:
		return w.applyMove(ctx, ev)
	default: // create, update, copy
		switch ev.EntityType {
		case remote.EntityFile:
			return w.applyFileUpsert(ctx, ev)
		default: // folder, group, group_folder
			return w.applyFolderUpsert(ev)
		}
	}
}

// applyFileUpsert handles create|update|copy for entity_type == file (spec
// §4.5).
func (w *Worker) applyFileUpsert(ctx context.Context, ev SyncEvent) error {
	relPath, ok := derivePath(ev)
	if !ok {
		return nil
	}

	if err := pathutil.Validate(relPath); err != nil {
		return err
	}

	absPath := pathutil.ToAbsolute(w.syncRoot, relPath)

	if err := os.MkdirAll(pathutil.ToAbsolute(w.syncRoot, pathutil.ParentPath(relPath)), 0o755); err != nil {
		return fmt.Errorf("sync: creating parent directories for %s: %w", relPath, err)
	}

	// A known id arriving under a new path is a remote rename: drop the
	// old file and its record first (the store keeps ids unique).
	if prev, known, err := w.store.GetByID(ev.EntityID); err != nil {
		return err
	} else if known && prev.Path != relPath && !prev.IsDirectory() {
		if err := os.Remove(pathutil.ToAbsolute(w.syncRoot, prev.Path)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("sync: removing renamed file %s: %w", prev.Path, err)
		}

		if err := w.store.Delete(prev.Path); err != nil {
			return err
		}
	}

	localHash, err := w.hashFunc(absPath)
	if err != nil {
		return fmt.Errorf("sync: hashing %s: %w", relPath, err)
	}

	remoteHash := ""
	if ev.Data != nil {
		remoteHash = ev.Data.Hash
	}

	if localHash != "" && localHash == remoteHash {
		return w.upsertFileRecord(relPath, ev.EntityID, remoteHash)
	}

	existing, found, err := w.store.Get(relPath)
	if err != nil {
		return err
	}

	if localHash == "" {
		// Local absent: straightforward download.
		if _, err := w.downloadTo(ctx, ev.EntityID, absPath); err != nil {
			return err
		}

		return w.upsertFileRecordFromDisk(relPath, ev.EntityID, absPath)
	}

	// Conflict: local file exists and differs from what the server has.
	if found {
		localMtime, statErr := mtimeSeconds(absPath)
		if statErr == nil && localMtime > existing.ModifiedAt {
			backupPath := absPath + ".conflict_backup"
			if err := os.Rename(absPath, backupPath); err != nil {
				return fmt.Errorf("sync: renaming %s to conflict backup: %w", relPath, err)
			}
		}
	}

	if _, err := w.downloadTo(ctx, ev.EntityID, absPath); err != nil {
		return err
	}

	return w.upsertFileRecordFromDisk(relPath, ev.EntityID, absPath)
}

// applyFolderUpsert handles create|update|copy for entity_type in
// {folder, group, group_folder} (spec §4.5).
func (w *Worker) applyFolderUpsert(ev SyncEvent) error {
	relPath, ok := derivePath(ev)
	if !ok {
		return nil
	}

	if err := pathutil.Validate(relPath); err != nil {
		return err
	}

	absPath := pathutil.ToAbsolute(w.syncRoot, relPath)
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return fmt.Errorf("sync: mkdir -p %s: %w", relPath, err)
	}

	isGroupRoot := false
	var groupFolderID *string

	if ev.Data != nil {
		isGroupRoot = ev.Data.GroupFolderID == ev.EntityID && ev.Data.ParentID == ""
		if ev.Data.GroupFolderID != "" {
			groupFolderID = &ev.Data.GroupFolderID
		}
	}

	id := ev.EntityID

	return w.store.Upsert(&FileRecord{
		Path:          relPath,
		ID:            &id,
		Hash:          DirectorySentinel,
		ModifiedAt:    time.Now().Unix(),
		GroupFolderID: groupFolderID,
		IsGroupRoot:   isGroupRoot,
	})
}

// applyDelete handles the delete action (spec §4.5).
func (w *Worker) applyDelete(ev SyncEvent) error {
	record, found, err := w.store.GetByID(ev.EntityID)
	if err != nil {
		return err
	}

	if !found {
		return nil
	}

	absPath := pathutil.ToAbsolute(w.syncRoot, record.Path)

	if record.IsDirectory() {
		if err := os.RemoveAll(absPath); err != nil {
			return fmt.Errorf("sync: removing directory subtree %s: %w", record.Path, err)
		}
	} else if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sync: removing file %s: %w", record.Path, err)
	}

	return w.store.Delete(record.Path)
}

// applyMove handles the move action (spec §4.5).
func (w *Worker) applyMove(ctx context.Context, ev SyncEvent) error {
	newRelPath, ok := derivePath(ev)
	if !ok {
		return nil
	}

	if err := pathutil.Validate(newRelPath); err != nil {
		return err
	}

	newAbsPath := pathutil.ToAbsolute(w.syncRoot, newRelPath)

	old, found, err := w.store.GetByID(ev.EntityID)
	if !found || err != nil {
		if err != nil {
			return err
		}
		// Not found: fall back to a download into the new path.
		if mkErr := os.MkdirAll(pathutil.ToAbsolute(w.syncRoot, pathutil.ParentPath(newRelPath)), 0o755); mkErr != nil {
			return fmt.Errorf("sync: creating parent directories for %s: %w", newRelPath, mkErr)
		}

		if _, err := w.downloadTo(ctx, ev.EntityID, newAbsPath); err != nil {
			return err
		}

		return w.upsertFileRecordFromDisk(newRelPath, ev.EntityID, newAbsPath)
	}

	oldAbsPath := pathutil.ToAbsolute(w.syncRoot, old.Path)

	if err := os.MkdirAll(pathutil.ToAbsolute(w.syncRoot, pathutil.ParentPath(newRelPath)), 0o755); err != nil {
		return fmt.Errorf("sync: creating parent directories for %s: %w", newRelPath, err)
	}

	if err := os.Rename(oldAbsPath, newAbsPath); err != nil {
		// Rename failed: download into the new path, then remove the old
		// file and record.
		if _, err := w.downloadTo(ctx, ev.EntityID, newAbsPath); err != nil {
			return err
		}

		os.Remove(oldAbsPath)

		if delErr := w.store.Delete(old.Path); delErr != nil {
			return delErr
		}

		return w.upsertFileRecordFromDisk(newRelPath, ev.EntityID, newAbsPath)
	}

	// Verify integrity after a successful rename.
	newHash, err := w.hashFunc(newAbsPath)
	if err != nil {
		return fmt.Errorf("sync: hashing %s after move: %w", newRelPath, err)
	}

	expectedHash := ""
	if ev.Data != nil {
		expectedHash = ev.Data.Hash
	}

	info, statErr := os.Stat(newAbsPath)
	sizeZero := statErr == nil && info.Size() == 0

	if sizeZero || (expectedHash != "" && newHash != expectedHash) {
		os.Remove(newAbsPath)

		if _, err := w.downloadTo(ctx, ev.EntityID, newAbsPath); err != nil {
			return err
		}

		if err := w.store.Delete(old.Path); err != nil {
			return err
		}

		return w.upsertFileRecordFromDisk(newRelPath, ev.EntityID, newAbsPath)
	}

	// The old record goes first: the store keeps ids unique.
	if err := w.store.Delete(old.Path); err != nil {
		return err
	}

	return w.upsertFileRecord(newRelPath, ev.EntityID, newHash)
}

// downloadTo downloads id into absPath, creating the destination file.
func (w *Worker) downloadTo(ctx context.Context, id, absPath string) (int64, error) {
	f, err := os.Create(absPath)
	if err != nil {
		return 0, fmt.Errorf("sync: creating %s for download: %w", absPath, err)
	}
	defer f.Close()

	n, err := w.client.Download(ctx, id, f)
	if err != nil {
		return n, fmt.Errorf("sync: downloading %s: %w", id, err)
	}

	return n, nil
}

func (w *Worker) upsertFileRecord(relPath, id, hash string) error {
	idCopy := id

	return w.store.Upsert(&FileRecord{
		Path:       relPath,
		ID:         &idCopy,
		Hash:       hash,
		ModifiedAt: time.Now().Unix(),
	})
}

func (w *Worker) upsertFileRecordFromDisk(relPath, id, absPath string) error {
	hash, err := w.hashFunc(absPath)
	if err != nil {
		return fmt.Errorf("sync: hashing %s: %w", relPath, err)
	}

	mtime, err := mtimeSeconds(absPath)
	if err != nil {
		return fmt.Errorf("sync: stat %s: %w", relPath, err)
	}

	idCopy := id

	return w.store.Upsert(&FileRecord{
		Path:       relPath,
		ID:         &idCopy,
		Hash:       hash,
		ModifiedAt: mtime,
	})
}

func mtimeSeconds(absPath string) (int64, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, err
	}

	return info.ModTime().Unix(), nil
}
