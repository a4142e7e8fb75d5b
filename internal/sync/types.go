// Package sync implements the synchronization engine: the worker loop, the
// event-driven scheduler with debouncing, and the local-versus-remote
// reconciliation algorithm (spec §1, §4.4–§4.7). This is the core the
// specification covers; everything else (remote transport, watcher
// transport, local store persistence) is an external collaborator consumed
// through the interfaces below.
//
// Package name shadows the standard library "sync" package, exactly as the
// teacher's internal/sync does — callers needing stdlib primitives import
// it under the alias stdsync.
package sync

import (
	"context"
	"io"

	"github.com/foldersync/foldersync/internal/remote"
	"github.com/foldersync/foldersync/internal/store"
)

// FileRecord is the store's unit of record (spec §3). Re-exported here so
// engine code reads naturally as sync.FileRecord rather than store.FileRecord.
type FileRecord = store.FileRecord

// DirectorySentinel is the hash value stored for folder records (spec §3,
// §9).
const DirectorySentinel = store.DirectorySentinel

// Store is the local metadata store contract the worker consumes (spec
// §4.1). Declared at the consumer per "accept interfaces, return structs" —
// the concrete SQLite-backed implementation lives in internal/store and is
// never named outside of construction.
type Store = store.Store

// SyncEvent, PullResult, UploadedFile, and FolderEntry are the wire types a
// pull/upload/create_folder call produces (spec §4.2).
type (
	SyncEvent    = remote.SyncEvent
	PullResult   = remote.PullResult
	UploadedFile = remote.UploadedFile
	FolderEntry  = remote.FolderEntry
)

// Client is the remote-client contract the worker depends on (spec §4.2).
// Declared at the consumer, satisfied structurally by *remote.Client — the
// same "accept interfaces, return structs" convention as the teacher's
// DeltaFetcher/ItemClient/TransferClient in internal/sync/types.go.
type Client interface {
	Pull(ctx context.Context, cursor uint64) (PullResult, error)
	Upload(ctx context.Context, r io.Reader, size int64, id, folderID, name string) (UploadedFile, error)
	Download(ctx context.Context, id string, w io.Writer) (int64, error)
	CreateFolder(ctx context.Context, name string, parentID *string) (FolderEntry, error)
	SoftDeleteFile(ctx context.Context, id string) error
	PermanentDeleteFile(ctx context.Context, id string) error
	RestoreFile(ctx context.Context, id string) error
	DeleteFolder(ctx context.Context, id string) error
	RenameFile(ctx context.Context, id, name string) error
	MoveFile(ctx context.Context, id string, newParentID *string) error
}

// Watcher is the filesystem-change signal source the worker consumes
// (spec §4.3). A single opaque "something changed" value is all the
// worker needs — it performs its own full rescan-and-diff rather than
// consuming typed events from the watcher.
type Watcher interface {
	// Changes returns a channel that receives a value every time the
	// watcher observes a non-ignored filesystem change outside of a sync
	// pass.
	Changes() <-chan struct{}
	// SetActive toggles the "sync active" muzzle (spec §4.3 point 3, §4.7,
	// §9): while active, the watcher drops every observed event instead of
	// forwarding it, so the worker's own writes cannot re-enter its queue.
	SetActive(active bool)
}
