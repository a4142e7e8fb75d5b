// Package store provides the durable local metadata store: a mapping from
// root-relative path to FileRecord, plus a single monotonic cursor (spec
// §3, §4.1). It is implemented as a sole-writer modernc.org/sqlite database,
// the same pattern the teacher's BaselineManager uses for its baseline
// table, generalized from the teacher's three-state (local/remote/synced)
// schema down to this spec's single FileRecord row per path.
package store

import "github.com/foldersync/foldersync/pkg/synchash"

// DirectorySentinel is the hash value stored for folder records, since
// folder and file records share one table (spec §3, §9).
const DirectorySentinel = synchash.DirectorySentinel

// FileRecord is one entry per tracked path (spec §3).
type FileRecord struct {
	// Path is the root-relative, forward-slash path; the primary key.
	Path string

	// ID is the server-assigned identifier, stable across renames/moves.
	// Nil only while the record is a pending local create: the next push
	// cycle must upload/create-remote and attach an id.
	ID *string

	// Hash is the content digest for files, or DirectorySentinel for
	// folders.
	Hash string

	// ModifiedAt is seconds since epoch of the local mtime as of the last
	// write to this record.
	ModifiedAt int64

	// ServerVersion is an opaque, monotonically increasing version stamp
	// from the server. Recorded but not consulted for convergence (spec §9
	// open question).
	ServerVersion string

	// GroupFolderID names the group-folder ancestor this entry lives
	// under, propagated from parent to child on creation.
	GroupFolderID *string

	// IsGroupRoot marks this folder as the root of a group: it must be
	// recreated locally rather than deleted remotely when removed by the
	// user (spec §4.6 scenario 6).
	IsGroupRoot bool
}

// IsDirectory reports whether r represents a folder entry.
func (r *FileRecord) IsDirectory() bool {
	return r.Hash == DirectorySentinel
}

// IsPendingCreate reports whether r has not yet been reflected to the
// server (spec §3 invariant: "If a record has id == None, it is a pending
// local create").
func (r *FileRecord) IsPendingCreate() bool {
	return r.ID == nil
}

// StrPtr returns a pointer to s, or nil if s is empty. Convenience for
// constructing FileRecord.ID / GroupFolderID from optional strings.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// StrVal dereferences p, returning "" for a nil pointer.
func StrVal(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}
