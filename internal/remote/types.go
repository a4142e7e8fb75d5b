// Package remote implements the HTTP/JSON client for the operations the
// sync worker consumes (spec §4.2, §6). The worker depends only on the
// Client interface declared in internal/sync/types.go ("accept interfaces,
// return structs" — the concrete *remote.Client here is never named by the
// worker's own package), the same convention the teacher uses for
// internal/graph.Client against internal/sync.DeltaFetcher/ItemClient/
// TransferClient.
package remote

// SyncEvent is one entry in a pull(cursor) response (spec §4.2).
type SyncEvent struct {
	ID         int64           `json:"id"`
	OwnerID    string          `json:"ownerId,omitempty"`
	Action     EventAction     `json:"action"`
	EntityType EventEntityType `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Data       *EventData      `json:"data,omitempty"`
}

// EventAction is the kind of change a SyncEvent describes.
type EventAction string

// Event actions (spec §4.2).
const (
	ActionCreate EventAction = "create"
	ActionUpdate EventAction = "update"
	ActionCopy   EventAction = "copy"
	ActionDelete EventAction = "delete"
	ActionMove   EventAction = "move"
)

// EventEntityType is the kind of object a SyncEvent describes.
type EventEntityType string

// Event entity types (spec §4.2).
const (
	EntityFile        EventEntityType = "file"
	EntityFolder      EventEntityType = "folder"
	EntityGroup       EventEntityType = "group"
	EntityGroupFolder EventEntityType = "group_folder"
)

// EventData is the optional structured payload on a SyncEvent (spec §4.2).
type EventData struct {
	Path          string `json:"path,omitempty"`
	StoragePath   string `json:"storagePath,omitempty"`
	FolderID      string `json:"folderId,omitempty"`
	ParentID      string `json:"parentId,omitempty"`
	Name          string `json:"name,omitempty"`
	Hash          string `json:"hash,omitempty"`
	Size          int64  `json:"size,omitempty"`
	GroupFolderID string `json:"groupFolderId,omitempty"`
}

// UploadedFile is the result of a simple or chunked upload (spec §4.2).
type UploadedFile struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
	Hash string `json:"hash"`
}

// FolderEntry is the result of create_folder (spec §4.2).
type FolderEntry struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// PullResult is the output of pull(cursor): a batch of events and the
// cursor to resume from next time (spec §4.2).
type PullResult struct {
	Events     []SyncEvent `json:"events"`
	NextCursor uint64      `json:"nextCursor"`
}
