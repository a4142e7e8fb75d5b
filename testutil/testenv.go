// Package testutil provides a shared in-memory fake of the remote service
// and small filesystem helpers for exercising internal/sync and
// internal/store without a live network or a real SQLite file beyond a
// temp directory.
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/foldersync/foldersync/internal/remote"
)

// TempSyncRoot creates a fresh temp directory to use as a sync root and
// registers cleanup with t.
func TempSyncRoot(t *testing.T) string {
	t.Helper()

	return t.TempDir()
}

// WriteFile writes content at relPath under root, creating parent
// directories as needed.
func WriteFile(t *testing.T, root, relPath string, content []byte) string {
	t.Helper()

	abs := filepath.Join(root, relPath)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir parents for %s: %v", relPath, err)
	}

	if err := os.WriteFile(abs, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", relPath, err)
	}

	return abs
}

// Mkdir creates an absolute directory path, including any parents.
func Mkdir(t *testing.T, absPath string) error {
	t.Helper()

	return os.MkdirAll(absPath, 0o755)
}

// fakeFile is one server-side file row.
type fakeFile struct {
	id       string
	name     string
	folderID string
	content  []byte
	deleted  bool
}

// fakeFolder is one server-side folder row.
type fakeFolder struct {
	id       string
	name     string
	parentID string
}

// FakeClient is an in-memory stand-in for the remote service, implementing
// the same method set as remote.Client (and therefore sync.Client) so
// internal/sync tests can drive a full pull/push cycle without a network.
// Grounded in the teacher's convention of hand-written fakes over a mocking
// framework (internal/sync's old *_test.go files before this rework).
type FakeClient struct {
	mu sync.Mutex

	files   map[string]*fakeFile
	folders map[string]*fakeFolder
	events  []remote.SyncEvent
}

// NewFakeClient constructs an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		files:   make(map[string]*fakeFile),
		folders: make(map[string]*fakeFolder),
	}
}

func (f *FakeClient) appendEventLocked(action remote.EventAction, entityType remote.EventEntityType, entityID string, data *remote.EventData) {
	f.events = append(f.events, remote.SyncEvent{
		ID:         int64(len(f.events) + 1),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
	})
}

// Pull returns every event recorded after cursor.
func (f *FakeClient) Pull(_ context.Context, cursor uint64) (remote.PullResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cursor >= uint64(len(f.events)) {
		return remote.PullResult{Events: nil, NextCursor: cursor}, nil
	}

	return remote.PullResult{
		Events:     append([]remote.SyncEvent{}, f.events[cursor:]...),
		NextCursor: uint64(len(f.events)),
	}, nil
}

// Upload creates or overwrites a file's content, recording a create or
// update event keyed by path.
func (f *FakeClient) Upload(_ context.Context, r io.Reader, _ int64, id, folderID, name string) (remote.UploadedFile, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return remote.UploadedFile{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	action := remote.ActionCreate

	if id == "" {
		id = uuid.NewString()
	} else if _, exists := f.files[id]; exists {
		action = remote.ActionUpdate
	}

	f.files[id] = &fakeFile{id: id, name: name, folderID: folderID, content: content}

	path := f.resolvePathLocked(folderID, name)
	hash := fmt.Sprintf("%x", content) // deterministic stand-in, not sha256: fine for a fake.

	f.appendEventLocked(action, remote.EntityFile, id, &remote.EventData{
		Path: path, Name: name, Hash: hash, FolderID: folderID,
	})

	return remote.UploadedFile{ID: id, Path: path}, nil
}

// Download writes id's content to w.
func (f *FakeClient) Download(_ context.Context, id string, w io.Writer) (int64, error) {
	f.mu.Lock()
	file, ok := f.files[id]
	f.mu.Unlock()

	if !ok || file.deleted {
		return 0, remote.ErrNotFound
	}

	n, err := w.Write(file.content)

	return int64(n), err
}

// CreateFolder creates a folder, failing with ErrConflict if a sibling
// folder with the same name and parent already exists (exercising the
// adoption-fallback path).
func (f *FakeClient) CreateFolder(_ context.Context, name string, parentID *string) (remote.FolderEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent := ""
	if parentID != nil {
		parent = *parentID
	}

	for _, existing := range f.folders {
		if existing.name == name && existing.parentID == parent {
			return remote.FolderEntry{}, remote.ErrConflict
		}
	}

	id := uuid.NewString()
	f.folders[id] = &fakeFolder{id: id, name: name, parentID: parent}

	path := f.resolveFolderPathLocked(parent, name)

	f.appendEventLocked(remote.ActionCreate, remote.EntityFolder, id, &remote.EventData{
		Path: path, Name: name, ParentID: parent, FolderID: parent,
	})

	return remote.FolderEntry{ID: id, Name: name}, nil
}

// SoftDeleteFile marks id as deleted and records a delete event.
func (f *FakeClient) SoftDeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[id]
	if !ok {
		return remote.ErrNotFound
	}

	file.deleted = true
	f.appendEventLocked(remote.ActionDelete, remote.EntityFile, id, nil)

	return nil
}

// PermanentDeleteFile removes id outright.
func (f *FakeClient) PermanentDeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[id]; !ok {
		return remote.ErrNotFound
	}

	delete(f.files, id)
	f.appendEventLocked(remote.ActionDelete, remote.EntityFile, id, nil)

	return nil
}

// RestoreFile un-marks id as deleted.
func (f *FakeClient) RestoreFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[id]
	if !ok {
		return remote.ErrNotFound
	}

	file.deleted = false
	path := f.resolvePathLocked(file.folderID, file.name)
	f.appendEventLocked(remote.ActionCreate, remote.EntityFile, id, &remote.EventData{Path: path, Name: file.name})

	return nil
}

// DeleteFolder removes a folder and records a delete event.
func (f *FakeClient) DeleteFolder(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.folders[id]; !ok {
		return remote.ErrNotFound
	}

	delete(f.folders, id)
	f.appendEventLocked(remote.ActionDelete, remote.EntityFolder, id, nil)

	return nil
}

// RenameFile updates a file's name and records an update event.
func (f *FakeClient) RenameFile(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[id]
	if !ok {
		return remote.ErrNotFound
	}

	file.name = name
	path := f.resolvePathLocked(file.folderID, name)
	f.appendEventLocked(remote.ActionUpdate, remote.EntityFile, id, &remote.EventData{Path: path, Name: name})

	return nil
}

// MoveFile reassigns a file's parent folder and records a move event.
func (f *FakeClient) MoveFile(_ context.Context, id string, newParentID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[id]
	if !ok {
		return remote.ErrNotFound
	}

	parent := ""
	if newParentID != nil {
		parent = *newParentID
	}

	file.folderID = parent
	path := f.resolvePathLocked(parent, file.name)
	f.appendEventLocked(remote.ActionMove, remote.EntityFile, id, &remote.EventData{Path: path, Name: file.name, FolderID: parent})

	return nil
}

// resolvePathLocked builds a slash-joined path from a folder chain; callers
// hold f.mu.
func (f *FakeClient) resolvePathLocked(folderID, name string) string {
	prefix := f.resolveFolderPathLocked(folderID, "")
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}

func (f *FakeClient) resolveFolderPathLocked(folderID, name string) string {
	if folderID == "" {
		return name
	}

	folder, ok := f.folders[folderID]
	if !ok {
		return name
	}

	parentPath := f.resolveFolderPathLocked(folder.parentID, "")

	joined := folder.name
	if parentPath != "" {
		joined = parentPath + "/" + folder.name
	}

	if name == "" {
		return joined
	}

	return joined + "/" + name
}
