package sync

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/remote"
	"github.com/foldersync/foldersync/internal/store"
	"github.com/foldersync/foldersync/pkg/synchash"
	"github.com/foldersync/foldersync/testutil"
)

// noopWatcher satisfies Watcher without ever signaling; RunOnce never reads
// from it, only SetActive.
type noopWatcher struct {
	active bool
}

func (w *noopWatcher) Changes() <-chan struct{} { return nil }
func (w *noopWatcher) SetActive(active bool)    { w.active = active }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestWorker wires a fresh Worker against a real (temp-file) store, a
// fake remote client, and a no-op watcher.
func newTestWorker(t *testing.T, root string) (*Worker, *testutil.FakeClient, Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "foldersync.db")
	st, err := store.Open(dbPath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client := testutil.NewFakeClient()
	w := New(root, st, client, &noopWatcher{}, pathutil.NewFilter(), discardLogger())

	return w, client, st
}

func TestPullAppliesFileCreate(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	_, err := client.Upload(t.Context(), strReader("hello world"), 11, "", "", "notes.md")
	require.NoError(t, err)

	report, err := w.RunOnce(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventsApplied)
	assert.True(t, report.CursorAdvanced)

	content, err := os.ReadFile(filepath.Join(root, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))

	record, found, err := st.Get("notes.md")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, synchash.Bytes([]byte("hello world")), record.Hash)
	require.NotNil(t, record.ID)
}

func TestPullAppliesFolderCreate(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	_, err := client.CreateFolder(t.Context(), "docs", nil)
	require.NoError(t, err)

	report, err := w.RunOnce(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventsApplied)

	info, err := os.Stat(filepath.Join(root, "docs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	record, found, err := st.Get("docs")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, record.IsDirectory())
}

func TestPullAppliesNestedFolderThenFile(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, _ := newTestWorker(t, root)

	folder, err := client.CreateFolder(t.Context(), "docs", nil)
	require.NoError(t, err)
	_, err = client.Upload(t.Context(), strReader("x"), 1, "", folder.ID, "a.txt")
	require.NoError(t, err)

	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))
}

func TestPullAppliesDelete(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	uploaded, err := client.Upload(t.Context(), strReader("bye"), 3, "", "", "temp.txt")
	require.NoError(t, err)

	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	require.NoError(t, client.SoftDeleteFile(t.Context(), uploaded.ID))

	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "temp.txt"))
	assert.True(t, os.IsNotExist(statErr))

	_, found, err := st.Get("temp.txt")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPullAppliesRemoteRename(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	uploaded, err := client.Upload(t.Context(), strReader("content"), 7, "", "", "old.txt")
	require.NoError(t, err)
	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	require.NoError(t, client.RenameFile(t.Context(), uploaded.ID, "new.txt"))
	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	_, found, err := st.Get("old.txt")
	require.NoError(t, err)
	assert.False(t, found)

	record, found, err := st.Get("new.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uploaded.ID, *record.ID)

	content, err := os.ReadFile(filepath.Join(root, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))

	_, statErr := os.Stat(filepath.Join(root, "old.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPullAppliesRemoteMoveToFolder(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	folder, err := client.CreateFolder(t.Context(), "archive", nil)
	require.NoError(t, err)
	uploaded, err := client.Upload(t.Context(), strReader("data"), 4, "", "", "report.txt")
	require.NoError(t, err)
	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	require.NoError(t, client.MoveFile(t.Context(), uploaded.ID, &folder.ID))
	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	record, found, err := st.Get("archive/report.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uploaded.ID, *record.ID)

	_, statErr := os.Stat(filepath.Join(root, "archive", "report.txt"))
	require.NoError(t, statErr)
}

func TestPushUploadsNewLocalFile(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, st := newTestWorker(t, root)

	testutil.WriteFile(t, root, "draft.md", []byte("draft content"))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Uploaded)

	record, found, err := st.Get("draft.md")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, record.ID)
	assert.Equal(t, synchash.Bytes([]byte("draft content")), record.Hash)
}

func TestPushNormalizesNfdFilenameToNfc(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, st := newTestWorker(t, root)

	// nfdName spells the accented letter as "e" + a combining acute
	// accent (U+0301), as macOS HFS+/APFS store it on disk. nfcName uses
	// the single precomposed codepoint (U+00E9).
	nfdName := "cafe\u0301.txt"
	nfcName := "caf\u00e9.txt"
	require.NotEqual(t, nfdName, nfcName)

	testutil.WriteFile(t, root, nfdName, []byte("espresso"))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Uploaded)

	_, found, err := st.Get(nfcName)
	require.NoError(t, err)
	assert.True(t, found, "store must key the NFC-normalized path")
}

func TestPushCreatesNestedFoldersInOrder(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, st := newTestWorker(t, root)

	testutil.WriteFile(t, root, "a/b/c/leaf.txt", []byte("leaf"))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, report.RemoteCreated) // a, a/b, a/b/c
	assert.Equal(t, 1, report.Uploaded)

	for _, p := range []string{"a", "a/b", "a/b/c", "a/b/c/leaf.txt"} {
		_, found, err := st.Get(p)
		require.NoError(t, err)
		assert.True(t, found, "expected record for %s", p)
	}
}

func TestPushUpdatesChangedLocalFile(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, st := newTestWorker(t, root)

	testutil.WriteFile(t, root, "notes.md", []byte("v1"))
	_, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)

	record, found, err := st.Get("notes.md")
	require.NoError(t, err)
	require.True(t, found)
	originalID := *record.ID

	testutil.WriteFile(t, root, "notes.md", []byte("v2, longer now"))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Uploaded)

	record, found, err = st.Get("notes.md")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, originalID, *record.ID)
	assert.Equal(t, synchash.Bytes([]byte("v2, longer now")), record.Hash)
}

func TestPushDeletesRemoteWhenLocalFileRemoved(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	absPath := testutil.WriteFile(t, root, "temp.txt", []byte("gone soon"))
	_, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)

	record, found, err := st.Get("temp.txt")
	require.NoError(t, err)
	require.True(t, found)
	id := *record.ID

	require.NoError(t, os.Remove(absPath))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RemoteDeleted)

	_, found, err = st.Get("temp.txt")
	require.NoError(t, err)
	assert.False(t, found)

	_, downloadErr := client.Download(t.Context(), id, io.Discard)
	assert.ErrorIs(t, downloadErr, remote.ErrNotFound)
}

func TestGroupRootIsRecreatedNotDeletedRemotely(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	folder, err := client.CreateFolder(t.Context(), "shared", nil)
	require.NoError(t, err)

	id := folder.ID
	require.NoError(t, st.Upsert(&store.FileRecord{
		Path:        "shared",
		ID:          &id,
		Hash:        DirectorySentinel,
		IsGroupRoot: true,
	}))

	require.NoError(t, os.RemoveAll(filepath.Join(root, "shared")))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RemoteDeleted)

	info, err := os.Stat(filepath.Join(root, "shared"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, found, err := st.Get("shared")
	require.NoError(t, err)
	assert.True(t, found, "group root record must survive")

	deleteErr := client.DeleteFolder(t.Context(), folder.ID)
	assert.NoError(t, deleteErr, "folder must still exist remotely, never deleted")
}

func TestCreateFolderConflictFallsBackToAdoption(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, st := newTestWorker(t, root)

	existing, err := client.CreateFolder(t.Context(), "shared-docs", nil)
	require.NoError(t, err)

	require.NoError(t, testutil.Mkdir(t, filepath.Join(root, "shared-docs")))

	// Mark the folder's create event as already pulled, so the pass reaches
	// push, where create_folder conflicts and adoption takes over.
	require.NoError(t, st.SetCursor(1))

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RemoteCreated)

	record, found, err := st.Get("shared-docs")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, record.ID)
	assert.Equal(t, existing.ID, *record.ID, "must adopt the pre-existing remote folder, not create a duplicate")
}

func TestConflictingRemoteUpdateBacksUpNewerLocalFile(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, client, _ := newTestWorker(t, root)

	uploaded, err := client.Upload(t.Context(), strReader("server version"), 14, "", "", "shared.txt")
	require.NoError(t, err)
	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	localPath := filepath.Join(root, "shared.txt")
	require.NoError(t, os.WriteFile(localPath, []byte("locally edited, newer"), 0o644))

	future := futureTime()
	require.NoError(t, os.Chtimes(localPath, future, future))

	require.NoError(t, client.RenameFile(t.Context(), uploaded.ID, "shared.txt")) // bump an update event
	_, err = w.RunOnce(t.Context(), false)
	require.NoError(t, err)

	backupPath := filepath.Join(root, "shared.txt.conflict_backup")
	backupContent, err := os.ReadFile(backupPath)
	require.NoError(t, err, "expected shared.txt.conflict_backup to exist")
	assert.Equal(t, "locally edited, newer", string(backupContent))

	content, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "server version", string(content), "server content must win after conflict resolution")
}

func TestFullScanRefusesWithNosyncGuard(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, _ := newTestWorker(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".nosync"), nil, 0o644))

	_, err := w.RunOnce(t.Context(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNosyncGuard)
}

func TestFullRoundTripCreatePushPullIsStable(t *testing.T) {
	root := testutil.TempSyncRoot(t)
	w, _, st := newTestWorker(t, root)

	testutil.WriteFile(t, root, "stable.txt", []byte("steady state"))

	_, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)

	before, found, err := st.Get("stable.txt")
	require.NoError(t, err)
	require.True(t, found)

	report, err := w.RunOnce(t.Context(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Uploaded, "unchanged file must not be re-uploaded")
	assert.Equal(t, 0, report.RemoteCreated)

	after, found, err := st.Get("stable.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *before.ID, *after.ID)
	assert.Equal(t, before.Hash, after.Hash)
}

func strReader(s string) *strings.Reader { return strings.NewReader(s) }

func futureTime() time.Time {
	return time.Now().Add(time.Hour)
}
