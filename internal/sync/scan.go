package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/foldersync/foldersync/internal/pathutil"
)

// nosyncFileName is a guard file name: if present at the sync root, a scan
// refuses to run (the sync directory may be unmounted).
const nosyncFileName = ".nosync"

// ErrNosyncGuard is returned when a .nosync guard file is present in the
// sync root.
var ErrNosyncGuard = errors.New("sync: .nosync guard file present (sync dir may be unmounted)")

// localEntry is one row of the local filesystem snapshot built by
// localScan (spec §4.6 step 1).
type localEntry struct {
	isDir bool
	hash  string
	mtime int64
}

// localScan walks syncRoot and returns local_files: {path → entry}, files
// get a real hash, directories get the sentinel (spec §4.6).
func (w *Worker) localScan() (map[string]*localEntry, error) {
	if _, err := os.Stat(filepath.Join(w.syncRoot, nosyncFileName)); err == nil {
		w.logger.Warn("nosync guard file detected, aborting scan", slog.String("sync_root", w.syncRoot))
		return nil, ErrNosyncGuard
	}

	out := make(map[string]*localEntry)

	err := filepath.WalkDir(w.syncRoot, func(fsPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		if fsPath == w.syncRoot {
			return nil
		}

		fsRelPath, err := pathutil.ToRelative(w.syncRoot, fsPath)
		if err != nil {
			return nil
		}

		// dbRelPath is NFC-normalized so the store's path-keyed identity is
		// stable across platforms that decompose filenames differently
		// (macOS HFS+/APFS produce NFD); fsPath/fsRelPath keep the original
		// on-disk bytes for actual I/O.
		relPath := norm.NFC.String(fsRelPath)

		if w.filter.IsIgnored(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if d.IsDir() {
			out[relPath] = &localEntry{isDir: true, hash: DirectorySentinel, mtime: info.ModTime().Unix()}
			return nil
		}

		hash, err := w.hashFunc(fsPath)
		if err != nil {
			// Local FS errors are logged and the item is skipped; other
			// items in the pass proceed (spec §7).
			w.logger.Error("failed to hash local file",
				slog.String("path", relPath), slog.String("error", err.Error()))
			return nil
		}

		out[relPath] = &localEntry{isDir: false, hash: hash, mtime: info.ModTime().Unix()}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync: scanning %s: %w", w.syncRoot, err)
	}

	return out, nil
}
