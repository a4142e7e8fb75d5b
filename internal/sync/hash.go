package sync

import (
	"os"

	"github.com/foldersync/foldersync/pkg/synchash"
)

// hashFile computes the content hash of absPath, or "" if the file does
// not exist (spec §4.5: "Compute local hash (empty string if file
// absent)").
func hashFile(absPath string) (string, error) {
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", err
	}

	return synchash.File(absPath)
}
