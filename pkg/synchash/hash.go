// Package synchash computes the content-addressed digest used to identify
// file bytes throughout foldersync: a lowercase hex SHA-256.
//
// The algorithm is deliberately the plainest possible content hash — unlike
// a provider-specific rolling hash, SHA-256 is what the store, the local
// scanner, and the remote client all agree on as the identity of a file's
// bytes (data-model.md FileRecord.hash).
package synchash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DirectorySentinel is the sentinel value stored in FileRecord.hash for
// folder entries, since files and folders share one table column.
const DirectorySentinel = "directory"

// EmptyHash is the SHA-256 of the empty byte string, lowercase hex.
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// File streams path's content through SHA-256 and returns the lowercase hex
// digest. Uses constant memory regardless of file size.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("synchash: opening %s: %w", path, err)
	}
	defer f.Close()

	return Reader(f)
}

// Reader streams r through SHA-256 and returns the lowercase hex digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("synchash: hashing stream: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the lowercase hex SHA-256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
