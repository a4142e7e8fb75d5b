// Package pathutil converts between absolute filesystem paths and the
// root-relative, forward-slash paths stored in FileRecord.path, and
// classifies which paths are excluded from scanning and watching.
package pathutil

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when an absolute path does not fall under the
// sync root.
var ErrOutsideRoot = errors.New("pathutil: path is outside sync root")

// ErrInvalidSegment is returned when a relative path contains a "." or ".."
// segment, which would break the uniqueness/no-traversal invariant on
// FileRecord.path.
var ErrInvalidSegment = errors.New("pathutil: path contains a '.' or '..' segment")

// ToRelative converts an absolute filesystem path rooted at syncRoot into a
// root-relative, forward-slash path suitable for FileRecord.path. The result
// never has a leading slash.
func ToRelative(syncRoot, absPath string) (string, error) {
	rel, err := filepath.Rel(syncRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("pathutil: computing relative path for %s: %w", absPath, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, absPath)
	}

	slashed := filepath.ToSlash(rel)
	if slashed == "." {
		slashed = ""
	}

	if err := Validate(slashed); err != nil {
		return "", err
	}

	return slashed, nil
}

// ToAbsolute joins a root-relative path back onto syncRoot, converting
// forward slashes to the host's path separator.
func ToAbsolute(syncRoot, relPath string) string {
	return filepath.Join(syncRoot, filepath.FromSlash(relPath))
}

// Validate checks that relPath contains no "." or ".." path segments, per
// the FileRecord.path invariant (spec §3). An empty path (the sync root
// itself) is valid.
func Validate(relPath string) error {
	if relPath == "" {
		return nil
	}

	if strings.HasPrefix(relPath, "/") {
		return fmt.Errorf("%w: %s", ErrInvalidSegment, relPath)
	}

	for _, seg := range strings.Split(relPath, "/") {
		if seg == "." || seg == ".." || seg == "" {
			return fmt.Errorf("%w: %s", ErrInvalidSegment, relPath)
		}
	}

	return nil
}

// ParentPath returns the root-relative path of relPath's parent, or "" if
// relPath is already at the sync root.
func ParentPath(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return ""
	}

	return dir
}

// Base returns the final path component (file or directory name).
func Base(relPath string) string {
	return path.Base(relPath)
}

// Join appends name to a root-relative parent path.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}

	return parent + "/" + name
}
