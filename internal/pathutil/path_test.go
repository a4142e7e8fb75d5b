package pathutil

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRelative(t *testing.T) {
	root := "/home/user/sync"

	rel, err := ToRelative(root, filepath.Join(root, "docs/notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "docs/notes.md", rel)

	rel, err = ToRelative(root, root)
	require.NoError(t, err)
	assert.Equal(t, "", rel)
}

func TestToRelativeOutsideRoot(t *testing.T) {
	_, err := ToRelative("/home/user/sync", "/home/user/other/file.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestToAbsoluteRoundTrip(t *testing.T) {
	root := "/home/user/sync"
	abs := ToAbsolute(root, "docs/notes.md")

	rel, err := ToRelative(root, abs)
	require.NoError(t, err)
	assert.Equal(t, "docs/notes.md", rel)
}

func TestValidateRejectsDotSegments(t *testing.T) {
	cases := []string{".", "..", "a/../b", "a/./b", "/a", "a//b"}

	for _, c := range cases {
		assert.True(t, errors.Is(Validate(c), ErrInvalidSegment), "expected invalid: %q", c)
	}
}

func TestValidateAcceptsNormalPaths(t *testing.T) {
	for _, c := range []string{"", "a", "a/b/c", "日本語.txt"} {
		assert.NoError(t, Validate(c))
	}
}

func TestParentPathAndBase(t *testing.T) {
	assert.Equal(t, "a/b", ParentPath("a/b/c.txt"))
	assert.Equal(t, "", ParentPath("c.txt"))
	assert.Equal(t, "c.txt", Base("a/b/c.txt"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b", Join("a", "b"))
	assert.Equal(t, "b", Join("", "b"))
}
