package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirectory(t *testing.T) {
	file := &FileRecord{Hash: "abc"}
	dir := &FileRecord{Hash: DirectorySentinel}

	assert.False(t, file.IsDirectory())
	assert.True(t, dir.IsDirectory())
}

func TestIsPendingCreate(t *testing.T) {
	id := "abc"
	pending := &FileRecord{ID: nil}
	done := &FileRecord{ID: &id}

	assert.True(t, pending.IsPendingCreate())
	assert.False(t, done.IsPendingCreate())
}

func TestStrPtrStrVal(t *testing.T) {
	assert.Nil(t, StrPtr(""))
	assert.Equal(t, "x", *StrPtr("x"))
	assert.Equal(t, "", StrVal(nil))
	assert.Equal(t, "x", StrVal(StrPtr("x")))
}
