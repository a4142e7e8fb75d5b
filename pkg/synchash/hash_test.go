package synchash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyHash(t *testing.T) {
	got, err := Reader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, EmptyHash, got)
	assert.Len(t, EmptyHash, 64)
}

func TestBytesMatchesReader(t *testing.T) {
	data := []byte("the quick brown fox")

	viaBytes := Bytes(data)
	viaReader, err := Reader(strings.NewReader(string(data)))
	require.NoError(t, err)

	assert.Equal(t, viaReader, viaBytes)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	content := []byte("hello, foldersync")

	require.NoError(t, os.WriteFile(path, content, 0o644))

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(content), got)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestSameContentSameHash(t *testing.T) {
	a := Bytes([]byte("identical"))
	b := Bytes([]byte("identical"))
	c := Bytes([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
