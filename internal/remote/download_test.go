package remote

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	content := []byte("the quick brown fox")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/file%2Fwith%2Fslash/content", r.URL.Path)
		w.Write(content)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", server.Client(), discardLogger())

	var buf bytes.Buffer
	n, err := c.Download(t.Context(), "file/with/slash", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())
}

func TestDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", server.Client(), discardLogger())

	var buf bytes.Buffer
	_, err := c.Download(t.Context(), "missing", &buf)
	assert.ErrorIs(t, err, ErrNotFound)
}
