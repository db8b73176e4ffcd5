package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tarball"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "cache", "zlib-1.3-1.tar.gz")
	n, err := Download(context.Background(), NewFetcher(), server.URL+"/zlib-1.3-1.tar.gz", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "tarball", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestDownloadNotFoundLeavesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing.tar.gz")
	_, err := Download(context.Background(), NewFetcher(), server.URL+"/missing.tar.gz", dest)
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://m.example/pkgs/manifest.pkgr", JoinURL("https://m.example/pkgs/", "manifest.pkgr"))
	assert.Equal(t, "https://m.example/a/b", JoinURL("https://m.example", "/a", "b"))
}
