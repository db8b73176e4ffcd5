package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSuccess(t *testing.T) {
	content := "# pkgr manifest v1\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pkgr/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("ETag", `"abc123"`)
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	f := NewFetcher(WithUserAgent("pkgr/test"))
	artifact, err := f.Fetch(context.Background(), server.URL+"/manifest.pkgr")
	require.NoError(t, err)
	defer func() { _ = artifact.Body.Close() }()

	assert.Equal(t, int64(len(content)), artifact.Size)
	assert.Equal(t, `"abc123"`, artifact.ETag)

	body, err := io.ReadAll(artifact.Body)
	require.NoError(t, err)
	assert.Equal(t, content, string(body))
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(time.Millisecond))
	_, err := f.Fetch(context.Background(), server.URL+"/missing.tar.gz")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(time.Millisecond), WithMaxRetries(3))
	artifact, err := f.Fetch(context.Background(), server.URL+"/x")
	require.NoError(t, err)
	_ = artifact.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(time.Millisecond), WithMaxRetries(2))
	_, err := f.Fetch(context.Background(), server.URL+"/x")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()

	_, err := NewFetcher().Fetch(context.Background(), server.URL+"/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "denied")
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewFetcher(WithBaseDelay(time.Hour))
	_, err := f.Fetch(ctx, server.URL+"/x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchFileURL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.pkgr"), []byte("data"), 0644))

	f := NewFetcher()
	artifact, err := f.Fetch(context.Background(), "file://"+filepath.ToSlash(dir)+"/manifest.pkgr")
	require.NoError(t, err)
	defer artifact.Body.Close()
	body, _ := io.ReadAll(artifact.Body)
	assert.Equal(t, "data", string(body))
	assert.Equal(t, int64(4), artifact.Size)

	_, err = f.Fetch(context.Background(), "file://"+filepath.ToSlash(dir)+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	size, _, err := f.Head(context.Background(), "file://"+filepath.ToSlash(dir)+"/manifest.pkgr")
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", "1234")
		w.Header().Set("Content-Type", "application/gzip")
	}))
	defer server.Close()

	f := NewFetcher()
	size, contentType, err := f.Head(context.Background(), server.URL+"/zlib-1.3-1.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)
	assert.Equal(t, "application/gzip", contentType)

	_, _, err = f.Head(context.Background(), server.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
