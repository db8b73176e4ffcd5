package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkgr-labs/pkgr/internal/logging"
)

// Download fetches rawURL into dest. The body is streamed into a temporary
// file next to dest which is renamed into place once complete, so an
// interrupted download never leaves a truncated dest behind.
func Download(ctx context.Context, f Interface, rawURL, dest string) (int64, error) {
	logger := logging.Get("fetch")
	done := logging.Operation(logger, "download")
	defer done()

	artifact, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = artifact.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("creating download directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	n, err := io.Copy(tmp, artifact.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if artifact.Size >= 0 && n != artifact.Size {
		return 0, fmt.Errorf("downloading %s: got %d bytes, expected %d", rawURL, n, artifact.Size)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("moving download into place: %w", err)
	}

	logger.Info().Str("url", rawURL).Str("dest", dest).Int64("bytes", n).Msg("Downloaded")
	return n, nil
}

// JoinURL appends slash-separated path elements to a base URL or directory.
func JoinURL(base string, elem ...string) string {
	out := strings.TrimRight(base, "/")
	for _, e := range elem {
		out += "/" + strings.TrimLeft(e, "/")
	}
	return out
}
