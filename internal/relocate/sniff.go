package relocate

import (
	"context"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// Sniffer reports the MIME type of a file, e.g. "text/plain; charset=utf-8"
// or "application/x-sharedlib; charset=binary".
type Sniffer interface {
	MimeType(ctx context.Context, path string) (string, error)
}

// IsTextMime reports whether a MIME type describes a text file.
func IsTextMime(mime string) bool {
	mime = strings.ToLower(mime)
	if strings.Contains(mime, "charset=binary") {
		return false
	}
	return strings.HasPrefix(mime, "text/") || strings.Contains(mime, "charset=")
}

// FileSniffer asks file(1) for the MIME type.
type FileSniffer struct {
	Runner Runner
	// Tool defaults to "file".
	Tool string
}

// MimeType implements Sniffer.
func (s FileSniffer) MimeType(ctx context.Context, path string) (string, error) {
	tool := s.Tool
	if tool == "" {
		tool = "file"
	}
	runner := s.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	out, err := runner.Run(ctx, "", tool, "--brief", "--mime", path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// sniffLen matches what http.DetectContentType considers.
const sniffLen = 512

// ContentSniffer classifies files from their leading bytes without running
// any tool. Content with NUL bytes or invalid UTF-8 is binary.
type ContentSniffer struct {
	FS afero.Fs
}

// MimeType implements Sniffer.
func (s ContentSniffer) MimeType(_ context.Context, path string) (string, error) {
	fsys := s.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	head = head[:n]

	mime := http.DetectContentType(head)
	if strings.HasPrefix(mime, "text/") && utf8.Valid(trimPartialRune(head)) {
		return mime, nil
	}
	base, _, _ := strings.Cut(mime, ";")
	return base + "; charset=binary", nil
}

// trimPartialRune drops a multi-byte sequence cut off by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
