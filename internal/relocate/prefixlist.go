package relocate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/fsutil"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/manifest"
)

// ErrPrefixListOdd is returned for a prefix list with a prefix line that
// has no path line after it.
var ErrPrefixListOdd = errors.New("prefix list has an odd number of lines")

// prefixMarker starts every prefix line of a prefix list.
const prefixMarker = "#"

// Entry names a file, relative to the package root, that embeds Prefix.
type Entry struct {
	Prefix string
	Path   string
}

// ReadPrefixList parses a prefix list: alternating "#<prefix>" and
// "<relative path>" lines. Blank lines are ignored.
func ReadPrefixList(fsys afero.Fs, file string) ([]Entry, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("reading prefix list: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading prefix list %s: %w", file, err)
	}
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("%s: %d lines: %w", file, len(lines), ErrPrefixListOdd)
	}

	entries := make([]Entry, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		prefix, ok := strings.CutPrefix(lines[i], prefixMarker)
		if !ok || prefix == "" {
			return nil, fmt.Errorf("%s:%d: expected %q followed by a prefix, got %q", file, i+1, prefixMarker, lines[i])
		}
		rel := lines[i+1]
		if strings.HasPrefix(rel, prefixMarker) {
			return nil, fmt.Errorf("%s:%d: expected a path, got prefix line %q", file, i+2, rel)
		}
		entries = append(entries, Entry{Prefix: prefix, Path: rel})
	}
	return entries, nil
}

// WritePrefixList writes entries in the format ReadPrefixList reads.
func WritePrefixList(fsys afero.Fs, file string, entries []Entry) error {
	var b bytes.Buffer
	for _, e := range entries {
		b.WriteString(prefixMarker + e.Prefix + "\n")
		b.WriteString(e.Path + "\n")
	}
	if err := afero.WriteFile(fsys, file, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing prefix list %s: %w", file, err)
	}
	return nil
}

// Generate scans every regular file below root for the watched prefixes
// and returns the entries for binary and text files separately. Files are
// classified by their MIME type. Metadata files are never listed. A file
// embedding several prefixes gets one entry per prefix, longest first.
func Generate(ctx context.Context, fsys afero.Fs, root string, prefixes []string, sniffer Sniffer) (bin, text []Entry, err error) {
	logger := logging.Get("relocate")

	watched := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p != "" {
			watched = append(watched, p)
		}
	}
	sort.SliceStable(watched, func(i, j int) bool { return len(watched[i]) > len(watched[j]) })
	if len(watched) == 0 {
		return nil, nil, nil
	}

	files, err := fsutil.ListTree(fsys, root, fsutil.Filter{FilesOnly: true, Skip: manifest.IsMetadata})
	if err != nil {
		return nil, nil, err
	}

	for _, f := range files {
		if !f.Mode.IsRegular() {
			continue
		}
		data, err := afero.ReadFile(fsys, f.Abs)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning %s: %w", f.Abs, err)
		}

		var found []Entry
		for _, p := range watched {
			if bytes.Contains(data, []byte(p)) {
				found = append(found, Entry{Prefix: p, Path: path.Clean(f.Path)})
			}
		}
		if len(found) == 0 {
			continue
		}

		mime, err := sniffer.MimeType(ctx, f.Abs)
		if err != nil {
			return nil, nil, fmt.Errorf("classifying %s: %w", f.Abs, err)
		}
		if IsTextMime(mime) {
			text = append(text, found...)
		} else {
			bin = append(bin, found...)
		}
		logger.Debug().Str("file", f.Path).Str("mime", mime).Int("prefixes", len(found)).Msg("Found embedded prefix")
	}
	return bin, text, nil
}

// WriteLists writes the binary and text prefix lists into root under their
// metadata names.
func WriteLists(fsys afero.Fs, root string, bin, text []Entry) error {
	if err := WritePrefixList(fsys, filepath.Join(root, manifest.PrefixBinFile), bin); err != nil {
		return err
	}
	return WritePrefixList(fsys, filepath.Join(root, manifest.PrefixTextFile), text)
}
