package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"

	"github.com/pkgr-labs/pkgr/internal/fsutil"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/platform"
)

var (
	// ErrMemberNotFound is returned by ExtractMember when the archive has no
	// entry with the requested name.
	ErrMemberNotFound = errors.New("archive member not found")
	// ErrUnsupportedFormat is returned for file names without a known
	// archive extension.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned when an entry would be written outside the
	// extraction directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Format identifies the compression wrapped around a tar stream.
type Format int

const (
	FormatTar Format = iota
	FormatGzip
	FormatXZ
)

// epoch is stamped on every entry Create writes so identical trees produce
// identical archives.
var epoch = time.Unix(0, 0).UTC()

// DetectFormat maps an archive file name to its compression format.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatGzip, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatXZ, nil
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar, nil
	default:
		return 0, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// Tar extracts and creates package archives on the local filesystem.
type Tar struct{}

// New returns a Tar.
func New() *Tar { return &Tar{} }

// Extract unpacks every entry of archive into dest, creating dest if needed.
func (t *Tar) Extract(archive, dest string) error {
	logger := logging.Get("archive")
	done := logging.Operation(logger, "extract")
	defer done()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	count := 0
	err := t.walk(archive, func(hdr *tar.Header, r io.Reader) (bool, error) {
		count++
		return false, writeEntry(dest, hdr, r)
	})
	if err != nil {
		return err
	}
	logger.Debug().Str("archive", archive).Str("dest", dest).Int("entries", count).Msg("Extracted archive")
	return nil
}

// ExtractMember extracts the single regular-file entry named member into
// dir and returns the path it was written to. Leading "./" on entry names is
// ignored. A missing entry yields ErrMemberNotFound.
func (t *Tar) ExtractMember(archive, member, dir string) (string, error) {
	want := cleanName(member)
	dest := filepath.Join(dir, path.Base(want))

	found := false
	err := t.walk(archive, func(hdr *tar.Header, r io.Reader) (bool, error) {
		if cleanName(hdr.Name) != want || hdr.Typeflag != tar.TypeReg {
			return false, nil
		}
		found = true
		if err := os.MkdirAll(dir, 0755); err != nil {
			return true, err
		}
		return true, writeFile(dest, os.FileMode(hdr.Mode).Perm(), r)
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%s in %s: %w", member, archive, ErrMemberNotFound)
	}
	return dest, nil
}

// Create writes every file, directory and symlink below srcDir into a new
// archive whose compression is chosen from its extension. Entries are
// stored relative to srcDir in lexical order with a fixed timestamp.
func (t *Tar) Create(archive, srcDir string) error {
	format, err := DetectFormat(archive)
	if err != nil {
		return err
	}

	entries, err := fsutil.ListTree(afero.NewOsFs(), srcDir, fsutil.Filter{})
	if err != nil {
		return err
	}

	f, err := os.Create(archive)
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", archive, err)
	}
	defer f.Close()

	cw, err := compressor(f, format)
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", archive, err)
	}

	tw := tar.NewWriter(cw)
	for _, e := range entries {
		if err := addEntry(tw, e); err != nil {
			return fmt.Errorf("adding %s to %s: %w", e.Path, archive, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finishing compression: %w", err)
	}
	return f.Close()
}

// walk calls fn for every entry of archive until fn reports stop.
func (t *Tar) walk(archive string, fn func(*tar.Header, io.Reader) (stop bool, err error)) error {
	format, err := DetectFormat(archive)
	if err != nil {
		return err
	}

	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	r, err := decompressor(f, format)
	if err != nil {
		return fmt.Errorf("reading %s: %w", archive, err)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%s in %s: %w", hdr.Name, archive, ErrUnsafePath)
		}
		if err != nil {
			return fmt.Errorf("reading tar entry in %s: %w", archive, err)
		}
		stop, err := fn(hdr, tr)
		if err != nil {
			return fmt.Errorf("extracting %s from %s: %w", hdr.Name, archive, err)
		}
		if stop {
			return nil
		}
	}
}

func decompressor(r io.Reader, format Format) (io.Reader, error) {
	switch format {
	case FormatGzip:
		return gzip.NewReader(r)
	case FormatXZ:
		return xz.NewReader(r)
	default:
		return r, nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func compressor(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case FormatGzip:
		return gzip.NewWriter(w), nil
	case FormatXZ:
		return xz.NewWriter(w)
	default:
		return nopCloser{w}, nil
	}
}

func addEntry(tw *tar.Writer, e fsutil.Entry) error {
	hdr := &tar.Header{
		Name:    e.Path,
		Mode:    int64(e.Mode.Perm()),
		ModTime: epoch,
		Format:  tar.FormatPAX,
	}

	switch {
	case e.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
		return tw.WriteHeader(hdr)
	case e.IsSymlink():
		link, err := platform.ReadSymlinkTarget(e.Abs)
		if err != nil {
			return err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = link
		return tw.WriteHeader(hdr)
	case e.Mode.IsRegular():
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(e.Abs)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	default:
		return nil
	}
}

// cleanName normalizes an entry name for comparison.
func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// safeJoin resolves an entry name below dest, rejecting absolute names and
// names that climb out of dest.
func safeJoin(dest, name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}
	target := filepath.Join(dest, filepath.FromSlash(cleaned))

	// Refuse to write through a symlink extracted earlier.
	rel := filepath.Dir(filepath.FromSlash(cleaned))
	cur := dest
	if rel != "." {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			cur = filepath.Join(cur, part)
			info, err := os.Lstat(cur)
			if err != nil {
				break
			}
			if info.Mode()&os.ModeSymlink != 0 {
				return "", fmt.Errorf("%s passes through symlink %s: %w", name, cur, ErrUnsafePath)
			}
		}
	}
	return target, nil
}

func writeEntry(dest string, hdr *tar.Header, r io.Reader) error {
	if cleanName(hdr.Name) == "" {
		return nil
	}
	target, err := safeJoin(dest, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()|0700)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(target); err != nil {
				return err
			}
		}
		return writeFile(target, os.FileMode(hdr.Mode).Perm(), r)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(hdr.Linkname, target)
	case tar.TypeLink:
		source, err := safeJoin(dest, hdr.Linkname)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Link(source, target)
	default:
		logger := logging.Get("archive")
		logger.Debug().Str("entry", hdr.Name).Msg("Skipping special tar entry")
		return nil
	}
}

func writeFile(target string, perm os.FileMode, r io.Reader) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
