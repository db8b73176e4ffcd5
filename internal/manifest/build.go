package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/fsutil"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// Extractor pulls files out of package archives. *archive.Tar implements it.
type Extractor interface {
	Extract(archive, dest string) error
	// ExtractMember writes one member into dir and returns its path.
	// A missing member yields an error wrapping archive.ErrMemberNotFound.
	ExtractMember(archive, member, dir string) (string, error)
}

// Checksummer computes the hex digest recorded for an archive.
type Checksummer func(fsys afero.Fs, path string) (string, error)

// BuildOptions configures BuildFromDirectory.
type BuildOptions struct {
	// FS is used to list, stat and checksum archives. Defaults to the OS.
	FS afero.Fs
	// Ext selects archives by suffix, e.g. ".tar.gz".
	Ext string
	// Extractor reads the dependency list out of each archive.
	Extractor Extractor
	// Checksum defaults to fsutil.SHA256.
	Checksum Checksummer
}

// BuildFromDirectory scans dir for archives ending in opts.Ext and returns a
// manifest describing them, in lexical file name order.
//
// Archives whose names do not parse are skipped with a warning. An archive
// without a dependency list has no requirements. A requirement line that is
// not a valid specifier, or any extraction or I/O failure, aborts the build.
func BuildFromDirectory(dir string, opts BuildOptions) (*Manifest, error) {
	logger := logging.Get("manifest")
	done := logging.Operation(logger, "build manifest")
	defer done()

	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Checksum == nil {
		opts.Checksum = fsutil.SHA256
	}
	if opts.Extractor == nil {
		return nil, errors.New("building manifest: no extractor configured")
	}

	entries, err := fsutil.ListTree(opts.FS, dir, fsutil.Filter{MaxDepth: 1, FilesOnly: true, Ext: opts.Ext})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	scratch, err := os.MkdirTemp("", "pkgr-index-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	m := New(dir)
	for _, e := range entries {
		name, ver, rev, err := ParseArchiveName(e.Path, opts.Ext)
		if err != nil {
			logger.Warn().Err(err).Str("archive", e.Path).Msg("Skipping archive with unparseable name")
			continue
		}

		reqs, err := readDepends(opts.Extractor, e.Abs, scratch)
		if err != nil {
			return nil, err
		}

		sum, err := opts.Checksum(opts.FS, e.Abs)
		if err != nil {
			return nil, fmt.Errorf("checksumming %s: %w", e.Abs, err)
		}

		p := Package{
			Name:         name,
			Version:      ver,
			Revision:     rev,
			Archive:      e.Path,
			Size:         e.Size,
			Checksum:     sum,
			Requirements: reqs,
		}
		if err := m.Append(p); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", e.Path, err)
		}
		logger.Debug().Str("package", p.String()).Int("requirements", len(reqs)).Msg("Indexed archive")
	}

	logger.Info().Str("dir", dir).Int("packages", m.Len()).Msg("Built manifest")
	return m, nil
}

// readDepends extracts and parses the dependency list of one archive.
func readDepends(x Extractor, archivePath, scratch string) ([]string, error) {
	path, err := x.ExtractMember(archivePath, DependsFile, scratch)
	if errors.Is(err, archive.ErrMemberNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dependencies of %s: %w", archivePath, err)
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading dependencies of %s: %w", archivePath, err)
	}
	defer f.Close()

	reqs, err := ParseRequirements(f)
	if err != nil {
		return nil, fmt.Errorf("reading dependencies of %s: %w", archivePath, err)
	}
	for _, r := range reqs {
		if _, err := version.ParseSpecifier(r); err != nil {
			return nil, fmt.Errorf("%s: invalid requirement %q: %w", archivePath, r, err)
		}
	}
	return reqs, nil
}
