package relocate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/manifest"
)

// searchPathSep joins directories in a runtime search path.
const searchPathSep = ":"

// Engine relocates extracted package trees.
type Engine struct {
	FS       afero.Fs
	Platform Platform
}

// NewEngine returns an Engine working on fsys with platform p.
func NewEngine(fsys afero.Fs, p Platform) *Engine {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Engine{FS: fsys, Platform: p}
}

// Options controls RelocateTree.
type Options struct {
	// AutoRPath recomputes and sets the search path of every binary in the
	// binary prefix list before its prefix is rewritten.
	AutoRPath bool
	// Relative expresses search path entries relative to the binary.
	Relative bool
	// Libraries is the index used for search paths. When nil the
	// extracted tree is indexed.
	Libraries *LibraryIndex
}

// Report summarizes a RelocateTree run. Paths are relative to the
// extracted root.
type Report struct {
	Rewritten []string
	Unchanged []string
	// RPaths maps binaries to the search path set on them.
	RPaths map[string]string
}

// ComputeRPath returns the search path that lets binary find its needed
// libraries once the tree indexed by idx is installed at destRoot.
// Libraries missing from the index, such as system libraries, are ignored.
// Directories are deduplicated in the order the libraries are needed.
func (e *Engine) ComputeRPath(binary string, idx *LibraryIndex, destRoot string) (string, error) {
	dirs, err := e.libraryDirs(binary, idx)
	if err != nil {
		return "", err
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, filepath.ToSlash(filepath.Join(destRoot, filepath.FromSlash(d))))
	}
	return strings.Join(out, searchPathSep), nil
}

// ComputeRelativeRPath is like ComputeRPath but expresses every directory
// relative to the binary's own directory using the platform's origin
// token, e.g. "$ORIGIN/../lib". binary must be inside idx.Root.
func (e *Engine) ComputeRelativeRPath(binary string, idx *LibraryIndex) (string, error) {
	depth, err := depthBelow(binary, idx.Root)
	if err != nil {
		return "", err
	}
	dirs, err := e.libraryDirs(binary, idx)
	if err != nil {
		return "", err
	}

	up := strings.Repeat("../", depth)
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		rel := up
		if d != "." {
			rel += d
		}
		out = append(out, strings.TrimSuffix(e.Platform.OriginToken()+"/"+rel, "/"))
	}
	return strings.Join(out, searchPathSep), nil
}

// libraryDirs returns the deduplicated index directories of the libraries
// binary needs.
func (e *Engine) libraryDirs(binary string, idx *LibraryIndex) ([]string, error) {
	if e.Platform == nil {
		return nil, ErrUnsupportedPlatform
	}
	libs, err := e.Platform.NeededLibraries(binary)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, lib := range libs {
		d, ok := idx.Lookup(lib)
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs, nil
}

// depthBelow counts the directory levels between the directory holding
// binary and root by walking up parent directories.
func depthBelow(binary, root string) (int, error) {
	root = filepath.Clean(root)
	dir := filepath.Dir(filepath.Clean(binary))
	depth := 0
	for dir != root {
		parent := filepath.Dir(dir)
		if parent == dir {
			return 0, fmt.Errorf("%s is not below %s", binary, root)
		}
		dir = parent
		depth++
	}
	return depth, nil
}

// SetRPath stores value as the search path of binary. The tool works on a
// copy that replaces binary only when the tool succeeds, so a failure
// leaves binary untouched.
func (e *Engine) SetRPath(ctx context.Context, binary, value string) error {
	if e.Platform == nil {
		return ErrUnsupportedPlatform
	}
	info, err := e.FS.Stat(binary)
	if err != nil {
		return fmt.Errorf("setting search path of %s: %w", binary, err)
	}

	work := filepath.Join(filepath.Dir(binary), "."+filepath.Base(binary)+".pkgr-rpath")
	if err := copyFile(e.FS, binary, work, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting search path of %s: %w", binary, err)
	}
	if err := e.Platform.SetSearchPath(ctx, work, value); err != nil {
		_ = e.FS.Remove(work)
		return fmt.Errorf("setting search path of %s: %w", binary, err)
	}
	if err := e.FS.Rename(work, binary); err != nil {
		_ = e.FS.Remove(work)
		return fmt.Errorf("replacing %s: %w", binary, err)
	}
	return nil
}

// Autoset computes the search path of binary and sets it. It returns the
// value set; a binary needing none of the indexed libraries is left alone
// and yields "".
func (e *Engine) Autoset(ctx context.Context, binary string, idx *LibraryIndex, destRoot string, relative bool) (string, error) {
	var value string
	var err error
	if relative {
		value, err = e.ComputeRelativeRPath(binary, idx)
	} else {
		value, err = e.ComputeRPath(binary, idx, destRoot)
	}
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", nil
	}
	if err := e.SetRPath(ctx, binary, value); err != nil {
		return "", err
	}
	logger := logging.Get("relocate")
	logger.Debug().Str("binary", binary).Str("rpath", value).Msg("Set search path")
	return value, nil
}

// RelocateTree rewrites the files listed in the prefix lists of
// extractedRoot so they refer to destRoot. Binary entries get their search
// path recomputed first when opts.AutoRPath is set and the file is a
// binary of the current platform. Missing prefix lists mean nothing to do.
//
// The first failure stops the run; files already rewritten stay rewritten.
// Running again is safe because rewritten files no longer contain the old
// prefix.
func (e *Engine) RelocateTree(ctx context.Context, destRoot, extractedRoot string, opts Options) (*Report, error) {
	logger := logging.Get("relocate")
	done := logging.Operation(logger, "relocate tree")
	defer done()

	bin, err := e.readList(filepath.Join(extractedRoot, manifest.PrefixBinFile))
	if err != nil {
		return nil, err
	}
	text, err := e.readList(filepath.Join(extractedRoot, manifest.PrefixTextFile))
	if err != nil {
		return nil, err
	}

	report := &Report{RPaths: make(map[string]string)}
	changed := make(map[string]bool)
	seen := make(map[string]bool)

	idx := opts.Libraries
	for _, entry := range bin {
		target, err := e.entryPath(extractedRoot, entry)
		if err != nil {
			return report, err
		}

		if opts.AutoRPath && e.Platform != nil && !seen[entry.Path] && e.Platform.IsBinary(target) {
			if idx == nil {
				if idx, err = IndexLibraries(e.FS, extractedRoot); err != nil {
					return report, err
				}
			}
			value, err := e.Autoset(ctx, target, idx, destRoot, opts.Relative)
			if err != nil {
				return report, err
			}
			if value != "" {
				report.RPaths[entry.Path] = value
			}
		}
		seen[entry.Path] = true

		n, err := RewriteBinary(e.FS, target, entry.Prefix, destRoot)
		if err != nil {
			return report, err
		}
		changed[entry.Path] = changed[entry.Path] || n > 0
	}

	for _, entry := range text {
		target, err := e.entryPath(extractedRoot, entry)
		if err != nil {
			return report, err
		}
		n, err := RewriteText(e.FS, target, entry.Prefix, destRoot)
		if err != nil {
			return report, err
		}
		seen[entry.Path] = true
		changed[entry.Path] = changed[entry.Path] || n > 0
	}

	for _, list := range [][]Entry{bin, text} {
		for _, entry := range list {
			if !seen[entry.Path] {
				continue
			}
			seen[entry.Path] = false
			if changed[entry.Path] {
				report.Rewritten = append(report.Rewritten, entry.Path)
			} else {
				report.Unchanged = append(report.Unchanged, entry.Path)
			}
		}
	}

	logger.Info().
		Str("dest", destRoot).
		Int("rewritten", len(report.Rewritten)).
		Int("unchanged", len(report.Unchanged)).
		Int("rpaths", len(report.RPaths)).
		Msg("Relocated tree")
	return report, nil
}

func (e *Engine) readList(file string) ([]Entry, error) {
	entries, err := ReadPrefixList(e.FS, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// entryPath resolves an entry below root, refusing paths that leave it.
func (e *Engine) entryPath(root string, entry Entry) (string, error) {
	rel := path.Clean("/" + entry.Path)[1:]
	if rel == "" || rel != strings.TrimPrefix(path.Clean(entry.Path), "./") {
		return "", fmt.Errorf("prefix list entry %q escapes the package root", entry.Path)
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

func copyFile(fsys afero.Fs, src, dst string, perm fs.FileMode) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fsys, dst, data, perm); err != nil {
		return err
	}
	return fsys.Chmod(dst, perm)
}
