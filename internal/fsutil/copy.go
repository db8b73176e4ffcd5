package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/platform"
)

// CopyTree copies the contents of src into dst, merging with whatever dst
// already holds. Regular files keep their permission bits, symlinks are
// recreated with their original target, and entries for which exclude
// returns true are skipped. It returns the slash-separated relative paths of
// the files and links it wrote, in lexical order.
func CopyTree(src, dst string, exclude func(rel string) bool) ([]string, error) {
	entries, err := ListTree(afero.NewOsFs(), src, Filter{Skip: exclude})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dst, err)
	}

	var written []string
	for _, e := range entries {
		target := filepath.Join(dst, filepath.FromSlash(e.Path))

		switch {
		case e.IsDir():
			if err := os.MkdirAll(target, e.Mode.Perm()|0700); err != nil {
				return written, fmt.Errorf("creating %s: %w", target, err)
			}
		case e.IsSymlink():
			link, err := platform.ReadSymlinkTarget(e.Abs)
			if err != nil {
				return written, fmt.Errorf("reading link %s: %w", e.Abs, err)
			}
			if err := platform.CreateSymlink(link, target); err != nil {
				return written, fmt.Errorf("linking %s: %w", target, err)
			}
			written = append(written, e.Path)
		case e.Mode.IsRegular():
			if err := copyFile(e.Abs, target, e.Mode.Perm()); err != nil {
				return written, fmt.Errorf("copying %s to %s: %w", e.Abs, target, err)
			}
			written = append(written, e.Path)
		}
		// Devices, sockets and pipes are never part of a package.
	}
	return written, nil
}

// copyFile copies a single file from src to dst with the given permissions.
// An existing symlink at dst is replaced rather than followed.
func copyFile(src, dst string, perm os.FileMode) error {
	if platform.IsSymlink(dst) {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return platform.Chmod(dst, perm)
}
