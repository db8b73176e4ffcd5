package fsutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Entry is one path found by ListTree.
type Entry struct {
	// Path is relative to the listed root, slash separated.
	Path string
	// Abs is the path as passed to the filesystem.
	Abs  string
	Size int64
	Mode fs.FileMode
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Mode.IsDir() }

// IsSymlink reports whether the entry is a symbolic link.
func (e Entry) IsSymlink() bool { return e.Mode&fs.ModeSymlink != 0 }

// Filter narrows what ListTree returns. The zero value lists everything
// below the root, excluding the root itself.
type Filter struct {
	// MaxDepth limits recursion; 1 lists only the root's direct children.
	// Zero means unlimited.
	MaxDepth int
	// FilesOnly drops directories from the result (they are still walked).
	FilesOnly bool
	// Ext keeps only entries whose name ends with this suffix.
	Ext string
	// Skip prunes an entry (and, for directories, everything below it).
	Skip func(rel string) bool
}

// ListTree walks root on fsys in lexical order and returns the entries
// accepted by filter.
func ListTree(fsys afero.Fs, root string, filter Filter) ([]Entry, error) {
	var entries []Entry

	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if filter.Skip != nil && filter.Skip(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		depth := strings.Count(rel, "/") + 1
		if filter.MaxDepth > 0 && depth > filter.MaxDepth {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() && filter.FilesOnly {
			return nil
		}
		if filter.Ext != "" && !strings.HasSuffix(info.Name(), filter.Ext) {
			return nil
		}

		entries = append(entries, Entry{
			Path: rel,
			Abs:  path,
			Size: info.Size(),
			Mode: info.Mode(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	return entries, nil
}
