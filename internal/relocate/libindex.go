package relocate

import (
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/fsutil"
)

// sharedLibPattern matches libz.so, libz.so.1.3, libz.dylib and
// libz.1.dylib.
var sharedLibPattern = regexp.MustCompile(`\.so(\.[0-9]+)*$|\.dylib$`)

// IsSharedLibrary reports whether a file name looks like a shared library.
func IsSharedLibrary(name string) bool {
	return sharedLibPattern.MatchString(name)
}

// LibraryIndex maps shared library file names to the directory, relative
// to Root, that holds them.
type LibraryIndex struct {
	Root string
	dirs map[string]string
}

// IndexLibraries scans root for shared libraries and symlinks to them. When
// the same name appears in several directories the lexically first one
// wins. Directories whose slash-separated path relative to root is listed
// in skip are not scanned.
func IndexLibraries(fsys afero.Fs, root string, skip ...string) (*LibraryIndex, error) {
	filter := fsutil.Filter{FilesOnly: true}
	if len(skip) > 0 {
		filter.Skip = func(rel string) bool { return slices.Contains(skip, rel) }
	}
	entries, err := fsutil.ListTree(fsys, root, filter)
	if err != nil {
		return nil, err
	}

	idx := &LibraryIndex{Root: filepath.Clean(root), dirs: make(map[string]string)}
	for _, e := range entries {
		name := path.Base(e.Path)
		if !IsSharedLibrary(name) {
			continue
		}
		if _, ok := idx.dirs[name]; !ok {
			idx.dirs[name] = path.Dir(e.Path)
		}
	}
	return idx, nil
}

// Lookup returns the slash-separated directory, relative to Root, holding
// the library. Only the base name of lib is considered, so install names
// such as "@rpath/libz.1.dylib" resolve too.
func (idx *LibraryIndex) Lookup(lib string) (string, bool) {
	if idx == nil {
		return "", false
	}
	dir, ok := idx.dirs[path.Base(filepath.ToSlash(lib))]
	return dir, ok
}

// Merge adds the libraries of other that idx does not know yet. Both
// indexes must describe trees that end up at the same destination, such as
// a package being installed and the root it is installed into.
func (idx *LibraryIndex) Merge(other *LibraryIndex) {
	if other == nil {
		return
	}
	for name, dir := range other.dirs {
		if _, ok := idx.dirs[name]; !ok {
			idx.dirs[name] = dir
		}
	}
}

// Len returns the number of indexed libraries.
func (idx *LibraryIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.dirs)
}

// Names returns the indexed library names, sorted.
func (idx *LibraryIndex) Names() []string {
	if idx == nil {
		return nil
	}
	names := make([]string, 0, len(idx.dirs))
	for n := range idx.dirs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
