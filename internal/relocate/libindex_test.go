package relocate

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSharedLibrary(t *testing.T) {
	for _, name := range []string{"libz.so", "libz.so.1", "libz.so.1.3.1", "libz.dylib", "libz.1.dylib"} {
		assert.True(t, IsSharedLibrary(name), name)
	}
	for _, name := range []string{"libz.a", "libz.so.txt", "so", "libz.sox", "libz.so.1a"} {
		assert.False(t, IsSharedLibrary(name), name)
	}
}

func TestIndexLibraries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	idx := libraryTree(t, fsys)

	assert.Equal(t, "/stage", idx.Root)
	assert.Equal(t, []string{"libpadlock.so", "libssl.so.3", "libz.so.1"}, idx.Names())
	assert.Equal(t, 3, idx.Len())

	dir, ok := idx.Lookup("@rpath/libz.so.1")
	assert.True(t, ok)
	assert.Equal(t, "lib", dir)

	dir, ok = idx.Lookup("libpadlock.so")
	assert.True(t, ok)
	assert.Equal(t, "lib/engines", dir)

	_, ok = idx.Lookup("libc.so.6")
	assert.False(t, ok)
}

func TestIndexLibrariesFirstWins(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/r/lib64/libx.so": "b",
		"/r/lib/libx.so":   "a",
	})
	idx, err := IndexLibraries(fsys, "/r")
	require.NoError(t, err)

	dir, _ := idx.Lookup("libx.so")
	assert.Equal(t, "lib", dir)

	var nilIdx *LibraryIndex
	_, ok := nilIdx.Lookup("libx.so")
	assert.False(t, ok)
	assert.Zero(t, nilIdx.Len())
}

func TestIndexLibrariesSkipAndMerge(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/root/lib/libold.so":                    "old",
		"/root/lib/libz.so.1":                    "installed",
		"/root/var/lib/pkgr/staging/x/libtmp.so": "staged",
		"/stage/lib64/libz.so.1":                 "new",
	})

	rootIdx, err := IndexLibraries(fsys, "/root", "var/lib/pkgr")
	require.NoError(t, err)
	assert.Equal(t, []string{"libold.so", "libz.so.1"}, rootIdx.Names())

	idx, err := IndexLibraries(fsys, "/stage")
	require.NoError(t, err)
	idx.Merge(rootIdx)
	idx.Merge(nil)

	dir, _ := idx.Lookup("libz.so.1")
	assert.Equal(t, "lib64", dir, "the package's own library wins")
	dir, _ = idx.Lookup("libold.so")
	assert.Equal(t, "lib", dir)
	assert.Equal(t, "/stage", idx.Root)
}
