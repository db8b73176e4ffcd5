package relocate

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgr-labs/pkgr/internal/manifest"
)

func TestPrefixListRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	entries := []Entry{
		{Prefix: "/opt/build", Path: "bin/tool"},
		{Prefix: "/opt/build", Path: "lib/libfoo.so.1"},
		{Prefix: "/usr/local", Path: "share/doc/README"},
	}
	require.NoError(t, WritePrefixList(fsys, "/pkg/.PKGR_PREFIX_BIN", entries))

	data, _ := afero.ReadFile(fsys, "/pkg/.PKGR_PREFIX_BIN")
	assert.Equal(t, "#/opt/build\nbin/tool\n#/opt/build\nlib/libfoo.so.1\n#/usr/local\nshare/doc/README\n", string(data))

	got, err := ReadPrefixList(fsys, "/pkg/.PKGR_PREFIX_BIN")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadPrefixListErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		odd     bool
	}{
		{"odd count", "#/opt\nbin/a\n#/opt\n", true},
		{"missing marker", "/opt\nbin/a\n", false},
		{"empty prefix", "#\nbin/a\n", false},
		{"two prefixes", "#/opt\n#/usr\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, "/list", []byte(tt.content), 0644))
			_, err := ReadPrefixList(fsys, "/list")
			require.Error(t, err)
			assert.Equal(t, tt.odd, errors.Is(err, ErrPrefixListOdd))
		})
	}
}

func TestReadPrefixListTolerance(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/list", []byte("#/opt\r\nbin/a\r\n\n"), 0644))
	got, err := ReadPrefixList(fsys, "/list")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Prefix: "/opt", Path: "bin/a"}}, got)
}

func TestGenerate(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"/pkg/bin/tool":                "\x7fELF\x00\x00/opt/build/lib\x00",
		"/pkg/lib/pkgconfig/foo.pc":    "prefix=/opt/build\nother=/usr/local/foo\n",
		"/pkg/share/plain.txt":         "nothing to relocate\n",
		"/pkg/" + manifest.DependsFile: "/opt/build\n",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0644))
	}

	bin, text, err := Generate(context.Background(), fsys, "/pkg", []string{"/usr/local", "/opt/build", ""}, ContentSniffer{FS: fsys})
	require.NoError(t, err)

	assert.Equal(t, []Entry{{Prefix: "/opt/build", Path: "bin/tool"}}, bin)
	assert.Equal(t, []Entry{
		{Prefix: "/usr/local", Path: "lib/pkgconfig/foo.pc"},
		{Prefix: "/opt/build", Path: "lib/pkgconfig/foo.pc"},
	}, text)

	require.NoError(t, WriteLists(fsys, "/pkg", bin, text))
	back, err := ReadPrefixList(fsys, "/pkg/"+manifest.PrefixTextFile)
	require.NoError(t, err)
	assert.Equal(t, text, back)

	// A second scan must ignore the lists it just wrote.
	bin2, text2, err := Generate(context.Background(), fsys, "/pkg", []string{"/opt/build"}, ContentSniffer{FS: fsys})
	require.NoError(t, err)
	assert.Len(t, bin2, 1)
	assert.Len(t, text2, 1)
}

func TestGenerateNoPrefixes(t *testing.T) {
	bin, text, err := Generate(context.Background(), afero.NewMemMapFs(), "/pkg", nil, ContentSniffer{})
	require.NoError(t, err)
	assert.Empty(t, bin)
	assert.Empty(t, text)
}
