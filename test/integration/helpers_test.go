//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/catalog"
	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/installer"
	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/relocate"
)

// buildPrefix is the prefix every test package claims it was built in. It
// is long enough for any temporary install root to fit in its place.
var buildPrefix = "/opt/pkgr-build/" + strings.Repeat("x", 160)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir     string // PKGR_HOME
	PackagesDir string // local archives and their manifest
	MirrorDir   string // archives published by the test mirror
	Root        string // install root
	CacheDir    string // PKGR_CACHE: downloads and mirror manifests
}

// setupTestEnv creates isolated temp directories and points the PKGR_*
// variables at them. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:     t.TempDir(),
		PackagesDir: t.TempDir(),
		MirrorDir:   t.TempDir(),
		Root:        t.TempDir(),
		CacheDir:    t.TempDir(),
	}

	t.Setenv("PKGR_HOME", env.HomeDir)
	t.Setenv("PKGR_PACKAGES", env.PackagesDir)
	t.Setenv("PKGR_ROOT", env.Root)
	t.Setenv("PKGR_CACHE", env.CacheDir)
	return env
}

// pkgDef describes a package to stage and pack.
type pkgDef struct {
	Name, Version, Revision string
	Depends                 []string
	Files                   map[string]string
}

// packInto stages def and packs it into dir. Text files may mention
// buildPrefix; it is recorded for relocation.
func packInto(t *testing.T, dir string, def pkgDef) string {
	t.Helper()
	stage := filepath.Join(t.TempDir(), def.Name)
	for rel, content := range def.Files {
		writeFile(t, filepath.Join(stage, rel), content)
	}
	out, err := installer.Pack(context.Background(), installer.PackOptions{
		Dir:      stage,
		Name:     def.Name,
		Version:  def.Version,
		Revision: def.Revision,
		OutDir:   dir,
		Depends:  def.Depends,
		Prefixes: []string{buildPrefix},
		Sniffer:  relocate.ContentSniffer{},
		Descriptor: &manifest.Descriptor{
			Summary:     def.Name + " test package",
			License:     "MIT",
			BuildPrefix: buildPrefix,
		},
	})
	if err != nil {
		t.Fatalf("Pack(%s): %v", def.Name, err)
	}
	return out
}

// indexDir writes the manifest of dir.
func indexDir(t *testing.T, dir string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.BuildFromDirectory(dir, manifest.BuildOptions{Ext: ".tar.gz", Extractor: archive.New()})
	if err != nil {
		t.Fatalf("BuildFromDirectory(%s): %v", dir, err)
	}
	if err := manifest.Save(afero.NewOsFs(), filepath.Join(dir, "manifest.pkgr"), m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return m
}

// setupRepository packs a small dependency chain into the packages dir:
// curl requires openssl and zlib, openssl requires zlib.
func setupRepository(t *testing.T, env *testEnv) {
	t.Helper()
	packInto(t, env.PackagesDir, pkgDef{
		Name: "zlib", Version: "1.2.13", Revision: "1",
		Files: map[string]string{
			"lib/pkgconfig/zlib.pc": "prefix=" + buildPrefix + "\nlibdir=${prefix}/lib\n",
			"include/zlib.h":        "/* zlib 1.2.13 */\n",
		},
	})
	packInto(t, env.PackagesDir, pkgDef{
		Name: "openssl", Version: "3.0.13", Revision: "2",
		Depends: []string{"zlib>=1.2"},
		Files: map[string]string{
			"etc/ssl/openssl.cnf": "dir = " + buildPrefix + "/etc/ssl\n",
			"bin/c_rehash":        "#!/bin/sh\nexec " + buildPrefix + "/bin/openssl rehash \"$@\"\n",
		},
	})
	packInto(t, env.PackagesDir, pkgDef{
		Name: "curl", Version: "8.5.0", Revision: "1",
		Depends: []string{"openssl>=3.0", "zlib"},
		Files: map[string]string{
			"bin/curl-config": "#!/bin/sh\necho " + buildPrefix + "\n",
			"share/doc/curl":  "curl\n",
		},
	})
	indexDir(t, env.PackagesDir)
}

// loadCatalog reads the local manifest and the given mirrors.
func loadCatalog(t *testing.T, env *testEnv, mirrors ...string) *catalog.Catalog {
	t.Helper()
	l := &catalog.Loader{
		Fetcher:       fetch.NewFetcher(fetch.WithMaxRetries(0)),
		LocalManifest: filepath.Join(env.PackagesDir, "manifest.pkgr"),
		Mirrors:       mirrors,
		CacheDir:      filepath.Join(env.CacheDir, "mirrors"),
	}
	cat, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cat
}

// newInstaller returns an installer over cat writing into env.Root.
func newInstaller(env *testEnv, cat *catalog.Catalog) *installer.Installer {
	return &installer.Installer{
		Catalog:   cat,
		Fetcher:   fetch.NewFetcher(fetch.WithMaxRetries(0)),
		Extractor: archive.New(),
		Root:      env.Root,
		CacheDir:  env.CacheDir,
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// packageNames renders packages as name-version-revision.
func packageNames(pkgs []*manifest.Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.String()
	}
	return names
}
