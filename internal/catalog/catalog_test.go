package catalog

import (
	"errors"
	"testing"

	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/version"
)

func buildManifest(t *testing.T, origin string, pkgs ...manifest.Package) *manifest.Manifest {
	t.Helper()
	m := manifest.New(origin)
	for _, p := range pkgs {
		if p.Archive == "" {
			p.Archive = manifest.ArchiveName(p.Name, p.Version, p.Revision, ".tar.gz")
		}
		if err := m.Append(p); err != nil {
			t.Fatalf("Append(%s): %v", p, err)
		}
	}
	return m
}

func pkg(name, ver, rev string, reqs ...string) manifest.Package {
	return manifest.Package{Name: name, Version: ver, Revision: rev, Requirements: reqs}
}

func TestSearchLastManifestWins(t *testing.T) {
	local := buildManifest(t, "/local", pkg("zlib", "1.3", "1"), pkg("curl", "8.0", "1"))
	mirror := buildManifest(t, "https://mirror.example", pkg("zlib", "1.2", "5"))
	c := New(local, mirror)

	p, err := c.Search(version.MustParseSpecifier("zlib"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if p.Origin != "https://mirror.example" || p.Version != "1.2" {
		t.Errorf("Search = %s from %s, want the later manifest's zlib", p, p.Origin)
	}

	p, err = c.Search(version.MustParseSpecifier("zlib>=1.3"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if p.Origin != "/local" {
		t.Errorf("constrained Search = %s from %s", p, p.Origin)
	}

	p, err = c.Search(version.MustParseSpecifier("curl"))
	if err != nil || p.Name != "curl" {
		t.Errorf("Search(curl) = %v, %v", p, err)
	}
}

func TestSearchNotFound(t *testing.T) {
	c := New(buildManifest(t, "/local", pkg("zlib", "1.3", "1")))
	tests := []string{"openssl", "zlib>2", "zlib!=1.3"}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := c.Search(version.MustParseSpecifier(s))
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Search(%s) error = %v, want ErrNotFound", s, err)
			}
		})
	}

	if _, err := New().Search(version.MustParseSpecifier("zlib")); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty catalog error = %v", err)
	}
}

func TestSearchAllAndList(t *testing.T) {
	local := buildManifest(t, "/local", pkg("zlib", "1.3", "1"), pkg("zlib-ng", "2.1", "1"))
	mirror := buildManifest(t, "https://mirror.example", pkg("zlib", "1.2", "5"), pkg("bzip2", "1.0.8", "1"))
	c := New(local, nil, mirror)

	if len(c.Manifests) != 2 {
		t.Fatalf("nil manifest should be ignored, got %d manifests", len(c.Manifests))
	}
	if c.Len() != 4 {
		t.Errorf("Len = %d", c.Len())
	}

	all := c.SearchAll(version.MustParseSpecifier("zlib"))
	if len(all) != 2 || all[0].Origin != "/local" || all[1].Origin != "https://mirror.example" {
		t.Errorf("SearchAll = %v", all)
	}

	listed := c.List("zlib")
	if len(listed) != 3 {
		t.Errorf("List(zlib) = %v", listed)
	}
	if got := len(c.List("")); got != 4 {
		t.Errorf("List() = %d packages", got)
	}
}
