package manifest

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	packageurl "github.com/package-url/packageurl-go"

	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// Package describes one archive in a manifest. Values are treated as
// immutable once appended to a Manifest.
type Package struct {
	Name     string
	Version  string
	Revision string
	// Archive is the archive file name, unique within a manifest.
	Archive string
	// Origin is the directory or base URL the archive lives in.
	Origin   string
	Size     int64
	Checksum string
	// Requirements are dependency specifiers such as "zlib>=1.2".
	Requirements []string
}

// PackageName implements version.Candidate.
func (p Package) PackageName() string { return p.Name }

// PackageVersion implements version.Candidate.
func (p Package) PackageVersion() string { return p.Version }

// Ordinal returns the encoded version.
func (p Package) Ordinal() version.Ordinal { return version.Encode(p.Version) }

// Key is the package identity: name, version and revision.
type Key struct {
	Name     string
	Version  string
	Revision string
}

func (k Key) String() string { return k.Name + "-" + k.Version + "-" + k.Revision }

// Key returns the identity of p.
func (p Package) Key() Key { return Key{Name: p.Name, Version: p.Version, Revision: p.Revision} }

// String renders p as name-version-revision.
func (p Package) String() string { return p.Key().String() }

// PURL returns the package URL of p, e.g. pkg:generic/zlib@1.3-1.
func (p Package) PURL() string {
	var qualifiers packageurl.Qualifiers
	if p.Checksum != "" {
		qualifiers = packageurl.QualifiersFromMap(map[string]string{"checksum": "sha256:" + p.Checksum})
	}
	return packageurl.NewPackageURL(packageurl.TypeGeneric, "", p.Name, p.Version+"-"+p.Revision, qualifiers, "").ToString()
}

// Remote reports whether the package's origin is a URL.
func (p Package) Remote() bool { return IsRemote(p.Origin) }

// ArchiveLocation returns where the archive can be read from: a URL for
// remote origins, a filesystem path otherwise.
func (p Package) ArchiveLocation() string {
	if p.Remote() {
		return fetch.JoinURL(p.Origin, p.Archive)
	}
	return filepath.Join(p.Origin, p.Archive)
}

// IsRemote reports whether origin is a URL rather than a directory.
func IsRemote(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "file":
		return true
	}
	return false
}

// validate checks that p can be stored in a serialized manifest.
func (p Package) validate() error {
	for field, v := range map[string]string{
		"archive":  p.Archive,
		"name":     p.Name,
		"version":  p.Version,
		"revision": p.Revision,
	} {
		if v == "" {
			return fmt.Errorf("package %s: empty %s", p.Archive, field)
		}
		if strings.ContainsAny(v, fieldSep+"\n") {
			return fmt.Errorf("package %s: %s %q contains a separator", p.Archive, field, v)
		}
	}
	if p.Size < 0 {
		return fmt.Errorf("package %s: negative size", p.Archive)
	}
	for _, req := range p.Requirements {
		if req == "" || strings.ContainsAny(req, fieldSep+reqSep+"\n") {
			return fmt.Errorf("package %s: invalid requirement %q", p.Archive, req)
		}
	}
	if strings.ContainsAny(p.Checksum, fieldSep+"\n") {
		return fmt.Errorf("package %s: invalid checksum", p.Archive)
	}
	return nil
}

// Manifest is the ordered package list of one origin.
type Manifest struct {
	Origin   string
	Packages []Package
	index    map[string]int
}

// New returns an empty manifest for origin.
func New(origin string) *Manifest {
	return &Manifest{Origin: origin}
}

// Append adds p to the manifest, stamping it with the manifest's origin.
// An archive name already present yields ErrDuplicate.
func (m *Manifest) Append(p Package) error {
	if err := p.validate(); err != nil {
		return err
	}
	if m.index == nil {
		m.index = make(map[string]int, len(m.Packages))
		for i, existing := range m.Packages {
			m.index[existing.Archive] = i
		}
	}
	if _, ok := m.index[p.Archive]; ok {
		return fmt.Errorf("%s: %w", p.Archive, ErrDuplicate)
	}
	p.Origin = m.Origin
	p.Requirements = append([]string(nil), p.Requirements...)
	m.index[p.Archive] = len(m.Packages)
	m.Packages = append(m.Packages, p)
	return nil
}

// Len returns the number of packages.
func (m *Manifest) Len() int { return len(m.Packages) }

// ByArchive returns the package stored under an archive file name.
func (m *Manifest) ByArchive(archive string) (*Package, bool) {
	for i := range m.Packages {
		if m.Packages[i].Archive == archive {
			p := m.Packages[i]
			return &p, true
		}
	}
	return nil, false
}

// Names returns the distinct package names in manifest order.
func (m *Manifest) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range m.Packages {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	return names
}
