package manifest

import "github.com/pkgr-labs/pkgr/internal/version"

// Find returns the newest package called name.
func Find(m *Manifest, name string) (*Package, bool) {
	return FindSpec(m, version.Specifier{Name: name, Op: version.OpDefault, Version: "0"})
}

// FindSpec returns the newest package satisfying spec. When several
// packages share the newest version, the one listed last wins.
func FindSpec(m *Manifest, spec version.Specifier) (*Package, bool) {
	if m == nil {
		return nil, false
	}
	p, ok := version.Newest(m.Packages, spec)
	if !ok {
		return nil, false
	}
	return &p, true
}

// Matches returns every package satisfying spec, oldest first.
func Matches(m *Manifest, spec version.Specifier) []Package {
	if m == nil {
		return nil
	}
	return version.Match(m.Packages, spec.Name, spec.Op, spec.Version)
}
