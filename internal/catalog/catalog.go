// Package catalog aggregates the local manifest and mirror manifests into
// one searchable view. Manifests are searched in order and the last match
// wins, so later mirrors override earlier ones.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// ErrNotFound is returned when no manifest has a package satisfying a
// specifier.
var ErrNotFound = errors.New("no package matches")

// Catalog is an ordered list of manifests.
type Catalog struct {
	Manifests []*manifest.Manifest
}

// New returns a catalog over ms, in priority order.
func New(ms ...*manifest.Manifest) *Catalog {
	c := &Catalog{}
	for _, m := range ms {
		c.Add(m)
	}
	return c
}

// Add appends m; nil manifests are ignored.
func (c *Catalog) Add(m *manifest.Manifest) {
	if m == nil {
		return
	}
	c.Manifests = append(c.Manifests, m)
}

// Len returns the number of packages across all manifests.
func (c *Catalog) Len() int {
	n := 0
	for _, m := range c.Manifests {
		n += m.Len()
	}
	return n
}

// Search returns the package satisfying spec. Each manifest contributes its
// newest match and the match from the last manifest wins, even when an
// earlier manifest offers a newer version.
func (c *Catalog) Search(spec version.Specifier) (*manifest.Package, error) {
	var found *manifest.Package
	for _, m := range c.Manifests {
		if p, ok := manifest.FindSpec(m, spec); ok {
			found = p
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", spec, ErrNotFound)
	}
	return found, nil
}

// SearchAll returns every package satisfying spec in catalog order, each
// manifest's matches oldest first. The Origin of each package tells where
// it came from.
func (c *Catalog) SearchAll(spec version.Specifier) []manifest.Package {
	var out []manifest.Package
	for _, m := range c.Manifests {
		out = append(out, manifest.Matches(m, spec)...)
	}
	return out
}

// List returns the packages whose name contains pattern, in catalog order.
// An empty pattern lists everything.
func (c *Catalog) List(pattern string) []manifest.Package {
	var out []manifest.Package
	for _, m := range c.Manifests {
		for _, p := range m.Packages {
			if pattern == "" || strings.Contains(p.Name, pattern) {
				out = append(out, p)
			}
		}
	}
	return out
}
