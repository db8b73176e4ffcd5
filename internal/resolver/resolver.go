// Package resolver computes the ordered set of packages needed to install a
// requested package: every dependency appears before the packages that
// require it.
package resolver

import (
	"errors"
	"fmt"

	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// ErrNotFound is returned when the requested root package does not exist.
var ErrNotFound = errors.New("package not found")

// ErrMissingDependency is matched by every *MissingDependencyError.
var ErrMissingDependency = errors.New("missing dependency")

// MissingDependencyError reports a requirement that no catalog entry
// satisfies.
type MissingDependencyError struct {
	Package     string // package declaring the requirement
	Requirement string
	Err         error
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s requires %s, which is not available", e.Package, e.Requirement)
}

func (e *MissingDependencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMissingDependency}
	}
	return []error{ErrMissingDependency, e.Err}
}

// Searcher looks a specifier up. *catalog.Catalog implements it.
type Searcher interface {
	Search(spec version.Specifier) (*manifest.Package, error)
}

type visit int

const (
	unvisited visit = iota
	inProgress
	done
)

// Cycle records a requirement that led back to a package still being
// resolved.
type Cycle struct {
	From manifest.Key
	To   manifest.Key
}

func (c Cycle) String() string { return c.From.String() + " -> " + c.To.String() }

// Resolution is the outcome of one or more resolve calls. It is owned by
// the caller and grows with each ResolveInto.
type Resolution struct {
	// Packages are in install order.
	Packages []*manifest.Package
	// Cycles lists the dependency cycles met along the way.
	Cycles []Cycle

	state map[string]visit
}

// NewResolution returns an empty Resolution.
func NewResolution() *Resolution {
	return &Resolution{state: make(map[string]visit)}
}

// Contains reports whether a package with this archive is in the result.
func (r *Resolution) Contains(archive string) bool {
	return r.state[archive] == done
}

// Without returns the packages for which skip is false, preserving order.
func (r *Resolution) Without(skip func(*manifest.Package) bool) []*manifest.Package {
	out := make([]*manifest.Package, 0, len(r.Packages))
	for _, p := range r.Packages {
		if !skip(p) {
			out = append(out, p)
		}
	}
	return out
}

// Resolver walks requirements through a Searcher.
type Resolver struct {
	searcher Searcher
}

// New returns a Resolver backed by s.
func New(s Searcher) *Resolver {
	return &Resolver{searcher: s}
}

// Resolve returns the install order for spec and its transitive
// requirements.
func (r *Resolver) Resolve(spec version.Specifier) (*Resolution, error) {
	res := NewResolution()
	if err := r.ResolveInto(res, spec); err != nil {
		return nil, err
	}
	return res, nil
}

// ResolveInto adds spec and its requirements to res. Packages already in
// res are not added again, so resolving the same spec twice leaves res
// unchanged. If spec itself is not found res is untouched and the error
// wraps ErrNotFound. A requirement that cannot be satisfied yields a
// *MissingDependencyError; res then holds whatever was completed before.
func (r *Resolver) ResolveInto(res *Resolution, spec version.Specifier) error {
	if res.state == nil {
		res.state = make(map[string]visit)
	}

	root, err := r.searcher.Search(spec)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", spec, ErrNotFound, err)
	}

	logger := logging.Get("resolver")
	logger.Debug().Str("spec", spec.String()).Str("package", root.String()).Msg("Resolving")
	return r.visit(res, root)
}

func (r *Resolver) visit(res *Resolution, p *manifest.Package) error {
	if res.state[p.Archive] == done {
		return nil
	}
	res.state[p.Archive] = inProgress

	if err := r.visitRequirements(res, p); err != nil {
		// Packages left on the failed path are walked again by a later call.
		res.state[p.Archive] = unvisited
		return err
	}

	res.state[p.Archive] = done
	res.Packages = append(res.Packages, p)
	return nil
}

func (r *Resolver) visitRequirements(res *Resolution, p *manifest.Package) error {
	for _, req := range p.Requirements {
		spec, err := version.ParseSpecifier(req)
		if err != nil {
			return &MissingDependencyError{Package: p.String(), Requirement: req, Err: err}
		}
		dep, err := r.searcher.Search(spec)
		if err != nil {
			return &MissingDependencyError{Package: p.String(), Requirement: req, Err: err}
		}

		switch res.state[dep.Archive] {
		case inProgress:
			res.Cycles = append(res.Cycles, Cycle{From: p.Key(), To: dep.Key()})
			logger := logging.Get("resolver")
			logger.Debug().
				Str("from", p.String()).
				Str("to", dep.String()).
				Msg("Dependency cycle, treating requirement as satisfied")
		case done:
		default:
			if err := r.visit(res, dep); err != nil {
				return err
			}
		}
	}
	return nil
}
