package resolver

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// Node is one package in a dependency tree.
type Node struct {
	Package *manifest.Package
	// Requirement is the specifier that selected this package; empty for
	// the root.
	Requirement string
	Children    []*Node
	// Repeat marks a package already expanded elsewhere in the tree.
	Repeat bool
	// Cycle marks a requirement leading back to an ancestor.
	Cycle bool
}

// BuildTree returns the dependency tree of spec. Each package is expanded
// once; later occurrences are marked Repeat and cycles are marked Cycle.
func BuildTree(s Searcher, spec version.Specifier) (*Node, error) {
	root, err := s.Search(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", spec, ErrNotFound, err)
	}
	b := &treeBuilder{searcher: s, expanded: map[string]bool{}, path: map[string]bool{}}
	return b.build(root, "")
}

type treeBuilder struct {
	searcher Searcher
	expanded map[string]bool
	path     map[string]bool
}

func (b *treeBuilder) build(p *manifest.Package, req string) (*Node, error) {
	n := &Node{Package: p, Requirement: req}
	switch {
	case b.path[p.Archive]:
		n.Cycle = true
		return n, nil
	case b.expanded[p.Archive]:
		n.Repeat = true
		return n, nil
	}
	b.expanded[p.Archive] = true
	b.path[p.Archive] = true
	defer delete(b.path, p.Archive)

	for _, r := range p.Requirements {
		spec, err := version.ParseSpecifier(r)
		if err != nil {
			return nil, &MissingDependencyError{Package: p.String(), Requirement: r, Err: err}
		}
		dep, err := b.searcher.Search(spec)
		if err != nil {
			return nil, &MissingDependencyError{Package: p.String(), Requirement: r, Err: err}
		}
		child, err := b.build(dep, r)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// PrintTree writes n as an indented tree, one package per line.
func PrintTree(w io.Writer, n *Node) error {
	if _, err := fmt.Fprintln(w, label(n)); err != nil {
		return err
	}
	return printChildren(w, n, "")
}

func printChildren(w io.Writer, n *Node, indent string) error {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		if _, err := fmt.Fprintln(w, indent+branch+label(c)); err != nil {
			return err
		}
		if err := printChildren(w, c, indent+next); err != nil {
			return err
		}
	}
	return nil
}

func label(n *Node) string {
	var b strings.Builder
	b.WriteString(n.Package.String())
	if n.Requirement != "" && n.Requirement != n.Package.Name {
		b.WriteString(" (" + n.Requirement + ")")
	}
	switch {
	case n.Cycle:
		b.WriteString(" [cycle]")
	case n.Repeat:
		b.WriteString(" [*]")
	}
	return b.String()
}
