package version

import "slices"

// Candidate is anything that carries a package name and version, such as a
// catalog entry.
type Candidate interface {
	PackageName() string
	PackageVersion() string
}

// Match filters entries by exact name and operator, then sorts the survivors
// in ascending version order. Entries with equal ordinals keep their
// relative input order.
func Match[T Candidate](entries []T, name string, op Op, target string) []T {
	var out []T
	for _, e := range entries {
		if e.PackageName() == name && op.Eval(e.PackageVersion(), target) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		return Encode(a.PackageVersion()).Compare(Encode(b.PackageVersion()))
	})
	return out
}

// Newest returns the highest-versioned entry satisfying spec.
// On ties the entry appearing last in entries wins.
func Newest[T Candidate](entries []T, spec Specifier) (T, bool) {
	matches := Match(entries, spec.Name, spec.Op, spec.Version)
	if len(matches) == 0 {
		var zero T
		return zero, false
	}
	return matches[len(matches)-1], true
}
