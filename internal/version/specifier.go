package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySpecifier is returned when a specifier string has no package name.
var ErrEmptySpecifier = errors.New("empty package specifier")

// operatorChars are the characters that may appear in a comparison operator.
const operatorChars = "<>=!~"

// Specifier names a package with an optional version constraint,
// e.g. "zlib", "python>=3.11" or "openssl!=3.0.1".
type Specifier struct {
	Name    string
	Op      Op
	Version string
}

// ParseSpecifier splits s into name, operator and version. A bare name is
// equivalent to "name>=0" and therefore matches every version.
func ParseSpecifier(s string) (Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Specifier{}, ErrEmptySpecifier
	}

	start := strings.IndexAny(s, operatorChars)
	if start < 0 {
		return Specifier{Name: s, Op: OpDefault, Version: "0"}, nil
	}

	end := start
	for end < len(s) && strings.IndexByte(operatorChars, s[end]) >= 0 {
		end++
	}

	spec := Specifier{
		Name:    strings.TrimSpace(s[:start]),
		Op:      ParseOp(s[start:end]),
		Version: strings.TrimSpace(s[end:]),
	}
	if spec.Name == "" {
		return Specifier{}, fmt.Errorf("specifier %q: %w", s, ErrEmptySpecifier)
	}
	if spec.Version == "" {
		return Specifier{}, fmt.Errorf("specifier %q has operator %q but no version", s, s[start:end])
	}
	return spec, nil
}

// MustParseSpecifier is like ParseSpecifier but panics on error.
// It is intended for literals in tests and tables.
func MustParseSpecifier(s string) Specifier {
	spec, err := ParseSpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// String renders the specifier; the implicit ">=0" of a bare name is omitted.
func (s Specifier) String() string {
	if s.Op == OpDefault && s.Version == "0" {
		return s.Name
	}
	return s.Name + s.Op.String() + s.Version
}

// Matches reports whether a package with the given name and version
// satisfies the specifier.
func (s Specifier) Matches(name, ver string) bool {
	return name == s.Name && s.Op.Eval(ver, s.Version)
}
