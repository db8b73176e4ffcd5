package manifest

import (
	"testing"

	"github.com/pkgr-labs/pkgr/internal/version"
)

func mustSpec(t *testing.T, s string) version.Specifier {
	t.Helper()
	spec, err := version.ParseSpecifier(s)
	if err != nil {
		t.Fatalf("ParseSpecifier(%q): %v", s, err)
	}
	return spec
}
