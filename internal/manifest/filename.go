package manifest

import (
	"fmt"
	"path/filepath"
	"strings"
)

const nameSep = "-"

// ArchiveName builds the archive file name for a package.
func ArchiveName(name, ver, revision, ext string) string {
	return name + nameSep + ver + nameSep + revision + ext
}

// ParseArchiveName splits an archive file name into name, version and
// revision. Only the last two "-" separated segments before ext are the
// version and revision, so names may contain dashes themselves:
// "my-lib-pkg-1.2.3-4.tar.gz" is my-lib-pkg, 1.2.3, 4.
func ParseArchiveName(filename, ext string) (name, ver, revision string, err error) {
	base := filepath.Base(filename)
	if ext == "" || !strings.HasSuffix(base, ext) {
		return "", "", "", fmt.Errorf("%s: missing extension %q: %w", filename, ext, ErrBadFilename)
	}
	stem := base[:len(base)-len(ext)]

	revAt := strings.LastIndex(stem, nameSep)
	if revAt <= 0 {
		return "", "", "", fmt.Errorf("%s: no revision segment: %w", filename, ErrBadFilename)
	}
	verAt := strings.LastIndex(stem[:revAt], nameSep)
	if verAt <= 0 {
		return "", "", "", fmt.Errorf("%s: no version segment: %w", filename, ErrBadFilename)
	}

	name = stem[:verAt]
	ver = stem[verAt+1 : revAt]
	revision = stem[revAt+1:]
	if ver == "" || revision == "" {
		return "", "", "", fmt.Errorf("%s: empty version or revision: %w", filename, ErrBadFilename)
	}
	return name, ver, revision, nil
}
