package manifest

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"
)

// Metadata members stored at the top level of every package archive.
const (
	DependsFile    = ".PKGR_DEPENDS"
	PrefixBinFile  = ".PKGR_PREFIX_BIN"
	PrefixTextFile = ".PKGR_PREFIX_TEXT"
	DescriptorFile = ".PKGR_DESCRIPTOR"
	FileListFile   = ".PKGR_FILELIST"
)

// MetadataFiles lists every metadata member name.
var MetadataFiles = []string{DependsFile, PrefixBinFile, PrefixTextFile, DescriptorFile, FileListFile}

// IsMetadata reports whether a slash-separated path inside a package tree
// is one of the top-level metadata members.
func IsMetadata(rel string) bool {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	for _, name := range MetadataFiles {
		if rel == name {
			return true
		}
	}
	return false
}

// ParseRequirements reads a newline-separated list of specifiers.
// Blank lines and lines starting with '#' are skipped.
func ParseRequirements(r io.Reader) ([]string, error) {
	var reqs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reqs = append(reqs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	return reqs, nil
}

// WriteRequirements writes one specifier per line.
func WriteRequirements(w io.Writer, reqs []string) error {
	for _, r := range reqs {
		if _, err := io.WriteString(w, r+"\n"); err != nil {
			return err
		}
	}
	return nil
}
