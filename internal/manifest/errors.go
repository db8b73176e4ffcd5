package manifest

import "errors"

var (
	// ErrNotAvailable means the manifest file or URL does not exist.
	// Callers treat it as an empty origin rather than a failure.
	ErrNotAvailable = errors.New("manifest not available")
	// ErrMalformed means the header or a record has the wrong shape.
	// No partial manifest is returned alongside it.
	ErrMalformed = errors.New("malformed manifest")
	// ErrBadFilename means an archive name does not follow
	// <name>-<version>-<revision><ext>.
	ErrBadFilename = errors.New("bad archive filename")
	// ErrDuplicate means a manifest already lists an archive of that name.
	ErrDuplicate = errors.New("duplicate archive")
)
