// Package fsutil holds the filesystem helpers shared by the manifest,
// relocation and install code: tree enumeration over an afero filesystem,
// SHA-256 checksums and copying an extracted tree into its destination.
package fsutil
