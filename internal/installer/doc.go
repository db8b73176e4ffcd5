// Package installer installs resolved packages into a destination root.
//
// Each package archive is located (the local package directory or a
// download into the cache), verified against its manifest checksum,
// extracted into a staging directory below the root, relocated for the
// root and copied into place. A YAML receipt under
// <root>/var/lib/pkgr/receipts records the package and the files it
// installed so it can be purged later.
//
// Pack does the reverse for package authors: it stamps a staged tree with
// its dependency list, prefix lists, file list and descriptor and writes
// the archive.
package installer
