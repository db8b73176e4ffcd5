// Package manifest reads, writes and builds package manifests.
//
// A manifest lists the archives available from one origin: a local directory
// or a mirror URL. On disk it is a header line followed by one record per
// package with eight "|"-separated fields:
//
//	# pkgr manifest v1
//	zlib-1.3-1.tar.gz|91234|zlib|1.3|1|0|*|9f86d08...
//	curl-8.5.0-2.tar.gz|812311|curl|8.5.0|2|2|zlib>=1.2,openssl|*
//
// Manifests are built by scanning a directory of archives, reading each
// archive's embedded dependency list, and are looked up by specifier through
// the version package. The package also validates the optional YAML
// descriptor shipped inside archives against an embedded JSON schema.
package manifest
