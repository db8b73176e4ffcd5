// Package archive reads and writes package archives: tar streams that are
// gzip compressed (.tar.gz, .tgz), xz compressed (.tar.xz, .txz) or plain
// (.tar). Extraction refuses entries that would land outside the destination.
package archive
