// Package relocate makes an extracted package tree usable from a
// destination other than the prefix it was built for.
//
// Two prefix lists shipped in the package name the files that embed the
// build prefix: binary files are rewritten in place without changing their
// length, text files are rewritten line by line. Before a binary is
// rewritten its runtime library search path can be recomputed from the
// shared libraries installed under the destination and patched with the
// platform's tool (patchelf on ELF systems, install_name_tool on macOS).
package relocate
