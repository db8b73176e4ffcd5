// Package version converts package version strings into totally ordered
// ordinals and evaluates comparison specifiers such as "foo>=1.2" against
// catalog entries.
//
// Ordinals are packed one byte per dot-separated component, so "0.10" sorts
// above "0.9". Pre-release modifiers (rc, pre, dev) pull an ordinal below
// the unsuffixed version and post-release modifiers push it above:
//
//	Encode("1.0rc1") < Encode("1.0") < Encode("1.0.post1")
//
// A component of 256 or more silently aliases into the next byte. This is a
// known limitation of the packing and is kept for catalog compatibility.
package version
