// Package platform wraps the filesystem operations whose behaviour differs
// between operating systems. Installed trees may contain symlinks (library
// version chains such as libz.so -> libz.so.1) that must be recreated at the
// destination; on Windows without developer mode those fall back to copies.
package platform
