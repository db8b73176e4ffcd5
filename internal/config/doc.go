// Package config manages user-level settings stored at ~/.pkgr/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the install root, mirror URLs and the external tools used for relocation.
// Every key can be overridden from the environment with a PKGR_ prefix
// (rpath.auto becomes PKGR_RPATH_AUTO).
package config
