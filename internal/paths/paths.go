// Package paths resolves the directories pkgr reads from and writes to.
// Each location can be overridden through a PKGR_* environment variable.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/pkgr-labs/pkgr/internal/branding"
)

// Directory names below the home directory and the install root.
const (
	rootName     = "root"
	packagesName = "packages"
	mirrorsName  = "mirrors"
	receiptsRel  = "var/lib/pkgr/receipts"
	stagingRel   = "var/lib/pkgr/staging"
)

// Permission constants.
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// Home returns ~/.pkgr, or PKGR_HOME when set.
func Home() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// InstallRoot returns the default destination root packages are installed
// into: PKGR_ROOT, or ~/.pkgr/root.
func InstallRoot() string {
	if v := os.Getenv(branding.EnvVar("ROOT")); v != "" {
		return v
	}
	return filepath.Join(Home(), rootName)
}

// PackagesDir returns the local archive directory that backs the local
// manifest: PKGR_PACKAGES, or ~/.pkgr/packages.
func PackagesDir() string {
	if v := os.Getenv(branding.EnvVar("PACKAGES")); v != "" {
		return v
	}
	return filepath.Join(Home(), packagesName)
}

// CacheDir returns the download and mirror-manifest cache: PKGR_CACHE, or
// $XDG_CACHE_HOME/pkgr.
func CacheDir() string {
	if v := os.Getenv(branding.EnvVar("CACHE")); v != "" {
		return v
	}
	return filepath.Join(xdg.CacheHome, branding.CLIName())
}

// MirrorCacheDir returns the directory holding cached mirror manifests.
func MirrorCacheDir() string {
	return filepath.Join(CacheDir(), mirrorsName)
}

// StateDir returns $XDG_STATE_HOME/pkgr, where the log file lives.
func StateDir() string {
	return filepath.Join(xdg.StateHome, branding.CLIName())
}

// ReceiptsDir returns the directory of install receipts below root.
func ReceiptsDir(root string) string {
	return filepath.Join(root, filepath.FromSlash(receiptsRel))
}

// StagingDir returns the directory packages are extracted into below root
// before they are relocated and copied into place.
func StagingDir(root string) string {
	return filepath.Join(root, filepath.FromSlash(stagingRel))
}

// LocalManifest returns the path of the manifest describing PackagesDir.
func LocalManifest() string {
	return filepath.Join(PackagesDir(), branding.ManifestName())
}

// EnsureDir creates dir and its parents with DirPerm.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, DirPerm)
}
