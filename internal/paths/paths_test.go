package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHome_EnvOverride(t *testing.T) {
	t.Setenv("PKGR_HOME", "/tmp/test-pkgr")
	if got := Home(); got != "/tmp/test-pkgr" {
		t.Errorf("expected /tmp/test-pkgr, got %s", got)
	}
}

func TestHome_Default(t *testing.T) {
	t.Setenv("PKGR_HOME", "")
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".pkgr")
	if got := Home(); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestDerivedDirs(t *testing.T) {
	t.Setenv("PKGR_HOME", "/tmp/ph")
	t.Setenv("PKGR_ROOT", "")
	t.Setenv("PKGR_PACKAGES", "")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"install root", InstallRoot(), "/tmp/ph/root"},
		{"packages", PackagesDir(), "/tmp/ph/packages"},
		{"local manifest", LocalManifest(), "/tmp/ph/packages/manifest.pkgr"},
		{"receipts", ReceiptsDir("/opt/x"), "/opt/x/var/lib/pkgr/receipts"},
		{"staging", StagingDir("/opt/x"), "/opt/x/var/lib/pkgr/staging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("PKGR_ROOT", "/srv/root")
	t.Setenv("PKGR_PACKAGES", "/srv/pkgs")
	t.Setenv("PKGR_CACHE", "/srv/cache")

	if InstallRoot() != "/srv/root" {
		t.Errorf("InstallRoot() = %s", InstallRoot())
	}
	if PackagesDir() != "/srv/pkgs" {
		t.Errorf("PackagesDir() = %s", PackagesDir())
	}
	if MirrorCacheDir() != "/srv/cache/mirrors" {
		t.Errorf("MirrorCacheDir() = %s", MirrorCacheDir())
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
}
