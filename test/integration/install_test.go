//go:build integration

package integration_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pkgr-labs/pkgr/internal/installer"
	"github.com/pkgr-labs/pkgr/internal/resolver"
	"github.com/pkgr-labs/pkgr/internal/version"
)

func TestInstallWithDependencies(t *testing.T) {
	env := setupTestEnv(t)
	setupRepository(t, env)
	inst := newInstaller(env, loadCatalog(t, env))

	plan, err := inst.Plan([]version.Specifier{version.MustParseSpecifier("curl")}, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []string{"zlib-1.2.13-1", "openssl-3.0.13-2", "curl-8.5.0-1"}
	if got := packageNames(plan.Packages); !slices.Equal(got, want) {
		t.Fatalf("plan = %v, want %v", got, want)
	}

	result, err := inst.Install(context.Background(), plan)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if result.Installed != 3 {
		t.Errorf("Installed = %d, want 3", result.Installed)
	}

	assertFileContains(t, filepath.Join(env.Root, "lib/pkgconfig/zlib.pc"), "prefix="+env.Root+"\n")
	assertFileContains(t, filepath.Join(env.Root, "etc/ssl/openssl.cnf"), "dir = "+env.Root+"/etc/ssl")
	assertFileContains(t, filepath.Join(env.Root, "bin/c_rehash"), "exec "+env.Root+"/bin/openssl")
	assertFileContains(t, filepath.Join(env.Root, "bin/curl-config"), "echo "+env.Root+"\n")
	assertFileExists(t, filepath.Join(env.Root, "include/zlib.h"))
	assertFileNotExists(t, filepath.Join(env.Root, ".PKGR_DEPENDS"))
	assertFileNotExists(t, filepath.Join(env.Root, "var/lib/pkgr/staging/curl-8.5.0-1"))

	receipts, err := inst.Installed()
	if err != nil {
		t.Fatalf("Installed: %v", err)
	}
	var names []string
	for _, r := range receipts {
		names = append(names, r.Name)
	}
	if !slices.Equal(names, []string{"curl", "openssl", "zlib"}) {
		t.Errorf("receipts = %v", names)
	}
}

func TestInstallSkipsInstalledPackages(t *testing.T) {
	env := setupTestEnv(t)
	setupRepository(t, env)
	inst := newInstaller(env, loadCatalog(t, env))

	plan, err := inst.Plan([]version.Specifier{version.MustParseSpecifier("zlib")}, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := inst.Install(context.Background(), plan); err != nil {
		t.Fatalf("Install: %v", err)
	}

	plan, err = inst.Plan([]version.Specifier{version.MustParseSpecifier("openssl")}, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := packageNames(plan.Packages); !slices.Equal(got, []string{"openssl-3.0.13-2"}) {
		t.Errorf("plan = %v", got)
	}
	if got := packageNames(plan.Skipped); !slices.Equal(got, []string{"zlib-1.2.13-1"}) {
		t.Errorf("skipped = %v", got)
	}
}

func TestInstallNoDeps(t *testing.T) {
	env := setupTestEnv(t)
	setupRepository(t, env)
	inst := newInstaller(env, loadCatalog(t, env))

	plan, err := inst.Plan([]version.Specifier{version.MustParseSpecifier("curl")}, true)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := packageNames(plan.Packages); !slices.Equal(got, []string{"curl-8.5.0-1"}) {
		t.Errorf("plan = %v", got)
	}
}

func TestInstallMissingDependency(t *testing.T) {
	env := setupTestEnv(t)
	packInto(t, env.PackagesDir, pkgDef{
		Name: "app", Version: "1.0", Revision: "1",
		Depends: []string{"libfoo>=2.0"},
		Files:   map[string]string{"bin/app": "app\n"},
	})
	indexDir(t, env.PackagesDir)
	inst := newInstaller(env, loadCatalog(t, env))

	_, err := inst.Plan([]version.Specifier{version.MustParseSpecifier("app")}, false)
	var missing *resolver.MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Plan error = %v, want MissingDependencyError", err)
	}
	if missing.Requirement != "libfoo>=2.0" {
		t.Errorf("Requirement = %q", missing.Requirement)
	}
}

func TestPurgeRemovesFilesAndDirectories(t *testing.T) {
	env := setupTestEnv(t)
	setupRepository(t, env)
	inst := newInstaller(env, loadCatalog(t, env))

	plan, err := inst.Plan([]version.Specifier{version.MustParseSpecifier("curl")}, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := inst.Install(context.Background(), plan); err != nil {
		t.Fatalf("Install: %v", err)
	}

	n, err := inst.Purge("openssl")
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d files, want 2", n)
	}
	assertFileNotExists(t, filepath.Join(env.Root, "etc/ssl/openssl.cnf"))
	assertFileNotExists(t, filepath.Join(env.Root, "etc"))
	assertFileExists(t, filepath.Join(env.Root, "bin/curl-config"))

	if _, err := installer.LoadReceipt(env.Root, "openssl"); !errors.Is(err, installer.ErrNotInstalled) {
		t.Errorf("LoadReceipt after purge = %v, want ErrNotInstalled", err)
	}
}
