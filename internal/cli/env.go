package cli

import (
	"context"
	"os/exec"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/spf13/afero"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/branding"
	"github.com/pkgr-labs/pkgr/internal/catalog"
	"github.com/pkgr-labs/pkgr/internal/config"
	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/installer"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/paths"
	"github.com/pkgr-labs/pkgr/internal/relocate"
)

// printer renders counts with digit grouping.
var printer = message.NewPrinter(language.English)

// Status marks.
var (
	markOK   = color.Success.Sprint("✓")
	markFail = color.Danger.Sprint("✗")
	markWarn = color.Warn.Sprint("!")
)

// env holds the collaborators commands build from the effective
// configuration.
type env struct {
	settings config.Settings
	fs       afero.Fs
}

func loadEnv() (*env, error) {
	s, err := config.Current()
	if err != nil {
		return nil, err
	}
	return &env{settings: s, fs: afero.NewOsFs()}, nil
}

// fetcher returns the mirror client: retrying HTTP behind a per-host
// circuit breaker.
func (e *env) fetcher() *fetch.CircuitBreakerFetcher {
	return fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(
		fetch.WithMaxRetries(e.settings.Fetch.Retries),
		fetch.WithUserAgent(e.settings.Fetch.UserAgent),
	))
}

func (e *env) localManifest() string {
	return filepath.Join(e.settings.Packages, branding.ManifestName())
}

// loadCatalog reads the local manifest and every configured mirror.
func (e *env) loadCatalog(ctx context.Context, f fetch.Interface) (*catalog.Catalog, error) {
	l := &catalog.Loader{
		FS:            e.fs,
		Fetcher:       f,
		LocalManifest: e.localManifest(),
		Mirrors:       e.settings.Mirrors,
		CacheDir:      paths.MirrorCacheDir(),
		MaxAge:        e.settings.CacheMaxAge,
		Offline:       offline,
	}
	return l.Load(ctx)
}

func (e *env) tools() relocate.Tools {
	return relocate.Tools{
		Patchelf:        e.settings.Tools.Patchelf,
		InstallNameTool: e.settings.Tools.InstallNameTool,
	}
}

// engine returns a relocation engine for the platform pkgr runs on.
func (e *env) engine() *relocate.Engine {
	p := relocate.DetectPlatform(e.fs, relocate.ExecRunner{}, e.tools())
	return relocate.NewEngine(e.fs, p)
}

// rpathTool names the program the current platform patches search paths
// with.
func (e *env) rpathTool() string {
	if e.engine().Platform.Name() == relocate.PlatformMachO {
		return e.tools().InstallNameTool
	}
	return e.tools().Patchelf
}

// sniffer prefers file(1) and falls back to in-process detection when the
// tool is not installed.
func (e *env) sniffer() relocate.Sniffer {
	tool := e.settings.Tools.File
	if _, err := exec.LookPath(tool); err == nil {
		return relocate.FileSniffer{Runner: relocate.ExecRunner{}, Tool: tool}
	}
	logger := logging.Get("cli")
	logger.Debug().Str("tool", tool).Msg("Content-type tool not found, sniffing in process")
	return relocate.ContentSniffer{FS: e.fs}
}

// installer assembles an Installer writing into root.
func (e *env) installer(cat *catalog.Catalog, f fetch.Interface, root string) *installer.Installer {
	inst := &installer.Installer{
		Catalog:   cat,
		Fetcher:   f,
		Extractor: archive.New(),
		Engine:    e.engine(),
		Root:      root,
		CacheDir:  paths.CacheDir(),
		Relocate: relocate.Options{
			AutoRPath: e.settings.RPath.Auto,
			Relative:  e.settings.RPath.Relative,
		},
	}
	if e.settings.RPath.Auto {
		inst.Tools = []string{e.rpathTool()}
	}
	return inst
}
