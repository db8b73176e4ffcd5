package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/catalog"
	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/fsutil"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/paths"
	"github.com/pkgr-labs/pkgr/internal/relocate"
	"github.com/pkgr-labs/pkgr/internal/resolver"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// stateRel is the root-relative directory holding receipts and staging,
// never scanned for libraries or recorded as package files.
const stateRel = "var/lib/pkgr"

// archivesDir is the cache subdirectory downloaded archives are kept in.
const archivesDir = "archives"

// Installer installs packages from a catalog into Root.
type Installer struct {
	Catalog   *catalog.Catalog
	Fetcher   fetch.Interface
	Extractor manifest.Extractor
	Engine    *relocate.Engine
	// Root is the destination every package is installed into.
	Root string
	// CacheDir keeps downloaded archives.
	CacheDir string
	// Relocate controls search path handling; Libraries is filled in per
	// package.
	Relocate relocate.Options
	// Tools are checked for availability when planning.
	Tools []string
	// Progress receives install steps; Output is passed to it.
	Progress ProgressFunc
	Output   io.Writer

	now func() time.Time
}

// Plan resolves specs into an install plan. With noDeps only the named
// packages are considered. Packages whose receipt records the same archive
// are moved to Skipped.
func (i *Installer) Plan(specs []version.Specifier, noDeps bool) (*InstallPlan, error) {
	res := resolver.NewResolution()
	r := resolver.New(i.Catalog)

	for _, spec := range specs {
		if noDeps {
			p, err := i.Catalog.Search(spec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %w", spec, resolver.ErrNotFound, err)
			}
			if !res.Contains(p.Archive) {
				res.Packages = append(res.Packages, p)
			}
			continue
		}
		if err := r.ResolveInto(res, spec); err != nil {
			return nil, err
		}
	}

	plan := &InstallPlan{Tools: checkTools(i.Tools)}
	for _, c := range res.Cycles {
		plan.Cycles = append(plan.Cycles, c.String())
	}
	seen := make(map[string]bool)
	for _, p := range res.Packages {
		if seen[p.Archive] {
			continue
		}
		seen[p.Archive] = true
		if i.IsInstalled(p) {
			plan.Skipped = append(plan.Skipped, p)
		} else {
			plan.Packages = append(plan.Packages, p)
		}
	}
	return plan, nil
}

// checkTools looks up each tool on PATH.
func checkTools(tools []string) []ToolStatus {
	var result []ToolStatus
	for _, name := range tools {
		_, err := exec.LookPath(name)
		result = append(result, ToolStatus{Name: name, Available: err == nil})
	}
	return result
}

// IsInstalled reports whether the receipt for p's name records p's archive.
func (i *Installer) IsInstalled(p *manifest.Package) bool {
	r, err := LoadReceipt(i.Root, p.Name)
	return err == nil && r.Archive == p.Archive
}

// Installed lists the receipts below Root.
func (i *Installer) Installed() ([]*Receipt, error) {
	return ListReceipts(i.Root)
}

// Install installs the packages of plan in order, stopping at the first
// failure. Packages installed before the failure stay installed.
func (i *Installer) Install(ctx context.Context, plan *InstallPlan) (*InstallResult, error) {
	logger := logging.Get("installer")
	done := logging.Operation(logger, "install")
	defer done()

	result := &InstallResult{Skipped: len(plan.Skipped)}
	for _, t := range plan.Tools {
		if !t.Available {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s not found on PATH", t.Name))
		}
	}

	for _, p := range plan.Packages {
		files, err := i.installOne(ctx, p)
		if err != nil {
			return result, fmt.Errorf("installing %s: %w", p, err)
		}
		result.Installed++
		result.Files += files
	}
	return result, nil
}

func (i *Installer) installOne(ctx context.Context, p *manifest.Package) (int, error) {
	logger := logging.Get("installer").With().Str("package", p.String()).Logger()
	name := p.String()

	i.report(StepFetch, name, nil)
	archivePath, err := i.locate(ctx, p)
	if err != nil {
		i.report(StepFetch, name, err)
		return 0, err
	}

	if p.Checksum != "" {
		i.report(StepVerify, name, nil)
		if err := fsutil.VerifySHA256(afero.NewOsFs(), archivePath, p.Checksum); err != nil {
			i.report(StepVerify, name, err)
			return 0, err
		}
	}

	staging := filepath.Join(paths.StagingDir(i.Root), name)
	if err := os.RemoveAll(staging); err != nil {
		return 0, fmt.Errorf("clearing staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	i.report(StepExtract, name, nil)
	if err := i.Extractor.Extract(archivePath, staging); err != nil {
		i.report(StepExtract, name, err)
		return 0, err
	}

	i.report(StepRelocate, name, nil)
	opts := i.Relocate
	if opts.AutoRPath && opts.Libraries == nil {
		idx, err := i.libraries(staging)
		if err != nil {
			return 0, err
		}
		opts.Libraries = idx
	}
	engine := i.Engine
	if engine == nil {
		engine = relocate.NewEngine(afero.NewOsFs(), nil)
	}
	report, err := engine.RelocateTree(ctx, i.Root, staging, opts)
	if err != nil {
		i.report(StepRelocate, name, err)
		return 0, err
	}
	logger.Debug().Int("rewritten", len(report.Rewritten)).Int("rpaths", len(report.RPaths)).Msg("Relocated")

	i.report(StepCopy, name, nil)
	copied, err := fsutil.CopyTree(staging, i.Root, manifest.IsMetadata)
	if err != nil {
		i.report(StepCopy, name, err)
		return 0, err
	}

	files, err := fileList(staging, copied)
	if err != nil {
		return 0, err
	}
	if err := SaveReceipt(i.Root, newReceipt(p, files, i.clock())); err != nil {
		return 0, err
	}

	i.report(StepInstalled, name, nil)
	logger.Info().Int("files", len(files)).Str("root", i.Root).Msg("Installed package")
	return len(files), nil
}

// locate returns a local path for the archive of p, downloading remote
// archives into the cache. A cached archive is reused when its checksum
// still matches.
func (i *Installer) locate(ctx context.Context, p *manifest.Package) (string, error) {
	if !p.Remote() {
		path := p.ArchiveLocation()
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("archive %s: %w", path, err)
		}
		return path, nil
	}

	dest := filepath.Join(i.CacheDir, archivesDir, p.Archive)
	if p.Checksum != "" {
		if err := fsutil.VerifySHA256(afero.NewOsFs(), dest, p.Checksum); err == nil {
			logger := logging.Get("installer")
			logger.Debug().Str("archive", dest).Msg("Using cached archive")
			return dest, nil
		}
	}
	if i.Fetcher == nil {
		return "", errors.New("no fetcher configured for remote archives")
	}
	if _, err := fetch.Download(ctx, i.Fetcher, p.ArchiveLocation(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// libraries indexes the shared libraries of the staged package together
// with those already installed in the root.
func (i *Installer) libraries(staging string) (*relocate.LibraryIndex, error) {
	idx, err := relocate.IndexLibraries(afero.NewOsFs(), staging)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(i.Root); err == nil {
		installed, err := relocate.IndexLibraries(afero.NewOsFs(), i.Root, stateRel)
		if err != nil {
			return nil, err
		}
		idx.Merge(installed)
	}
	return idx, nil
}

// fileList returns the package's own file list when it ships one, and the
// copied paths otherwise.
func fileList(staging string, copied []string) ([]string, error) {
	f, err := os.Open(filepath.Join(staging, manifest.FileListFile))
	if errors.Is(err, fs.ErrNotExist) {
		return copied, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading file list: %w", err)
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !manifest.IsMetadata(line) {
			files = append(files, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file list: %w", err)
	}
	return files, nil
}

// Purge removes the files recorded in the receipt of name, then any
// directories left empty by that, then the receipt. It returns the number
// of files removed; files already gone are ignored.
func (i *Installer) Purge(name string) (int, error) {
	logger := logging.Get("installer")
	r, err := LoadReceipt(i.Root, name)
	if err != nil {
		return 0, err
	}

	files := append([]string(nil), r.Files...)
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	removed := 0
	dirs := make(map[string]bool)
	for _, rel := range files {
		target, err := i.rootPath(rel)
		if err != nil {
			return removed, err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", target, err)
		} else if err == nil {
			removed++
		}
		for dir := filepath.Dir(target); dir != filepath.Clean(i.Root) && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			dirs[dir] = true
		}
	}

	// Deepest directories first so parents can become empty.
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(a, b int) bool { return len(ordered[a]) > len(ordered[b]) })
	for _, d := range ordered {
		if entries, err := os.ReadDir(d); err == nil && len(entries) == 0 {
			_ = os.Remove(d)
		}
	}

	if err := os.Remove(receiptPath(i.Root, name)); err != nil {
		return removed, fmt.Errorf("removing receipt: %w", err)
	}
	logger.Info().Str("package", r.String()).Int("files", removed).Msg("Purged package")
	return removed, nil
}

// rootPath resolves a receipt path below Root, refusing paths that leave it.
func (i *Installer) rootPath(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("receipt path %q escapes the root", rel)
	}
	return filepath.Join(i.Root, clean), nil
}

func (i *Installer) report(step, pkg string, err error) {
	if i.Progress == nil {
		return
	}
	w := i.Output
	if w == nil {
		w = io.Discard
	}
	i.Progress(w, step, pkg, err)
}

func (i *Installer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}
