package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/fsutil"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/relocate"
	"github.com/pkgr-labs/pkgr/internal/version"
)

// PackOptions describes a package to build from a staged tree.
type PackOptions struct {
	// Dir is the staged tree, laid out as it will be installed.
	Dir      string
	Name     string
	Version  string
	Revision string
	// OutDir receives the archive; defaults to the parent of Dir.
	OutDir string
	// Ext selects the archive format, e.g. ".tar.gz".
	Ext     string
	Depends []string
	// Prefixes are the build prefixes to record for relocation.
	Prefixes []string
	Sniffer  relocate.Sniffer
	// Descriptor, when set, is validated and stored in the archive.
	Descriptor *manifest.Descriptor
}

// Pack writes the metadata files into opts.Dir and archives it. It returns
// the path of the archive.
func Pack(ctx context.Context, opts PackOptions) (string, error) {
	logger := logging.Get("installer")
	done := logging.Operation(logger, "pack")
	defer done()

	if opts.Name == "" || opts.Version == "" || opts.Revision == "" {
		return "", errors.New("pack: name, version and revision are required")
	}
	if strings.Contains(opts.Revision, "-") {
		return "", fmt.Errorf("pack: revision %q must not contain '-'", opts.Revision)
	}
	if opts.Ext == "" {
		opts.Ext = ".tar.gz"
	}
	if opts.OutDir == "" {
		opts.OutDir = filepath.Dir(filepath.Clean(opts.Dir))
	}
	if opts.Sniffer == nil {
		opts.Sniffer = relocate.ContentSniffer{}
	}
	fsys := afero.NewOsFs()

	for _, d := range opts.Depends {
		if _, err := version.ParseSpecifier(d); err != nil {
			return "", fmt.Errorf("pack: invalid requirement %q: %w", d, err)
		}
	}

	// Stale metadata from an earlier run must not end up in the lists.
	for _, name := range manifest.MetadataFiles {
		if err := os.Remove(filepath.Join(opts.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("pack: %w", err)
		}
	}

	files, err := fsutil.ListTree(fsys, opts.Dir, fsutil.Filter{FilesOnly: true, Skip: manifest.IsMetadata})
	if err != nil {
		return "", err
	}

	if len(opts.Depends) > 0 {
		f, err := os.Create(filepath.Join(opts.Dir, manifest.DependsFile))
		if err != nil {
			return "", fmt.Errorf("pack: %w", err)
		}
		if err := manifest.WriteRequirements(f, opts.Depends); err != nil {
			f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("pack: %w", err)
		}
	}

	if len(opts.Prefixes) > 0 {
		bin, text, err := relocate.Generate(ctx, fsys, opts.Dir, opts.Prefixes, opts.Sniffer)
		if err != nil {
			return "", err
		}
		if err := relocate.WriteLists(fsys, opts.Dir, bin, text); err != nil {
			return "", err
		}
		logger.Debug().Int("binary", len(bin)).Int("text", len(text)).Msg("Recorded prefixes")
	}

	var list strings.Builder
	for _, f := range files {
		list.WriteString(f.Path + "\n")
	}
	if err := os.WriteFile(filepath.Join(opts.Dir, manifest.FileListFile), []byte(list.String()), 0644); err != nil {
		return "", fmt.Errorf("pack: %w", err)
	}

	if d := opts.Descriptor; d != nil {
		d.Name, d.Version, d.Revision = opts.Name, opts.Version, opts.Revision
		if d.Depends == nil {
			d.Depends = opts.Depends
		}
		data, err := d.Marshal()
		if err != nil {
			return "", fmt.Errorf("pack: encoding descriptor: %w", err)
		}
		result, err := manifest.ValidateDescriptor(data)
		if err != nil {
			return "", err
		}
		if !result.Valid {
			msgs := make([]string, len(result.Issues))
			for i, issue := range result.Issues {
				msgs[i] = issue.String()
			}
			return "", fmt.Errorf("pack: invalid descriptor: %s", strings.Join(msgs, "; "))
		}
		if err := os.WriteFile(filepath.Join(opts.Dir, manifest.DescriptorFile), data, 0644); err != nil {
			return "", fmt.Errorf("pack: %w", err)
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return "", fmt.Errorf("pack: %w", err)
	}
	out := filepath.Join(opts.OutDir, manifest.ArchiveName(opts.Name, opts.Version, opts.Revision, opts.Ext))
	if err := archive.New().Create(out, opts.Dir); err != nil {
		return "", err
	}
	logger.Info().Str("archive", out).Int("files", len(files)).Msg("Packed")
	return out, nil
}
