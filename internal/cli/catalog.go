package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/branding"
	"github.com/pkgr-labs/pkgr/internal/manifest"
)

var (
	indexOutput string
	indexExt    string
)

func init() {
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "Manifest file to write (default <dir>/"+branding.ManifestName()+")")
	indexCmd.Flags().StringVar(&indexExt, "ext", "", "Archive extension to index (default from config)")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(refreshCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Write a manifest describing a directory of package archives",
	Long: `Scan a directory for package archives named <name>-<version>-<revision><ext>,
read the dependency list stored in each and write a manifest next to them.
The directory defaults to the configured packages directory. Publishing the
directory and its manifest over HTTP turns it into a mirror.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	dir := e.settings.Packages
	if len(args) > 0 {
		dir = args[0]
	}
	ext := indexExt
	if ext == "" {
		ext = e.settings.ArchiveExt
	}
	out := indexOutput
	if out == "" {
		out = filepath.Join(dir, branding.ManifestName())
	}

	m, err := manifest.BuildFromDirectory(dir, manifest.BuildOptions{
		FS:        e.fs,
		Ext:       ext,
		Extractor: archive.New(),
	})
	if err != nil {
		return err
	}
	if err := manifest.Save(e.fs, out, m); err != nil {
		return err
	}

	printer.Fprintf(cmd.OutOrStdout(), "%s Indexed %d packages into %s\n", markOK, m.Len(), out)
	return nil
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refetch every mirror manifest",
	Long: `Download the manifest of every configured mirror, replacing the cached
copies regardless of their age.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			return fmt.Errorf("refresh needs network access; drop --offline")
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}
		// Any cached copy is older than a nanosecond.
		e.settings.CacheMaxAge = 1
		cat, err := e.loadCatalog(cmd.Context(), e.fetcher())
		if err != nil {
			return err
		}
		printer.Fprintf(cmd.OutOrStdout(), "%s %d mirrors refreshed, %d packages available\n",
			markOK, len(e.settings.Mirrors), cat.Len())
		return nil
	},
}
