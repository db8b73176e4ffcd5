package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/version"
)

var (
	searchJSON bool
	listJSON   bool
	showJSON   bool
)

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd, listCmd, showCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <spec>",
	Short: "List every available package satisfying a specifier",
	Long: `List every package in the local manifest and the mirror manifests that
satisfies a specifier such as "zlib", "zlib>=1.2" or "openssl~=3.0".
Packages are grouped by origin in priority order, oldest version first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := version.ParseSpecifier(args[0])
		if err != nil {
			return err
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}
		cat, err := e.loadCatalog(cmd.Context(), e.fetcher())
		if err != nil {
			return err
		}

		pkgs := cat.SearchAll(spec)
		if len(pkgs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No packages match %s.\n", spec)
			return nil
		}
		return printPackages(cmd.OutOrStdout(), toEntries(pkgs), searchJSON)
	},
}

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List available packages",
	Long:  `List the available packages whose name contains pattern, or all of them.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}
		cat, err := e.loadCatalog(cmd.Context(), e.fetcher())
		if err != nil {
			return err
		}

		pkgs := cat.List(pattern)
		if len(pkgs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No packages available.")
			return nil
		}
		return printPackages(cmd.OutOrStdout(), toEntries(pkgs), listJSON)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <spec>",
	Short: "Show the package a specifier selects",
	Long: `Show the package install would pick for a specifier: the newest match of the
highest-priority origin offering one. For local archives the stored
descriptor (summary, license, homepage) is shown as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := version.ParseSpecifier(args[0])
		if err != nil {
			return err
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}
		cat, err := e.loadCatalog(cmd.Context(), e.fetcher())
		if err != nil {
			return err
		}
		p, err := cat.Search(spec)
		if err != nil {
			return err
		}

		entry := toEntry(*p)
		if !p.Remote() {
			if d, err := manifest.ReadDescriptor(archive.New(), p.ArchiveLocation()); err == nil {
				entry.Summary, entry.License, entry.Homepage = d.Summary, d.License, d.Homepage
			}
		}
		if showJSON {
			return writeJSON(cmd.OutOrStdout(), entry)
		}
		return printShow(cmd.OutOrStdout(), entry)
	},
}

// packageEntry represents an available package for display.
type packageEntry struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Revision     string   `json:"revision"`
	Archive      string   `json:"archive"`
	Origin       string   `json:"origin"`
	Size         int64    `json:"size"`
	Checksum     string   `json:"checksum,omitempty"`
	PURL         string   `json:"purl"`
	Requirements []string `json:"requirements,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	License      string   `json:"license,omitempty"`
	Homepage     string   `json:"homepage,omitempty"`
}

func toEntry(p manifest.Package) packageEntry {
	return packageEntry{
		Name:         p.Name,
		Version:      p.Version,
		Revision:     p.Revision,
		Archive:      p.Archive,
		Origin:       p.Origin,
		Size:         p.Size,
		Checksum:     p.Checksum,
		PURL:         p.PURL(),
		Requirements: p.Requirements,
	}
}

func toEntries(pkgs []manifest.Package) []packageEntry {
	entries := make([]packageEntry, len(pkgs))
	for i, p := range pkgs {
		entries[i] = toEntry(p)
	}
	return entries
}

func printPackages(w io.Writer, entries []packageEntry, asJSON bool) error {
	if asJSON {
		return writeJSON(w, entries)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tREVISION\tORIGIN")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Revision, e.Origin)
	}
	return tw.Flush()
}

func printShow(w io.Writer, e packageEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("Name", e.Name)
	row("Version", e.Version)
	row("Revision", e.Revision)
	row("Summary", e.Summary)
	row("License", e.License)
	row("Homepage", e.Homepage)
	row("Archive", e.Archive)
	row("Origin", e.Origin)
	row("Size", printer.Sprintf("%d bytes", e.Size))
	row("SHA-256", e.Checksum)
	row("PURL", e.PURL)
	for i, req := range e.Requirements {
		label := ""
		if i == 0 {
			label = "Requires:"
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, req)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
