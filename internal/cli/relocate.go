package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/relocate"
)

var (
	relocateNoRPath    bool
	relocateRelative   bool
	rpathLibs          string
	rpathDest          string
	rpathRelative      bool
	rpathSet           bool
	prefixesWatched    []string
	prefixesDryRun     bool
	prefixesUseSniffer bool
)

func init() {
	relocateCmd.Flags().BoolVar(&relocateNoRPath, "no-rpath", false, "Do not recompute search paths of binaries")
	relocateCmd.Flags().BoolVar(&relocateRelative, "relative", false, "Use origin-relative search paths (default from config)")

	rpathCmd.Flags().StringVar(&rpathLibs, "libs", "", "Tree whose shared libraries the binary links against")
	rpathCmd.Flags().StringVar(&rpathDest, "dest", "", "Root the library tree will be installed at (default --libs)")
	rpathCmd.Flags().BoolVar(&rpathRelative, "relative", false, "Express directories relative to the binary")
	rpathCmd.Flags().BoolVar(&rpathSet, "set", false, "Store the computed search path in the binary")
	_ = rpathCmd.MarkFlagRequired("libs")

	prefixesCmd.Flags().StringSliceVar(&prefixesWatched, "prefix", nil, "Build prefix to look for (repeatable, default from config)")
	prefixesCmd.Flags().BoolVar(&prefixesDryRun, "dry-run", false, "Print the entries without writing the prefix lists")
	prefixesCmd.Flags().BoolVar(&prefixesUseSniffer, "file", true, "Classify files with file(1) when it is installed")

	rootCmd.AddCommand(relocateCmd, rpathCmd, prefixesCmd)
}

var relocateCmd = &cobra.Command{
	Use:   "relocate <extracted-root> <dest-root>",
	Short: "Rewrite the build prefixes of an extracted package",
	Long: `Rewrite every file listed in the prefix lists of an extracted package so it
refers to dest-root instead of the prefix it was built with. Binaries keep
their size: the new prefix must not be longer than the old one. Unless
--no-rpath is given, binaries also get their shared-library search path
recomputed from the libraries in the extracted tree.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		extracted, dest := args[0], args[1]

		opts := relocate.Options{
			AutoRPath: e.settings.RPath.Auto && !relocateNoRPath,
			Relative:  e.settings.RPath.Relative || relocateRelative,
		}
		report, err := e.engine().RelocateTree(cmd.Context(), dest, extracted, opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, f := range report.Rewritten {
			fmt.Fprintf(out, "  %s %s\n", markOK, f)
			if rp, ok := report.RPaths[f]; ok {
				fmt.Fprintf(out, "      rpath %s\n", rp)
			}
		}
		for _, f := range report.Unchanged {
			fmt.Fprintf(out, "  - %s (prefix not found)\n", f)
		}
		printer.Fprintf(out, "%d files rewritten, %d unchanged\n", len(report.Rewritten), len(report.Unchanged))
		return nil
	},
}

var rpathCmd = &cobra.Command{
	Use:   "rpath <binary>",
	Short: "Compute the search path a binary needs",
	Long: `Compute the shared-library search path that lets a binary find the libraries
it links against in a library tree, once that tree is installed at --dest.
With --relative the directories are expressed relative to the binary, which
must then live inside the tree. With --set the value is stored in the binary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		binary := args[0]
		engine := e.engine()
		if !engine.Platform.IsBinary(binary) {
			return fmt.Errorf("%s is not a %s binary: %w", binary, engine.Platform.Name(), relocate.ErrUnsupportedPlatform)
		}

		idx, err := relocate.IndexLibraries(e.fs, rpathLibs)
		if err != nil {
			return err
		}
		dest := rpathDest
		if dest == "" {
			dest = rpathLibs
		}

		var value string
		if rpathRelative {
			value, err = engine.ComputeRelativeRPath(binary, idx)
		} else {
			value, err = engine.ComputeRPath(binary, idx, dest)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)

		if !rpathSet {
			return nil
		}
		if value == "" {
			return errors.New("no indexed library is needed; nothing to set")
		}
		return engine.SetRPath(cmd.Context(), binary, value)
	},
}

var prefixesCmd = &cobra.Command{
	Use:   "prefixes <root>",
	Short: "Record which files embed a build prefix",
	Long: `Scan a staged tree for files containing any of the watched build prefixes and
write the binary and text prefix lists relocation reads at install time.
Longer prefixes are matched first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		root := args[0]
		watched := prefixesWatched
		if len(watched) == 0 {
			watched = e.settings.WatchedPrefixes
		}
		if len(watched) == 0 {
			return errors.New("no prefixes given: pass --prefix or set watched_prefixes")
		}

		var sniffer relocate.Sniffer = relocate.ContentSniffer{FS: e.fs}
		if prefixesUseSniffer {
			sniffer = e.sniffer()
		}
		bin, text, err := relocate.Generate(cmd.Context(), e.fs, root, watched, sniffer)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if prefixesDryRun {
			printEntries(out, "binary", bin)
			printEntries(out, "text", text)
			return nil
		}
		if err := relocate.WriteLists(e.fs, root, bin, text); err != nil {
			return err
		}
		printer.Fprintf(out, "%s %d binary and %d text entries written to %s\n", markOK, len(bin), len(text), filepath.Clean(root))
		return nil
	},
}

func printEntries(w io.Writer, kind string, entries []relocate.Entry) {
	sorted := append([]relocate.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for _, en := range sorted {
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, en.Prefix, en.Path)
	}
}
