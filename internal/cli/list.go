package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/installer"
)

var (
	installedRoot  string
	installedJSON  bool
	installedFiles bool
)

var installedCmd = &cobra.Command{
	Use:   "installed [name]",
	Short: "List installed packages",
	Long: `List the packages recorded in the receipts of the install root. With a
package name and --files, print the files that package installed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstalled,
}

func init() {
	installedCmd.Flags().StringVar(&installedRoot, "root", "", "Install root (default from config)")
	installedCmd.Flags().BoolVar(&installedJSON, "json", false, "Output in JSON format")
	installedCmd.Flags().BoolVar(&installedFiles, "files", false, "List the files of the named package")
	rootCmd.AddCommand(installedCmd)
}

// installedEntry represents an installed package for display.
type installedEntry struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Revision    string    `json:"revision"`
	Origin      string    `json:"origin,omitempty"`
	Files       int       `json:"files"`
	InstalledAt time.Time `json:"installed_at"`
}

func runInstalled(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	root := e.settings.Root
	if installedRoot != "" {
		root = installedRoot
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		r, err := installer.LoadReceipt(root, args[0])
		if err != nil {
			return err
		}
		if installedFiles {
			for _, f := range r.Files {
				fmt.Fprintln(out, f)
			}
			return nil
		}
		return printInstalled(out, []*installer.Receipt{r})
	}

	receipts, err := installer.ListReceipts(root)
	if err != nil {
		return err
	}
	if len(receipts) == 0 {
		fmt.Fprintf(out, "No packages installed in %s.\n", root)
		return nil
	}
	return printInstalled(out, receipts)
}

func printInstalled(w io.Writer, receipts []*installer.Receipt) error {
	entries := make([]installedEntry, len(receipts))
	for i, r := range receipts {
		entries[i] = installedEntry{
			Name:        r.Name,
			Version:     r.Version,
			Revision:    r.Revision,
			Origin:      r.Origin,
			Files:       len(r.Files),
			InstalledAt: r.InstalledAt,
		}
	}
	if installedJSON {
		return writeJSON(w, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tREVISION\tFILES\tINSTALLED")
	for _, e := range entries {
		printer.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.Name, e.Version, e.Revision, e.Files, e.InstalledAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
