package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/archive"
	"github.com/pkgr-labs/pkgr/internal/branding"
	"github.com/pkgr-labs/pkgr/internal/config"
	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/installer"
	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/paths"
)

var (
	checkTools      bool
	checkMirrors    bool
	checkRoot       bool
	checkDescriptor string
)

func init() {
	doctorCmd.Flags().BoolVar(&checkTools, "check-tools", false, "Verify the relocation tools are installed")
	doctorCmd.Flags().BoolVar(&checkMirrors, "check-mirrors", false, "Verify every mirror publishes a manifest")
	doctorCmd.Flags().BoolVar(&checkRoot, "check-root", false, "Verify every receipt in the install root is readable")
	doctorCmd.Flags().StringVar(&checkDescriptor, "check-descriptor", "", "Validate a descriptor file or the descriptor inside an archive")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the pkgr installation",
	Long:  `Run diagnostic checks on the pkgr configuration, tools, mirrors and install root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if checkDescriptor != "" {
			return runDescriptorCheck(out, checkDescriptor)
		}

		all := !checkTools && !checkMirrors && !checkRoot
		if all {
			runConfigCheck(out, e)
		}
		if all || checkTools {
			runToolsCheck(out, e)
		}
		if all || checkMirrors {
			runMirrorsCheck(cmd, e)
		}
		if all || checkRoot {
			runRootCheck(out, e)
		}
		return nil
	},
}

func runConfigCheck(w io.Writer, e *env) {
	fmt.Fprintln(w, "Configuration:")
	if _, err := os.Stat(config.FilePath()); err != nil {
		fmt.Fprintf(w, "  [INFO] %s not found, using defaults\n", config.FilePath())
	} else {
		fmt.Fprintf(w, "  [ OK ] %s\n", config.FilePath())
	}
	fmt.Fprintf(w, "  root      %s\n", e.settings.Root)
	fmt.Fprintf(w, "  packages  %s\n", e.settings.Packages)
	fmt.Fprintf(w, "  cache     %s\n", paths.CacheDir())
	fmt.Fprintf(w, "  platform  %s\n", e.engine().Platform.Name())
}

func runToolsCheck(w io.Writer, e *env) {
	fmt.Fprintln(w, "Tools check:")
	for _, name := range []string{e.rpathTool(), e.settings.Tools.File} {
		checkBinary(w, name)
	}
}

func checkBinary(w io.Writer, name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(w, "  [MISS] %s not found\n", name)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s found at %s\n", name, path)
}

func runMirrorsCheck(cmd *cobra.Command, e *env) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Mirrors check:")
	if len(e.settings.Mirrors) == 0 {
		fmt.Fprintln(w, "  [INFO] No mirrors configured")
		return
	}

	f := e.fetcher()
	for _, m := range e.settings.Mirrors {
		u := fetch.JoinURL(m, branding.ManifestName())
		size, _, err := f.Head(cmd.Context(), u)
		switch {
		case err != nil:
			fmt.Fprintf(w, "  [FAIL] %s: %v\n", m, err)
		case size >= 0:
			printer.Fprintf(w, "  [ OK ] %s (%d bytes)\n", m, size)
		default:
			fmt.Fprintf(w, "  [ OK ] %s\n", m)
		}
	}

	states := f.BreakerState()
	hosts := make([]string, 0, len(states))
	for h := range states {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	for _, h := range hosts {
		if states[h] == "open" {
			fmt.Fprintf(w, "  [WARN] circuit open for %s\n", h)
		}
	}
}

func runRootCheck(w io.Writer, e *env) {
	fmt.Fprintf(w, "Install root check: %s\n", e.settings.Root)
	receipts, err := installer.ListReceipts(e.settings.Root)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return
	}
	if len(receipts) == 0 {
		fmt.Fprintln(w, "  [INFO] No packages installed")
		return
	}

	local, err := manifest.Load(e.fs, e.localManifest())
	if err != nil {
		local = nil
	}
	for _, r := range receipts {
		if local != nil && r.Origin == local.Origin {
			if _, ok := local.ByArchive(r.Archive); !ok {
				fmt.Fprintf(w, "  [WARN] %s: %s is no longer in %s\n", r, r.Archive, local.Origin)
				continue
			}
		}
		missing := 0
		for _, f := range r.Files {
			if _, err := os.Lstat(filepath.Join(e.settings.Root, filepath.FromSlash(f))); err != nil {
				missing++
			}
		}
		if missing > 0 {
			printer.Fprintf(w, "  [WARN] %s: %d of %d files missing\n", r, missing, len(r.Files))
			continue
		}
		fmt.Fprintf(w, "  [ OK ] %s\n", r)
	}
}

func runDescriptorCheck(w io.Writer, path string) error {
	fmt.Fprintf(w, "Descriptor validation: %s\n", path)

	data, err := readDescriptorData(path)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return fmt.Errorf("descriptor validation failed: %w", err)
	}
	result, err := manifest.ValidateDescriptor(data)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return fmt.Errorf("descriptor validation failed: %w", err)
	}

	if result.Valid {
		d, err := manifest.ParseDescriptor(data)
		if err != nil {
			fmt.Fprintln(w, "  [ OK ] Valid descriptor")
			return nil
		}
		fmt.Fprintf(w, "  [ OK ] Valid descriptor: %s %s-%s\n", d.Name, d.Version, d.Revision)
		return nil
	}

	printer.Fprintf(w, "  [FAIL] %d validation issue(s):\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "    - %s\n", issue)
	}
	return fmt.Errorf("descriptor %s has %d validation issue(s)", path, len(result.Issues))
}

// readDescriptorData reads a descriptor file, or the descriptor member of
// an archive.
func readDescriptorData(path string) ([]byte, error) {
	if _, err := archive.DetectFormat(path); err != nil {
		return os.ReadFile(path)
	}
	scratch, err := os.MkdirTemp("", "pkgr-doctor-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	member, err := archive.New().ExtractMember(path, manifest.DescriptorFile, scratch)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(member)
}
