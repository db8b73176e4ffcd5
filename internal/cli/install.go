package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/version"
)

var (
	installRoot   string
	installNoDeps bool
	installYes    bool
)

var installCmd = &cobra.Command{
	Use:   "install <spec>...",
	Short: "Install packages and their dependencies",
	Long: `Install the packages selected by one or more specifiers into the install root.
Dependencies are resolved and installed first; use --no-deps to install only
the named packages. Each archive is verified, extracted, relocated from its
build prefix to the root and recorded in a receipt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installRoot, "root", "", "Install root (default from config)")
	installCmd.Flags().BoolVar(&installNoDeps, "no-deps", false, "Install only the named packages, skip dependencies")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	specs, err := parseSpecs(args)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	root := e.settings.Root
	if installRoot != "" {
		root = installRoot
	}

	f := e.fetcher()
	cat, err := e.loadCatalog(cmd.Context(), f)
	if err != nil {
		return err
	}
	inst := e.installer(cat, f, root)
	out := cmd.OutOrStdout()
	inst.Output = out
	inst.Progress = progress(verbosity > 0)

	plan, err := inst.Plan(specs, installNoDeps)
	if err != nil {
		return err
	}
	if len(plan.Packages) == 0 {
		fmt.Fprintln(out, "Nothing to install: all packages are already installed.")
		return nil
	}

	printPlan(out, plan)
	if !installYes {
		ok, err := confirmer(os.Stdin, out)(plan)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Installation cancelled.")
			return nil
		}
	}

	fmt.Fprintf(out, "Installing into %s...\n", root)
	result, err := inst.Install(cmd.Context(), plan)
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  %s %s\n", markWarn, w)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	printer.Fprintf(out, "%s Installed %d packages (%d files).", markOK, result.Installed, result.Files)
	if result.Skipped > 0 {
		printer.Fprintf(out, " %d already installed (skipped).", result.Skipped)
	}
	fmt.Fprintln(out)
	return nil
}

func parseSpecs(args []string) ([]version.Specifier, error) {
	specs := make([]version.Specifier, 0, len(args))
	for _, a := range args {
		spec, err := version.ParseSpecifier(a)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
