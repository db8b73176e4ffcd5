package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/resolver"
	"github.com/pkgr-labs/pkgr/internal/version"
)

var depsTree bool

func init() {
	depsCmd.Flags().BoolVar(&depsTree, "tree", false, "Print the dependency tree instead of the install order")
	rootCmd.AddCommand(depsCmd)
}

var depsCmd = &cobra.Command{
	Use:   "deps <spec>",
	Short: "Resolve the dependencies of a package",
	Long: `Resolve a specifier and its requirements recursively against the catalog.
By default the packages are printed in install order, dependencies first.
With --tree the requirement tree is drawn; subtrees already shown are
marked [*] and requirements that close a cycle are marked [cycle].`,
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

		out := cmd.OutOrStdout()
		if depsTree {
			root, err := resolver.BuildTree(cat, spec)
			if err != nil {
				return err
			}
			return resolver.PrintTree(out, root)
		}

		res, err := resolver.New(cat).Resolve(spec)
		if err != nil {
			return err
		}
		for i, p := range res.Packages {
			fmt.Fprintf(out, "%3d. %s\n", i+1, p)
		}
		for _, c := range res.Cycles {
			fmt.Fprintf(out, "%s cycle: %s\n", markWarn, c)
		}
		return nil
	},
}
