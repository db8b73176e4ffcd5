package cli

import (
	"github.com/spf13/cobra"
)

var purgeRoot string

var purgeCmd = &cobra.Command{
	Use:     "purge <name>...",
	Aliases: []string{"uninstall", "remove"},
	Short:   "Remove installed packages",
	Long: `Remove the files recorded in each package's receipt, any directories left
empty, and the receipt itself.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&purgeRoot, "root", "", "Install root (default from config)")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	root := e.settings.Root
	if purgeRoot != "" {
		root = purgeRoot
	}

	inst := e.installer(nil, nil, root)
	for _, name := range args {
		n, err := inst.Purge(name)
		if err != nil {
			return err
		}
		printer.Fprintf(cmd.OutOrStdout(), "%s Removed %s (%d files)\n", markOK, name, n)
	}
	return nil
}
