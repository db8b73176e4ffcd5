package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/branding"
	"github.com/pkgr-labs/pkgr/internal/config"
	"github.com/pkgr-labs/pkgr/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbosity  int
	configPath string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs prebuilt package archives from local directories and
mirrors, resolving their dependencies and relocating embedded build prefixes
to the install root.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbosity, os.Stderr)
		config.BuildVersion = buildVersion
		if configPath != "" {
			config.SetFile(configPath)
		}
		return config.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.pkgr/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use cached mirror manifests only")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", branding.CLIName(), err)
	}
	return err
}
