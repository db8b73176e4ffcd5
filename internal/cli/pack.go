package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgr-labs/pkgr/internal/installer"
	"github.com/pkgr-labs/pkgr/internal/manifest"
)

var (
	packOut      string
	packExt      string
	packDepends  []string
	packPrefixes []string
	packDesc     manifest.Descriptor
	packNoDesc   bool
)

func init() {
	f := packCmd.Flags()
	f.StringVarP(&packOut, "output", "o", "", "Directory to write the archive to (default: parent of dir)")
	f.StringVar(&packExt, "ext", "", "Archive extension (default from config)")
	f.StringSliceVarP(&packDepends, "depends", "d", nil, "Requirement such as zlib>=1.2 (repeatable)")
	f.StringSliceVar(&packPrefixes, "prefix", nil, "Build prefix to record for relocation (repeatable, default from config)")
	f.StringVar(&packDesc.Summary, "summary", "", "One-line package summary")
	f.StringVar(&packDesc.License, "license", "", "SPDX license expression")
	f.StringVar(&packDesc.Homepage, "homepage", "", "Project homepage URL")
	f.StringVar(&packDesc.Maintainer, "maintainer", "", "Package maintainer")
	f.StringVar(&packDesc.BuildPrefix, "build-prefix", "", "Prefix the package was configured with")
	f.BoolVar(&packNoDesc, "no-descriptor", false, "Do not store a descriptor in the archive")
	rootCmd.AddCommand(packCmd)
}

var packCmd = &cobra.Command{
	Use:   "pack <dir> <name> <version> <revision>",
	Short: "Build a package archive from a staged tree",
	Long: `Archive a staged tree laid out as it will be installed. The archive is named
<name>-<version>-<revision><ext> and carries the dependency list, the prefix
lists used for relocation, the file list and a validated descriptor.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		opts := installer.PackOptions{
			Dir:      args[0],
			Name:     args[1],
			Version:  args[2],
			Revision: args[3],
			OutDir:   packOut,
			Ext:      packExt,
			Depends:  packDepends,
			Prefixes: packPrefixes,
			Sniffer:  e.sniffer(),
		}
		if opts.Ext == "" {
			opts.Ext = e.settings.ArchiveExt
		}
		if len(opts.Prefixes) == 0 {
			opts.Prefixes = e.settings.WatchedPrefixes
		}
		if len(opts.Prefixes) == 0 && packDesc.BuildPrefix != "" {
			opts.Prefixes = []string{packDesc.BuildPrefix}
		}
		if !packNoDesc {
			d := packDesc
			opts.Descriptor = &d
		}

		out, err := installer.Pack(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", markOK, out)
		return nil
	},
}
