package main

import (
	goflag "flag"

	"github.com/spf13/cobra"
)

// GetRootCmd returns the root of the cobra command-tree.
func GetRootCmd(args []string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "loom",
		Short:        "Server-side UI runtime tooling.",
		Long:         "Compile markup templates, render them to HTML and serve live sessions.",
		SilenceUsage: true,
	}
	rootCmd.SetArgs(args)
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd
}
