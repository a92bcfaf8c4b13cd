package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set via -ldflags at release time.
var (
	Version   = "unknown"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "staffdesk %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit:     %s\n", Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:      %s\n", BuildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "  go version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
