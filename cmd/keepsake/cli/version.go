package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of keepsake",
	// Version needs no config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "keepsake %s\n", version)
		if commit != "none" {
			fmt.Fprintf(out, "  commit: %s\n", commit)
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Fprintf(out, "  go:     %s\n", info.GoVersion)
		}
	},
}
