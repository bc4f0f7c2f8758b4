package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "0.4.0"
	Commit  = "unknown"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "specify",
	Short: "Spec-driven development toolkit",
	Long: `specify scaffolds spec-driven development projects and manages the
extensions that add commands to your coding agents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "specify %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug details to stderr")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Main runs the CLI and returns the process exit code. Errors are printed
// as one line on stderr, or as a JSON object on stdout under --json.
func Main() int {
	err := Execute()
	if err == nil {
		return 0
	}
	if wantsJSON() {
		writeJSONError(os.Stdout, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
	}
	return 1
}
