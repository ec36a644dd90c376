// Package commands implements the fsbrokerctl client CLI.
package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/cmd/fsbrokerctl/cmdutil"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "fsbrokerctl",
	Short: "fsbroker client",
	Long: `fsbrokerctl talks to an fsbroker: it reads and writes files over the
broker protocol and inspects the broker through its operator API.

Use "fsbrokerctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Addr, _ = cmd.Flags().GetString("addr")
		cmdutil.Flags.APIURL, _ = cmd.Flags().GetString("api")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	rootCmd.PersistentFlags().String("addr", envOr("FSBROKER_ADDR", "127.0.0.1:9400"), "Broker address (env FSBROKER_ADDR)")
	rootCmd.PersistentFlags().String("api", envOr("FSBROKER_API", "http://127.0.0.1:9401"), "Operator API URL (env FSBROKER_API)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Overall timeout per command (0 disables)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(handlesCmd)
}
