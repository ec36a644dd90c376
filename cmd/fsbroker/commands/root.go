// Package commands implements the fsbroker server CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/cmd/fsbroker/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "fsbroker",
	Short: "fsbroker - remote file access broker",
	Long: `fsbroker serves files from a pluggable storage backend (local disk,
memory, BadgerDB or S3) to remote clients over a framed TCP protocol.
Clients open files, stream reads and writes by handle, and close them;
handles left open by a client are closed when its connection ends.

Use "fsbroker [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fsbroker/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
