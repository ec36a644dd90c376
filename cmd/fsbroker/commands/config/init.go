package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Write a configuration file populated with default values.

By default the file is created at $XDG_CONFIG_HOME/fsbroker/config.yaml.
Use --config to choose another path.

Examples:
  fsbroker config init
  fsbroker config init --config /etc/fsbroker/config.yaml
  fsbroker config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Choose a backend under backend.type and fill in its section")
	_, _ = fmt.Fprintf(out, "  2. Start the broker with: fsbroker start --config %s\n", configPath)
	return nil
}
