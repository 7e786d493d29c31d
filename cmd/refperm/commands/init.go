package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample refperm configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/refperm/config.yaml.
Use --config to specify a custom path. The root project is created with
default access rules the first time any command opens the store.

Examples:
  # Initialize with default location
  refperm init

  # Initialize with custom path
  refperm init --config /etc/refperm/config.yaml

  # Force overwrite existing config
  refperm init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := cmdutil.Flags.ConfigFile

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to add users and groups")
	_, _ = fmt.Fprintln(out, "  2. Create a project with: refperm project create <name>")
	_, _ = fmt.Fprintln(out, "  3. Check a permission with: refperm check ref --user admin --project <name> --ref refs/heads/main --permission UPDATE")
	return nil
}
