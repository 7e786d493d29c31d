package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load the configuration file and run every validation rule on it.

Examples:
  refperm config validate
  refperm config validate --config /etc/refperm/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// MustLoad validates after applying defaults.
	if _, err := config.MustLoad(cmdutil.Flags.ConfigFile); err != nil {
		return err
	}

	path := cmdutil.Flags.ConfigFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Configuration %s is valid", path))
	return nil
}
