package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/internal/cli/output"
	"github.com/marmos91/refperm/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective refperm configuration, with defaults and
environment overrides applied.

Table output is rendered as YAML.

Examples:
  # Show default config as YAML
  refperm config show

  # Show as JSON
  refperm config show -o json

  # Show specific config file
  refperm config show --config /etc/refperm/config.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(cmdutil.Flags.ConfigFile)
	if err != nil {
		return err
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
