package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/access"
)

var setStateCmd = &cobra.Command{
	Use:   "set-state <name> <ACTIVE|READ_ONLY|HIDDEN>",
	Short: "Change the state of a project",
	Long: `Change the state of a project.

READ_ONLY denies every write whatever the access rules say. HIDDEN denies
everything to all callers except internal ones.

Examples:
  refperm project set-state legacy READ_ONLY`,
	Args: cobra.ExactArgs(2),
	RunE: runSetState,
}

func runSetState(cmd *cobra.Command, args []string) error {
	name := args[0]
	status, err := access.ParseProjectStatus(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	_, err = editProject(ctx, e, name, fmt.Sprintf("Set state to %s", status), func(cfg *access.ProjectConfig) error {
		cfg.Status = status
		return nil
	})
	if err != nil {
		return err
	}

	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Project '%s' is now %s", name, status))
	return nil
}
