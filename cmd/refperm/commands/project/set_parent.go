package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
)

var setParentCmd = &cobra.Command{
	Use:   "set-parent <child> <parent>",
	Short: "Change the parent of a project",
	Long: `Change the parent of a project.

The root project cannot be reparented, and a project cannot be moved
under itself or one of its descendants.

Examples:
  refperm project set-parent platform/api platform`,
	Args: cobra.ExactArgs(2),
	RunE: runSetParent,
}

func runSetParent(cmd *cobra.Command, args []string) error {
	child, parent := args[0], args[1]

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Hierarchy.SetParent(ctx, child, parent); err != nil {
		return err
	}

	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Project '%s' now inherits from '%s'", child, parent))
	return nil
}
