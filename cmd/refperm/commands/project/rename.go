package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a project",
	Long: `Rename a project. Children of the project are re-pointed at the new name.

The root project cannot be renamed.

Examples:
  refperm project rename platform/api platform/gateway`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	oldName, newName := args[0], args[1]

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if oldName == e.Cache.Root() {
		return fmt.Errorf("cannot rename the root project %s", oldName)
	}

	if err := e.Store.Rename(ctx, oldName, newName); err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}
	e.Cache.Rename(oldName, newName)
	// Children now carry a new parent in the store.
	e.Cache.EvictAll()

	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Project '%s' renamed to '%s'", oldName, newName))
	return nil
}
