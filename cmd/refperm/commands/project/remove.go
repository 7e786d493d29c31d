package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a project",
	Long: `Remove a project.

Projects that still have children cannot be removed; reparent or remove the
children first. The root project cannot be removed.

Examples:
  refperm project remove demo
  refperm project remove demo --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if name == e.Cache.Root() {
		return fmt.Errorf("cannot remove the root project %s", name)
	}
	if _, err := e.Cache.Get(ctx, name); err != nil {
		return err
	}

	names, err := e.Cache.All(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		st, err := e.Cache.Get(ctx, n)
		if err != nil {
			continue
		}
		if st.Parent() == name {
			return fmt.Errorf("project %s still has child %s", name, n)
		}
	}

	return cmdutil.RunDeleteWithConfirmation(cmd.OutOrStdout(), "Project", name, removeForce, func() error {
		if err := e.Store.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to remove project: %w", err)
		}
		e.Cache.Remove(name)
		return nil
	})
}
