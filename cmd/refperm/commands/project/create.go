package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/refpattern"
)

var (
	createParent      string
	createDescription string
	createOwners      []string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Long: `Create an empty project.

The project inherits from --parent, or from the root project when no parent
is given. Each --owner group is granted owner on refs/*.

Examples:
  refperm project create demo
  refperm project create platform/api --parent platform --owner api-maintainers`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createParent, "parent", "", "Parent project (default: the root project)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Project description")
	createCmd.Flags().StringSliceVar(&createOwners, "owner", nil, "Groups to grant owner on refs/* (comma-separated)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	parent := createParent
	if parent == "" {
		parent = e.Cache.Root()
	}
	if _, err := e.Cache.Get(ctx, parent); err != nil {
		return fmt.Errorf("parent %s: %w", parent, err)
	}

	cfg := access.NewProjectConfig(name)
	cfg.Parent = parent
	cfg.Description = createDescription
	for _, owner := range createOwners {
		cfg.Grant(refpattern.AllRefs, access.Owner, access.NewRule(identity.GroupRef(owner)))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := e.Store.Create(ctx, cfg); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	e.Cache.OnCreateProject(name)

	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), cfg,
		fmt.Sprintf("Project '%s' created under '%s'", name, parent))
}
