package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
)

var grantExclusive bool

var grantCmd = &cobra.Command{
	Use:   "grant <name> <ref-pattern> <permission> <rule>",
	Short: "Add an access rule to a project",
	Long: `Add an access rule to a project.

The rule uses the same form as 'project show':

  [deny|block] [+force] [MIN..MAX] group NAME

A rule for a group that already has one on the same permission replaces
it. System groups are written by name, e.g. "Registered Users".

Examples:
  refperm project grant demo 'refs/heads/*' push 'group developers'
  refperm project grant demo 'refs/heads/*' push 'block +force group Registered Users'
  refperm project grant demo 'refs/heads/*' label-Code-Review '-2..+2 group leads'
  refperm project grant demo refs/meta/config read 'group Project Owners' --exclusive`,
	Args: cobra.ExactArgs(4),
	RunE: runGrant,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <name> <ref-pattern> <permission> <group>",
	Short: "Remove an access rule from a project",
	Long: `Remove the rule a group has on a permission under a ref pattern.

Examples:
  refperm project revoke demo 'refs/heads/*' push developers`,
	Args: cobra.ExactArgs(4),
	RunE: runRevoke,
}

func init() {
	grantCmd.Flags().BoolVar(&grantExclusive, "exclusive", false, "Mark the permission exclusive, masking inherited rules")
}

func runGrant(cmd *cobra.Command, args []string) error {
	name, pattern, permission := args[0], args[1], args[2]
	if !access.IsKnownName(permission) {
		return fmt.Errorf("unknown permission %q", permission)
	}
	rule, err := access.ParseRule(args[3])
	if err != nil {
		return err
	}
	rule.Group = identity.GroupRef(rule.Group.Name)

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	msg := fmt.Sprintf("Grant %s on %s: %s", permission, pattern, rule)
	_, err = editProject(ctx, e, name, msg, func(cfg *access.ProjectConfig) error {
		p := cfg.Grant(pattern, permission, rule)
		if grantExclusive {
			p.ExclusiveGroup = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Granted %s on %s in '%s'", permission, pattern, name))
	return nil
}

func runRevoke(cmd *cobra.Command, args []string) error {
	name, pattern, permission := args[0], args[1], args[2]
	group := identity.GroupRef(args[3])

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	msg := fmt.Sprintf("Revoke %s on %s from %s", permission, pattern, group)
	_, err = editProject(ctx, e, name, msg, func(cfg *access.ProjectConfig) error {
		s := cfg.Section(pattern)
		if s == nil {
			return fmt.Errorf("project %s has no section %s", name, pattern)
		}
		p := s.Permission(permission)
		if p == nil || !p.Remove(group) {
			return fmt.Errorf("%s has no %s rule on %s", group, permission, pattern)
		}
		if len(p.Rules) == 0 && !p.ExclusiveGroup {
			s.RemovePermission(permission)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Revoked %s on %s from %s in '%s'", permission, pattern, group, name))
	return nil
}
