// Package project implements project management commands for refperm.
package project

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/config"
)

// Cmd is the parent command for project management.
var Cmd = &cobra.Command{
	Use:   "project",
	Short: "Project management",
	Long: `Manage projects in the configured store.

Project commands create and remove projects, move them in the hierarchy
and edit their access rules. Changes go through the store's revision
check, so a concurrent edit makes the command fail instead of being lost.

Examples:
  # List all projects
  refperm project list

  # Create a project under the root
  refperm project create demo --owner developers

  # Move a project
  refperm project set-parent demo platform

  # Grant push on branches to a group
  refperm project grant demo 'refs/heads/*' push 'group developers'

  # Delete a project
  refperm project remove demo`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(setParentCmd)
	Cmd.AddCommand(setStateCmd)
	Cmd.AddCommand(grantCmd)
	Cmd.AddCommand(revokeCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(schemaCmd)
}

// editProject applies edit to the stored config of name and commits it
// against the revision it was read at, then evicts the cached state.
func editProject(ctx context.Context, e *config.Engine, name, message string, edit func(*access.ProjectConfig) error) (string, error) {
	cfg, err := e.Store.Load(ctx, name)
	if err != nil {
		return "", err
	}
	if err := edit(cfg); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	rev, err := e.Store.Commit(ctx, cfg, cfg.Revision, message)
	if err != nil {
		return "", fmt.Errorf("failed to update project %s: %w", name, err)
	}
	e.Cache.Evict(name)

	logger.Debug("Project updated", logger.KeyProject, name, "message", message)
	return rev, nil
}
