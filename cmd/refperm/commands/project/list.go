package project

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/internal/logger"
)

var listPrefix string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long: `List projects in name order.

Examples:
  # List projects as table
  refperm project list

  # Only projects under platform/
  refperm project list --prefix platform/

  # List as JSON
  refperm project list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "Only list projects whose name starts with this prefix")
}

// Summary is one row of the project list.
type Summary struct {
	Name        string `json:"name" yaml:"name"`
	Parent      string `json:"parent,omitempty" yaml:"parent,omitempty"`
	State       string `json:"state" yaml:"state"`
	Sections    int    `json:"sections" yaml:"sections"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SummaryList is a list of projects for table rendering.
type SummaryList []Summary

// Headers implements TableRenderer.
func (sl SummaryList) Headers() []string {
	return []string{"NAME", "PARENT", "STATE", "SECTIONS", "DESCRIPTION"}
}

// Rows implements TableRenderer.
func (sl SummaryList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.Name,
			cmdutil.EmptyOr(s.Parent, "-"),
			s.State,
			strconv.Itoa(s.Sections),
			cmdutil.EmptyOr(s.Description, "-"),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	names, err := e.Cache.ByPrefix(ctx, listPrefix)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make(SummaryList, 0, len(names))
	for _, name := range names {
		st, err := e.Cache.Get(ctx, name)
		if err != nil {
			// Removed between listing and loading.
			logger.Warn("Skipping project", logger.KeyProject, name, logger.KeyError, err)
			continue
		}
		cfg := st.Config()
		projects = append(projects, Summary{
			Name:        st.Name(),
			Parent:      st.Parent(),
			State:       string(st.Status()),
			Sections:    len(cfg.AccessSections),
			Description: cfg.Description,
		})
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), projects, len(projects) == 0, "No projects found.", projects)
}
