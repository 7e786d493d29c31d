package project

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/internal/cli/output"
	"github.com/marmos91/refperm/pkg/access"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a project",
	Long: `Show a project's settings and its local access rules.

JSON and YAML output print the stored project configuration, which can be
edited and placed in a yaml store directory as is.

Examples:
  refperm project show demo
  refperm project show demo -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// RuleList flattens the access sections of a project for table rendering.
type RuleList []*access.AccessSection

// Headers implements TableRenderer.
func (rl RuleList) Headers() []string {
	return []string{"REF", "PERMISSION", "EXCLUSIVE", "RULE"}
}

// Rows implements TableRenderer.
func (rl RuleList) Rows() [][]string {
	var rows [][]string
	for _, s := range rl {
		for _, p := range s.Permissions {
			exclusive := cmdutil.BoolToYesNo(p.ExclusiveGroup)
			if len(p.Rules) == 0 {
				rows = append(rows, []string{s.Name, p.Name, exclusive, "-"})
				continue
			}
			for _, r := range p.Rules {
				rows = append(rows, []string{s.Name, p.Name, exclusive, r.String()})
			}
		}
	}
	return rows
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := e.Cache.Get(ctx, args[0])
	if err != nil {
		return err
	}
	cfg := st.Config()

	p, err := cmdutil.NewPrinter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(cfg)
	}

	owners, err := e.Hierarchy.EffectiveOwnerGroups(ctx, st.Name())
	if err != nil {
		return err
	}
	ownerNames := make([]string, 0, len(owners))
	for _, g := range owners {
		ownerNames = append(ownerNames, g.String())
	}
	labels := make([]string, 0, len(cfg.LabelTypes))
	for _, l := range cfg.LabelTypes {
		labels = append(labels, l.Name)
	}

	w := cmd.OutOrStdout()
	if err := output.SimpleTable(w, [][2]string{
		{"Name", st.Name()},
		{"Parent", cmdutil.EmptyOr(st.Parent(), "-")},
		{"State", string(st.Status())},
		{"Revision", cmdutil.EmptyOr(st.Revision(), "-")},
		{"Description", cmdutil.EmptyOr(cfg.Description, "-")},
		{"Owners", cmdutil.EmptyOr(strings.Join(ownerNames, ", "), "-")},
		{"Labels", cmdutil.EmptyOr(strings.Join(labels, ", "), "-")},
		{"Sections", strconv.Itoa(len(cfg.AccessSections))},
	}); err != nil {
		return err
	}

	rules := RuleList(cfg.AccessSections)
	if len(rules.Rows()) == 0 {
		return nil
	}
	p.Println()
	return output.PrintTable(w, rules)
}
