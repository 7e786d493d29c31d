package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/specificity"
)

var (
	explainUser    string
	explainProject string
	explainRef     string
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "List the access sections that apply to a ref",
	Long: `List the access sections of a project and its ancestors that match a
ref, most specific first, with the key each was ordered by.

Sections are ordered by edit distance between the ref and the pattern's
shortest example, then finite before infinite, then fewer transitions,
then the pattern text. Ties keep hierarchy order, child first.

Examples:
  refperm explain --project demo --ref refs/heads/master
  refperm explain --project demo --ref refs/users/01/1000001 --user alice -o yaml`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainUser, "user", "", "Username, for parameterized patterns (default: anonymous)")
	explainCmd.Flags().StringVar(&explainProject, "project", "", "Project name")
	explainCmd.Flags().StringVar(&explainRef, "ref", "", "Ref name")
	_ = explainCmd.MarkFlagRequired("project")
	_ = explainCmd.MarkFlagRequired("ref")
}

// MatchedSection is one row of the explain output.
type MatchedSection struct {
	Project     string              `json:"project" yaml:"project"`
	Key         specificity.SortKey `json:"key" yaml:"key"`
	Permissions []string            `json:"permissions" yaml:"permissions"`
}

// MatchedSectionList is a list of matched sections for table rendering.
type MatchedSectionList []MatchedSection

// Headers implements TableRenderer.
func (ml MatchedSectionList) Headers() []string {
	return []string{"#", "PROJECT", "PATTERN", "KIND", "DISTANCE", "FINITE", "PERMISSIONS"}
}

// Rows implements TableRenderer.
func (ml MatchedSectionList) Rows() [][]string {
	rows := make([][]string, 0, len(ml))
	for i, m := range ml {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Project,
			m.Key.Pattern,
			m.Key.Kind,
			strconv.Itoa(m.Key.Distance),
			cmdutil.BoolToYesNo(m.Key.Finite),
			cmdutil.EmptyOr(strings.Join(m.Permissions, ", "), "-"),
		})
	}
	return rows
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := cmdutil.ResolveUser(ctx, e, explainUser)
	if err != nil {
		return err
	}

	pc, err := e.Backend.ControlFor(ctx, user, explainProject)
	if err != nil {
		return err
	}

	sections := pc.MatchingSections(explainRef)
	matched := make(MatchedSectionList, 0, len(sections))
	for _, s := range sections {
		perms := make([]string, 0, len(s.Section.Permissions))
		for _, p := range s.Section.Permissions {
			perms = append(perms, p.Name)
		}
		matched = append(matched, MatchedSection{
			Project:     s.Project,
			Key:         specificity.Key(explainRef, s.Pattern()),
			Permissions: perms,
		})
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), matched, len(matched) == 0, "No sections match.", matched)
}
