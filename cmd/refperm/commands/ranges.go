package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/access"
)

var (
	rangesUser        string
	rangesProject     string
	rangesRef         string
	rangesChangeOwner bool
)

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Show the label vote ranges a user may cast on a ref",
	Long: `Show the label vote ranges a user may cast on a ref.

Ranges are the union of every matching allow rule, narrowed by block
rules. With --change-owner, rules granted to "Change Owner" also apply.

Examples:
  refperm ranges --user alice --project demo --ref refs/heads/master
  refperm ranges --user alice --project demo --ref refs/heads/master --change-owner -o json`,
	RunE: runRanges,
}

func init() {
	rangesCmd.Flags().StringVar(&rangesUser, "user", "", "Username (default: anonymous)")
	rangesCmd.Flags().StringVar(&rangesProject, "project", "", "Project name")
	rangesCmd.Flags().StringVar(&rangesRef, "ref", "", "Ref name")
	rangesCmd.Flags().BoolVar(&rangesChangeOwner, "change-owner", false, "Evaluate as the owner of the change")
	_ = rangesCmd.MarkFlagRequired("project")
	_ = rangesCmd.MarkFlagRequired("ref")
}

// RangeList is a list of label ranges for table rendering.
type RangeList []access.PermissionRange

// Headers implements TableRenderer.
func (rl RangeList) Headers() []string {
	return []string{"LABEL", "MIN", "MAX"}
}

// Rows implements TableRenderer.
func (rl RangeList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, r := range rl {
		rows = append(rows, []string{r.Name, strconv.Itoa(r.Min), strconv.Itoa(r.Max)})
	}
	return rows
}

func runRanges(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := cmdutil.ResolveUser(ctx, e, rangesUser)
	if err != nil {
		return err
	}

	pc, err := e.Backend.ControlFor(ctx, user, rangesProject)
	if err != nil {
		return err
	}

	ranges := RangeList(pc.ForRef(rangesRef).LabelRanges(rangesChangeOwner))
	return cmdutil.PrintOutput(cmd.OutOrStdout(), ranges, len(ranges) == 0, "No label ranges granted.", ranges)
}
