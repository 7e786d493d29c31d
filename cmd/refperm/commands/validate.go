package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/refpattern"
)

var validateCmd = &cobra.Command{
	Use:   "validate PATTERN...",
	Short: "Validate ref patterns",
	Long: `Classify and validate ref patterns without a configuration.

For each pattern this prints its kind (exact, prefix, regex or
parameterized), the shortest ref it matches and whether it is valid.
The command fails if any pattern is invalid.

Examples:
  refperm validate refs/heads/* '^refs/heads/rel-[0-9]+' 'refs/users/${username}/*'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

// PatternReport describes one validated pattern.
type PatternReport struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Kind    string `json:"kind" yaml:"kind"`
	Example string `json:"example,omitempty" yaml:"example,omitempty"`
	Valid   bool   `json:"valid" yaml:"valid"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// PatternReportList is a list of reports for table rendering.
type PatternReportList []PatternReport

// Headers implements TableRenderer.
func (pl PatternReportList) Headers() []string {
	return []string{"PATTERN", "KIND", "EXAMPLE", "VALID", "ERROR"}
}

// Rows implements TableRenderer.
func (pl PatternReportList) Rows() [][]string {
	rows := make([][]string, 0, len(pl))
	for _, r := range pl {
		rows = append(rows, []string{
			r.Pattern,
			r.Kind,
			cmdutil.EmptyOr(r.Example, "-"),
			cmdutil.BoolToYesNo(r.Valid),
			cmdutil.EmptyOr(r.Error, "-"),
		})
	}
	return rows
}

func runValidate(cmd *cobra.Command, args []string) error {
	reports := make(PatternReportList, 0, len(args))
	invalid := 0
	for _, pattern := range args {
		r := PatternReport{
			Pattern: pattern,
			Kind:    refpattern.Classify(pattern).String(),
			Valid:   true,
		}
		if err := refpattern.Validate(pattern); err != nil {
			r.Valid = false
			r.Error = err.Error()
			invalid++
		} else {
			r.Example = refpattern.ShortestExample(pattern)
		}
		reports = append(reports, r)
	}

	if err := cmdutil.PrintOutput(cmd.OutOrStdout(), reports, false, "", reports); err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d patterns are invalid", invalid, len(args))
	}
	return nil
}
