package commands

import (
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// completionWriters maps each supported shell to its cobra generator.
var completionWriters = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

func completionShells() []string {
	shells := make([]string, 0, len(completionWriters))
	for s := range completionWriters {
		shells = append(shells, s)
	}
	slices.Sort(shells)
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion <" + strings.Join(completionShells(), "|") + ">",
	Short: "Print a shell completion script for refperm",
	Long: `Print a completion script for the given shell on stdout.

The script completes subcommands and flags, e.g. "refperm check ref --per<TAB>".
Install it wherever your shell loads completions from:

  refperm completion bash > ~/.local/share/bash-completion/completions/refperm
  refperm completion zsh  > "${fpath[1]}/_refperm"
  refperm completion fish > ~/.config/fish/completions/refperm.fish
  refperm completion powershell >> $PROFILE

Open a new shell afterwards.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionWriters[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}
