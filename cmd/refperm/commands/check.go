package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/permissions"
)

// errDenied makes --exit-code return a non-zero status after the decisions
// have been printed.
var errDenied = errors.New("permission denied")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate permissions",
	Long: `Evaluate whether a user may perform an operation.

Subcommands:
  ref      Check permissions on a ref of a project
  change   Check permissions on a change
  owner    Check whether a user owns a project
  visible  Check whether a project is visible to a user

An empty --user checks as the anonymous user.`,
}

var (
	checkUser        string
	checkProject     string
	checkRef         string
	checkPermissions []string
	checkExitCode    bool

	changeID       int
	changeOwner    int
	changeStatus   string
	changePrivate  bool
	changeDraft    bool
	changeUploader int
	changeRemove   int
	changeVote     int
)

var checkRefCmd = &cobra.Command{
	Use:   "ref",
	Short: "Check permissions on a ref",
	Long: `Check one or more ref permissions for a user.

Permission names: READ, CREATE, CREATE_TAG, CREATE_SIGNED_TAG, UPDATE,
FORCE_UPDATE, DELETE, CREATE_CHANGE, UPDATE_BY_SUBMIT, FORGE_AUTHOR,
FORGE_COMMITTER, FORGE_SERVER, MERGE, READ_PRIVATE_CHANGES, READ_CONFIG,
WRITE_CONFIG, SKIP_VALIDATION.

Examples:
  # Can alice push to master?
  refperm check ref --user alice --project demo --ref refs/heads/master --permission UPDATE

  # Several permissions at once, as JSON
  refperm check ref --user alice --project demo --ref refs/heads/master \
    --permission READ,UPDATE,FORCE_UPDATE -o json`,
	RunE: runCheckRef,
}

var checkChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Check permissions on a change",
	Long: `Check one or more change permissions for a user.

Permission names: READ, ABANDON, RESTORE, REBASE, ADD_PATCH_SET,
REMOVE_REVIEWER, EDIT_TOPIC_NAME, EDIT_HASHTAGS, SUBMIT, SUBMIT_AS, DELETE.

REMOVE_REVIEWER uses --remove-reviewer and --vote when given.

Examples:
  # Can bob submit change 42 owned by account 1000001?
  refperm check change --user bob --project demo --ref refs/heads/master \
    --id 42 --owner 1000001 --permission SUBMIT`,
	RunE: runCheckChange,
}

var checkOwnerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Check whether a user owns a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjectCheck(cmd, "owner", (*permissions.Backend).IsProjectOwner)
	},
}

var checkVisibleCmd = &cobra.Command{
	Use:   "visible",
	Short: "Check whether a project is visible to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjectCheck(cmd, "visible", (*permissions.Backend).IsProjectVisible)
	},
}

func init() {
	checkCmd.PersistentFlags().StringVar(&checkUser, "user", "", "Username to check as (default: anonymous)")
	checkCmd.PersistentFlags().StringVar(&checkProject, "project", "", "Project name")
	checkCmd.PersistentFlags().BoolVar(&checkExitCode, "exit-code", false, "Exit with an error if any check is denied")
	_ = checkCmd.MarkPersistentFlagRequired("project")

	for _, c := range []*cobra.Command{checkRefCmd, checkChangeCmd} {
		c.Flags().StringVar(&checkRef, "ref", "", "Ref name, e.g. refs/heads/master")
		c.Flags().StringSliceVarP(&checkPermissions, "permission", "p", nil, "Permissions to check (comma-separated)")
		_ = c.MarkFlagRequired("ref")
		_ = c.MarkFlagRequired("permission")
	}

	checkChangeCmd.Flags().IntVar(&changeID, "id", 1, "Change number")
	checkChangeCmd.Flags().IntVar(&changeOwner, "owner", 0, "Account ID of the change owner")
	checkChangeCmd.Flags().StringVar(&changeStatus, "status", string(permissions.StatusNew), "Change status (NEW|MERGED|ABANDONED|DRAFT)")
	checkChangeCmd.Flags().BoolVar(&changePrivate, "private", false, "The change is private")
	checkChangeCmd.Flags().BoolVar(&changeDraft, "draft", false, "The current patch set is a draft")
	checkChangeCmd.Flags().IntVar(&changeUploader, "uploader", 0, "Account ID of the patch set uploader (default: owner)")
	checkChangeCmd.Flags().IntVar(&changeRemove, "remove-reviewer", 0, "Account ID of the reviewer to remove")
	checkChangeCmd.Flags().IntVar(&changeVote, "vote", 0, "Current vote of the reviewer to remove")

	checkCmd.AddCommand(checkRefCmd)
	checkCmd.AddCommand(checkChangeCmd)
	checkCmd.AddCommand(checkOwnerCmd)
	checkCmd.AddCommand(checkVisibleCmd)
}

// DecisionList is a list of decisions for table rendering.
type DecisionList []permissions.Decision

// Headers implements TableRenderer.
func (dl DecisionList) Headers() []string {
	return []string{"PERMISSION", "TARGET", "ALLOWED", "REASON"}
}

// Rows implements TableRenderer.
func (dl DecisionList) Rows() [][]string {
	rows := make([][]string, 0, len(dl))
	for _, d := range dl {
		rows = append(rows, []string{d.Permission, d.Target, cmdutil.BoolToYesNo(d.Allowed), cmdutil.EmptyOr(d.Reason, "-")})
	}
	return rows
}

func (dl DecisionList) anyDenied() bool {
	for _, d := range dl {
		if !d.Allowed {
			return true
		}
	}
	return false
}

func printDecisions(cmd *cobra.Command, decisions DecisionList) error {
	if err := cmdutil.PrintOutput(cmd.OutOrStdout(), decisions, len(decisions) == 0, "No permissions checked.", decisions); err != nil {
		return err
	}
	if checkExitCode && decisions.anyDenied() {
		return errDenied
	}
	return nil
}

func runCheckRef(cmd *cobra.Command, args []string) error {
	perms := make([]permissions.RefPermission, 0, len(checkPermissions))
	for _, name := range checkPermissions {
		p, err := permissions.ParseRefPermission(name)
		if err != nil {
			return err
		}
		perms = append(perms, p)
	}

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := cmdutil.ResolveUser(ctx, e, checkUser)
	if err != nil {
		return err
	}

	decisions := make(DecisionList, 0, len(perms))
	for _, p := range perms {
		d, err := e.Backend.CheckRefPermission(ctx, user, checkProject, checkRef, p)
		if err != nil {
			return err
		}
		decisions = append(decisions, d)
	}
	return printDecisions(cmd, decisions)
}

func runCheckChange(cmd *cobra.Command, args []string) error {
	perms := make([]permissions.ChangePermission, 0, len(checkPermissions))
	for _, name := range checkPermissions {
		p, err := permissions.ParseChangePermission(name)
		if err != nil {
			return err
		}
		perms = append(perms, p)
	}
	status, err := permissions.ParseChangeStatus(changeStatus)
	if err != nil {
		return err
	}

	uploader := changeUploader
	if uploader == 0 {
		uploader = changeOwner
	}
	change := &permissions.Change{
		ID:      changeID,
		Project: checkProject,
		Dest:    checkRef,
		Owner:   changeOwner,
		Status:  status,
		Private: changePrivate,
		PatchSet: permissions.PatchSet{
			ID:       1,
			Uploader: uploader,
			Draft:    changeDraft,
		},
	}

	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := cmdutil.ResolveUser(ctx, e, checkUser)
	if err != nil {
		return err
	}

	decisions := make(DecisionList, 0, len(perms))
	for _, p := range perms {
		var d permissions.Decision
		if p == permissions.ChangeRemoveReviewer && changeRemove != 0 {
			d, err = e.Backend.CheckRemoveReviewer(ctx, user, change, changeRemove, changeVote)
		} else {
			d, err = e.Backend.CheckChangePermission(ctx, user, change, p)
		}
		if err != nil {
			return err
		}
		decisions = append(decisions, d)
	}
	return printDecisions(cmd, decisions)
}

type projectCheckFunc func(*permissions.Backend, context.Context, *identity.User, string) (bool, error)

func runProjectCheck(cmd *cobra.Command, what string, check projectCheckFunc) error {
	ctx := cmd.Context()
	e, err := cmdutil.OpenEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := cmdutil.ResolveUser(ctx, e, checkUser)
	if err != nil {
		return err
	}

	ok, err := check(e.Backend, ctx, user, checkProject)
	if err != nil {
		return err
	}

	d := permissions.Decision{Allowed: ok, Permission: what, Target: checkProject}
	if !ok {
		d.Reason = fmt.Sprintf("not %s for %s", what, cmdutil.EmptyOr(checkUser, "anonymous"))
	}
	return printDecisions(cmd, DecisionList{d})
}
