package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/refperm/cmd/refperm/cmdutil"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/config"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/permissions"
)

// writeTestConfig saves a config backed by a yaml store in a temp dir, so
// state survives across command invocations.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.GetDefaultConfig()
	cfg.Store = config.StoreConfig{Type: config.StoreTypeYAML}
	cfg.Store.YAML.Dir = filepath.Join(dir, "projects")
	cfg.Identity.Users = append(cfg.Identity.Users, identity.User{
		ID:     1000001,
		Name:   "alice",
		Groups: []access.GroupUUID{"developers"},
	})

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path
}

// resetFlags restores every flag of cmd and its children to its default.
// Cobra keeps parsed values in package variables between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		resetFlags(rootCmd)
		*cmdutil.Flags = cmdutil.GlobalFlags{}
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	resetFlags(rootCmd)
	return buf.String(), err
}

func checkRefJSON(t *testing.T, cfgPath, user, project, ref string, perms ...string) []permissions.Decision {
	t.Helper()
	args := []string{"--config", cfgPath, "-o", "json", "check", "ref", "--project", project, "--ref", ref}
	if user != "" {
		args = append(args, "--user", user)
	}
	for _, p := range perms {
		args = append(args, "--permission", p)
	}
	out, err := run(t, args...)
	require.NoError(t, err, out)

	var decisions []permissions.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &decisions), out)
	require.Len(t, decisions, len(perms))
	return decisions
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestCompletion(t *testing.T) {
	for _, shell := range completionShells() {
		t.Run(shell, func(t *testing.T) {
			out, err := run(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "refperm")
		})
	}

	_, err := run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestValidatePatterns(t *testing.T) {
	out, err := run(t, "-o", "json", "validate", "refs/heads/*", "^refs/heads/feature-.*")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
	assert.NotContains(t, out, `"valid": false`)

	_, err = run(t, "validate", "refs/heads/*", "^refs/heads/[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 patterns are invalid")
}

func TestCheckRef_DefaultRoot(t *testing.T) {
	cfgPath := writeTestConfig(t)

	decisions := checkRefJSON(t, cfgPath, "admin", "All-Projects", "refs/heads/master", "READ", "UPDATE")
	assert.True(t, decisions[0].Allowed)
	assert.True(t, decisions[1].Allowed)

	decisions = checkRefJSON(t, cfgPath, "", "All-Projects", "refs/heads/master", "READ", "UPDATE")
	assert.True(t, decisions[0].Allowed)
	assert.False(t, decisions[1].Allowed)
}

func TestCheckRef_ExitCode(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := run(t, "--config", cfgPath, "check", "ref", "--project", "All-Projects",
		"--ref", "refs/heads/master", "--permission", "UPDATE", "--exit-code")
	require.ErrorIs(t, err, errDenied)

	_, err = run(t, "--config", cfgPath, "check", "ref", "--project", "All-Projects",
		"--ref", "refs/heads/master", "--permission", "READ", "--exit-code")
	require.NoError(t, err)
}

func TestCheckRef_UnknownUser(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := run(t, "--config", cfgPath, "check", "ref", "--user", "mallory", "--project", "All-Projects",
		"--ref", "refs/heads/master", "--permission", "READ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve user")
}

func TestCheckRef_UnknownPermission(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := run(t, "--config", cfgPath, "check", "ref", "--project", "All-Projects",
		"--ref", "refs/heads/master", "--permission", "FLY")
	require.Error(t, err)
}

func TestCheckOwner(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := run(t, "--config", cfgPath, "check", "owner", "--user", "admin", "--project", "All-Projects", "--exit-code")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "check", "owner", "--user", "alice", "--project", "All-Projects", "--exit-code")
	require.ErrorIs(t, err, errDenied)
}

func TestProjectLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t)
	cfgFlag := []string{"--config", cfgPath}
	runCfg := func(args ...string) (string, error) {
		return run(t, append(append([]string{}, cfgFlag...), args...)...)
	}

	out, err := runCfg("project", "create", "team", "--description", "Team projects")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Project 'team' created under 'All-Projects'")

	out, err = runCfg("project", "create", "demo")
	require.NoError(t, err, out)

	_, err = runCfg("project", "create", "orphan", "--parent", "missing")
	require.Error(t, err)

	out, err = runCfg("-o", "json", "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "demo"`)
	assert.Contains(t, out, `"name": "team"`)

	// Registered users cannot push until granted.
	decisions := checkRefJSON(t, cfgPath, "alice", "demo", "refs/heads/master", "UPDATE")
	assert.False(t, decisions[0].Allowed)

	out, err = runCfg("project", "grant", "demo", "refs/heads/*", "push", "group developers")
	require.NoError(t, err, out)
	decisions = checkRefJSON(t, cfgPath, "alice", "demo", "refs/heads/master", "UPDATE")
	assert.True(t, decisions[0].Allowed)

	_, err = runCfg("project", "grant", "demo", "refs/heads/*", "fly", "group developers")
	require.Error(t, err)

	out, err = runCfg("-o", "json", "explain", "--user", "alice", "--project", "demo", "--ref", "refs/heads/master")
	require.NoError(t, err)
	assert.Contains(t, out, `"project": "demo"`)

	// A read-only project denies writes whatever the rules say.
	_, err = runCfg("project", "set-state", "demo", "READ_ONLY")
	require.NoError(t, err)
	decisions = checkRefJSON(t, cfgPath, "alice", "demo", "refs/heads/master", "UPDATE")
	assert.False(t, decisions[0].Allowed)
	_, err = runCfg("project", "set-state", "demo", "ACTIVE")
	require.NoError(t, err)

	out, err = runCfg("project", "revoke", "demo", "refs/heads/*", "push", "developers")
	require.NoError(t, err, out)
	decisions = checkRefJSON(t, cfgPath, "alice", "demo", "refs/heads/master", "UPDATE")
	assert.False(t, decisions[0].Allowed)

	_, err = runCfg("project", "revoke", "demo", "refs/heads/*", "push", "developers")
	require.Error(t, err)

	// Rules granted on the parent are inherited after reparenting.
	_, err = runCfg("project", "grant", "team", "refs/heads/*", "push", "group developers")
	require.NoError(t, err)
	_, err = runCfg("project", "set-parent", "demo", "team")
	require.NoError(t, err)
	decisions = checkRefJSON(t, cfgPath, "alice", "demo", "refs/heads/master", "UPDATE")
	assert.True(t, decisions[0].Allowed)

	_, err = runCfg("project", "set-parent", "team", "demo")
	require.Error(t, err, "a cycle must be rejected")

	out, err = runCfg("-o", "json", "project", "show", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, `"parent": "team"`)

	_, err = runCfg("project", "remove", "team", "--force")
	require.Error(t, err, "a project with children must not be removed")

	_, err = runCfg("project", "rename", "demo", "demo2")
	require.NoError(t, err)
	decisions = checkRefJSON(t, cfgPath, "alice", "demo2", "refs/heads/master", "UPDATE")
	assert.True(t, decisions[0].Allowed)

	out, err = runCfg("project", "remove", "demo2", "--force")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Project 'demo2' deleted successfully")

	_, err = runCfg("project", "remove", "team", "--force")
	require.NoError(t, err)

	_, err = runCfg("project", "remove", "All-Projects", "--force")
	require.Error(t, err)
	_, err = runCfg("project", "rename", "All-Projects", "Root")
	require.Error(t, err)
}

func TestRanges(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := run(t, "--config", cfgPath, "-o", "json", "ranges",
		"--user", "admin", "--project", "All-Projects", "--ref", "refs/heads/master")
	require.NoError(t, err, out)

	var ranges []access.PermissionRange
	require.NoError(t, json.Unmarshal([]byte(out), &ranges), out)
}

func TestProjectSchema(t *testing.T) {
	out, err := run(t, "project", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"access"`)
	assert.Contains(t, out, "refperm Project")
}
