package permissions

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project"
)

func TestBackend_InheritedRead(t *testing.T) {
	// Anonymous Users is implicit for every caller, so the parent's grant
	// goes to a regular group here.
	mirrors := access.GroupReference{UUID: "test.mirrors", Name: "Mirrors"}
	f := newFixture(t)
	allow(f.local, "refs/heads/*", access.Read, registered)
	allow(f.parent, "refs/*", access.Read, mirrors)

	b := f.backend(nil)
	ctx := context.Background()

	d, err := b.CheckRefPermission(ctx, identity.Anon(), "local", "refs/heads/master", RefRead)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "READ", d.Permission)
	assert.Equal(t, "refs/heads/master", d.Target)
	assert.Contains(t, d.Reason, "no rule grants")
	assert.Equal(t, RefRead.Advice("refs/heads/master"), d.Advice)
	assert.ErrorIs(t, d.Err(), ErrPermissionDenied)

	d, err = b.CheckRefPermission(ctx, f.newUser("alice"), "local", "refs/heads/master", RefRead)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())

	d, err = b.CheckRefPermission(ctx, identity.Anon(), "local", "refs/tags/v1", RefRead)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = b.CheckRefPermission(ctx, f.newUser("", mirrors), "local", "refs/tags/v1", RefRead)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestBackend_UsernamePattern(t *testing.T) {
	f := newFixture(t)
	allow(f.local, "refs/heads/${username}/*", access.Push, registered)

	b := f.backend(nil)
	ctx := context.Background()
	alice := f.newUser("alice")

	d, err := b.CheckRefPermission(ctx, alice, "local", "refs/heads/alice/feature", RefUpdate)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = b.CheckRefPermission(ctx, alice, "local", "refs/heads/bob/feature", RefUpdate)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestBackend_MoreSpecificSectionFirst(t *testing.T) {
	f := newFixture(t)
	allow(f.local, "refs/heads/*", access.Push, devs)
	allow(f.local, "refs/heads/release/*", access.Push, devs)

	pc := f.user(devs)
	rules := pc.ForRef("refs/heads/release/1.0").Collection().Rules(access.Push)
	require.Len(t, rules, 2)
	assert.Equal(t, "refs/heads/release/*", rules[0].Pattern)
	assert.Equal(t, "refs/heads/*", rules[1].Pattern)

	// A deny on the specific section only hides that section's grant.
	deny(f.local, "refs/heads/release/*", access.Push, devs)
	rules = f.user(devs).ForRef("refs/heads/release/1.0").Collection().Rules(access.Push)
	require.Len(t, rules, 1)
	assert.Equal(t, "refs/heads/*", rules[0].Pattern)

	exclusive(f.local, "refs/heads/release/*", access.Push)
	assert.False(t, can(t, f.user(devs), "refs/heads/release/1.0", RefUpdate))
	assert.True(t, can(t, f.user(devs), "refs/heads/master", RefUpdate))
}

func TestBackend_FailClosed(t *testing.T) {
	f := newFixture(t)
	m := NewMetrics(prometheus.NewRegistry())
	b := f.backend(m)
	ctx := context.Background()

	d, err := b.CheckRefPermission(ctx, f.newUser("alice"), "ghost", "refs/heads/master", RefRead)
	require.Error(t, err)
	assert.ErrorIs(t, err, project.ErrNoSuchProject)
	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(KindRef, ResultError)))

	d, err = b.CheckRefPermission(ctx, f.newUser("alice"), "local", "refs/heads/master", RefPermission(0))
	assert.ErrorIs(t, err, ErrUnsupportedPermission)
	assert.False(t, d.Allowed)

	ok, err := b.IsProjectVisible(ctx, f.newUser("alice"), "ghost")
	assert.ErrorIs(t, err, project.ErrNoSuchProject)
	assert.False(t, ok)
}

func TestBackend_Metrics(t *testing.T) {
	f := newFixture(t)
	allow(f.local, "refs/*", access.Read, registered)
	m := NewMetrics(prometheus.NewRegistry())
	b := f.backend(m)
	ctx := context.Background()

	_, err := b.CheckRefPermission(ctx, f.newUser("alice"), "local", "refs/heads/master", RefRead)
	require.NoError(t, err)
	_, err = b.CheckRefPermission(ctx, f.newUser("alice"), "local", "refs/heads/master", RefUpdate)
	require.NoError(t, err)
	_, err = b.IsProjectOwner(ctx, f.newUser("alice"), "local")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(KindRef, ResultAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(KindRef, ResultDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(KindProject, ResultDenied)))
}

func TestBackend_Project(t *testing.T) {
	f := newFixture(t)
	allow(f.parent, "refs/*", access.Owner, adminGroup)
	allow(f.local, "refs/heads/*", access.Read, devs)

	b := f.backend(nil)
	ctx := context.Background()
	admin := f.newUser("admin", adminGroup)
	dev := f.newUser("dev", devs)

	owner, err := b.IsProjectOwner(ctx, admin, "local")
	require.NoError(t, err)
	assert.True(t, owner)

	owner, err = b.IsProjectOwner(ctx, dev, "local")
	require.NoError(t, err)
	assert.False(t, owner)

	visible, err := b.IsProjectVisible(ctx, dev, "local")
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = b.IsProjectVisible(ctx, nil, "local")
	require.NoError(t, err)
	assert.False(t, visible)

	visible, err = b.IsProjectVisible(ctx, admin, "local")
	require.NoError(t, err)
	assert.True(t, visible, "owners see the project")
}

func TestBackend_HiddenProject(t *testing.T) {
	f := newFixture(t)
	f.local.Status = access.StatusHidden
	allow(f.local, "refs/*", access.Owner, adminGroup)
	allow(f.local, "refs/*", access.Read, registered)

	b := f.backend(nil)
	ctx := context.Background()

	visible, err := b.IsProjectVisible(ctx, f.newUser("admin", adminGroup), "local")
	require.NoError(t, err)
	assert.False(t, visible)

	visible, err = b.IsProjectVisible(ctx, identity.InternalUser(), "local")
	require.NoError(t, err)
	assert.True(t, visible)

	d, err := b.CheckRefPermission(ctx, f.newUser("alice"), "local", "refs/heads/master", RefRead)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestBackend_ChangePermission(t *testing.T) {
	cf := newChangeFixture(t)
	b := cf.backend(nil)
	ctx := context.Background()

	d, err := b.CheckChangePermission(ctx, cf.owner, cf.change, ChangeAbandon)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "change 1", d.Target)

	d, err = b.CheckChangePermission(ctx, cf.other, cf.change, ChangeAbandon)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "ABANDON", d.Permission)
	assert.ErrorIs(t, d.Err(), ErrPermissionDenied)

	d, err = b.CheckRemoveReviewer(ctx, cf.owner, cf.change, cf.reviewer.ID, 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = b.CheckRemoveReviewer(ctx, cf.owner, cf.change, cf.reviewer.ID, -1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	ghost := *cf.change
	ghost.Project = "ghost"
	d, err = b.CheckChangePermission(ctx, cf.owner, &ghost, ChangeRead)
	assert.ErrorIs(t, err, project.ErrNoSuchProject)
	assert.False(t, d.Allowed)
}
