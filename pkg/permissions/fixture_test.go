package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project"
	"github.com/marmos91/refperm/pkg/project/store"
	"github.com/marmos91/refperm/pkg/specificity"
)

var (
	adminGroup    = access.GroupReference{UUID: "test.admin", Name: "Administrators"}
	devs          = access.GroupReference{UUID: "test.devs", Name: "Developers"}
	fixers        = access.GroupReference{UUID: "test.fixers", Name: "Fixers"}
	anonymous     = identity.SystemGroupRef(identity.Anonymous)
	registered    = identity.SystemGroupRef(identity.Registered)
	changeOwner   = identity.SystemGroupRef(identity.ChangeOwner)
	projectOwners = identity.SystemGroupRef(identity.ProjectOwners)
)

const codeReview = "Code-Review"

// fixture is All-Projects <- parent <- local, with a Code-Review label on
// the root.
type fixture struct {
	t      *testing.T
	root   *access.ProjectConfig
	parent *access.ProjectConfig
	local  *access.ProjectConfig
	nextID int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := access.NewProjectConfig(access.DefaultRootProject)
	root.LabelTypes = []*access.LabelType{{
		Name:     codeReview,
		Function: access.FunctionMaxWithBlock,
		Values:   map[int]string{-2: "Do not submit", -1: "I would prefer not", 0: "No score", 1: "Looks good", 2: "Approved"},
	}}
	parent := access.NewProjectConfig("parent")
	local := access.NewProjectConfig("local")
	local.Parent = "parent"
	return &fixture{t: t, root: root, parent: parent, local: local, nextID: 1000}
}

func grant(cfg *access.ProjectConfig, pattern, perm string, action access.Action, g access.GroupReference) *access.Rule {
	r := access.NewRule(g)
	r.Action = action
	cfg.Grant(pattern, perm, r)
	return r
}

func allow(cfg *access.ProjectConfig, pattern, perm string, g access.GroupReference) *access.Rule {
	return grant(cfg, pattern, perm, access.ActionAllow, g)
}

func deny(cfg *access.ProjectConfig, pattern, perm string, g access.GroupReference) *access.Rule {
	return grant(cfg, pattern, perm, access.ActionDeny, g)
}

func block(cfg *access.ProjectConfig, pattern, perm string, g access.GroupReference) *access.Rule {
	return grant(cfg, pattern, perm, access.ActionBlock, g)
}

func allowLabel(cfg *access.ProjectConfig, pattern string, g access.GroupReference, lo, hi int) {
	allow(cfg, pattern, access.LabelPermission(codeReview), g).SetRange(lo, hi)
}

func blockLabel(cfg *access.ProjectConfig, pattern string, g access.GroupReference, lo, hi int) {
	block(cfg, pattern, access.LabelPermission(codeReview), g).SetRange(lo, hi)
}

func exclusive(cfg *access.ProjectConfig, pattern, perm string) {
	cfg.UpsertSection(pattern).Upsert(perm).ExclusiveGroup = true
}

func (f *fixture) backend(metrics *Metrics) *Backend {
	f.t.Helper()
	st, err := store.NewMemoryStore(f.root, f.parent, f.local)
	require.NoError(f.t, err)
	dir, err := identity.NewStaticDirectory(nil, nil)
	require.NoError(f.t, err)
	sorter, err := specificity.NewSorter(100, nil)
	require.NoError(f.t, err)
	f.t.Cleanup(sorter.Close)

	h := project.NewHierarchy(project.NewCache(st, nil, "", nil))
	return NewBackend(h, sorter, identity.NewResolver(dir, []access.GroupUUID{"server.admins"}), metrics)
}

// newUser returns a registered account in groups. An empty name yields an
// account without a username.
func (f *fixture) newUser(name string, groups ...access.GroupReference) *identity.User {
	f.nextID++
	u := &identity.User{ID: f.nextID, Name: name}
	for _, g := range groups {
		u.Groups = append(u.Groups, g.UUID)
	}
	return u
}

func (f *fixture) control(u *identity.User) *ProjectControl {
	f.t.Helper()
	pc, err := f.backend(nil).ControlFor(context.Background(), u, "local")
	require.NoError(f.t, err)
	return pc
}

func (f *fixture) user(groups ...access.GroupReference) *ProjectControl {
	return f.control(f.newUser("", groups...))
}

func (f *fixture) namedUser(name string, groups ...access.GroupReference) *ProjectControl {
	return f.control(f.newUser(name, groups...))
}

func can(t *testing.T, pc *ProjectControl, ref string, perm RefPermission) bool {
	t.Helper()
	ok, err := pc.ForRef(ref).Can(perm)
	require.NoError(t, err)
	return ok
}

func labelRange(pc *ProjectControl, ref string, isChangeOwner bool) access.PermissionRange {
	r, _ := pc.ForRef(ref).Range(access.LabelPermission(codeReview), isChangeOwner)
	return r
}
