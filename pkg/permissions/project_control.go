package permissions

import (
	"slices"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/collector"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project"
	"github.com/marmos91/refperm/pkg/refpattern"
	"github.com/marmos91/refperm/pkg/specificity"
)

// sectionEntry is one compiled access section of the project chain.
type sectionEntry struct {
	project string
	matcher project.SectionMatcher
}

// ProjectControl answers permission questions for one user on one
// project. It memoizes per-ref results and must not be shared between
// goroutines or reused after the underlying configuration changes.
type ProjectControl struct {
	user       *identity.User
	groups     identity.GroupSet
	admin      bool
	state      *project.State
	chain      []*project.State
	sections   []sectionEntry
	owners     []access.GroupReference
	labelTypes []*access.LabelType
	sorter     *specificity.Sorter

	refs          map[string]*RefControl
	declaredOwner *bool
	owner         *bool
}

// newProjectControl builds a control for chain[0]. chain must run from the
// project itself to the root.
func newProjectControl(
	user *identity.User,
	groups identity.GroupSet,
	admin bool,
	chain []*project.State,
	owners []access.GroupReference,
	labelTypes []*access.LabelType,
	sorter *specificity.Sorter,
) *ProjectControl {
	pc := &ProjectControl{
		user:       user,
		groups:     groups,
		admin:      admin,
		state:      chain[0],
		chain:      chain,
		owners:     owners,
		labelTypes: labelTypes,
		sorter:     sorter,
		refs:       make(map[string]*RefControl),
	}
	if pc.groups == nil {
		pc.groups = identity.NewGroupSet()
	}
	for _, st := range chain {
		for _, m := range st.SectionMatchers() {
			pc.sections = append(pc.sections, sectionEntry{project: st.Name(), matcher: m})
		}
	}
	return pc
}

// User returns the caller.
func (pc *ProjectControl) User() *identity.User { return pc.user }

// State returns the project's cached state.
func (pc *ProjectControl) State() *project.State { return pc.state }

// Groups returns the caller's effective groups.
func (pc *ProjectControl) Groups() identity.GroupSet { return pc.groups }

// LabelTypes returns the labels in effect for the project.
func (pc *ProjectControl) LabelTypes() []*access.LabelType { return pc.labelTypes }

// LabelType returns the named label in effect for the project, or nil.
func (pc *ProjectControl) LabelType(name string) *access.LabelType {
	for _, l := range pc.labelTypes {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// IsAdmin reports whether the caller administers the server.
func (pc *ProjectControl) IsAdmin() bool { return pc.admin }

// IsDeclaredOwner reports whether the caller belongs to one of the owner
// groups declared anywhere in the hierarchy.
func (pc *ProjectControl) IsDeclaredOwner() bool {
	if pc.declaredOwner == nil {
		v := slices.ContainsFunc(pc.owners, func(g access.GroupReference) bool {
			return pc.groups.Contains(g.UUID)
		})
		pc.declaredOwner = &v
	}
	return *pc.declaredOwner
}

// IsOwner reports whether the caller holds "owner" on every ref of the
// project, or administers the server.
func (pc *ProjectControl) IsOwner() bool {
	if pc.owner == nil {
		v := pc.ForRef(refpattern.AllRefs).canPerform(access.Owner, false, false) || pc.IsAdmin()
		pc.owner = &v
	}
	return *pc.owner
}

// IsVisible reports whether the caller may see the project at all.
// Hidden projects are visible to internal callers only.
func (pc *ProjectControl) IsVisible() bool {
	if pc.user.IsInternal() {
		return true
	}
	if !pc.state.StatePermitsRead() {
		return false
	}
	return pc.IsOwner() || pc.CanPerformOnAnyRef(access.Read)
}

// CanPushToAtLeastOneRef reports whether some ref of the project accepts
// a push or a tag from the caller.
func (pc *ProjectControl) CanPushToAtLeastOneRef() bool {
	return pc.CanPerformOnAnyRef(access.Push) ||
		pc.CanPerformOnAnyRef(access.CreateTag) ||
		pc.IsOwner()
}

// CanPerformOnAnyRef reports whether some section of the hierarchy grants
// permission to the caller on the refs it covers. Each candidate section
// is re-evaluated as a ref so that blocks and exclusive flags still apply.
func (pc *ProjectControl) CanPerformOnAnyRef(permission string) bool {
	for _, e := range pc.sections {
		perm := e.matcher.Section.Permission(permission)
		if perm == nil {
			continue
		}
		name := e.matcher.Section.Name
		if refpattern.IsParameterized(name) {
			expanded, ok := refpattern.ExpandForUser(name, pc.user)
			if !ok {
				continue
			}
			name = expanded
		}
		for _, r := range perm.Rules {
			if r.IsBlock() || r.IsDeny() || !pc.match(r, false) {
				continue
			}
			if pc.ForRef(name).canPerform(permission, false, false) {
				return true
			}
			break
		}
	}
	return false
}

// ForRef returns the control for ref, building it on first use.
func (pc *ProjectControl) ForRef(ref string) *RefControl {
	if rc, ok := pc.refs[ref]; ok {
		return rc
	}
	rc := &RefControl{pc: pc, ref: ref, relevant: collector.Collect(pc.MatchingSections(ref))}
	pc.refs[ref] = rc
	return rc
}

// MatchingSections returns the sections of the hierarchy that apply to ref
// for the caller, most specific first. Sections of equal specificity keep
// hierarchy order, child before parent.
func (pc *ProjectControl) MatchingSections(ref string) []collector.Section {
	var out []collector.Section
	for _, e := range pc.sections {
		if e.matcher.Match(ref, pc.user) {
			out = append(out, collector.Section{Project: e.project, Section: e.matcher.Section})
		}
	}
	specificity.SortSections(pc.sorter, ref, out, collector.Section.Pattern)
	return out
}

// match reports whether rule applies to the caller.
func (pc *ProjectControl) match(rule *access.Rule, isChangeOwner bool) bool {
	switch rule.Group.UUID {
	case identity.ProjectOwners:
		return pc.IsDeclaredOwner()
	case identity.ChangeOwner:
		return isChangeOwner
	default:
		return pc.groups.Contains(rule.Group.UUID)
	}
}
