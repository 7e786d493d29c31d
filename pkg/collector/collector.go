// Package collector flattens the access sections matching a ref into the
// effective rules per permission.
//
// Sections arrive already filtered to those matching the ref and sorted
// most specific first. The collector then applies the two masking rules
// of the access model:
//
//   - a (pattern, permission, group) triple is only counted once, so a DENY
//     in a more specific section hides a later ALLOW for the same group and
//     pattern;
//   - once a permission has been seen with the exclusive flag, allow rules
//     for that permission from less specific sections are ignored.
//
// Block rules are tracked separately per project because a block can only
// be overridden from within the project that declares it.
package collector

import (
	"slices"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/refpattern"
)

// Section is an access section together with the project declaring it.
type Section struct {
	Project string
	Section *access.AccessSection
}

// Pattern returns the section's ref pattern.
func (s Section) Pattern() string { return s.Section.Name }

// Rule is a collected rule with its origin.
type Rule struct {
	*access.Rule
	Pattern string
	Project string
}

type seenKey struct {
	pattern    string
	permission string
	group      string
}

func groupKey(g access.GroupReference) string {
	if g.UUID != "" {
		return string(g.UUID)
	}
	return "name:" + g.Name
}

// Collection is the result of Collect.
type Collection struct {
	rules        map[string][]Rule
	blocks       map[string]map[string][]*access.Permission
	projects     []string
	declared     map[string]struct{}
	userSpecific bool
}

// Collect folds sections into a Collection.
func Collect(sections []Section) *Collection {
	c := &Collection{
		rules:    make(map[string][]Rule),
		blocks:   make(map[string]map[string][]*access.Permission),
		declared: make(map[string]struct{}),
	}

	seen := make(map[seenKey]struct{})
	exclusiveLocked := make(map[string]struct{})
	exclusiveByProject := make(map[string]map[string]struct{})

	for _, s := range sections {
		if s.Section == nil {
			continue
		}
		if !slices.Contains(c.projects, s.Project) {
			c.projects = append(c.projects, s.Project)
		}
		if refpattern.IsParameterized(s.Section.Name) {
			c.userSpecific = true
		}

		for _, perm := range s.Section.Permissions {
			c.declared[perm.Name] = struct{}{}

			_, projectExclusive := exclusiveByProject[s.Project][perm.Name]
			if !projectExclusive {
				c.addBlockCandidate(perm, s.Project)
			}

			if _, locked := exclusiveLocked[perm.Name]; !locked {
				for _, r := range perm.Rules {
					if r.IsBlock() {
						continue
					}
					k := seenKey{s.Section.Name, perm.Name, groupKey(r.Group)}
					if _, dup := seen[k]; dup {
						continue
					}
					seen[k] = struct{}{}
					if r.IsDeny() {
						continue
					}
					c.rules[perm.Name] = append(c.rules[perm.Name], Rule{Rule: r, Pattern: s.Section.Name, Project: s.Project})
				}
			}

			if perm.ExclusiveGroup {
				exclusiveLocked[perm.Name] = struct{}{}
				if exclusiveByProject[s.Project] == nil {
					exclusiveByProject[s.Project] = make(map[string]struct{})
				}
				exclusiveByProject[s.Project][perm.Name] = struct{}{}
			}
		}
	}
	return c
}

func (c *Collection) addBlockCandidate(perm *access.Permission, project string) {
	byProject := c.blocks[perm.Name]
	if byProject == nil {
		byProject = make(map[string][]*access.Permission)
		c.blocks[perm.Name] = byProject
	}
	if slices.Contains(byProject[project], perm) {
		return
	}
	byProject[project] = append(byProject[project], perm)
}

// Rules returns the effective non-deny, non-block rules for permission in
// specificity order.
func (c *Collection) Rules(permission string) []Rule {
	return c.rules[permission]
}

// BlockRules returns, per project in the order projects were first seen,
// the permissions named permission that may carry block rules or an
// exclusive override. Permissions of a project after that project's first
// exclusive declaration are omitted.
func (c *Collection) BlockRules(permission string) [][]*access.Permission {
	byProject := c.blocks[permission]
	if len(byProject) == 0 {
		return nil
	}
	out := make([][]*access.Permission, 0, len(byProject))
	for _, p := range c.projects {
		if perms, ok := byProject[p]; ok {
			out = append(out, perms)
		}
	}
	return out
}

// Names returns the permissions that have at least one effective rule,
// sorted.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.rules))
	for n := range c.rules {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DeclaredPermissions returns every permission name mentioned by a
// collected section, sorted, whether or not it grants anything.
func (c *Collection) DeclaredPermissions() []string {
	names := make([]string, 0, len(c.declared))
	for n := range c.declared {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Projects returns the contributing projects in first-seen order.
func (c *Collection) Projects() []string {
	return slices.Clone(c.projects)
}

// IsUserSpecific reports whether any collected section uses a
// per-user placeholder. Such collections must not be shared between users.
func (c *Collection) IsUserSpecific() bool {
	return c.userSpecific
}
