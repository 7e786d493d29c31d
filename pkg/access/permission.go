package access

import "strings"

// Well-known permission names.
const (
	Abandon                = "abandon"
	AddPatchSet            = "addPatchSet"
	Create                 = "create"
	CreateSignedTag        = "createSignedTag"
	CreateTag              = "createTag"
	Delete                 = "delete"
	DeleteChanges          = "deleteChanges"
	DeleteOwnChanges       = "deleteOwnChanges"
	EditHashtags           = "editHashtags"
	EditTopicName          = "editTopicName"
	ForgeAuthor            = "forgeAuthor"
	ForgeCommitter         = "forgeCommitter"
	ForgeServer            = "forgeServerAsCommitter"
	Owner                  = "owner"
	Push                   = "push"
	PushMerge              = "pushMerge"
	Read                   = "read"
	Rebase                 = "rebase"
	RemoveReviewer         = "removeReviewer"
	Revert                 = "revert"
	Submit                 = "submit"
	SubmitAs               = "submitAs"
	ViewDrafts             = "viewDrafts"
	ViewPrivateChanges     = "viewPrivateChanges"
	LabelPrefix            = "label-"
	LabelAsPrefix          = "labelAs-"
	labelAsPrefixLowercase = "labelas-"
)

// KnownNames lists every non-label permission name, in display order.
var KnownNames = []string{
	Abandon, AddPatchSet, Create, CreateSignedTag, CreateTag, Delete,
	DeleteChanges, DeleteOwnChanges, EditHashtags, EditTopicName,
	ForgeAuthor, ForgeCommitter, ForgeServer, Owner, Push, PushMerge,
	Read, Rebase, RemoveReviewer, Revert, Submit, SubmitAs, ViewDrafts,
	ViewPrivateChanges,
}

// IsLabel reports whether name is a "label-X" permission.
func IsLabel(name string) bool {
	return strings.HasPrefix(name, LabelPrefix)
}

// IsLabelAs reports whether name is a "labelAs-X" permission.
func IsLabelAs(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), labelAsPrefixLowercase)
}

// HasRange reports whether the permission carries a vote range.
func HasRange(name string) bool {
	return IsLabel(name) || IsLabelAs(name)
}

// LabelName returns the label part of a label permission, or "" if name is
// not one.
func LabelName(name string) string {
	switch {
	case IsLabel(name):
		return name[len(LabelPrefix):]
	case IsLabelAs(name):
		return name[len(LabelAsPrefix):]
	default:
		return ""
	}
}

// LabelPermission returns the permission name for voting on label.
func LabelPermission(label string) string { return LabelPrefix + label }

// LabelAsPermission returns the permission name for voting on behalf of
// another user on label.
func LabelAsPermission(label string) string { return LabelAsPrefix + label }

// IsKnownName reports whether name is a recognised permission.
func IsKnownName(name string) bool {
	if HasRange(name) {
		return LabelName(name) != ""
	}
	for _, n := range KnownNames {
		if n == name {
			return true
		}
	}
	return false
}

// Permission is a named set of rules within an access section.
//
// Rules are unique per group: adding a second rule for the same group
// replaces the first.
type Permission struct {
	Name           string  `json:"name" yaml:"name"`
	ExclusiveGroup bool    `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Rules          []*Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// NewPermission returns an empty permission.
func NewPermission(name string) *Permission {
	return &Permission{Name: name}
}

// Add inserts rule, replacing an existing rule for the same group.
func (p *Permission) Add(rule *Rule) {
	for i, existing := range p.Rules {
		if sameGroup(existing.Group, rule.Group) {
			p.Rules[i] = rule
			return
		}
	}
	p.Rules = append(p.Rules, rule)
}

// Rule returns the rule for group, or nil.
func (p *Permission) Rule(group GroupReference) *Rule {
	for _, r := range p.Rules {
		if sameGroup(r.Group, group) {
			return r
		}
	}
	return nil
}

// Remove deletes the rule for group. It returns false if none existed.
func (p *Permission) Remove(group GroupReference) bool {
	for i, r := range p.Rules {
		if sameGroup(r.Group, group) {
			p.Rules = append(p.Rules[:i], p.Rules[i+1:]...)
			return true
		}
	}
	return false
}

// Merge folds other's rules into p. Exclusivity is sticky.
func (p *Permission) Merge(other *Permission) {
	p.ExclusiveGroup = p.ExclusiveGroup || other.ExclusiveGroup
	for _, r := range other.Rules {
		p.Add(r)
	}
}

// Clone returns a deep copy.
func (p *Permission) Clone() *Permission {
	c := &Permission{Name: p.Name, ExclusiveGroup: p.ExclusiveGroup}
	if p.Rules != nil {
		c.Rules = make([]*Rule, len(p.Rules))
		for i, r := range p.Rules {
			c.Rules[i] = r.Clone()
		}
	}
	return c
}

func sameGroup(a, b GroupReference) bool {
	if a.UUID != "" || b.UUID != "" {
		return a.UUID == b.UUID
	}
	return a.Name == b.Name
}
