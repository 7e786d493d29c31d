package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/refperm/pkg/refpattern"
)

// DefaultRootProject is the name of the project every other project
// inherits from when no parent is configured.
const DefaultRootProject = "All-Projects"

// ProjectStatus controls what a project permits regardless of access rules.
type ProjectStatus string

const (
	// StatusActive permits reads and writes.
	StatusActive ProjectStatus = "ACTIVE"

	// StatusReadOnly permits reads only.
	StatusReadOnly ProjectStatus = "READ_ONLY"

	// StatusHidden is visible to internal users only.
	StatusHidden ProjectStatus = "HIDDEN"
)

// IsValid returns true if s is a known status.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusReadOnly, StatusHidden:
		return true
	default:
		return false
	}
}

// ParseProjectStatus parses a status case-insensitively. An empty string
// means active.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	if s == "" {
		return StatusActive, nil
	}
	st := ProjectStatus(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown project state %q", s)
	}
	return st, nil
}

// ProjectConfig is the parsed access configuration of one project.
//
// Revision is opaque and owned by the store that produced the config; two
// configs with the same name and revision are identical.
type ProjectConfig struct {
	Name           string           `json:"name" yaml:"name"`
	Parent         string           `json:"parent,omitempty" yaml:"parent,omitempty"`
	Description    string           `json:"description,omitempty" yaml:"description,omitempty"`
	Status         ProjectStatus    `json:"state,omitempty" yaml:"state,omitempty"`
	AccessSections []*AccessSection `json:"access,omitempty" yaml:"access,omitempty"`
	LabelTypes     []*LabelType     `json:"labels,omitempty" yaml:"labels,omitempty"`
	Revision       string           `json:"revision,omitempty" yaml:"-"`
}

// NewProjectConfig returns an empty active config.
func NewProjectConfig(name string) *ProjectConfig {
	return &ProjectConfig{Name: name, Status: StatusActive}
}

// Section returns the section named pattern, or nil.
func (c *ProjectConfig) Section(pattern string) *AccessSection {
	for _, s := range c.AccessSections {
		if s.Name == pattern {
			return s
		}
	}
	return nil
}

// UpsertSection returns the section named pattern, creating it if absent.
func (c *ProjectConfig) UpsertSection(pattern string) *AccessSection {
	if s := c.Section(pattern); s != nil {
		return s
	}
	s := NewAccessSection(pattern)
	c.AccessSections = append(c.AccessSections, s)
	return s
}

// Grant appends rule to permission under pattern, creating the section and
// permission as needed.
func (c *ProjectConfig) Grant(pattern, permission string, rule *Rule) *Permission {
	p := c.UpsertSection(pattern).Upsert(permission)
	p.Add(rule)
	return p
}

// Label returns the label type called name, or nil.
func (c *ProjectConfig) Label(name string) *LabelType {
	for _, l := range c.LabelTypes {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// EffectiveStatus returns Status, defaulting to active.
func (c *ProjectConfig) EffectiveStatus() ProjectStatus {
	if c.Status == "" {
		return StatusActive
	}
	return c.Status
}

// OwnerGroups returns the groups granted owner on refs/* in this config
// alone, without inheritance.
func (c *ProjectConfig) OwnerGroups() []GroupReference {
	s := c.Section(refpattern.AllRefs)
	if s == nil {
		return nil
	}
	p := s.Permission(Owner)
	if p == nil {
		return nil
	}
	var out []GroupReference
	for _, r := range p.Rules {
		if r.IsAllow() {
			out = append(out, r.Group)
		}
	}
	return out
}

// Validate checks every section and label. All problems are reported, joined.
func (c *ProjectConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("project name is required"))
	}
	if c.Parent != "" && c.Parent == c.Name {
		errs = append(errs, fmt.Errorf("project %s cannot be its own parent", c.Name))
	}
	if c.Status != "" && !c.Status.IsValid() {
		errs = append(errs, fmt.Errorf("unknown project state %q", c.Status))
	}
	seen := make(map[string]bool, len(c.AccessSections))
	for _, s := range c.AccessSections {
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate access section %q", s.Name))
			continue
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, l := range c.LabelTypes {
		if err := l.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (c *ProjectConfig) Clone() *ProjectConfig {
	out := *c
	if c.AccessSections != nil {
		out.AccessSections = make([]*AccessSection, len(c.AccessSections))
		for i, s := range c.AccessSections {
			out.AccessSections[i] = s.Clone()
		}
	}
	if c.LabelTypes != nil {
		out.LabelTypes = make([]*LabelType, len(c.LabelTypes))
		for i, l := range c.LabelTypes {
			out.LabelTypes[i] = l.Clone()
		}
	}
	return &out
}
