// Package access provides the project access configuration model.
//
// A project configuration holds an ordered list of access sections. Each
// section is named by a ref pattern and carries permissions, and each
// permission carries rules granting, denying or blocking it for groups.
// Values in this package are plain data: evaluation lives in
// pkg/collector and pkg/permissions.
package access

import (
	"github.com/marmos91/refperm/pkg/refpattern"
)

// AccessSection is a ref pattern with the permissions that apply under it.
type AccessSection struct {
	Name        string        `json:"name" yaml:"name"`
	Permissions []*Permission `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// NewAccessSection returns an empty section for pattern.
func NewAccessSection(pattern string) *AccessSection {
	return &AccessSection{Name: pattern}
}

// Permission returns the named permission, or nil.
func (s *AccessSection) Permission(name string) *Permission {
	for _, p := range s.Permissions {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Upsert returns the named permission, creating it if absent.
func (s *AccessSection) Upsert(name string) *Permission {
	if p := s.Permission(name); p != nil {
		return p
	}
	p := NewPermission(name)
	s.Permissions = append(s.Permissions, p)
	return p
}

// AddPermission adds p, merging it into an existing permission of the same
// name.
func (s *AccessSection) AddPermission(p *Permission) {
	if existing := s.Permission(p.Name); existing != nil {
		existing.Merge(p)
		return
	}
	s.Permissions = append(s.Permissions, p)
}

// RemovePermission drops the named permission.
func (s *AccessSection) RemovePermission(name string) {
	for i, p := range s.Permissions {
		if p.Name == name {
			s.Permissions = append(s.Permissions[:i], s.Permissions[i+1:]...)
			return
		}
	}
}

// Validate checks the section name and every rule.
func (s *AccessSection) Validate() error {
	if err := refpattern.Validate(s.Name); err != nil {
		return err
	}
	for _, p := range s.Permissions {
		for _, r := range p.Rules {
			if err := r.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *AccessSection) Clone() *AccessSection {
	c := &AccessSection{Name: s.Name}
	if s.Permissions != nil {
		c.Permissions = make([]*Permission, len(s.Permissions))
		for i, p := range s.Permissions {
			c.Permissions[i] = p.Clone()
		}
	}
	return c
}
