// Package identity resolves who a caller is and which groups they belong to.
//
// A User carries the account data needed by ref pattern expansion. A
// Provider turns a User into its effective group set, adding the implicit
// system groups and expanding group includes, and answers whether the user
// is a server administrator.
package identity

import (
	"fmt"
	"slices"

	"github.com/marmos91/refperm/pkg/access"
)

// System group UUIDs. Membership in these is computed, never stored.
const (
	Anonymous     access.GroupUUID = "global:Anonymous-Users"
	Registered    access.GroupUUID = "global:Registered-Users"
	ProjectOwners access.GroupUUID = "global:Project-Owners"
	ChangeOwner   access.GroupUUID = "global:Change-Owner"
)

// SystemGroups maps each system group UUID to its display name.
var SystemGroups = map[access.GroupUUID]string{
	Anonymous:     "Anonymous Users",
	Registered:    "Registered Users",
	ProjectOwners: "Project Owners",
	ChangeOwner:   "Change Owner",
}

// IsSystemGroup reports whether uuid is one of the computed groups.
func IsSystemGroup(uuid access.GroupUUID) bool {
	_, ok := SystemGroups[uuid]
	return ok
}

// SystemGroupRef returns a reference to a system group.
func SystemGroupRef(uuid access.GroupUUID) access.GroupReference {
	return access.GroupReference{UUID: uuid, Name: SystemGroups[uuid]}
}

// User is an account, an anonymous caller or an internal process.
type User struct {
	ID       int                `json:"account_id,omitempty" yaml:"account_id,omitempty" mapstructure:"account_id"`
	Name     string             `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Emails   []string           `json:"emails,omitempty" yaml:"emails,omitempty" mapstructure:"emails"`
	Groups   []access.GroupUUID `json:"groups,omitempty" yaml:"groups,omitempty" mapstructure:"groups"`
	Admin    bool               `json:"admin,omitempty" yaml:"admin,omitempty" mapstructure:"admin"`
	Internal bool               `json:"internal,omitempty" yaml:"internal,omitempty" mapstructure:"internal"`
}

// Anon returns the anonymous caller.
func Anon() *User { return &User{} }

// InternalUser returns a trusted server-side caller, e.g. replication.
func InternalUser() *User { return &User{Internal: true} }

// Username implements refpattern.Identity.
func (u *User) Username() string {
	if u == nil {
		return ""
	}
	return u.Name
}

// EmailAddresses implements refpattern.Identity.
func (u *User) EmailAddresses() []string {
	if u == nil {
		return nil
	}
	return u.Emails
}

// AccountID implements refpattern.Identity.
func (u *User) AccountID() int {
	if u == nil {
		return 0
	}
	return u.ID
}

// IsIdentified reports whether the caller has an account.
func (u *User) IsIdentified() bool {
	return u != nil && !u.Internal && (u.ID > 0 || u.Name != "")
}

// IsInternal reports whether the caller is a trusted internal process.
func (u *User) IsInternal() bool {
	return u != nil && u.Internal
}

// HasEmail reports whether addr is one of the user's addresses.
func (u *User) HasEmail(addr string) bool {
	return u != nil && slices.Contains(u.Emails, addr)
}

// LoggableName returns a short identifier for logs and error messages.
func (u *User) LoggableName() string {
	switch {
	case u == nil:
		return "anonymous"
	case u.Internal:
		return "internal"
	case u.Name != "":
		return u.Name
	case u.ID > 0:
		return fmt.Sprintf("account-%d", u.ID)
	default:
		return "anonymous"
	}
}
