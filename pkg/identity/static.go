package identity

import (
	"context"
	"fmt"
	"maps"

	"github.com/marmos91/refperm/pkg/access"
)

// StaticDirectory is an in-memory Directory, typically built from the
// identity section of the configuration file.
type StaticDirectory struct {
	users    map[string]*User
	includes map[access.GroupUUID][]access.GroupUUID
}

// NewStaticDirectory indexes users by username. Duplicate usernames are an
// error.
func NewStaticDirectory(users []User, includes map[access.GroupUUID][]access.GroupUUID) (*StaticDirectory, error) {
	d := &StaticDirectory{
		users:    make(map[string]*User, len(users)),
		includes: maps.Clone(includes),
	}
	for i := range users {
		u := users[i]
		if u.Name == "" {
			return nil, fmt.Errorf("static user #%d has no username", i)
		}
		if _, dup := d.users[u.Name]; dup {
			return nil, fmt.Errorf("duplicate static user %q", u.Name)
		}
		d.users[u.Name] = &u
	}
	return d, nil
}

// LookupUser implements Directory. The returned user is a copy.
func (d *StaticDirectory) LookupUser(_ context.Context, username string) (*User, error) {
	u, ok := d.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// GroupIncludes implements Directory.
func (d *StaticDirectory) GroupIncludes(context.Context) (map[access.GroupUUID][]access.GroupUUID, error) {
	return d.includes, nil
}
