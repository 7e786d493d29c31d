package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/refperm/pkg/access"
)

// ErrUserNotFound is returned by Directory.LookupUser for unknown accounts.
var ErrUserNotFound = errors.New("user not found")

// Provider answers group membership and administrator questions.
type Provider interface {
	// EffectiveGroups returns every group the user belongs to, including
	// Anonymous Users for everyone and Registered Users for accounts.
	EffectiveGroups(ctx context.Context, u *User) (GroupSet, error)

	// IsAdministrator reports whether the user is a server administrator.
	IsAdministrator(ctx context.Context, u *User) (bool, error)
}

// Directory is the account and group backend behind a Resolver.
type Directory interface {
	// LookupUser returns the account called username with its direct
	// groups, or ErrUserNotFound.
	LookupUser(ctx context.Context, username string) (*User, error)

	// GroupIncludes returns, for each group, the groups it contains.
	GroupIncludes(ctx context.Context) (map[access.GroupUUID][]access.GroupUUID, error)
}

// Resolver is the Provider used by the permission backend. It adds the
// implicit system groups and expands group includes read from a Directory.
type Resolver struct {
	dir         Directory
	adminGroups []access.GroupUUID

	mu       sync.RWMutex
	includes map[access.GroupUUID][]access.GroupUUID
	loaded   bool
}

// NewResolver creates a Resolver. Members of any of adminGroups are
// administrators, as are users flagged Admin.
func NewResolver(dir Directory, adminGroups []access.GroupUUID) *Resolver {
	return &Resolver{dir: dir, adminGroups: adminGroups}
}

// Lookup resolves username through the directory.
func (r *Resolver) Lookup(ctx context.Context, username string) (*User, error) {
	u, err := r.dir.LookupUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", username, err)
	}
	return u, nil
}

// Invalidate drops cached group includes so the next call re-reads them.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.includes, r.loaded = nil, false
	r.mu.Unlock()
}

func (r *Resolver) groupIncludes(ctx context.Context) (map[access.GroupUUID][]access.GroupUUID, error) {
	r.mu.RLock()
	if r.loaded {
		inc := r.includes
		r.mu.RUnlock()
		return inc, nil
	}
	r.mu.RUnlock()

	inc, err := r.dir.GroupIncludes(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.includes, r.loaded = inc, true
	r.mu.Unlock()
	return inc, nil
}

// EffectiveGroups implements Provider.
func (r *Resolver) EffectiveGroups(ctx context.Context, u *User) (GroupSet, error) {
	set := NewGroupSet(Anonymous)
	if u == nil {
		return set, nil
	}
	if u.IsIdentified() {
		set.Add(Registered)
	}
	for _, g := range u.Groups {
		set.Add(g)
	}

	inc, err := r.groupIncludes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load group includes: %w", err)
	}
	set.expandIncludes(inc)
	return set, nil
}

// IsAdministrator implements Provider.
func (r *Resolver) IsAdministrator(ctx context.Context, u *User) (bool, error) {
	if u == nil || u.Internal {
		return false, nil
	}
	if u.Admin {
		return true, nil
	}
	if len(r.adminGroups) == 0 {
		return false, nil
	}
	groups, err := r.EffectiveGroups(ctx, u)
	if err != nil {
		return false, err
	}
	return groups.ContainsAny(r.adminGroups), nil
}
