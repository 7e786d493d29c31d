package config

import (
	"fmt"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project/store"
)

// CreateDirectory returns the user and group directory selected by
// cfg.Identity. The store type reads the accounts tables of st, which must
// then be a GORM store (possibly behind the persisted cache).
func (c *Config) CreateDirectory(st store.Store) (identity.Directory, error) {
	switch c.Identity.Type {
	case IdentityTypeStatic, "":
		return identity.NewStaticDirectory(c.Identity.Users, c.groupIncludes())
	case IdentityTypeStore:
		if p, ok := st.(*store.PersistedStore); ok {
			st = p.Store
		}
		dir, ok := st.(identity.Directory)
		if !ok {
			return nil, fmt.Errorf("identity type store: %T has no accounts", st)
		}
		return dir, nil
	default:
		return nil, fmt.Errorf("unknown identity type: %q", c.Identity.Type)
	}
}

// CreateResolver wraps the configured directory with the engine's
// administrator groups.
func (c *Config) CreateResolver(st store.Store) (*identity.Resolver, error) {
	dir, err := c.CreateDirectory(st)
	if err != nil {
		return nil, err
	}
	return identity.NewResolver(dir, c.adminGroups()), nil
}

func (c *Config) adminGroups() []access.GroupUUID {
	out := make([]access.GroupUUID, 0, len(c.Engine.AdminGroups))
	for _, g := range c.Engine.AdminGroups {
		out = append(out, access.GroupUUID(g))
	}
	return out
}

func (c *Config) groupIncludes() map[access.GroupUUID][]access.GroupUUID {
	if len(c.Identity.Includes) == 0 {
		return nil
	}
	out := make(map[access.GroupUUID][]access.GroupUUID, len(c.Identity.Includes))
	for g, members := range c.Identity.Includes {
		list := make([]access.GroupUUID, len(members))
		for i, m := range members {
			list[i] = access.GroupUUID(m)
		}
		out[access.GroupUUID(g)] = list
	}
	return out
}
