package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project/store"
)

// CreateStore opens the project store selected by cfg.Store and, when
// enabled, wraps it with the persisted parsed-config cache.
func CreateStore(cfg *Config) (store.Store, error) {
	st, err := createBaseStore(&cfg.Store)
	if err != nil {
		return nil, err
	}

	p := cfg.Cache.Persisted
	if !p.Enabled {
		return st, nil
	}
	persisted, err := store.NewPersistedStore(st, store.PersistedConfig{
		Path:           p.Path,
		InMemory:       p.InMemory,
		BlockCacheSize: p.BlockCacheSize.Int64(),
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Debug("Persisted project cache enabled", logger.KeyPath, p.Path, "in_memory", p.InMemory)
	return persisted, nil
}

func createBaseStore(cfg *StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case StoreTypeMemory:
		return store.NewMemoryStore()
	case StoreTypeYAML:
		return store.NewYAMLStore(cfg.YAML.Dir)
	case StoreTypeSQLite, StoreTypePostgres:
		return store.NewGORMStore(cfg.Database())
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// BootstrapRoot creates the root project with a default access
// configuration unless it already exists. It reports whether the project
// was created.
func BootstrapRoot(ctx context.Context, st store.Store, cfg *EngineConfig) (bool, error) {
	_, err := st.Revision(ctx, cfg.AllProjectsName)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrProjectNotFound) {
		return false, err
	}

	root := DefaultRootConfig(cfg.AllProjectsName, cfg.AdminGroups)
	if err := st.Create(ctx, root); err != nil {
		if errors.Is(err, store.ErrDuplicateProject) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", cfg.AllProjectsName, err)
	}
	logger.Info("Created root project", logger.KeyProject, cfg.AllProjectsName)
	return true, nil
}

// DefaultRootConfig returns the access configuration of a fresh root
// project: anyone may read, registered users may upload and vote -1..+1 on
// Code-Review, and the administrator groups own everything.
func DefaultRootConfig(name string, adminGroups []string) *access.ProjectConfig {
	c := access.NewProjectConfig(name)
	c.Description = "Access inherited by all other projects."
	c.LabelTypes = []*access.LabelType{{
		Name:     "Code-Review",
		Function: access.FunctionMaxWithBlock,
		Values: map[int]string{
			-2: "This shall not be submitted",
			-1: "I would prefer this is not submitted as is",
			0:  "No score",
			1:  "Looks good to me, but someone else must approve",
			2:  "Looks good to me, approved",
		},
	}}

	anonymous := identity.SystemGroupRef(identity.Anonymous)
	registered := identity.SystemGroupRef(identity.Registered)
	owners := identity.SystemGroupRef(identity.ProjectOwners)

	c.Grant("refs/*", access.Read, access.NewRule(anonymous))
	c.Grant("refs/for/*", access.AddPatchSet, access.NewRule(registered))
	c.Grant("refs/for/refs/*", access.Push, access.NewRule(registered))
	c.Grant("refs/for/refs/*", access.PushMerge, access.NewRule(registered))

	review := access.NewRule(registered)
	review.SetRange(-1, 1)
	c.Grant("refs/heads/*", access.LabelPermission("Code-Review"), review)
	ownerReview := access.NewRule(owners)
	ownerReview.SetRange(-2, 2)
	c.Grant("refs/heads/*", access.LabelPermission("Code-Review"), ownerReview)

	c.Grant("refs/heads/*", access.Create, access.NewRule(owners))
	c.Grant("refs/heads/*", access.Push, access.NewRule(owners))
	c.Grant("refs/heads/*", access.Submit, access.NewRule(owners))
	c.Grant("refs/tags/*", access.CreateTag, access.NewRule(owners))

	for _, g := range adminGroups {
		ref := access.GroupReference{UUID: access.GroupUUID(g), Name: g}
		c.Grant("refs/*", access.Owner, access.NewRule(ref))
	}

	meta := c.UpsertSection("refs/meta/config")
	read := meta.Upsert(access.Read)
	read.ExclusiveGroup = true
	read.Add(access.NewRule(owners))
	return c
}
