package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/permissions"
	"github.com/marmos91/refperm/pkg/project"
	"github.com/marmos91/refperm/pkg/project/store"
	"github.com/marmos91/refperm/pkg/specificity"
)

// Engine bundles every component of a configured permission engine.
type Engine struct {
	Store     store.Store
	Clock     *project.TickingClock
	Cache     *project.Cache
	Hierarchy *project.Hierarchy
	Sorter    *specificity.Sorter
	Resolver  *identity.Resolver
	Backend   *permissions.Backend

	// Watcher is set only for a yaml store with watch enabled.
	Watcher *store.Watcher
}

// InitializeEngine builds an Engine from cfg. Metrics are registered on reg
// when it is non-nil. The root project is created if the store lacks it.
//
// Background work (the cache clock and the file watcher) only begins with
// Start; Close releases everything.
func InitializeEngine(ctx context.Context, cfg *Config, reg prometheus.Registerer) (*Engine, error) {
	logger.Debug("Initializing permission engine", logger.KeyStoreType, string(cfg.Store.Type))

	st, err := CreateStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open project store: %w", err)
	}
	e := &Engine{Store: st}

	if _, err := BootstrapRoot(ctx, st, &cfg.Engine); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to bootstrap root project: %w", err)
	}

	e.Resolver, err = cfg.CreateResolver(st)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create identity directory: %w", err)
	}

	e.Sorter, err = specificity.NewSorter(cfg.Cache.SortCacheSize, specificity.NewMetrics(reg))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create sort cache: %w", err)
	}

	e.Clock = project.NewTickingClock(cfg.Cache.CheckFrequency)
	e.Cache = project.NewCache(st, e.Clock, cfg.Engine.AllProjectsName, project.NewMetrics(reg))
	e.Hierarchy = project.NewHierarchy(e.Cache)
	e.Backend = permissions.NewBackend(e.Hierarchy, e.Sorter, e.Resolver, permissions.NewMetrics(reg))

	if cfg.Store.Type == StoreTypeYAML && cfg.Store.YAML.Watch {
		if e.Watcher, err = e.newWatcher(); err != nil {
			e.Close()
			return nil, err
		}
	}

	logger.Info("Permission engine ready",
		logger.KeyStoreType, string(cfg.Store.Type),
		logger.KeyProject, cfg.Engine.AllProjectsName,
		"check_frequency", cfg.Cache.CheckFrequency)
	return e, nil
}

func (e *Engine) newWatcher() (*store.Watcher, error) {
	st := e.Store
	if p, ok := st.(*store.PersistedStore); ok {
		st = p.Store
	}
	ys, ok := st.(*store.YAMLStore)
	if !ok {
		return nil, errors.New("store watch requires the yaml store")
	}
	w, err := store.NewWatcher(ys, e.onProjectFileChange)
	if err != nil {
		return nil, fmt.Errorf("failed to watch project directory: %w", err)
	}
	return w, nil
}

// onProjectFileChange keeps the cache and project list in line with edits
// made directly to the store directory.
func (e *Engine) onProjectFileChange(name string, kind store.ChangeKind) {
	switch kind {
	case store.ChangeCreated:
		e.Cache.OnCreateProject(name)
		e.Cache.Evict(name)
	case store.ChangeRemoved:
		e.Cache.Remove(name)
	default:
		e.Cache.Evict(name)
	}
}

// Start launches the cache clock and, if configured, the file watcher.
func (e *Engine) Start(ctx context.Context) {
	e.Clock.Start(ctx)
	if e.Watcher != nil {
		e.Watcher.Start(ctx)
	}
}

// Close stops background work and closes the store.
func (e *Engine) Close() {
	if e.Watcher != nil {
		e.Watcher.Stop()
	}
	if e.Clock != nil {
		e.Clock.Stop()
	}
	if e.Sorter != nil {
		e.Sorter.Close()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			logger.Warn("Failed to close project store", logger.KeyError, err)
		}
	}
}

// Ready reports whether the root project can be loaded through the cache.
func (e *Engine) Ready(ctx context.Context) error {
	_, err := e.Cache.Get(ctx, e.Cache.Root())
	return err
}
