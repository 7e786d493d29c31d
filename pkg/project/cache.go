// Package project caches project configurations and resolves their
// inheritance hierarchy.
//
// The Cache loads each project's config from a store.Store at most once
// per key at a time and keeps the parsed State in memory. Staleness is
// controlled by a generation Clock: when the clock's generation changes,
// the next lookup of a state compares its revision with the store and
// reloads on mismatch. Writers evict explicitly after committing.
package project

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/internal/telemetry"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/project/store"
)

// Cache is the project permission cache. It is safe for concurrent use.
type Cache struct {
	store   store.Store
	clock   Clock
	metrics *Metrics
	root    string

	loads singleflight.Group

	mu      sync.RWMutex
	entries map[string]*State

	// evictions is bumped by every eviction so that a load racing with an
	// eviction does not publish a stale state.
	evictions atomic.Uint64

	list projectList
}

// NewCache creates a cache over st. clock may be nil, in which case every
// lookup re-checks the revision. root defaults to access.DefaultRootProject.
// metrics may be nil.
func NewCache(st store.Store, clock Clock, root string, metrics *Metrics) *Cache {
	if clock == nil {
		clock = NewManualClock(0)
	}
	if root == "" {
		root = access.DefaultRootProject
	}
	c := &Cache{
		store:   st,
		clock:   clock,
		metrics: metrics,
		root:    root,
		entries: make(map[string]*State),
	}
	c.list.init()
	return c
}

// Store returns the underlying store.
func (c *Cache) Store() store.Store { return c.store }

// Root returns the root project name.
func (c *Cache) Root() string { return c.root }

// Get returns the state of name. A missing project yields ErrNoSuchProject;
// any other store failure is wrapped in a *BackendError.
func (c *Cache) Get(ctx context.Context, name string) (*State, error) {
	s, err := c.GetStrict(ctx, name)
	if err == nil {
		return s, nil
	}
	if errors.Is(err, store.ErrProjectNotFound) {
		return nil, noSuchProject(name)
	}
	return nil, &BackendError{Project: name, Err: err}
}

// GetStrict is like Get but returns store errors unchanged, including
// store.ErrProjectNotFound.
func (c *Cache) GetStrict(ctx context.Context, name string) (*State, error) {
	gen := c.clock.Generation()

	c.mu.RLock()
	s := c.entries[name]
	c.mu.RUnlock()

	if s != nil {
		if !s.needsRefresh(gen) {
			c.metrics.ObserveHit()
			return s, nil
		}
		rev, err := c.store.Revision(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrProjectNotFound) {
				c.evictEntry(name, s)
			}
			return nil, err
		}
		if rev == s.Revision() {
			s.markChecked(gen)
			c.metrics.ObserveHit()
			return s, nil
		}
		logger.DebugCtx(ctx, "Project revision changed",
			logger.Project(name), logger.Revision(rev), logger.Generation(gen))
		c.evictEntry(name, s)
	}

	c.metrics.ObserveMiss()
	return c.load(ctx, name, gen)
}

// load reads name from the store. Flights are keyed by the eviction
// sequence as well as the name, so a lookup issued after an eviction never
// joins a load that started before it.
func (c *Cache) load(ctx context.Context, name string, gen int64) (*State, error) {
	key := name + "\x00" + strconv.FormatUint(c.evictions.Load(), 10)
	v, err, _ := c.loads.Do(key, func() (any, error) {
		ctx, span := telemetry.StartProjectSpan(ctx, telemetry.SpanProjectLoad, name, telemetry.Generation(gen))
		defer span.End()

		seq := c.evictions.Load()
		start := time.Now()
		cfg, err := c.store.Load(ctx, name)
		switch {
		case errors.Is(err, store.ErrProjectNotFound):
			c.metrics.ObserveLoad(LoadNotFound, time.Since(start))
			return nil, err
		case err != nil:
			c.metrics.ObserveLoad(LoadError, time.Since(start))
			telemetry.RecordError(ctx, err)
			logger.WarnCtx(ctx, "Project load failed", logger.Project(name), logger.Err(err))
			return nil, err
		}
		c.metrics.ObserveLoad(LoadSuccess, time.Since(start))
		telemetry.SetAttributes(ctx, telemetry.Revision(cfg.Revision))

		s := newState(cfg, c.root, gen)
		c.mu.Lock()
		if c.evictions.Load() == seq {
			c.entries[name] = s
		}
		c.mu.Unlock()

		logger.DebugCtx(ctx, "Project loaded",
			logger.Project(name), logger.Revision(cfg.Revision), logger.DurationMs(logger.Duration(start)))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*State), nil
}

// Evict drops name from the cache. The next lookup reloads it.
func (c *Cache) Evict(name string) {
	c.evictions.Add(1)
	c.mu.Lock()
	_, ok := c.entries[name]
	delete(c.entries, name)
	c.mu.Unlock()
	if ok {
		c.metrics.ObserveEviction()
		logger.Debug("Project evicted", logger.Project(name))
	}
}

// EvictAll empties the cache.
func (c *Cache) EvictAll() {
	c.evictions.Add(1)
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*State)
	c.mu.Unlock()
	for range n {
		c.metrics.ObserveEviction()
	}
}

// evictEntry drops name only if it still maps to s.
func (c *Cache) evictEntry(name string, s *State) {
	c.evictions.Add(1)
	c.mu.Lock()
	cur, ok := c.entries[name]
	if ok && cur == s {
		delete(c.entries, name)
	}
	c.mu.Unlock()
	if ok && cur == s {
		c.metrics.ObserveEviction()
	}
}

// Cached reports whether name currently has a cached state.
func (c *Cache) Cached(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}
